package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-digipost/pkg/senderinfo"
)

// identify: report whether a recipient is a Digipost user.
func identifyCmd(a *app) *cobra.Command {
	var id identifierFlags

	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Check whether a recipient can receive digital mail",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			identifier, err := id.identifier()
			if err != nil {
				return err
			}
			result, err := a.client.Identify(cmd.Context(), identifier)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "result:  %s\n", result.Code)
			if result.DigipostAddress != "" {
				fmt.Fprintf(out, "address: %s\n", result.DigipostAddress)
			}
			if result.Reason != "" {
				fmt.Fprintf(out, "reason:  %s\n", result.Reason)
			}
			return nil
		}),
	}
	id.register(cmd)
	return cmd
}

// sender-info: show the status and features of a sender.
func senderInfoCmd(a *app) *cobra.Command {
	var senderID, org, part string

	cmd := &cobra.Command{
		Use:   "sender-info",
		Short: "Show status and features of a sender",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			lookup := senderinfo.BySenderID(senderID)
			if org != "" {
				lookup = senderinfo.ByOrganisation(org, part)
			} else if senderID == "" {
				lookup = senderinfo.BySenderID(a.cfg.Gateway.UserID)
			}

			info, err := a.client.GetSenderInformation(cmd.Context(), lookup)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if info.SenderID != "" {
				fmt.Fprintf(out, "sender:  %s\n", info.SenderID)
			}
			fmt.Fprintf(out, "status:  %s\n", info.Status)
			for _, f := range info.Features {
				if f.Param != "" {
					fmt.Fprintf(out, "feature: %s (%s)\n", f.Identifier, f.Param)
					continue
				}
				fmt.Fprintf(out, "feature: %s\n", f.Identifier)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&senderID, "sender-id", "", "sender id (default: the configured user id)")
	cmd.Flags().StringVar(&org, "org", "", "organisation number")
	cmd.Flags().StringVar(&part, "part", "", "part id within the organisation")
	cmd.MarkFlagsMutuallyExclusive("sender-id", "org")
	return cmd
}

// document-status <uuid>: show the delivery status of a document.
func documentStatusCmd(a *app) *cobra.Command {
	var senderID string

	cmd := &cobra.Command{
		Use:   "document-status <uuid>",
		Short: "Show the delivery status of a document",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			status, err := a.client.GetDocumentStatus(cmd.Context(), senderID, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "document: %s\n", status.UUID)
			fmt.Fprintf(out, "status:   %s\n", status.DeliveryStatus)
			fmt.Fprintf(out, "channel:  %s\n", status.Channel)
			fmt.Fprintf(out, "primary:  %t\n", status.IsPrimaryDocument)
			fmt.Fprintf(out, "created:  %s\n", status.Created.Format(time.RFC3339))
			if !status.Delivered.IsZero() {
				fmt.Fprintf(out, "delivered: %s\n", status.Delivered.Format(time.RFC3339))
			}
			if status.ContentHash != "" {
				fmt.Fprintf(out, "sha256:   %s\n", status.ContentHash)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&senderID, "sender-id", "", "sender that created the document (default: the configured user id)")
	return cmd
}
