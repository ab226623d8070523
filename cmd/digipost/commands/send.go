package commands

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-digipost/pkg/delivery"
	"github.com/sirosfoundation/go-digipost/pkg/message"
)

// send <file>: deliver a document, with optional attachments, to a recipient.
func sendCmd(a *app) *cobra.Command {
	var (
		recipient   recipientFlags
		subject     string
		attachments []string
		encrypt     bool
		messageID   string
		senderID    string
	)

	cmd := &cobra.Command{
		Use:   "send <file>",
		Short: "Deliver a letter digitally or by print",
		Long: `Deliver a letter to a Digipost user, to a postal address, or to a
Digipost user with a postal address as fallback. Repeating the command with
the same --message-id never delivers the letter twice.`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			rcpt, err := recipient.recipient()
			if err != nil {
				return err
			}

			if messageID == "" {
				messageID = message.NewMessageID()
			}

			contents := delivery.Contents{}
			primary, err := loadDocument(args[0], subject, documentUUID(messageID, 0), encrypt, contents)
			if err != nil {
				return err
			}
			var docs []message.Document
			for i, path := range attachments {
				doc, err := loadDocument(path, filepath.Base(path), documentUUID(messageID, i+1), encrypt, contents)
				if err != nil {
					return err
				}
				docs = append(docs, doc)
			}

			opts := []message.Option{message.WithAttachments(docs...)}
			if senderID != "" {
				opts = append(opts, message.WithSenderID(senderID))
			}
			msg, err := message.New(messageID, rcpt, primary, opts...)
			if err != nil {
				return err
			}

			state, err := a.client.Deliver(cmd.Context(), msg, contents)
			var delivered *delivery.AlreadyDeliveredError
			if errors.As(err, &delivered) {
				a.logger.Info("Message was delivered earlier", "message_id", msg.ID)
				err = nil
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "message:  %s\n", state.MessageID())
			fmt.Fprintf(out, "status:   %s\n", state.Status())
			fmt.Fprintf(out, "channel:  %s\n", state.Channel())
			if !state.DeliveryTime().IsZero() {
				fmt.Fprintf(out, "delivered: %s\n", state.DeliveryTime().Format(time.RFC3339))
			}
			for _, d := range state.Documents() {
				fmt.Fprintf(out, "document: %s %s\n", d.UUID, d.Subject)
			}
			return nil
		}),
	}

	recipient.register(cmd)
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "subject of the primary document (default: file name)")
	cmd.Flags().StringArrayVar(&attachments, "attach", nil, "attachment file, may be repeated")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "encrypt all documents")
	cmd.Flags().StringVar(&messageID, "message-id", "", "message id, reuse to retry a delivery (default: random)")
	cmd.Flags().StringVar(&senderID, "sender-id", "", "send on behalf of this sender")
	return cmd
}

// documentUUID derives the UUID of the i-th document of a message, so that a
// retry with the same message id describes the same documents
func documentUUID(messageID string, i int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("digipost:%s/%d", messageID, i))).String()
}

// loadDocument reads path into contents and describes it as a document
func loadDocument(path, subject, id string, encrypt bool, contents delivery.Contents) (message.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return message.Document{}, fmt.Errorf("reading %s: %w", path, err)
	}

	fileType := message.FileType(strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")))
	if fileType == "" {
		return message.Document{}, fmt.Errorf("%s has no file extension", path)
	}
	if subject == "" {
		subject = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	opts := []message.DocumentOption{message.WithUUID(id)}
	if encrypt {
		opts = append(opts, message.Encrypted())
	}
	doc := message.NewDocument(subject, fileType, opts...)
	contents[doc.UUID] = bytes.NewReader(data)
	return doc, nil
}
