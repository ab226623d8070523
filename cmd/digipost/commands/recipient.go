package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-digipost/pkg/message"
)

// identifierFlags selects a recipient by one digital identifier
type identifierFlags struct {
	pin     string
	org     string
	address string
	peppol  string
}

func (f *identifierFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.pin, "pin", "", "personal identification number")
	cmd.Flags().StringVar(&f.org, "org", "", "organisation number")
	cmd.Flags().StringVar(&f.address, "address", "", "Digipost address")
	cmd.Flags().StringVar(&f.peppol, "peppol", "", "PEPPOL participant id")
	cmd.MarkFlagsMutuallyExclusive("pin", "org", "address", "peppol")
}

func (f *identifierFlags) set() bool {
	return f.pin != "" || f.org != "" || f.address != "" || f.peppol != ""
}

func (f *identifierFlags) identifier() (message.Identifier, error) {
	switch {
	case f.pin != "":
		return message.PersonalIdentificationNumber(f.pin), nil
	case f.org != "":
		return message.OrganisationNumber(f.org), nil
	case f.address != "":
		return message.DigipostAddress(f.address), nil
	case f.peppol != "":
		return message.PeppolAddress(f.peppol), nil
	default:
		return nil, fmt.Errorf("one of --pin, --org, --address or --peppol is required")
	}
}

// addressFlags is a Norwegian postal address
type addressFlags struct {
	name       string
	line1      string
	line2      string
	postalCode string
	city       string
	country    string
}

func (f *addressFlags) register(cmd *cobra.Command, prefix, what string) {
	cmd.Flags().StringVar(&f.name, prefix+"-name", "", what+" name")
	cmd.Flags().StringVar(&f.line1, prefix+"-line1", "", what+" address line")
	cmd.Flags().StringVar(&f.line2, prefix+"-line2", "", what+" second address line")
	cmd.Flags().StringVar(&f.postalCode, prefix+"-postal-code", "", what+" postal code")
	cmd.Flags().StringVar(&f.city, prefix+"-city", "", what+" city")
	cmd.Flags().StringVar(&f.country, prefix+"-country", "", what+" country, for foreign addresses")
}

func (f *addressFlags) set() bool {
	return f.name != "" || f.line1 != "" || f.postalCode != "" || f.city != ""
}

func (f *addressFlags) address() message.PrintAddress {
	return message.PrintAddress{
		Name:         f.name,
		AddressLine1: f.line1,
		AddressLine2: f.line2,
		PostalCode:   f.postalCode,
		City:         f.city,
		Country:      f.country,
	}
}

// recipientFlags selects a digital recipient, a print recipient or a
// digital recipient with print fallback
type recipientFlags struct {
	digital   identifierFlags
	print     addressFlags
	returnTo  addressFlags
	postTypeA bool
	color     bool
}

func (f *recipientFlags) register(cmd *cobra.Command) {
	f.digital.register(cmd)
	f.print.register(cmd, "print", "print recipient")
	f.returnTo.register(cmd, "return", "return")
	cmd.Flags().BoolVar(&f.postTypeA, "a-post", false, "send print by A-post")
	cmd.Flags().BoolVar(&f.color, "color", false, "print in color")
}

func (f *recipientFlags) recipient() (message.Recipient, error) {
	var details *message.PrintDetails
	if f.print.set() {
		postType := message.PostTypeB
		if f.postTypeA {
			postType = message.PostTypeA
		}
		details = &message.PrintDetails{
			Recipient:     f.print.address(),
			ReturnAddress: f.returnTo.address(),
			PostType:      postType,
			Color:         f.color,
		}
	}

	if !f.digital.set() {
		if details == nil {
			return nil, fmt.Errorf("a digital identifier or a print address is required")
		}
		return message.PrintRecipient{Details: *details}, nil
	}

	id, err := f.digital.identifier()
	if err != nil {
		return nil, err
	}
	return message.DigitalRecipient{ID: id, PrintFallback: details}, nil
}
