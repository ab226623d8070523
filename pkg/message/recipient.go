package message

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRecipient is returned for recipients that cannot be addressed
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrMissingReturnAddress is returned for print details without a return address
	ErrMissingReturnAddress = errors.New("print details require a return address")
)

// Identifier addresses a Digipost user
type Identifier interface {
	identifierKey() string
	applyTo(x *RecipientXML)
}

// DigipostAddress is an address like "ola.nordmann#1234"
type DigipostAddress string

// PersonalIdentificationNumber is an 11 digit national identity number
type PersonalIdentificationNumber string

// OrganisationNumber is a 9 digit organisation number
type OrganisationNumber string

// PeppolAddress is a PEPPOL participant id like "0192:987654321"
type PeppolAddress string

// NameAndAddress identifies a person by name and postal address
type NameAndAddress struct {
	FullName     string
	AddressLine1 string
	AddressLine2 string
	PostalCode   string
	City         string
	BirthDate    string
	PhoneNumber  string
	Email        string
}

func (a DigipostAddress) identifierKey() string {
	return "digipost-address:" + strings.ToLower(strings.TrimSpace(string(a)))
}

func (a DigipostAddress) applyTo(x *RecipientXML) {
	x.DigipostAddress = string(a)
}

func (p PersonalIdentificationNumber) identifierKey() string {
	return "pin:" + strings.TrimSpace(string(p))
}

func (p PersonalIdentificationNumber) applyTo(x *RecipientXML) {
	x.PersonalIdentificationNumber = string(p)
}

func (o OrganisationNumber) identifierKey() string {
	return "org:" + strings.TrimSpace(string(o))
}

func (o OrganisationNumber) applyTo(x *RecipientXML) {
	x.OrganisationNumber = string(o)
}

func (p PeppolAddress) identifierKey() string {
	return "peppol:" + strings.ToLower(strings.TrimSpace(string(p)))
}

func (p PeppolAddress) applyTo(x *RecipientXML) {
	x.PeppolAddress = string(p)
}

func (n NameAndAddress) identifierKey() string {
	return "name-and-address:" + strings.ToLower(strings.Join([]string{
		strings.TrimSpace(n.FullName),
		strings.TrimSpace(n.AddressLine1),
		strings.TrimSpace(n.AddressLine2),
		strings.TrimSpace(n.PostalCode),
		strings.TrimSpace(n.City),
		strings.TrimSpace(n.BirthDate),
	}, "|"))
}

func (n NameAndAddress) applyTo(x *RecipientXML) {
	x.NameAndAddress = &NameAndAddressXML{
		FullName:     n.FullName,
		AddressLine1: n.AddressLine1,
		AddressLine2: n.AddressLine2,
		PostalCode:   n.PostalCode,
		City:         n.City,
		BirthDate:    n.BirthDate,
		PhoneNumber:  n.PhoneNumber,
		Email:        n.Email,
	}
}

// Recipient is either a DigitalRecipient or a PrintRecipient
type Recipient interface {
	// Key returns a canonical string identifying the addressed recipient
	Key() string
	isRecipient()
}

// DigitalRecipient is addressed by a digital identifier. PrintFallback, when
// set, is used if the recipient turns out not to be a Digipost user.
type DigitalRecipient struct {
	ID            Identifier
	PrintFallback *PrintDetails
}

// PrintRecipient is delivered by physical mail only
type PrintRecipient struct {
	Details PrintDetails
}

func (DigitalRecipient) isRecipient() {}
func (PrintRecipient) isRecipient()   {}

// Key implements Recipient
func (r DigitalRecipient) Key() string {
	if r.ID == nil {
		return ""
	}
	key := r.ID.identifierKey()
	if r.PrintFallback != nil {
		key += "+" + r.PrintFallback.key()
	}
	return key
}

// Key implements Recipient
func (r PrintRecipient) Key() string {
	return r.Details.key()
}

// HasPrintFallback reports whether a digital recipient can fall back to print
func (r DigitalRecipient) HasPrintFallback() bool {
	return r.PrintFallback != nil
}

// PostType selects the postal speed for print
type PostType string

const (
	PostTypeA PostType = "A"
	PostTypeB PostType = "B"
)

// PrintAddress is a postal address. Norwegian addresses use PostalCode and
// City; foreign addresses set Country and may use all address lines.
type PrintAddress struct {
	Name         string
	AddressLine1 string
	AddressLine2 string
	AddressLine3 string
	PostalCode   string
	City         string
	Country      string
}

func (a PrintAddress) isZero() bool {
	return a == PrintAddress{}
}

func (a PrintAddress) key() string {
	return strings.ToLower(strings.Join([]string{
		strings.TrimSpace(a.Name),
		strings.TrimSpace(a.AddressLine1),
		strings.TrimSpace(a.PostalCode),
		strings.TrimSpace(a.City),
		strings.TrimSpace(a.Country),
	}, "|"))
}

// PrintDetails describes how a letter is printed and mailed
type PrintDetails struct {
	Recipient     PrintAddress
	ReturnAddress PrintAddress
	PostType      PostType
	Color         bool
}

func (p PrintDetails) key() string {
	return "print:" + p.Recipient.key()
}

// Validate checks that both addresses are present
func (p PrintDetails) Validate() error {
	if p.Recipient.isZero() {
		return fmt.Errorf("%w: print recipient address is required", ErrInvalidRecipient)
	}
	if p.ReturnAddress.isZero() {
		return ErrMissingReturnAddress
	}
	return nil
}

// ValidateRecipient checks that r is a complete recipient
func ValidateRecipient(r Recipient) error {
	switch r := r.(type) {
	case DigitalRecipient:
		if r.ID == nil {
			return fmt.Errorf("%w: digital recipient requires an identifier", ErrInvalidRecipient)
		}
		if r.PrintFallback != nil {
			return r.PrintFallback.Validate()
		}
		return nil
	case PrintRecipient:
		return r.Details.Validate()
	case nil:
		return fmt.Errorf("%w: recipient is required", ErrInvalidRecipient)
	default:
		return fmt.Errorf("%w: unsupported recipient type %T", ErrInvalidRecipient, r)
	}
}

// RecipientToXML converts a recipient to its wire form
func RecipientToXML(r Recipient) *RecipientXML {
	x := &RecipientXML{}
	switch r := r.(type) {
	case DigitalRecipient:
		if r.ID != nil {
			r.ID.applyTo(x)
		}
		if r.PrintFallback != nil {
			x.PrintDetails = printDetailsToXML(*r.PrintFallback)
		}
	case PrintRecipient:
		x.PrintDetails = printDetailsToXML(r.Details)
	}
	return x
}

// IdentifierToXML converts an identifier to an identification request
func IdentifierToXML(id Identifier) *IdentificationXML {
	var r RecipientXML
	id.applyTo(&r)
	return &IdentificationXML{
		NameAndAddress:               r.NameAndAddress,
		DigipostAddress:              r.DigipostAddress,
		PersonalIdentificationNumber: r.PersonalIdentificationNumber,
		OrganisationNumber:           r.OrganisationNumber,
		PeppolAddress:                r.PeppolAddress,
	}
}

// RecipientFromXML converts a wire recipient back into the union.
// Exactly one identifier, or print details alone, must be present.
func RecipientFromXML(x *RecipientXML) (Recipient, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: recipient is missing", ErrInvalidRecipient)
	}

	id, err := identifierFromFields(x.NameAndAddress, x.DigipostAddress, x.PersonalIdentificationNumber, x.OrganisationNumber, x.PeppolAddress)
	if err != nil {
		return nil, err
	}

	var details *PrintDetails
	if x.PrintDetails != nil {
		d := printDetailsFromXML(x.PrintDetails)
		details = &d
	}

	switch {
	case id != nil:
		return DigitalRecipient{ID: id, PrintFallback: details}, nil
	case details != nil:
		return PrintRecipient{Details: *details}, nil
	default:
		return nil, fmt.Errorf("%w: recipient has neither identifier nor print details", ErrInvalidRecipient)
	}
}

// IdentifierFromXML converts an identification request into an Identifier
func IdentifierFromXML(x *IdentificationXML) (Identifier, error) {
	id, err := identifierFromFields(x.NameAndAddress, x.DigipostAddress, x.PersonalIdentificationNumber, x.OrganisationNumber, x.PeppolAddress)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, fmt.Errorf("%w: identification has no identifier", ErrInvalidRecipient)
	}
	return id, nil
}

func identifierFromFields(na *NameAndAddressXML, address, pin, org, peppol string) (Identifier, error) {
	var ids []Identifier
	if na != nil {
		ids = append(ids, NameAndAddress{
			FullName:     na.FullName,
			AddressLine1: na.AddressLine1,
			AddressLine2: na.AddressLine2,
			PostalCode:   na.PostalCode,
			City:         na.City,
			BirthDate:    na.BirthDate,
			PhoneNumber:  na.PhoneNumber,
			Email:        na.Email,
		})
	}
	if address != "" {
		ids = append(ids, DigipostAddress(address))
	}
	if pin != "" {
		ids = append(ids, PersonalIdentificationNumber(pin))
	}
	if org != "" {
		ids = append(ids, OrganisationNumber(org))
	}
	if peppol != "" {
		ids = append(ids, PeppolAddress(peppol))
	}

	switch len(ids) {
	case 0:
		return nil, nil
	case 1:
		return ids[0], nil
	default:
		return nil, fmt.Errorf("%w: %d identifiers set, expected one", ErrInvalidRecipient, len(ids))
	}
}

func printDetailsToXML(p PrintDetails) *PrintDetailsXML {
	return &PrintDetailsXML{
		Recipient:     printAddressToXML(p.Recipient),
		ReturnAddress: printAddressToXML(p.ReturnAddress),
		PostType:      string(p.PostType),
		Color:         p.Color,
	}
}

func printDetailsFromXML(x *PrintDetailsXML) PrintDetails {
	return PrintDetails{
		Recipient:     printAddressFromXML(x.Recipient),
		ReturnAddress: printAddressFromXML(x.ReturnAddress),
		PostType:      PostType(x.PostType),
		Color:         x.Color,
	}
}

func printAddressToXML(a PrintAddress) *PrintAddressXML {
	x := &PrintAddressXML{Name: a.Name}
	if a.Country == "" {
		x.Norwegian = &NorwegianAddressXML{
			AddressLine1: a.AddressLine1,
			AddressLine2: a.AddressLine2,
			AddressLine3: a.AddressLine3,
			PostalCode:   a.PostalCode,
			City:         a.City,
		}
	} else {
		x.Foreign = &ForeignAddressXML{
			AddressLine1: a.AddressLine1,
			AddressLine2: a.AddressLine2,
			AddressLine3: a.AddressLine3,
			PostalCode:   a.PostalCode,
			City:         a.City,
			Country:      a.Country,
		}
	}
	return x
}

func printAddressFromXML(x *PrintAddressXML) PrintAddress {
	if x == nil {
		return PrintAddress{}
	}
	a := PrintAddress{Name: x.Name}
	switch {
	case x.Norwegian != nil:
		a.AddressLine1 = x.Norwegian.AddressLine1
		a.AddressLine2 = x.Norwegian.AddressLine2
		a.AddressLine3 = x.Norwegian.AddressLine3
		a.PostalCode = x.Norwegian.PostalCode
		a.City = x.Norwegian.City
	case x.Foreign != nil:
		a.AddressLine1 = x.Foreign.AddressLine1
		a.AddressLine2 = x.Foreign.AddressLine2
		a.AddressLine3 = x.Foreign.AddressLine3
		a.PostalCode = x.Foreign.PostalCode
		a.City = x.Foreign.City
		a.Country = x.Foreign.Country
	}
	return a
}
