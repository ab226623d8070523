package message

import (
	"encoding/xml"
	"time"
)

// LinkXML is a hypermedia link
type LinkXML struct {
	Rel       string `xml:"rel,attr"`
	URI       string `xml:"uri,attr"`
	MediaType string `xml:"media-type,attr,omitempty"`
}

// MessageXML is the body of a create-message request
type MessageXML struct {
	XMLName         xml.Name       `xml:"http://api.digipost.no/schema/v8 message"`
	SenderID        string         `xml:"sender-id,omitempty"`
	MessageID       string         `xml:"message-id"`
	Recipient       *RecipientXML  `xml:"recipient"`
	PrimaryDocument *DocumentXML   `xml:"primary-document"`
	Attachments     []*DocumentXML `xml:"attachment,omitempty"`
}

// RecipientXML holds one identifier and optional print details
type RecipientXML struct {
	NameAndAddress               *NameAndAddressXML `xml:"name-and-address,omitempty"`
	DigipostAddress              string             `xml:"digipost-address,omitempty"`
	PersonalIdentificationNumber string             `xml:"personal-identification-number,omitempty"`
	OrganisationNumber           string             `xml:"organisation-number,omitempty"`
	PeppolAddress                string             `xml:"peppol-address,omitempty"`
	PrintDetails                 *PrintDetailsXML   `xml:"print-details,omitempty"`
}

// NameAndAddressXML identifies a person by name and address
type NameAndAddressXML struct {
	FullName     string `xml:"fullname"`
	AddressLine1 string `xml:"addressline1"`
	AddressLine2 string `xml:"addressline2,omitempty"`
	PostalCode   string `xml:"postalcode"`
	City         string `xml:"city"`
	BirthDate    string `xml:"birth-date,omitempty"`
	PhoneNumber  string `xml:"phone-number,omitempty"`
	Email        string `xml:"email-address,omitempty"`
}

// PrintDetailsXML describes how a letter is printed
type PrintDetailsXML struct {
	Recipient     *PrintAddressXML `xml:"recipient"`
	ReturnAddress *PrintAddressXML `xml:"return-address"`
	PostType      string           `xml:"post-type"`
	Color         bool             `xml:"color,omitempty"`
}

// PrintAddressXML is a named Norwegian or foreign address
type PrintAddressXML struct {
	Name      string               `xml:"name"`
	Norwegian *NorwegianAddressXML `xml:"norwegian-address,omitempty"`
	Foreign   *ForeignAddressXML   `xml:"foreign-address,omitempty"`
}

// NorwegianAddressXML is a Norwegian postal address
type NorwegianAddressXML struct {
	AddressLine1 string `xml:"addressline1,omitempty"`
	AddressLine2 string `xml:"addressline2,omitempty"`
	AddressLine3 string `xml:"addressline3,omitempty"`
	PostalCode   string `xml:"zip-code"`
	City         string `xml:"city"`
}

// ForeignAddressXML is a postal address outside Norway
type ForeignAddressXML struct {
	AddressLine1 string `xml:"addressline1"`
	AddressLine2 string `xml:"addressline2,omitempty"`
	AddressLine3 string `xml:"addressline3,omitempty"`
	PostalCode   string `xml:"postal-code,omitempty"`
	City         string `xml:"city,omitempty"`
	Country      string `xml:"country"`
}

// DocumentXML describes a document in requests and responses
type DocumentXML struct {
	UUID            string              `xml:"uuid"`
	Subject         string              `xml:"subject"`
	FileType        string              `xml:"file-type"`
	Encrypted       *EncryptedMarkerXML `xml:"encrypted,omitempty"`
	SMSNotification *SMSNotificationXML `xml:"sms-notification,omitempty"`
	Links           []LinkXML           `xml:"link,omitempty"`
}

// EncryptedMarkerXML marks an encrypted document
type EncryptedMarkerXML struct{}

// SMSNotificationXML requests SMS reminders
type SMSNotificationXML struct {
	AfterHours []int `xml:"after-hours"`
}

// MessageDeliveryXML is the gateway representation of a message in flight
type MessageDeliveryXML struct {
	XMLName         xml.Name       `xml:"http://api.digipost.no/schema/v8 message-delivery"`
	MessageID       string         `xml:"message-id"`
	SenderID        string         `xml:"sender-id,omitempty"`
	DeliveryMethod  string         `xml:"delivery-method,omitempty"`
	Status          string         `xml:"status"`
	DeliveryTime    *time.Time     `xml:"delivery-time,omitempty"`
	Recipient       *RecipientXML  `xml:"recipient,omitempty"`
	PrimaryDocument *DocumentXML   `xml:"primary-document"`
	Attachments     []*DocumentXML `xml:"attachment,omitempty"`
	Links           []LinkXML      `xml:"link,omitempty"`
}

// IdentificationXML is the body of an identification request
type IdentificationXML struct {
	XMLName                      xml.Name           `xml:"http://api.digipost.no/schema/v8 identification"`
	NameAndAddress               *NameAndAddressXML `xml:"name-and-address,omitempty"`
	DigipostAddress              string             `xml:"digipost-address,omitempty"`
	PersonalIdentificationNumber string             `xml:"personal-identification-number,omitempty"`
	OrganisationNumber           string             `xml:"organisation-number,omitempty"`
	PeppolAddress                string             `xml:"peppol-address,omitempty"`
}

// IdentificationResultXML is the result of an identification request
type IdentificationResultXML struct {
	XMLName            xml.Name `xml:"http://api.digipost.no/schema/v8 identification-result"`
	Result             string   `xml:"result"`
	DigipostAddress    string   `xml:"digipost-address,omitempty"`
	InvalidReason      string   `xml:"invalid-reason,omitempty"`
	UnidentifiedReason string   `xml:"unidentified-reason,omitempty"`
}

// IdentificationResultWithKeyXML is the result of an identification
// request that also returns the recipient's encryption key
type IdentificationResultWithKeyXML struct {
	XMLName              xml.Name                 `xml:"http://api.digipost.no/schema/v8 identification-result-with-encryption-key"`
	IdentificationResult *IdentificationResultXML `xml:"identification-result"`
	EncryptionKey        *EncryptionKeyXML        `xml:"encryption-key,omitempty"`
}

// EncryptionKeyXML is a public key for document encryption
type EncryptionKeyXML struct {
	XMLName xml.Name `xml:"http://api.digipost.no/schema/v8 encryption-key"`
	KeyID   string   `xml:"key-id"`
	Value   string   `xml:"value"`
}

// DocumentStatusXML is the status of a single delivered document
type DocumentStatusXML struct {
	XMLName           xml.Name   `xml:"http://api.digipost.no/schema/v8 document-status"`
	UUID              string     `xml:"uuid,attr"`
	DeliveryStatus    string     `xml:"delivery-status,attr"`
	Channel           string     `xml:"channel,attr,omitempty"`
	IsPrimaryDocument bool       `xml:"is-primary-document,attr,omitempty"`
	Created           time.Time  `xml:"created,attr"`
	Delivered         *time.Time `xml:"delivered,attr,omitempty"`
	ContentHash       string     `xml:"content-hash,omitempty"`
}

// ErrorXML is an error payload returned by the gateway
type ErrorXML struct {
	XMLName      xml.Name `xml:"http://api.digipost.no/schema/v8 error"`
	ErrorCode    string   `xml:"error-code"`
	ErrorMessage string   `xml:"error-message"`
	ErrorType    string   `xml:"error-type"`
}
