package message

import (
	"github.com/google/uuid"
)

// FileType is the lower-case file extension of a document
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeHTML FileType = "html"
	FileTypeTXT  FileType = "txt"
)

// SMSNotification requests SMS reminders for an unopened document
type SMSNotification struct {
	AfterHours []int
}

// Document describes one document of a message. The content is supplied
// separately at upload time.
type Document struct {
	UUID         string
	Subject      string
	FileType     FileType
	Encrypt      bool
	Notification *SMSNotification
}

// DocumentOption configures a Document
type DocumentOption func(*Document)

// NewDocument creates a document with a random UUID
func NewDocument(subject string, fileType FileType, opts ...DocumentOption) Document {
	doc := Document{
		UUID:     uuid.NewString(),
		Subject:  subject,
		FileType: fileType,
	}
	for _, opt := range opts {
		opt(&doc)
	}
	return doc
}

// WithUUID sets a caller chosen document UUID
func WithUUID(id string) DocumentOption {
	return func(d *Document) {
		d.UUID = id
	}
}

// Encrypted marks the document for envelope encryption
func Encrypted() DocumentOption {
	return func(d *Document) {
		d.Encrypt = true
	}
}

// WithSMSNotification requests SMS reminders after the given hours
func WithSMSNotification(afterHours ...int) DocumentOption {
	return func(d *Document) {
		d.Notification = &SMSNotification{AfterHours: append([]int(nil), afterHours...)}
	}
}

func (d Document) toXML() *DocumentXML {
	x := &DocumentXML{
		UUID:     d.UUID,
		Subject:  d.Subject,
		FileType: string(d.FileType),
	}
	if d.Encrypt {
		x.Encrypted = &EncryptedMarkerXML{}
	}
	if d.Notification != nil {
		x.SMSNotification = &SMSNotificationXML{AfterHours: append([]int(nil), d.Notification.AfterHours...)}
	}
	return x
}
