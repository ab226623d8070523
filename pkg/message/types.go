package message

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMessage is returned for messages that cannot be submitted
	ErrInvalidMessage = errors.New("invalid message")
)

// Message is the client side description of a letter before submission.
// It is not modified once a delivery has started.
type Message struct {
	ID          string
	SenderID    string
	Recipient   Recipient
	Primary     Document
	Attachments []Document
}

// Documents returns the primary document followed by the attachments
func (m *Message) Documents() []Document {
	docs := make([]Document, 0, 1+len(m.Attachments))
	docs = append(docs, m.Primary)
	docs = append(docs, m.Attachments...)
	return docs
}

// Document returns the document with the given UUID
func (m *Message) Document(uuid string) (Document, bool) {
	for _, d := range m.Documents() {
		if d.UUID == uuid {
			return d, true
		}
	}
	return Document{}, false
}

// RequiresEncryption reports whether any document is flagged for encryption
func (m *Message) RequiresEncryption() bool {
	for _, d := range m.Documents() {
		if d.Encrypt {
			return true
		}
	}
	return false
}

// Validate checks the message before it is submitted
func (m *Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: message id is required", ErrInvalidMessage)
	}
	if err := ValidateRecipient(m.Recipient); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	seen := make(map[string]bool)
	for i, d := range m.Documents() {
		if d.UUID == "" {
			return fmt.Errorf("%w: document %d has no uuid", ErrInvalidMessage, i)
		}
		if d.FileType == "" {
			return fmt.Errorf("%w: document %s has no file type", ErrInvalidMessage, d.UUID)
		}
		if seen[d.UUID] {
			return fmt.Errorf("%w: duplicate document uuid %s", ErrInvalidMessage, d.UUID)
		}
		seen[d.UUID] = true
	}
	return nil
}

// ToXML converts the message to its wire form
func (m *Message) ToXML() *MessageXML {
	x := &MessageXML{
		SenderID:        m.SenderID,
		MessageID:       m.ID,
		Recipient:       RecipientToXML(m.Recipient),
		PrimaryDocument: m.Primary.toXML(),
	}
	for _, a := range m.Attachments {
		x.Attachments = append(x.Attachments, a.toXML())
	}
	return x
}

// EncryptionKey is a public key issued by the gateway for document encryption
type EncryptionKey struct {
	KeyID string
	PEM   []byte
}

// EncryptionKeyFromXML converts the wire form of a key
func EncryptionKeyFromXML(x *EncryptionKeyXML) (*EncryptionKey, error) {
	if x == nil || x.KeyID == "" || x.Value == "" {
		return nil, fmt.Errorf("incomplete encryption key")
	}
	return &EncryptionKey{KeyID: x.KeyID, PEM: []byte(x.Value)}, nil
}
