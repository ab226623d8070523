package message

import (
	"github.com/google/uuid"
)

// Option represents a functional option for New
type Option func(*Message)

// New creates a validated message
func New(id string, recipient Recipient, primary Document, opts ...Option) (*Message, error) {
	msg := &Message{
		ID:        id,
		Recipient: recipient,
		Primary:   primary,
	}

	for _, opt := range opts {
		opt(msg)
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

// WithAttachments appends attachments in upload order
func WithAttachments(docs ...Document) Option {
	return func(m *Message) {
		m.Attachments = append(m.Attachments, docs...)
	}
}

// WithSenderID sends the message on behalf of another sender. The sender
// scoped entry point is used for all operations of the delivery.
func WithSenderID(senderID string) Option {
	return func(m *Message) {
		m.SenderID = senderID
	}
}

// NewMessageID generates a random message id
func NewMessageID() string {
	return uuid.NewString()
}
