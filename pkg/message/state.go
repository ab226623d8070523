package message

import (
	"fmt"
	"time"
)

// DocumentState is a document as registered on the gateway
type DocumentState struct {
	UUID           string
	Subject        string
	FileType       FileType
	Encrypted      bool
	AddContentLink string
}

// DeliveryState is a read-only snapshot of a message delivery returned by
// the gateway. A new snapshot replaces the old one after every exchange.
type DeliveryState struct {
	messageID    string
	senderID     string
	status       MessageStatus
	channel      Channel
	documents    []DocumentState
	sendLink     string
	selfLink     string
	keyLink      string
	deliveryTime time.Time
	recipientKey string
	recipientErr error
}

// NewDeliveryState validates a message delivery received from the gateway
func NewDeliveryState(x *MessageDeliveryXML) (*DeliveryState, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: empty message delivery", ErrUnexpectedStatus)
	}
	status, err := ParseStatus(x.Status)
	if err != nil {
		return nil, err
	}
	channel, err := ParseChannel(x.DeliveryMethod)
	if err != nil {
		return nil, err
	}
	if status.IsTerminal() && channel != "" && channel.TerminalStatus() != status {
		return nil, fmt.Errorf("%w: status %s with delivery method %s", ErrUnexpectedStatus, status, channel)
	}

	s := &DeliveryState{
		messageID:    x.MessageID,
		senderID:     x.SenderID,
		status:       status,
		channel:      channel,
		sendLink:     linkURI(x.Links, OpSend),
		selfLink:     linkURI(x.Links, OpSelf),
		keyLink:      linkURI(x.Links, OpGetEncryptionKey),
	}

	if x.DeliveryTime != nil {
		s.deliveryTime = *x.DeliveryTime
	}

	if r, err := RecipientFromXML(x.Recipient); err != nil {
		s.recipientErr = err
	} else {
		s.recipientKey = r.Key()
	}

	docs := make([]*DocumentXML, 0, 1+len(x.Attachments))
	if x.PrimaryDocument != nil {
		docs = append(docs, x.PrimaryDocument)
	}
	docs = append(docs, x.Attachments...)
	for _, d := range docs {
		s.documents = append(s.documents, DocumentState{
			UUID:           d.UUID,
			Subject:        d.Subject,
			FileType:       FileType(d.FileType),
			Encrypted:      d.Encrypted != nil,
			AddContentLink: linkURI(d.Links, OpAddContent),
		})
	}

	return s, nil
}

func linkURI(links []LinkXML, op string) string {
	for _, l := range links {
		if OperationName(l.Rel) == op {
			return l.URI
		}
	}
	return ""
}

// MessageID returns the message id
func (s *DeliveryState) MessageID() string { return s.messageID }

// SenderID returns the sender the message was created for
func (s *DeliveryState) SenderID() string { return s.senderID }

// Status returns the delivery status
func (s *DeliveryState) Status() MessageStatus { return s.status }

// Channel returns the channel resolved by the gateway, empty until resolved
func (s *DeliveryState) Channel() Channel { return s.channel }

// SendLink returns the URI that sends the message
func (s *DeliveryState) SendLink() string { return s.sendLink }

// SelfLink returns the URI of this delivery resource
func (s *DeliveryState) SelfLink() string { return s.selfLink }

// DeliveryTime returns when the message was delivered. It is zero until the
// state is terminal.
func (s *DeliveryState) DeliveryTime() time.Time { return s.deliveryTime }

// RecipientKey returns the canonical key of the recipient echoed by the
// gateway, or an error when the echo is missing or not a valid recipient
func (s *DeliveryState) RecipientKey() (string, error) { return s.recipientKey, s.recipientErr }

// EncryptionKeyLink returns the URI of the recipient's personal encryption
// key. It is empty unless the gateway resolved a Digipost user.
func (s *DeliveryState) EncryptionKeyLink() string { return s.keyLink }

// IsTerminal reports whether the message has been delivered
func (s *DeliveryState) IsTerminal() bool { return s.status.IsTerminal() }

// Documents returns a copy of the registered documents, primary first
func (s *DeliveryState) Documents() []DocumentState {
	return append([]DocumentState(nil), s.documents...)
}

// Document returns the registered document with the given UUID
func (s *DeliveryState) Document(uuid string) (DocumentState, bool) {
	for _, d := range s.documents {
		if d.UUID == uuid {
			return d, true
		}
	}
	return DocumentState{}, false
}

// DocumentUUIDs returns the registered document UUIDs in order
func (s *DeliveryState) DocumentUUIDs() []string {
	ids := make([]string, len(s.documents))
	for i, d := range s.documents {
		ids[i] = d.UUID
	}
	return ids
}

func (s *DeliveryState) String() string {
	if s.channel == "" {
		return fmt.Sprintf("%s(%s)", s.messageID, s.status)
	}
	return fmt.Sprintf("%s(%s via %s)", s.messageID, s.status, s.channel)
}
