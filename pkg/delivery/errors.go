package delivery

import (
	"errors"
	"fmt"

	"github.com/sirosfoundation/go-digipost/pkg/message"
)

var (
	// ErrDuplicateMessageID is returned when a message id is reused for a
	// different message
	ErrDuplicateMessageID = errors.New("message id already used for a different message")
	// ErrAlreadyDelivered matches *AlreadyDeliveredError
	ErrAlreadyDelivered = errors.New("message already delivered")
	// ErrInvalidStateTransition is returned when content is uploaded or a
	// message is sent out of order
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrNoDeliveryChannel is returned when a recipient can be reached
	// neither digitally nor by print
	ErrNoDeliveryChannel = errors.New("no delivery channel for recipient")
	// ErrChannelMismatch is returned when the gateway resolved a different
	// channel than the client
	ErrChannelMismatch = errors.New("delivery channel mismatch")
	// ErrDocumentNotFound is returned by document status lookups for
	// unknown documents
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidContent is returned by content validators
	ErrInvalidContent = errors.New("invalid document content")
)

// AlreadyDeliveredError reports that a message created again had already
// been delivered. State is the terminal state held by the gateway, and
// callers retrying a delivery treat it as success.
type AlreadyDeliveredError struct {
	State *message.DeliveryState
}

func (e *AlreadyDeliveredError) Error() string {
	return fmt.Sprintf("message %s already delivered via %s", e.State.MessageID(), e.State.Channel())
}

// Is matches ErrAlreadyDelivered
func (e *AlreadyDeliveredError) Is(target error) bool {
	return target == ErrAlreadyDelivered
}
