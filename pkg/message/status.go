package message

import (
	"errors"
	"fmt"
)

// ErrUnexpectedStatus is returned when the gateway reports a status or
// channel outside the known set
var ErrUnexpectedStatus = errors.New("unexpected delivery status")

// MessageStatus is the server side status of a message delivery
type MessageStatus string

const (
	StatusNotComplete      MessageStatus = "NOT_COMPLETE"
	StatusDelivered        MessageStatus = "DELIVERED"
	StatusDeliveredToPrint MessageStatus = "DELIVERED_TO_PRINT"
)

// ParseStatus validates a wire status value
func ParseStatus(s string) (MessageStatus, error) {
	switch st := MessageStatus(s); st {
	case StatusNotComplete, StatusDelivered, StatusDeliveredToPrint:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnexpectedStatus, s)
	}
}

// IsTerminal reports whether no further transitions are possible
func (s MessageStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusDeliveredToPrint
}

// Channel is the delivery channel of a message
type Channel string

const (
	ChannelDigipost Channel = "DIGIPOST"
	ChannelPrint    Channel = "PRINT"
)

// ParseChannel validates a wire delivery method. An empty value means the
// gateway has not resolved a channel yet.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(s); c {
	case "", ChannelDigipost, ChannelPrint:
		return c, nil
	default:
		return "", fmt.Errorf("%w: delivery method %q", ErrUnexpectedStatus, s)
	}
}

// TerminalStatus returns the terminal status a delivery through c ends in
func (c Channel) TerminalStatus() MessageStatus {
	if c == ChannelPrint {
		return StatusDeliveredToPrint
	}
	return StatusDelivered
}
