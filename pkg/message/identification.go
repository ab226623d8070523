package message

import (
	"fmt"
	"time"
)

// IdentificationCode is the outcome of a recipient identification
type IdentificationCode string

const (
	// IdentifiedDigipost means the recipient is a Digipost user
	IdentifiedDigipost IdentificationCode = "DIGIPOST"
	// Identified means the recipient exists but does not use Digipost
	Identified IdentificationCode = "IDENTIFIED"
	// Unidentified means the recipient could not be found
	Unidentified IdentificationCode = "UNIDENTIFIED"
	// Invalid means the identifier was malformed
	Invalid IdentificationCode = "INVALID"
)

// IdentificationResult is the answer to an identification request
type IdentificationResult struct {
	Code            IdentificationCode
	DigipostAddress string
	Reason          string
}

// IsSubscriber reports whether the recipient can receive digital mail
func (r IdentificationResult) IsSubscriber() bool {
	return r.Code == IdentifiedDigipost
}

// IdentificationResultFromXML converts the wire form of a result
func IdentificationResultFromXML(x *IdentificationResultXML) (*IdentificationResult, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: empty identification result", ErrUnexpectedStatus)
	}
	code := IdentificationCode(x.Result)
	switch code {
	case IdentifiedDigipost, Identified, Unidentified, Invalid:
	default:
		return nil, fmt.Errorf("%w: identification result %q", ErrUnexpectedStatus, x.Result)
	}

	reason := x.InvalidReason
	if reason == "" {
		reason = x.UnidentifiedReason
	}
	return &IdentificationResult{
		Code:            code,
		DigipostAddress: x.DigipostAddress,
		Reason:          reason,
	}, nil
}

// DocumentDeliveryStatus is the delivery status of a single document
type DocumentDeliveryStatus string

const (
	DocumentDelivered    DocumentDeliveryStatus = "DELIVERED"
	DocumentNotDelivered DocumentDeliveryStatus = "NOT_DELIVERED"
)

// DocumentStatus describes a previously created document
type DocumentStatus struct {
	UUID              string
	DeliveryStatus    DocumentDeliveryStatus
	Channel           Channel
	IsPrimaryDocument bool
	Created           time.Time
	Delivered         time.Time
	ContentHash       string
}

// DocumentStatusFromXML converts the wire form of a document status
func DocumentStatusFromXML(x *DocumentStatusXML) (*DocumentStatus, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: empty document status", ErrUnexpectedStatus)
	}
	status := DocumentDeliveryStatus(x.DeliveryStatus)
	if status != DocumentDelivered && status != DocumentNotDelivered {
		return nil, fmt.Errorf("%w: document delivery status %q", ErrUnexpectedStatus, x.DeliveryStatus)
	}
	channel, err := ParseChannel(x.Channel)
	if err != nil {
		return nil, err
	}

	ds := &DocumentStatus{
		UUID:              x.UUID,
		DeliveryStatus:    status,
		Channel:           channel,
		IsPrimaryDocument: x.IsPrimaryDocument,
		Created:           x.Created,
		ContentHash:       x.ContentHash,
	}
	if x.Delivered != nil {
		ds.Delivered = *x.Delivered
	}
	return ds, nil
}
