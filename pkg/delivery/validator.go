package delivery

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sirosfoundation/go-digipost/pkg/message"
	"github.com/sirosfoundation/go-digipost/pkg/senderinfo"
)

// ContentValidator checks document content before upload
type ContentValidator interface {
	Validate(ctx context.Context, msg *message.Message, channel message.Channel, doc message.Document, content []byte) error
}

// ContentValidatorFunc adapts a function to ContentValidator
type ContentValidatorFunc func(ctx context.Context, msg *message.Message, channel message.Channel, doc message.Document, content []byte) error

// Validate implements ContentValidator
func (f ContentValidatorFunc) Validate(ctx context.Context, msg *message.Message, channel message.Channel, doc message.Document, content []byte) error {
	return f(ctx, msg, channel, doc, content)
}

// SenderInformation looks up sender features
type SenderInformation interface {
	Get(ctx context.Context, lookup senderinfo.Lookup) (*senderinfo.SenderInformation, error)
}

var pdfMagic = []byte("%PDF-")

// PrintValidator rejects content that cannot be printed. PDF documents must
// carry a PDF header. Other file types are only printed for senders with
// the non-PDF print feature.
type PrintValidator struct {
	senders         SenderInformation
	defaultSenderID string
}

// NewPrintValidator creates a print validator. defaultSenderID is used for
// messages that do not name a sender.
func NewPrintValidator(senders SenderInformation, defaultSenderID string) *PrintValidator {
	return &PrintValidator{senders: senders, defaultSenderID: defaultSenderID}
}

// Validate implements ContentValidator
func (v *PrintValidator) Validate(ctx context.Context, msg *message.Message, channel message.Channel, doc message.Document, content []byte) error {
	if channel != message.ChannelPrint {
		return nil
	}

	if doc.FileType == message.FileTypePDF {
		if !bytes.HasPrefix(content, pdfMagic) {
			return fmt.Errorf("%w: document %s is not a PDF", ErrInvalidContent, doc.UUID)
		}
		return nil
	}

	senderID := msg.SenderID
	if senderID == "" {
		senderID = v.defaultSenderID
	}
	info, err := v.senders.Get(ctx, senderinfo.BySenderID(senderID))
	if err != nil {
		return fmt.Errorf("failed to look up sender %s: %w", senderID, err)
	}
	if !info.HasFeature(senderinfo.FeaturePrintNonPDF) {
		return fmt.Errorf("%w: %s document %s cannot be printed for sender %s", ErrInvalidContent, doc.FileType, doc.UUID, senderID)
	}
	return nil
}
