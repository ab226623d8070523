package delivery_test

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-digipost/internal/gatewaytest"
	"github.com/sirosfoundation/go-digipost/pkg/delivery"
	"github.com/sirosfoundation/go-digipost/pkg/entrypoint"
	"github.com/sirosfoundation/go-digipost/pkg/message"
	"github.com/sirosfoundation/go-digipost/pkg/security"
	"github.com/sirosfoundation/go-digipost/pkg/senderinfo"
	"github.com/sirosfoundation/go-digipost/pkg/transport"
)

var pdf = []byte("%PDF-1.7\n1 0 obj << /Type /Catalog >> endobj\n%%EOF\n")

type harness struct {
	gw           *gatewaytest.Gateway
	entryPoints  *entrypoint.Cache
	senders      *senderinfo.Cache
	orchestrator *delivery.Orchestrator
}

func newHarness(t *testing.T, configure ...func(*delivery.Config)) *harness {
	t.Helper()

	gw := gatewaytest.New(t)
	signer, err := security.NewSigner(gw.ClientKey())
	require.NoError(t, err)

	var eps *entrypoint.Cache
	signed, err := transport.NewSignedTransport(transport.NewHTTPSClient(nil), transport.SignedConfig{
		UserID: gw.UserID,
		Signer: signer,
		Certificates: transport.CertificateProviderFunc(func(ctx context.Context) (*x509.Certificate, error) {
			return eps.Certificate(ctx)
		}),
	})
	require.NoError(t, err)

	eps, err = entrypoint.NewCache(entrypoint.Config{BaseURL: gw.URL, Fetcher: signed})
	require.NoError(t, err)

	senders, err := senderinfo.NewCache(senderinfo.Config{EntryPoints: eps, Fetcher: signed})
	require.NoError(t, err)

	cfg := delivery.Config{
		EntryPoints: eps,
		Transport:   signed,
		Validator:   delivery.NewPrintValidator(senders, gw.UserID),
	}
	for _, c := range configure {
		c(&cfg)
	}
	o, err := delivery.NewOrchestrator(cfg)
	require.NoError(t, err)

	return &harness{gw: gw, entryPoints: eps, senders: senders, orchestrator: o}
}

func printDetails() message.PrintDetails {
	return message.PrintDetails{
		Recipient: message.PrintAddress{
			Name:         "Kari Nordmann",
			AddressLine1: "Storgata 2",
			PostalCode:   "0155",
			City:         "Oslo",
		},
		ReturnAddress: message.PrintAddress{
			Name:         "Avsender AS",
			AddressLine1: "Postboks 10",
			PostalCode:   "0101",
			City:         "Oslo",
		},
		PostType: message.PostTypeB,
	}
}

func newMessage(t *testing.T, id string, recipient message.Recipient, primary message.Document, attachments ...message.Document) *message.Message {
	t.Helper()
	msg, err := message.New(id, recipient, primary, message.WithAttachments(attachments...))
	require.NoError(t, err)
	return msg
}

func contentsFor(msg *message.Message) delivery.Contents {
	contents := delivery.Contents{}
	for _, d := range msg.Documents() {
		contents[d.UUID] = bytes.NewReader(pdf)
	}
	return contents
}

func TestNewOrchestrator_RequiresDependencies(t *testing.T) {
	_, err := delivery.NewOrchestrator(delivery.Config{})
	assert.Error(t, err)

	h := newHarness(t)
	_, err = delivery.NewOrchestrator(delivery.Config{EntryPoints: h.entryPoints})
	assert.Error(t, err)
}

func TestDeliver_DigitalSubscriber(t *testing.T) {
	h := newHarness(t)
	pin := message.PersonalIdentificationNumber("01017012345")
	h.gw.AddSubscriber(t, pin)

	attachment := message.NewDocument("Terms", message.FileTypePDF)
	msg := newMessage(t, "m-digital",
		message.DigitalRecipient{ID: pin},
		message.NewDocument("Invoice", message.FileTypePDF),
		attachment,
	)

	state, err := h.orchestrator.Deliver(context.Background(), msg, contentsFor(msg))
	require.NoError(t, err)

	assert.Equal(t, message.StatusDelivered, state.Status())
	assert.Equal(t, message.ChannelDigipost, state.Channel())
	assert.False(t, state.DeliveryTime().IsZero())
	assert.Equal(t, []string{msg.Primary.UUID, attachment.UUID}, state.DocumentUUIDs())

	// a digital recipient without fallback or encryption needs no identification
	assert.Equal(t, int64(0), h.gw.Identifications())
	assert.Equal(t, int64(2), h.gw.Uploads())
	assert.Equal(t, int64(1), h.gw.Sends())

	status, channel, uploads, ok := h.gw.Message("m-digital")
	require.True(t, ok)
	assert.Equal(t, message.StatusDelivered, status)
	assert.Equal(t, message.ChannelDigipost, channel)
	assert.Equal(t, pdf, uploads[attachment.UUID].Plaintext)
}

// A print-only letter with an encrypted primary document is encrypted with
// the print key and delivered to print. Delivering it again with the same
// message id reports the earlier delivery without sending twice.
func TestDeliver_PrintEncryptedThenRedelivered(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg := newMessage(t, "m-1",
		message.PrintRecipient{Details: printDetails()},
		message.NewDocument("Letter", message.FileTypePDF, message.Encrypted()),
	)

	state, err := h.orchestrator.Deliver(ctx, msg, contentsFor(msg))
	require.NoError(t, err)
	assert.Equal(t, message.StatusDeliveredToPrint, state.Status())
	assert.Equal(t, message.ChannelPrint, state.Channel())

	_, _, uploads, ok := h.gw.Message("m-1")
	require.True(t, ok)
	upload := uploads[msg.Primary.UUID]
	assert.Equal(t, h.gw.PrintKeyID(), upload.KeyName)
	assert.Equal(t, pdf, upload.Plaintext)
	assert.NotEqual(t, pdf, upload.Raw)
	assert.Equal(t, int64(0), h.gw.Identifications())
	assert.Equal(t, int64(1), h.gw.PrintKeyFetches())

	again, err := h.orchestrator.Deliver(ctx, msg, contentsFor(msg))
	require.Error(t, err)
	assert.ErrorIs(t, err, delivery.ErrAlreadyDelivered)

	var delivered *delivery.AlreadyDeliveredError
	require.True(t, errors.As(err, &delivered))
	assert.Equal(t, state.Status(), delivered.State.Status())
	assert.Equal(t, state.MessageID(), again.MessageID())
	assert.Equal(t, state.DeliveryTime(), again.DeliveryTime())

	assert.Equal(t, int64(1), h.gw.Sends())
	assert.Equal(t, int64(1), h.gw.Uploads())
	assert.Equal(t, int64(2), h.gw.Creates())
}

// A digital recipient with print fallback who is not a Digipost user is
// identified once and falls back to print with the print key.
func TestDeliver_NonSubscriberFallsBackToPrint(t *testing.T) {
	h := newHarness(t)
	details := printDetails()

	msg := newMessage(t, "m-2",
		message.DigitalRecipient{ID: message.PersonalIdentificationNumber("02028012345"), PrintFallback: &details},
		message.NewDocument("Notice", message.FileTypePDF, message.Encrypted()),
	)

	state, err := h.orchestrator.Deliver(context.Background(), msg, contentsFor(msg))
	require.NoError(t, err)
	assert.Equal(t, message.StatusDeliveredToPrint, state.Status())
	assert.Equal(t, message.ChannelPrint, state.Channel())

	assert.Equal(t, int64(1), h.gw.Identifications())
	_, _, uploads, ok := h.gw.Message("m-2")
	require.True(t, ok)
	assert.Equal(t, h.gw.PrintKeyID(), uploads[msg.Primary.UUID].KeyName)
}

func TestDeliver_SubscriberWithFallbackGetsPersonalKey(t *testing.T) {
	h := newHarness(t)
	details := printDetails()
	pin := message.PersonalIdentificationNumber("03039012345")
	keyID := h.gw.AddSubscriber(t, pin)

	msg := newMessage(t, "m-3",
		message.DigitalRecipient{ID: pin, PrintFallback: &details},
		message.NewDocument("Contract", message.FileTypePDF, message.Encrypted()),
	)

	state, err := h.orchestrator.Deliver(context.Background(), msg, contentsFor(msg))
	require.NoError(t, err)
	assert.Equal(t, message.StatusDelivered, state.Status())

	_, _, uploads, _ := h.gw.Message("m-3")
	assert.Equal(t, keyID, uploads[msg.Primary.UUID].KeyName)
	assert.Equal(t, pdf, uploads[msg.Primary.UUID].Plaintext)
	assert.Equal(t, int64(1), h.gw.Identifications())
	assert.Equal(t, int64(0), h.gw.PrintKeyFetches())
}

func TestDeliver_EncryptedForSubscriberUsesDeliveryKey(t *testing.T) {
	h := newHarness(t)
	pin := message.PersonalIdentificationNumber("02029012345")
	keyID := h.gw.AddSubscriber(t, pin)

	msg := newMessage(t, "m-digital-encrypted",
		message.DigitalRecipient{ID: pin},
		message.NewDocument("Payslip", message.FileTypePDF, message.Encrypted()),
	)

	state, err := h.orchestrator.Deliver(context.Background(), msg, contentsFor(msg))
	require.NoError(t, err)
	assert.Equal(t, message.StatusDelivered, state.Status())

	_, _, uploads, ok := h.gw.Message("m-digital-encrypted")
	require.True(t, ok)
	assert.Equal(t, keyID, uploads[msg.Primary.UUID].KeyName)
	assert.Equal(t, pdf, uploads[msg.Primary.UUID].Plaintext)
	assert.Equal(t, int64(0), h.gw.Identifications())
	assert.Equal(t, int64(0), h.gw.PrintKeyFetches())
}

func TestDeliver_EncryptedForNonSubscriberHasNoChannel(t *testing.T) {
	h := newHarness(t)

	msg := newMessage(t, "m-4",
		message.DigitalRecipient{ID: message.PersonalIdentificationNumber("04049012345")},
		message.NewDocument("Secret", message.FileTypePDF, message.Encrypted()),
	)

	_, err := h.orchestrator.Deliver(context.Background(), msg, contentsFor(msg))
	require.Error(t, err)
	assert.ErrorIs(t, err, delivery.ErrNoDeliveryChannel)
	assert.Equal(t, int64(0), h.gw.Identifications())
	assert.Equal(t, int64(0), h.gw.Uploads())
	assert.Equal(t, int64(0), h.gw.Sends())
}

func TestDeliver_UnreachableDigitalRecipient(t *testing.T) {
	h := newHarness(t)

	msg := newMessage(t, "m-5",
		message.DigitalRecipient{ID: message.PersonalIdentificationNumber("05059012345")},
		message.NewDocument("Hello", message.FileTypePDF),
	)

	_, err := h.orchestrator.Deliver(context.Background(), msg, contentsFor(msg))
	require.Error(t, err)

	var serverErr *transport.ServerError
	require.True(t, errors.As(err, &serverErr))
	assert.Equal(t, http.StatusBadRequest, serverErr.Status)
	assert.Equal(t, "UNKNOWN_RECIPIENT", serverErr.Code)
	assert.True(t, serverErr.Verified)
	assert.Equal(t, int64(0), h.gw.Sends())
}

func TestCreate_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg := newMessage(t, "m-6",
		message.PrintRecipient{Details: printDetails()},
		message.NewDocument("Letter", message.FileTypePDF),
	)

	first, err := h.orchestrator.Create(ctx, msg)
	require.NoError(t, err)
	second, err := h.orchestrator.Create(ctx, msg)
	require.NoError(t, err)

	assert.Equal(t, message.StatusNotComplete, second.Status())
	assert.Equal(t, first.MessageID(), second.MessageID())
	assert.Equal(t, first.DocumentUUIDs(), second.DocumentUUIDs())
	assert.Equal(t, first.SendLink(), second.SendLink())
}

func TestCreate_DuplicateIDForDifferentMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	original := newMessage(t, "m-7",
		message.PrintRecipient{Details: printDetails()},
		message.NewDocument("Letter", message.FileTypePDF),
	)
	_, err := h.orchestrator.Create(ctx, original)
	require.NoError(t, err)

	t.Run("other documents", func(t *testing.T) {
		other := newMessage(t, "m-7",
			message.PrintRecipient{Details: printDetails()},
			message.NewDocument("Letter", message.FileTypePDF),
		)
		_, err := h.orchestrator.Deliver(ctx, other, contentsFor(other))
		assert.ErrorIs(t, err, delivery.ErrDuplicateMessageID)
	})

	t.Run("other recipient", func(t *testing.T) {
		other := newMessage(t, "m-7",
			message.DigitalRecipient{ID: message.DigipostAddress("ola.nordmann#1234")},
			original.Primary,
		)
		_, err := h.orchestrator.Deliver(ctx, other, contentsFor(other))
		assert.ErrorIs(t, err, delivery.ErrDuplicateMessageID)
	})

	assert.Equal(t, int64(0), h.gw.Uploads())
	assert.Equal(t, int64(0), h.gw.Sends())
}

func TestCreate_RecipientEchoMustBeComparable(t *testing.T) {
	tests := []struct {
		name string
		echo *message.RecipientXML
	}{
		{"missing", nil},
		{"two identifiers", &message.RecipientXML{
			PersonalIdentificationNumber: "07079012345",
			DigipostAddress:              "kari.nordmann#5678",
		}},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			id := fmt.Sprintf("m-echo-%d", i)

			original := newMessage(t, id,
				message.DigitalRecipient{ID: message.PersonalIdentificationNumber("07079012345")},
				message.NewDocument("Letter", message.FileTypePDF),
			)
			_, err := h.orchestrator.Create(ctx, original)
			require.NoError(t, err)
			h.gw.EchoRecipient(id, tt.echo)

			// same documents, another recipient
			other := newMessage(t, id,
				message.DigitalRecipient{ID: message.PersonalIdentificationNumber("08089012345")},
				original.Primary,
			)
			_, err = h.orchestrator.Create(ctx, other)
			assert.ErrorIs(t, err, delivery.ErrDuplicateMessageID)

			_, err = h.orchestrator.Create(ctx, original)
			assert.ErrorIs(t, err, delivery.ErrDuplicateMessageID)
			assert.Equal(t, int64(0), h.gw.Uploads())
		})
	}
}

func TestCreate_ResumesIncompleteDelivery(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	primary := message.NewDocument("Letter", message.FileTypePDF)
	attachment := message.NewDocument("Appendix", message.FileTypePDF)
	msg := newMessage(t, "m-8", message.PrintRecipient{Details: printDetails()}, primary, attachment)

	state, err := h.orchestrator.Create(ctx, msg)
	require.NoError(t, err)
	resolution, err := h.orchestrator.ResolveChannel(ctx, msg, state)
	require.NoError(t, err)

	// content for the attachment is missing
	_, err = h.orchestrator.UploadContent(ctx, msg, state, resolution, delivery.Contents{
		primary.UUID: bytes.NewReader(pdf),
	})
	require.Error(t, err)
	assert.Equal(t, int64(0), h.gw.Uploads(), "missing content is detected before any upload")

	state, err = h.orchestrator.Deliver(ctx, msg, contentsFor(msg))
	require.NoError(t, err)
	assert.Equal(t, message.StatusDeliveredToPrint, state.Status())
	assert.Equal(t, int64(2), h.gw.Uploads())
	assert.Equal(t, int64(1), h.gw.Sends())
}

func TestResolveChannel_Mismatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	details := printDetails()
	pin := message.PersonalIdentificationNumber("06069012345")

	msg := newMessage(t, "m-9",
		message.DigitalRecipient{ID: pin, PrintFallback: &details},
		message.NewDocument("Letter", message.FileTypePDF),
	)
	state, err := h.orchestrator.Create(ctx, msg)
	require.NoError(t, err)
	require.Equal(t, message.ChannelPrint, state.Channel())

	// the recipient signs up between creation and resolution
	h.gw.AddSubscriber(t, pin)

	_, err = h.orchestrator.ResolveChannel(ctx, msg, state)
	assert.ErrorIs(t, err, delivery.ErrChannelMismatch)
}

func TestUploadContent_RejectsTerminalState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg := newMessage(t, "m-10",
		message.PrintRecipient{Details: printDetails()},
		message.NewDocument("Letter", message.FileTypePDF),
	)
	state, err := h.orchestrator.Deliver(ctx, msg, contentsFor(msg))
	require.NoError(t, err)

	resolution, err := h.orchestrator.ResolveChannel(ctx, msg, state)
	require.NoError(t, err)
	_, err = h.orchestrator.UploadContent(ctx, msg, state, resolution, contentsFor(msg))
	assert.ErrorIs(t, err, delivery.ErrInvalidStateTransition)
	assert.Equal(t, int64(1), h.gw.Uploads())
}

func TestUploadContent_RejectsInvalidPrintContent(t *testing.T) {
	h := newHarness(t)

	msg := newMessage(t, "m-11",
		message.PrintRecipient{Details: printDetails()},
		message.NewDocument("Letter", message.FileTypePDF),
	)
	_, err := h.orchestrator.Deliver(context.Background(), msg, delivery.Contents{
		msg.Primary.UUID: strings.NewReader("not a pdf"),
	})
	assert.ErrorIs(t, err, delivery.ErrInvalidContent)
	assert.Equal(t, int64(0), h.gw.Uploads())
}

func TestSend_TerminalStateIsReturnedAsIs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg := newMessage(t, "m-12",
		message.PrintRecipient{Details: printDetails()},
		message.NewDocument("Letter", message.FileTypePDF),
	)
	state, err := h.orchestrator.Deliver(ctx, msg, contentsFor(msg))
	require.NoError(t, err)

	again, err := h.orchestrator.Send(ctx, state)
	require.NoError(t, err)
	assert.Same(t, state, again)
	assert.Equal(t, int64(1), h.gw.Sends())
}

func TestSend_LostResponseIsRecoveredFromConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg := newMessage(t, "m-13",
		message.PrintRecipient{Details: printDetails()},
		message.NewDocument("Letter", message.FileTypePDF),
	)
	state, err := h.orchestrator.Create(ctx, msg)
	require.NoError(t, err)
	resolution, err := h.orchestrator.ResolveChannel(ctx, msg, state)
	require.NoError(t, err)
	state, err = h.orchestrator.UploadContent(ctx, msg, state, resolution, contentsFor(msg))
	require.NoError(t, err)

	require.True(t, h.gw.MarkDelivered("m-13"))

	sent, err := h.orchestrator.Send(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, message.StatusDeliveredToPrint, sent.Status())
	assert.Equal(t, int64(1), h.gw.Sends())
}

func TestSend_ConcurrentCallersSendOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg := newMessage(t, "m-14",
		message.PrintRecipient{Details: printDetails()},
		message.NewDocument("Letter", message.FileTypePDF),
	)
	state, err := h.orchestrator.Create(ctx, msg)
	require.NoError(t, err)
	resolution, err := h.orchestrator.ResolveChannel(ctx, msg, state)
	require.NoError(t, err)
	state, err = h.orchestrator.UploadContent(ctx, msg, state, resolution, contentsFor(msg))
	require.NoError(t, err)

	const callers = 10
	var wg sync.WaitGroup
	results := make([]*message.DeliveryState, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.orchestrator.Send(ctx, state)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, message.StatusDeliveredToPrint, results[i].Status())
	}
	assert.Equal(t, int64(1), h.gw.Sends())
}

func TestSend_RequiresSendLink(t *testing.T) {
	h := newHarness(t)

	state, err := message.NewDeliveryState(&message.MessageDeliveryXML{
		MessageID: "m-15",
		Status:    string(message.StatusNotComplete),
	})
	require.NoError(t, err)

	_, err = h.orchestrator.Send(context.Background(), state)
	assert.ErrorIs(t, err, delivery.ErrInvalidStateTransition)
}

func TestDeliver_TamperedResponseFailsVerification(t *testing.T) {
	h := newHarness(t)
	h.gw.SetMutator(func(r *http.Request, status int, _ http.Header, body []byte) []byte {
		if r.Method == http.MethodPost && r.URL.Path == "/messages" {
			return bytes.Replace(body, []byte("NOT_COMPLETE"), []byte("DELIVERED"), 1)
		}
		return body
	})

	msg := newMessage(t, "m-16",
		message.PrintRecipient{Details: printDetails()},
		message.NewDocument("Letter", message.FileTypePDF),
	)
	_, err := h.orchestrator.Deliver(context.Background(), msg, contentsFor(msg))
	require.Error(t, err)
	assert.ErrorIs(t, err, security.ErrSignatureVerification)
	assert.Equal(t, int64(0), h.gw.Uploads())
}

func TestPrintEncryptionKey_IsCached(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.orchestrator.PrintEncryptionKey(ctx)
	require.NoError(t, err)
	second, err := h.orchestrator.PrintEncryptionKey(ctx)
	require.NoError(t, err)

	assert.Equal(t, h.gw.PrintKeyID(), first.KeyID)
	assert.Equal(t, first.KeyID, second.KeyID)
	assert.Equal(t, int64(1), h.gw.PrintKeyFetches())
}

func TestIdentify(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	subscriber := message.PersonalIdentificationNumber("07079012345")
	keyID := h.gw.AddSubscriber(t, subscriber)

	result, err := h.orchestrator.Identify(ctx, "", subscriber)
	require.NoError(t, err)
	assert.True(t, result.IsSubscriber())
	assert.NotEmpty(t, result.DigipostAddress)

	result, err = h.orchestrator.Identify(ctx, "", message.OrganisationNumber("984661185"))
	require.NoError(t, err)
	assert.Equal(t, message.Identified, result.Code)

	result, key, err := h.orchestrator.RecipientEncryptionKey(ctx, "", subscriber)
	require.NoError(t, err)
	assert.True(t, result.IsSubscriber())
	require.NotNil(t, key)
	assert.Equal(t, keyID, key.KeyID)

	_, key, err = h.orchestrator.RecipientEncryptionKey(ctx, "", message.OrganisationNumber("984661185"))
	require.NoError(t, err)
	assert.Nil(t, key)

	_, err = h.orchestrator.Identify(ctx, "", nil)
	assert.ErrorIs(t, err, message.ErrInvalidRecipient)
}

func TestDocumentStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg := newMessage(t, "m-17",
		message.PrintRecipient{Details: printDetails()},
		message.NewDocument("Letter", message.FileTypePDF),
	)
	_, err := h.orchestrator.Deliver(ctx, msg, contentsFor(msg))
	require.NoError(t, err)

	status, err := h.orchestrator.DocumentStatus(ctx, h.gw.UserID, msg.Primary.UUID)
	require.NoError(t, err)
	assert.Equal(t, msg.Primary.UUID, status.UUID)
	assert.Equal(t, message.DocumentDelivered, status.DeliveryStatus)
	assert.Equal(t, message.ChannelPrint, status.Channel)
	assert.True(t, status.IsPrimaryDocument)
	assert.Equal(t, security.DigestBase64(pdf), status.ContentHash)

	_, err = h.orchestrator.DocumentStatus(ctx, h.gw.UserID, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, delivery.ErrDocumentNotFound)
	assert.ErrorIs(t, err, transport.ErrNotFound)

	_, err = h.orchestrator.DocumentStatus(ctx, "", msg.Primary.UUID)
	assert.Error(t, err)
}
