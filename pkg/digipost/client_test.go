package digipost

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-digipost/internal/gatewaytest"
	"github.com/sirosfoundation/go-digipost/pkg/delivery"
	"github.com/sirosfoundation/go-digipost/pkg/message"
	"github.com/sirosfoundation/go-digipost/pkg/security"
	"github.com/sirosfoundation/go-digipost/pkg/senderinfo"
	"github.com/sirosfoundation/go-digipost/pkg/transport"
)

var pdf = []byte("%PDF-1.4\n%%EOF\n")

func TestNewClient_NilConfig(t *testing.T) {
	client, err := NewClient(nil)
	if err == nil {
		t.Error("expected error for nil config")
	}
	if client != nil {
		t.Error("expected nil client for nil config")
	}
}

func TestNewClient_MissingUserID(t *testing.T) {
	_, err := NewClient(&ClientConfig{Key: gatewaytest.GenerateKey(t)})
	if err == nil {
		t.Error("expected error for missing user id")
	}
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient(&ClientConfig{UserID: "1000"})
	if err == nil {
		t.Error("expected error for missing key")
	}
}

func TestNewClient_ValidConfig(t *testing.T) {
	client, err := NewClient(&ClientConfig{
		UserID:      "1000",
		Key:         gatewaytest.GenerateKey(t),
		HTTPSConfig: transport.DefaultHTTPSConfig(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	if client.signed == nil {
		t.Error("expected signed transport to be initialized")
	}
	if client.entryPoints == nil {
		t.Error("expected entry point cache to be initialized")
	}
	if client.senders == nil {
		t.Error("expected sender information cache to be initialized")
	}
	if client.tracker == nil {
		t.Error("expected tracker to be initialized")
	}
	if client.orchestrator == nil {
		t.Error("expected orchestrator to be initialized")
	}
	if client.UserID() != "1000" {
		t.Errorf("expected user id 1000, got %s", client.UserID())
	}
}

func newTestClient(t *testing.T, gw *gatewaytest.Gateway) *Client {
	t.Helper()
	client, err := NewClient(&ClientConfig{
		BaseURL: gw.URL,
		UserID:  gw.UserID,
		Key:     gw.ClientKey(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func printDetails() *message.PrintDetails {
	return &message.PrintDetails{
		Recipient: message.PrintAddress{
			Name:         "Per Hansen",
			AddressLine1: "Kirkegata 5",
			PostalCode:   "7010",
			City:         "Trondheim",
		},
		ReturnAddress: message.PrintAddress{
			Name:         "Kommunen",
			AddressLine1: "Postboks 2300",
			PostalCode:   "7004",
			City:         "Trondheim",
		},
		PostType: message.PostTypeA,
	}
}

func TestClient_DeliverAndLookups(t *testing.T) {
	gw := gatewaytest.New(t)
	client := newTestClient(t, gw)
	ctx := context.Background()

	pin := message.PersonalIdentificationNumber("01017012345")
	gw.AddSubscriber(t, pin)

	msg, err := message.New(message.NewMessageID(),
		message.DigitalRecipient{ID: pin, PrintFallback: printDetails()},
		message.NewDocument("Invoice", message.FileTypePDF, message.Encrypted()),
	)
	require.NoError(t, err)

	state, err := client.Deliver(ctx, msg, delivery.Contents{msg.Primary.UUID: bytes.NewReader(pdf)})
	require.NoError(t, err)
	assert.Equal(t, message.StatusDelivered, state.Status())
	assert.Equal(t, message.ChannelDigipost, state.Channel())

	// repeating the delivery reports the earlier outcome
	again, err := client.Deliver(ctx, msg, delivery.Contents{msg.Primary.UUID: bytes.NewReader(pdf)})
	var delivered *delivery.AlreadyDeliveredError
	require.True(t, errors.As(err, &delivered))
	assert.Equal(t, state.Status(), again.Status())
	assert.Equal(t, int64(1), gw.Sends())

	result, err := client.Identify(ctx, pin)
	require.NoError(t, err)
	assert.True(t, result.IsSubscriber())

	_, key, err := client.GetRecipientEncryptionKey(ctx, pin)
	require.NoError(t, err)
	require.NotNil(t, key)

	printKey, err := client.GetPrintEncryptionKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, gw.PrintKeyID(), printKey.KeyID)

	status, err := client.GetDocumentStatus(ctx, "", msg.Primary.UUID)
	require.NoError(t, err)
	assert.Equal(t, message.DocumentDelivered, status.DeliveryStatus)

	ep, err := client.EntryPoint(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, ep.Operations(), message.OpCreateMessage)

	// one entry point fetch serves every operation above
	assert.Equal(t, int64(1), gw.EntryPointFetches())
}

func TestClient_SenderEntryPointIsVerified(t *testing.T) {
	gw := gatewaytest.New(t)
	client := newTestClient(t, gw)
	ctx := context.Background()

	ep, err := client.EntryPoint(ctx, "2000")
	require.NoError(t, err)
	_, err = ep.URI(message.OpCreateMessage)
	require.NoError(t, err)

	gw.SetMutator(func(r *http.Request, _ int, _ http.Header, body []byte) []byte {
		if r.URL.Path == "/3000" {
			return bytes.Replace(body, []byte("/messages"), []byte("/elsewhere"), 1)
		}
		return body
	})
	_, err = client.EntryPoint(ctx, "3000")
	assert.ErrorIs(t, err, security.ErrSignatureVerification)
}

func TestClient_StepByStep(t *testing.T) {
	gw := gatewaytest.New(t)
	client := newTestClient(t, gw)
	ctx := context.Background()

	msg, err := message.New("step-1",
		message.PrintRecipient{Details: *printDetails()},
		message.NewDocument("Letter", message.FileTypePDF),
	)
	require.NoError(t, err)

	state, err := client.Create(ctx, msg)
	require.NoError(t, err)
	resolution, err := client.ResolveChannel(ctx, msg, state)
	require.NoError(t, err)
	assert.Equal(t, message.ChannelPrint, resolution.Channel)

	state, err = client.UploadContent(ctx, msg, state, resolution, delivery.Contents{msg.Primary.UUID: bytes.NewReader(pdf)})
	require.NoError(t, err)
	state, err = client.Send(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, message.StatusDeliveredToPrint, state.Status())
}

func TestClient_NonPDFPrintRequiresFeature(t *testing.T) {
	gw := gatewaytest.New(t)
	client := newTestClient(t, gw)
	ctx := context.Background()

	newHTMLMessage := func(id string) *message.Message {
		msg, err := message.New(id,
			message.PrintRecipient{Details: *printDetails()},
			message.NewDocument("Page", message.FileTypeHTML),
		)
		require.NoError(t, err)
		return msg
	}

	msg := newHTMLMessage("html-1")
	_, err := client.Deliver(ctx, msg, delivery.Contents{msg.Primary.UUID: bytes.NewReader([]byte("<html/>"))})
	assert.ErrorIs(t, err, delivery.ErrInvalidContent)
	assert.Equal(t, int64(0), gw.Uploads())

	gw.AddSender(senderinfo.BySenderID(gw.UserID), senderinfo.Document{
		SenderID: gw.UserID,
		Status:   string(senderinfo.StatusValidSender),
		SupportedFeatures: []senderinfo.FeatureXML{
			{Identifier: senderinfo.FeaturePrintNonPDF},
		},
	})

	// sender information is cached, so a fresh client sees the feature
	other := newTestClient(t, gw)
	msg = newHTMLMessage("html-2")
	state, err := other.Deliver(ctx, msg, delivery.Contents{msg.Primary.UUID: bytes.NewReader([]byte("<html/>"))})
	require.NoError(t, err)
	assert.Equal(t, message.StatusDeliveredToPrint, state.Status())

	info, err := other.GetSenderInformation(ctx, senderinfo.BySenderID(gw.UserID))
	require.NoError(t, err)
	assert.True(t, info.HasFeature(senderinfo.FeaturePrintNonPDF))
}
