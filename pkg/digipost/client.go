package digipost

import (
	"context"
	"crypto"
	"crypto/x509"
	"fmt"
	"log/slog"
	"time"

	"github.com/sirosfoundation/go-digipost/pkg/delivery"
	"github.com/sirosfoundation/go-digipost/pkg/entrypoint"
	"github.com/sirosfoundation/go-digipost/pkg/message"
	"github.com/sirosfoundation/go-digipost/pkg/reliability"
	"github.com/sirosfoundation/go-digipost/pkg/security"
	"github.com/sirosfoundation/go-digipost/pkg/senderinfo"
	"github.com/sirosfoundation/go-digipost/pkg/transport"
)

const (
	// ProductionURL is the production gateway
	ProductionURL = "https://api.digipost.no"
	// TestURL is the test gateway
	TestURL = "https://api.test.digipost.no"
)

// Client delivers letters through the Digipost gateway
type Client struct {
	userID       string
	httpClient   transport.HTTPTransport
	signed       *transport.SignedTransport
	entryPoints  *entrypoint.Cache
	senders      *senderinfo.Cache
	tracker      *reliability.SendTracker
	orchestrator *delivery.Orchestrator
	logger       *slog.Logger
}

// ClientConfig holds client configuration
type ClientConfig struct {
	// BaseURL of the gateway. Defaults to ProductionURL.
	BaseURL string
	// UserID is the broker or sender id the client acts as
	UserID string
	// Key signs every request. It must be an RSA key.
	Key crypto.Signer

	HTTPSConfig *transport.HTTPSConfig
	// HTTPTransport replaces the HTTPS client built from HTTPSConfig
	HTTPTransport transport.HTTPTransport

	// CertificateRoots validates the gateway certificate chain. When nil
	// only the validity period is checked.
	CertificateRoots *x509.CertPool
	VerifierOptions  []security.Option

	EntryPointTTL time.Duration
	SenderInfoTTL time.Duration
	PrintKeyTTL   time.Duration
	// SendWindow is how long sent messages are remembered locally
	SendWindow time.Duration

	// Validator checks content before upload. Defaults to a PrintValidator
	// backed by the sender information cache.
	Validator                delivery.ContentValidator
	DisableContentValidation bool

	Logger *slog.Logger
}

// NewClient creates a new Digipost client
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if config.Key == nil {
		return nil, fmt.Errorf("signing key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = ProductionURL
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	signer, err := security.NewSigner(config.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}

	httpClient := config.HTTPTransport
	if httpClient == nil {
		httpClient = transport.NewHTTPSClient(config.HTTPSConfig)
	}

	c := &Client{
		userID:     config.UserID,
		httpClient: httpClient,
		logger:     logger,
	}

	c.signed, err = transport.NewSignedTransport(httpClient, transport.SignedConfig{
		UserID:          config.UserID,
		Signer:          signer,
		Certificates:    transport.CertificateProviderFunc(c.gatewayCertificate),
		VerifierOptions: config.VerifierOptions,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	c.entryPoints, err = entrypoint.NewCache(entrypoint.Config{
		BaseURL:   baseURL,
		Fetcher:   c.signed,
		Validator: security.NewDefaultCertificateValidator(config.CertificateRoots),
		TTL:       config.EntryPointTTL,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	c.senders, err = senderinfo.NewCache(senderinfo.Config{
		EntryPoints: c.entryPoints,
		Fetcher:     c.signed,
		TTL:         config.SenderInfoTTL,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	window := config.SendWindow
	if window <= 0 {
		window = reliability.DefaultWindow
	}
	c.tracker = reliability.NewSendTracker(window, reliability.WithCleanupInterval(min(window, time.Hour)))

	validator := config.Validator
	if validator == nil && !config.DisableContentValidation {
		validator = delivery.NewPrintValidator(c.senders, config.UserID)
	}

	c.orchestrator, err = delivery.NewOrchestrator(delivery.Config{
		EntryPoints: c.entryPoints,
		Transport:   c.signed,
		Tracker:     c.tracker,
		Validator:   validator,
		PrintKeyTTL: config.PrintKeyTTL,
		Logger:      logger,
	})
	if err != nil {
		c.tracker.Close()
		return nil, err
	}

	return c, nil
}

// gatewayCertificate serves the entry point certificate to the signed
// transport, which in turn fetches the entry point
func (c *Client) gatewayCertificate(ctx context.Context) (*x509.Certificate, error) {
	return c.entryPoints.Certificate(ctx)
}

// UserID returns the id the client acts as
func (c *Client) UserID() string {
	return c.userID
}

// Deliver creates, uploads and sends msg. See delivery.Orchestrator.Deliver.
func (c *Client) Deliver(ctx context.Context, msg *message.Message, contents delivery.Contents) (*message.DeliveryState, error) {
	return c.orchestrator.Deliver(ctx, msg, contents)
}

// Create registers msg, or fetches it when the message id is already known
func (c *Client) Create(ctx context.Context, msg *message.Message) (*message.DeliveryState, error) {
	return c.orchestrator.Create(ctx, msg)
}

// ResolveChannel decides the delivery channel of msg
func (c *Client) ResolveChannel(ctx context.Context, msg *message.Message, state *message.DeliveryState) (*delivery.Resolution, error) {
	return c.orchestrator.ResolveChannel(ctx, msg, state)
}

// UploadContent uploads all documents of msg
func (c *Client) UploadContent(ctx context.Context, msg *message.Message, state *message.DeliveryState, resolution *delivery.Resolution, contents delivery.Contents) (*message.DeliveryState, error) {
	return c.orchestrator.UploadContent(ctx, msg, state, resolution, contents)
}

// Send dispatches a message whose content has been uploaded
func (c *Client) Send(ctx context.Context, state *message.DeliveryState) (*message.DeliveryState, error) {
	return c.orchestrator.Send(ctx, state)
}

// Identify reports whether a recipient can receive digital mail
func (c *Client) Identify(ctx context.Context, id message.Identifier) (*message.IdentificationResult, error) {
	return c.orchestrator.Identify(ctx, "", id)
}

// GetSenderInformation returns the status and features of a sender
func (c *Client) GetSenderInformation(ctx context.Context, lookup senderinfo.Lookup) (*senderinfo.SenderInformation, error) {
	return c.senders.Get(ctx, lookup)
}

// GetDocumentStatus returns the status of a document. An empty senderID
// means the client's own user id.
func (c *Client) GetDocumentStatus(ctx context.Context, senderID, documentUUID string) (*message.DocumentStatus, error) {
	if senderID == "" {
		senderID = c.userID
	}
	return c.orchestrator.DocumentStatus(ctx, senderID, documentUUID)
}

// GetPrintEncryptionKey returns the shared print encryption key
func (c *Client) GetPrintEncryptionKey(ctx context.Context) (*message.EncryptionKey, error) {
	return c.orchestrator.PrintEncryptionKey(ctx)
}

// GetRecipientEncryptionKey returns the personal encryption key of a
// Digipost user. The key is nil when the recipient is not a Digipost user.
func (c *Client) GetRecipientEncryptionKey(ctx context.Context, id message.Identifier) (*message.IdentificationResult, *message.EncryptionKey, error) {
	return c.orchestrator.RecipientEncryptionKey(ctx, "", id)
}

// EntryPoint returns the entry point for senderID, or the default one
func (c *Client) EntryPoint(ctx context.Context, senderID string) (*entrypoint.EntryPoint, error) {
	return c.entryPoints.Get(ctx, senderID)
}

// Close stops background cleanup of the send tracker
func (c *Client) Close() error {
	c.tracker.Close()
	return nil
}
