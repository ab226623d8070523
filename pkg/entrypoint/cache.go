package entrypoint

import (
	"context"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sirosfoundation/go-digipost/pkg/cache"
	"github.com/sirosfoundation/go-digipost/pkg/security"
	"github.com/sirosfoundation/go-digipost/pkg/transport"
)

// Fetcher performs a GET and decodes the response.
// *transport.SignedTransport implements it.
type Fetcher interface {
	Get(ctx context.Context, uri string, out any, opts ...transport.ExchangeOption) error
}

// Config configures a Cache
type Config struct {
	// BaseURL is the API root, e.g. https://api.digipost.no
	BaseURL string
	Fetcher Fetcher
	// Validator checks the published certificate. Defaults to a validity
	// window check.
	Validator security.CertificateValidator
	TTL       time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
}

// Cache fetches and caches entry points by sender id
type Cache struct {
	base      string
	fetcher   Fetcher
	validator security.CertificateValidator
	values    *cache.Cache[*EntryPoint]
	logger    *slog.Logger
}

// NewCache creates an entry point cache
func NewCache(cfg Config) (*Cache, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Validator == nil {
		cfg.Validator = security.NewDefaultCertificateValidator(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Cache{
		base:      strings.TrimRight(cfg.BaseURL, "/"),
		fetcher:   cfg.Fetcher,
		validator: cfg.Validator,
		values: cache.New[*EntryPoint](cache.Config{
			Name:   "entrypoint",
			TTL:    cfg.TTL,
			Now:    cfg.Now,
			Logger: logger,
		}),
		logger: logger.With("component", "entrypoint"),
	}, nil
}

// Get returns the entry point for senderID, or the default entry point when
// senderID is empty
func (c *Cache) Get(ctx context.Context, senderID string) (*EntryPoint, error) {
	return c.values.Get(ctx, senderID, func(ctx context.Context) (*EntryPoint, error) {
		return c.fetch(ctx, senderID)
	})
}

// Certificate returns the certificate published in the default entry point
func (c *Cache) Certificate(ctx context.Context) (*x509.Certificate, error) {
	ep, err := c.Get(ctx, "")
	if err != nil {
		return nil, err
	}
	return ep.Certificate()
}

// Invalidate drops the cached entry point for senderID
func (c *Cache) Invalidate(senderID string) {
	c.values.Invalidate(senderID)
}

// Fetches returns how many entry point fetches have been started
func (c *Cache) Fetches() int64 {
	return c.values.Fetches()
}

func (c *Cache) uri(senderID string) string {
	if senderID == "" {
		return c.base + "/"
	}
	return fmt.Sprintf("%s/%s", c.base, url.PathEscape(senderID))
}

func (c *Cache) fetch(ctx context.Context, senderID string) (*EntryPoint, error) {
	uri := c.uri(senderID)

	// the default entry point publishes the certificate every other
	// response is verified with
	var opts []transport.ExchangeOption
	if senderID == "" {
		opts = append(opts, transport.Unverified())
	}

	var doc Document
	if err := c.fetcher.Get(ctx, uri, &doc, opts...); err != nil {
		return nil, fmt.Errorf("failed to fetch entry point %s: %w", uri, err)
	}

	ep, err := FromDocument(&doc)
	if err != nil {
		return nil, err
	}

	if ep.certificate != nil {
		if err := c.validator.ValidateCertificate(ep.certificate, ep.intermediates); err != nil {
			return nil, fmt.Errorf("entry point certificate rejected: %w", err)
		}
	}

	c.logger.Info("Entry point loaded", "uri", uri, "operations", len(ep.links))
	return ep, nil
}
