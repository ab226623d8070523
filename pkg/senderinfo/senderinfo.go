// Package senderinfo looks up the features and status of a sender
// organisation, with the same single-flight expiry discipline as the entry
// point cache.
package senderinfo

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sirosfoundation/go-digipost/pkg/cache"
	"github.com/sirosfoundation/go-digipost/pkg/entrypoint"
	"github.com/sirosfoundation/go-digipost/pkg/message"
)

// FeaturePrintNonPDF allows documents other than PDF on the print channel
const FeaturePrintNonPDF = "no.digipost.feature.print.non-pdf"

// Status is the registration status of a sender
type Status string

const (
	StatusValidSender     Status = "VALID_SENDER"
	StatusNoInfoAvailable Status = "NO_INFO_AVAILABLE"
)

// Feature is a capability enabled for a sender
type Feature struct {
	Identifier string
	Param      string
}

// SenderInformation describes a sender as known by the gateway
type SenderInformation struct {
	SenderID string
	Status   Status
	Features []Feature
}

// HasFeature reports whether the sender has the feature with the given identifier
func (s *SenderInformation) HasFeature(identifier string) bool {
	for _, f := range s.Features {
		if f.Identifier == identifier {
			return true
		}
	}
	return false
}

// IsValid reports whether the gateway knows the sender
func (s *SenderInformation) IsValid() bool {
	return s.Status == StatusValidSender
}

// Document is the wire form of sender information
type Document struct {
	XMLName           xml.Name     `xml:"http://api.digipost.no/schema/v8 sender-information"`
	SenderID          string       `xml:"sender-id,omitempty"`
	Status            string       `xml:"sender-status"`
	SupportedFeatures []FeatureXML `xml:"supported-features>feature"`
}

// FeatureXML is the wire form of a feature
type FeatureXML struct {
	Identifier string `xml:"identifier"`
	Param      string `xml:"param,omitempty"`
}

// FromDocument converts the wire form
func FromDocument(doc *Document) (*SenderInformation, error) {
	status := Status(doc.Status)
	if status != StatusValidSender && status != StatusNoInfoAvailable {
		return nil, fmt.Errorf("%w: sender status %q", message.ErrUnexpectedStatus, doc.Status)
	}
	info := &SenderInformation{SenderID: doc.SenderID, Status: status}
	for _, f := range doc.SupportedFeatures {
		info.Features = append(info.Features, Feature(f))
	}
	return info, nil
}

// Lookup identifies a sender either by its sender id or by an
// organisation number and an optional part id
type Lookup struct {
	SenderID  string
	OrgNumber string
	PartID    string
}

// BySenderID looks up a sender by id
func BySenderID(id string) Lookup {
	return Lookup{SenderID: id}
}

// ByOrganisation looks up a sender by organisation number and part id
func ByOrganisation(orgNumber, partID string) Lookup {
	return Lookup{OrgNumber: orgNumber, PartID: partID}
}

// Key returns the cache key of the lookup
func (l Lookup) Key() string {
	if l.SenderID != "" {
		return "id:" + l.SenderID
	}
	return "org:" + l.OrgNumber + "/" + l.PartID
}

func (l Lookup) validate() error {
	if l.SenderID == "" && l.OrgNumber == "" {
		return fmt.Errorf("sender id or organisation number is required")
	}
	if l.SenderID != "" && l.OrgNumber != "" {
		return fmt.Errorf("sender id and organisation number are mutually exclusive")
	}
	return nil
}

func (l Lookup) path() string {
	if l.SenderID != "" {
		return url.PathEscape(l.SenderID)
	}
	p := url.PathEscape(l.OrgNumber)
	if l.PartID != "" {
		p += "/" + url.PathEscape(l.PartID)
	}
	return p
}

// EntryPoints resolves the entry point that links to the sender
// information resource
type EntryPoints interface {
	Get(ctx context.Context, senderID string) (*entrypoint.EntryPoint, error)
}

// Config configures a Cache
type Config struct {
	EntryPoints EntryPoints
	Fetcher     entrypoint.Fetcher
	TTL         time.Duration
	Now         func() time.Time
	Logger      *slog.Logger
}

// Cache fetches and caches sender information
type Cache struct {
	entryPoints EntryPoints
	fetcher     entrypoint.Fetcher
	values      *cache.Cache[*SenderInformation]
	logger      *slog.Logger
}

// NewCache creates a sender information cache
func NewCache(cfg Config) (*Cache, error) {
	if cfg.EntryPoints == nil || cfg.Fetcher == nil {
		return nil, fmt.Errorf("entry points and fetcher are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entryPoints: cfg.EntryPoints,
		fetcher:     cfg.Fetcher,
		values: cache.New[*SenderInformation](cache.Config{
			Name:   "senderinfo",
			TTL:    cfg.TTL,
			Now:    cfg.Now,
			Logger: logger,
		}),
		logger: logger.With("component", "senderinfo"),
	}, nil
}

// Get returns the sender information for a lookup
func (c *Cache) Get(ctx context.Context, lookup Lookup) (*SenderInformation, error) {
	if err := lookup.validate(); err != nil {
		return nil, err
	}
	return c.values.Get(ctx, lookup.Key(), func(ctx context.Context) (*SenderInformation, error) {
		return c.fetch(ctx, lookup)
	})
}

// Fetches returns how many lookups have reached the gateway
func (c *Cache) Fetches() int64 {
	return c.values.Fetches()
}

func (c *Cache) fetch(ctx context.Context, lookup Lookup) (*SenderInformation, error) {
	ep, err := c.entryPoints.Get(ctx, "")
	if err != nil {
		return nil, err
	}
	base, err := ep.URI(message.OpGetSenderInformation)
	if err != nil {
		return nil, err
	}
	uri := strings.TrimRight(base, "/") + "/" + lookup.path()

	var doc Document
	if err := c.fetcher.Get(ctx, uri, &doc); err != nil {
		return nil, fmt.Errorf("failed to fetch sender information: %w", err)
	}

	info, err := FromDocument(&doc)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Sender information loaded", "lookup", lookup.Key(), "status", info.Status, "features", len(info.Features))
	return info, nil
}
