package entrypoint

import (
	"crypto/x509"
	"encoding/xml"
	"errors"
	"fmt"
	"sort"

	"github.com/sirosfoundation/go-digipost/pkg/message"
	"github.com/sirosfoundation/go-digipost/pkg/security"
)

var (
	// ErrDuplicateOperation is returned when two links share an operation name
	ErrDuplicateOperation = errors.New("duplicate operation in entry point")
	// ErrOperationNotFound is returned when the entry point has no link for an operation
	ErrOperationNotFound = errors.New("operation not found in entry point")
	// ErrNoCertificate is returned when the entry point has no signing certificate
	ErrNoCertificate = errors.New("entry point has no certificate")
)

// Document is the wire form of an entry point
type Document struct {
	XMLName     xml.Name          `xml:"http://api.digipost.no/schema/v8 entrypoint"`
	Certificate string            `xml:"certificate,omitempty"`
	Links       []message.LinkXML `xml:"link"`
}

// Link is a resource link for one operation
type Link struct {
	Rel       string
	URI       string
	MediaType string
}

// Operation returns the operation name of the link
func (l Link) Operation() string {
	return message.OperationName(l.Rel)
}

// EntryPoint is an immutable set of operation links and the certificate the
// gateway signs responses with
type EntryPoint struct {
	links         map[string]Link
	certPEM       []byte
	certificate   *x509.Certificate
	intermediates []*x509.Certificate
}

// New builds an entry point from links and an optional PEM certificate
func New(links []Link, certPEM []byte) (*EntryPoint, error) {
	ep := &EntryPoint{
		links: make(map[string]Link, len(links)),
	}

	for _, l := range links {
		op := l.Operation()
		if op == "" || l.URI == "" {
			return nil, fmt.Errorf("incomplete link %q", l.Rel)
		}
		if _, exists := ep.links[op]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateOperation, op)
		}
		ep.links[op] = l
	}

	if len(certPEM) > 0 {
		cert, intermediates, err := security.ParseCertificatePEM(certPEM)
		if err != nil {
			return nil, fmt.Errorf("invalid entry point certificate: %w", err)
		}
		ep.certPEM = append([]byte(nil), certPEM...)
		ep.certificate = cert
		ep.intermediates = intermediates
	}

	return ep, nil
}

// FromDocument builds an entry point from its wire form
func FromDocument(doc *Document) (*EntryPoint, error) {
	links := make([]Link, 0, len(doc.Links))
	for _, l := range doc.Links {
		links = append(links, Link{Rel: l.Rel, URI: l.URI, MediaType: l.MediaType})
	}
	return New(links, []byte(doc.Certificate))
}

// Link returns the link for an operation
func (e *EntryPoint) Link(op string) (Link, bool) {
	l, ok := e.links[op]
	return l, ok
}

// URI returns the link URI for an operation
func (e *EntryPoint) URI(op string) (string, error) {
	l, ok := e.links[op]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrOperationNotFound, op)
	}
	return l.URI, nil
}

// Operations returns the operation names in sorted order
func (e *EntryPoint) Operations() []string {
	ops := make([]string, 0, len(e.links))
	for op := range e.links {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Certificate returns the gateway signing certificate
func (e *EntryPoint) Certificate() (*x509.Certificate, error) {
	if e.certificate == nil {
		return nil, ErrNoCertificate
	}
	return e.certificate, nil
}

// CertificatePEM returns a copy of the certificate as published
func (e *EntryPoint) CertificatePEM() []byte {
	return append([]byte(nil), e.certPEM...)
}
