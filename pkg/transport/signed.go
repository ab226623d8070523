package transport

import (
	"context"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sirosfoundation/go-digipost/pkg/codec"
	"github.com/sirosfoundation/go-digipost/pkg/security"
)

// CertificateProvider returns the certificate used to verify responses
type CertificateProvider interface {
	Certificate(ctx context.Context) (*x509.Certificate, error)
}

// CertificateProviderFunc adapts a function to CertificateProvider
type CertificateProviderFunc func(ctx context.Context) (*x509.Certificate, error)

// Certificate implements CertificateProvider
func (f CertificateProviderFunc) Certificate(ctx context.Context) (*x509.Certificate, error) {
	return f(ctx)
}

// SignedConfig configures a SignedTransport
type SignedConfig struct {
	// UserID is sent in X-Digipost-UserId and covered by the signature
	UserID string
	Signer *security.Signer
	// Certificates provides the gateway signing certificate. It is not
	// consulted for exchanges made with Unverified.
	Certificates    CertificateProvider
	Serializer      codec.Serializer
	VerifierOptions []security.Option
	Now             func() time.Time
	Logger          *slog.Logger
}

// SignedTransport signs requests and verifies responses
type SignedTransport struct {
	next   HTTPTransport
	cfg    SignedConfig
	logger *slog.Logger
}

// NewSignedTransport wraps next
func NewSignedTransport(next HTTPTransport, cfg SignedConfig) (*SignedTransport, error) {
	if next == nil {
		return nil, fmt.Errorf("http transport is required")
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if cfg.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if cfg.Serializer == nil {
		cfg.Serializer = codec.XML
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SignedTransport{
		next:   next,
		cfg:    cfg,
		logger: logger.With("component", "signed-transport"),
	}, nil
}

// Exchange describes one signed request
type Exchange struct {
	Method      string
	URI         string
	Body        []byte
	ContentType string
	// Unverified skips response verification. It is only used to fetch the
	// entry point that publishes the verification certificate.
	Unverified bool
}

// ExchangeOption modifies an Exchange
type ExchangeOption func(*Exchange)

// Unverified disables response verification for the exchange
func Unverified() ExchangeOption {
	return func(e *Exchange) {
		e.Unverified = true
	}
}

// Serializer returns the serializer used for bodies
func (t *SignedTransport) Serializer() codec.Serializer {
	return t.cfg.Serializer
}

// Do performs a signed exchange. A 2xx response is returned after it has
// been verified. Any other status is returned as a *ServerError.
func (t *SignedTransport) Do(ctx context.Context, ex *Exchange) (*Response, error) {
	u, err := url.Parse(ex.URI)
	if err != nil {
		return nil, &TransportError{Method: ex.Method, URL: ex.URI, Err: fmt.Errorf("invalid uri: %w", err)}
	}

	date := security.FormatDate(t.cfg.Now())
	digest := ""
	if len(ex.Body) > 0 {
		digest = security.DigestBase64(ex.Body)
	}

	signature, err := t.cfg.Signer.Sign(security.CanonicalRequest{
		Method: ex.Method,
		Path:   u.EscapedPath(),
		Query:  u.RawQuery,
		Date:   date,
		Digest: digest,
		UserID: t.cfg.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	header := http.Header{}
	header.Set("Accept", t.cfg.Serializer.MediaType())
	header.Set(security.HeaderDate, date)
	header.Set(security.HeaderUserID, t.cfg.UserID)
	header.Set(security.HeaderSignature, signature)
	if len(ex.Body) > 0 {
		contentType := ex.ContentType
		if contentType == "" {
			contentType = t.cfg.Serializer.MediaType()
		}
		header.Set("Content-Type", contentType)
		header.Set(security.HeaderContentSHA256, digest)
	}

	logger := t.logger.With("method", ex.Method, "uri", ex.URI)
	logger.Debug("Sending request", "bytes", len(ex.Body))

	resp, err := t.next.Execute(ctx, &Request{
		Method: ex.Method,
		URL:    ex.URI,
		Header: header,
		Body:   ex.Body,
	})
	if err != nil {
		logger.Warn("Request failed", "error", err)
		return nil, err
	}

	logger.Debug("Received response", "status", resp.Status, "bytes", len(resp.Body))

	verified := false
	if !ex.Unverified && (mustVerify(resp.Status) || resp.Header.Get(security.HeaderSignature) != "") {
		if err := t.verify(ctx, u, resp); err != nil {
			logger.Error("Response verification failed", "status", resp.Status, "error", err)
			return nil, err
		}
		verified = true
	}

	if resp.Status >= 200 && resp.Status < 300 {
		return resp, nil
	}

	serverErr := &ServerError{
		Status:   resp.Status,
		Location: resp.Header.Get("Location"),
		Verified: verified,
	}
	if payload, ok := codec.ParseError(resp.Body); ok {
		serverErr.Code = payload.Code
		serverErr.Message = payload.Message
		serverErr.Type = payload.Type
	}
	return nil, serverErr
}

// mustVerify reports whether a response with the given status is required
// to be signed
func mustVerify(status int) bool {
	return (status >= 200 && status < 300) || status == http.StatusConflict
}

func (t *SignedTransport) verify(ctx context.Context, u *url.URL, resp *Response) error {
	if t.cfg.Certificates == nil {
		return fmt.Errorf("%w: no certificate provider", security.ErrSignatureVerification)
	}
	cert, err := t.cfg.Certificates.Certificate(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain server certificate: %w", err)
	}

	verifier, err := security.NewVerifier(cert, t.cfg.VerifierOptions...)
	if err != nil {
		return fmt.Errorf("%w: %v", security.ErrSignatureVerification, err)
	}

	date := resp.Header.Get(security.HeaderDate)
	if err := verifier.CheckDate(date); err != nil {
		return err
	}

	digest := ""
	if len(resp.Body) > 0 {
		digest = resp.Header.Get(security.HeaderContentSHA256)
		if err := verifier.CheckDigest(resp.Body, digest); err != nil {
			return err
		}
	}

	return verifier.Verify(security.CanonicalResponse{
		Status: resp.Status,
		Path:   u.EscapedPath(),
		Date:   date,
		Digest: digest,
	}, resp.Header.Get(security.HeaderSignature))
}

// Get fetches uri and decodes the body into out
func (t *SignedTransport) Get(ctx context.Context, uri string, out any, opts ...ExchangeOption) error {
	return t.exchange(ctx, http.MethodGet, uri, nil, out, opts...)
}

// Post encodes in, posts it to uri and decodes the response into out.
// in and out may be nil.
func (t *SignedTransport) Post(ctx context.Context, uri string, in, out any, opts ...ExchangeOption) error {
	return t.exchange(ctx, http.MethodPost, uri, in, out, opts...)
}

// PostContent posts raw bytes to uri and decodes the response into out
func (t *SignedTransport) PostContent(ctx context.Context, uri string, content []byte, contentType string, out any) error {
	ex := &Exchange{
		Method:      http.MethodPost,
		URI:         uri,
		Body:        content,
		ContentType: contentType,
	}
	resp, err := t.Do(ctx, ex)
	if err != nil {
		return err
	}
	return t.decode(resp, out)
}

func (t *SignedTransport) exchange(ctx context.Context, method, uri string, in, out any, opts ...ExchangeOption) error {
	ex := &Exchange{Method: method, URI: uri}
	for _, opt := range opts {
		opt(ex)
	}

	if in != nil {
		body, err := t.cfg.Serializer.Marshal(in)
		if err != nil {
			return err
		}
		ex.Body = body
	}

	resp, err := t.Do(ctx, ex)
	if err != nil {
		return err
	}
	return t.decode(resp, out)
}

func (t *SignedTransport) decode(resp *Response, out any) error {
	if out == nil {
		return nil
	}
	return t.cfg.Serializer.Unmarshal(resp.Body, out)
}
