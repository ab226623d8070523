package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// TLS version constants
const (
	TLS12 = tls.VersionTLS12
	TLS13 = tls.VersionTLS13
)

// DefaultUserAgent is sent when no user agent is configured
const DefaultUserAgent = "go-digipost/1.0"

// Recommended TLS 1.2 cipher suites
var RecommendedTLS12CipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
}

// Request is an HTTP request as seen by an HTTPTransport
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read HTTP response
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// HTTPTransport performs a single HTTP exchange
type HTTPTransport interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransportFunc adapts a function to HTTPTransport
type HTTPTransportFunc func(ctx context.Context, req *Request) (*Response, error)

// Execute implements HTTPTransport
func (f HTTPTransportFunc) Execute(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// HTTPSConfig contains HTTPS client configuration
type HTTPSConfig struct {
	MinTLSVersion   uint16
	MaxTLSVersion   uint16
	CipherSuites    []uint16
	Certificates    []tls.Certificate
	RootCAs         *x509.CertPool
	Timeout         time.Duration
	IdleConnTimeout time.Duration
	UserAgent       string
	// RateLimit is the maximum number of requests per second. Zero disables
	// client side rate limiting.
	RateLimit float64
	RateBurst int
	// MaxResponseSize bounds the number of response bytes read
	MaxResponseSize int64
}

// DefaultHTTPSConfig returns a default HTTPS configuration
func DefaultHTTPSConfig() *HTTPSConfig {
	return &HTTPSConfig{
		MinTLSVersion:   TLS12,
		MaxTLSVersion:   TLS13,
		CipherSuites:    RecommendedTLS12CipherSuites,
		Timeout:         30 * time.Second,
		IdleConnTimeout: 90 * time.Second,
		UserAgent:       DefaultUserAgent,
		MaxResponseSize: 32 << 20,
	}
}

// HTTPSClient is the default HTTPTransport
type HTTPSClient struct {
	client  *http.Client
	config  *HTTPSConfig
	limiter *rate.Limiter
}

// NewHTTPSClient creates a new HTTPS client
func NewHTTPSClient(config *HTTPSConfig) *HTTPSClient {
	if config == nil {
		config = DefaultHTTPSConfig()
	}

	tlsConfig := &tls.Config{
		MinVersion:   config.MinTLSVersion,
		MaxVersion:   config.MaxTLSVersion,
		CipherSuites: config.CipherSuites,
		Certificates: config.Certificates,
		RootCAs:      config.RootCAs,
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     tlsConfig,
		IdleConnTimeout:     config.IdleConnTimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	}

	return NewHTTPSClientWithHTTPClient(&http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}, config)
}

// NewHTTPSClientWithHTTPClient wraps an existing http.Client
func NewHTTPSClientWithHTTPClient(client *http.Client, config *HTTPSConfig) *HTTPSClient {
	if config == nil {
		config = DefaultHTTPSConfig()
	}

	c := &HTTPSClient{
		client: client,
		config: config,
	}
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}
	return c
}

// Execute performs the request and reads the complete response body
func (c *HTTPSClient) Execute(ctx context.Context, r *Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Method: r.Method, URL: r.URL, Err: fmt.Errorf("rate limit: %w", err)}
		}
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, &TransportError{Method: r.Method, URL: r.URL, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	for name, values := range r.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		ua := c.config.UserAgent
		if ua == "" {
			ua = DefaultUserAgent
		}
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Method: r.Method, URL: r.URL, Err: err}
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if c.config.MaxResponseSize > 0 {
		reader = io.LimitReader(resp.Body, c.config.MaxResponseSize)
	}

	responseBody, err := io.ReadAll(reader)
	if err != nil {
		return nil, &TransportError{Method: r.Method, URL: r.URL, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   responseBody,
	}, nil
}
