// Package gatewaytest runs an in-memory Digipost gateway for tests. It
// verifies client signatures, signs its responses, decrypts uploaded
// envelopes and records what it received.
package gatewaytest

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sirosfoundation/go-digipost/pkg/codec"
	"github.com/sirosfoundation/go-digipost/pkg/message"
	"github.com/sirosfoundation/go-digipost/pkg/security"
	"github.com/sirosfoundation/go-digipost/pkg/senderinfo"
)

// DefaultUserID is the broker id the gateway accepts unless configured otherwise
const DefaultUserID = "1000"

// Mutator rewrites a response after it has been signed
type Mutator func(r *http.Request, status int, h http.Header, body []byte) []byte

// Option configures a Gateway
type Option func(*Gateway)

// WithUserID sets the accepted X-Digipost-UserId
func WithUserID(id string) Option {
	return func(g *Gateway) {
		g.UserID = id
	}
}

// WithClientKey sets the key clients sign with
func WithClientKey(key *rsa.PrivateKey) Option {
	return func(g *Gateway) {
		g.clientKey = key
	}
}

// Gateway is a fake Digipost API server
type Gateway struct {
	URL    string
	UserID string

	server     *httptest.Server
	signer     *security.Signer
	cert       *x509.Certificate
	certPEM    []byte
	clientKey  *rsa.PrivateKey
	client     *security.Verifier
	printKey   *rsa.PrivateKey
	printKeyID string

	mu          sync.Mutex
	messages    map[string]*storedMessage
	subscribers map[string]*subscriber
	senders     map[string]senderinfo.Document
	mutate      Mutator

	entryPointFetches atomic.Int64
	printKeyFetches   atomic.Int64
	identifications   atomic.Int64
	creates           atomic.Int64
	uploads           atomic.Int64
	sends             atomic.Int64
}

type subscriber struct {
	address string
	key     *rsa.PrivateKey
	keyID   string
}

// Upload is content received for one document
type Upload struct {
	Raw       []byte
	Plaintext []byte
	KeyName   string
}

// New starts a gateway that is closed when the test ends
func New(tb testing.TB, opts ...Option) *Gateway {
	tb.Helper()

	serverKey := GenerateKey(tb)
	cert, certPEM := SelfSignedCertificate(tb, serverKey, "api.digipost.test", 24*time.Hour)
	signer, err := security.NewSigner(serverKey)
	if err != nil {
		tb.Fatalf("failed to create signer: %v", err)
	}

	g := &Gateway{
		UserID:      DefaultUserID,
		signer:      signer,
		cert:        cert,
		certPEM:     certPEM,
		printKey:    GenerateKey(tb),
		printKeyID:  "print-key-1",
		messages:    make(map[string]*storedMessage),
		subscribers: make(map[string]*subscriber),
		senders:     make(map[string]senderinfo.Document),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.clientKey == nil {
		g.clientKey = GenerateKey(tb)
	}
	g.client, err = security.NewVerifierFromPublicKey(&g.clientKey.PublicKey)
	if err != nil {
		tb.Fatalf("failed to create verifier: %v", err)
	}

	g.server = httptest.NewServer(g.routes())
	g.URL = g.server.URL
	tb.Cleanup(g.server.Close)

	return g
}

func (g *Gateway) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(g.authenticate)

	r.Get("/", g.handleEntryPoint)
	r.Post("/messages", g.handleCreate)
	r.Get("/messages/{messageID}", g.handleGetMessage)
	r.Post("/messages/{messageID}/documents/{uuid}/content", g.handleUpload)
	r.Post("/messages/{messageID}/send", g.handleSend)
	r.Get("/messages/{messageID}/encryption-key", g.handleRecipientKey)
	r.Post("/identification", g.handleIdentify)
	r.Post("/identification/encryption-key", g.handleIdentifyWithKey)
	r.Get("/printkey", g.handlePrintKey)
	r.Get("/sender-information/{senderID}", g.handleSenderInformation)
	r.Get("/sender-information/{orgNumber}/{partID}", g.handleSenderInformation)
	r.Get("/documents/status/{senderID}/{uuid}", g.handleDocumentStatus)
	r.Get("/{senderID}", g.handleEntryPoint)

	return r
}

// ClientKey returns the key clients must sign requests with
func (g *Gateway) ClientKey() *rsa.PrivateKey {
	return g.clientKey
}

// Certificate returns the certificate the gateway signs responses with
func (g *Gateway) Certificate() *x509.Certificate {
	return g.cert
}

// PrintKeyID returns the id of the shared print encryption key
func (g *Gateway) PrintKeyID() string {
	return g.printKeyID
}

// AddSubscriber registers a Digipost user and returns the id of the
// personal encryption key issued for them
func (g *Gateway) AddSubscriber(tb testing.TB, id message.Identifier) string {
	tb.Helper()

	key := message.DigitalRecipient{ID: id}.Key()
	s := &subscriber{
		address: "user#" + security.DigestBase64([]byte(key))[:8],
		key:     GenerateKey(tb),
		keyID:   "personal-" + security.DigestBase64([]byte(key))[:12],
	}

	g.mu.Lock()
	g.subscribers[key] = s
	g.mu.Unlock()

	return s.keyID
}

// AddSender registers sender information returned for lookup
func (g *Gateway) AddSender(lookup senderinfo.Lookup, doc senderinfo.Document) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.senders[lookup.Key()] = doc
}

// SetMutator installs a function that rewrites responses after signing.
// Pass nil to remove it.
func (g *Gateway) SetMutator(m Mutator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mutate = m
}

// EntryPointFetches returns how many entry point requests were served
func (g *Gateway) EntryPointFetches() int64 { return g.entryPointFetches.Load() }

// PrintKeyFetches returns how many print key requests were served
func (g *Gateway) PrintKeyFetches() int64 { return g.printKeyFetches.Load() }

// Identifications returns how many identification requests were served
func (g *Gateway) Identifications() int64 { return g.identifications.Load() }

// Creates returns how many create requests were received
func (g *Gateway) Creates() int64 { return g.creates.Load() }

// Uploads returns how many uploads were accepted
func (g *Gateway) Uploads() int64 { return g.uploads.Load() }

// Sends returns how many messages were dispatched
func (g *Gateway) Sends() int64 { return g.sends.Load() }

func (g *Gateway) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			g.fail(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}

		if userID := r.Header.Get(security.HeaderUserID); userID != g.UserID {
			g.fail(w, r, http.StatusForbidden, "UNKNOWN_BROKER", "unknown user id "+userID)
			return
		}

		date := r.Header.Get(security.HeaderDate)
		if err := g.client.CheckDate(date); err != nil {
			g.fail(w, r, http.StatusUnauthorized, "INVALID_DATE", err.Error())
			return
		}

		digest := ""
		if len(body) > 0 {
			digest = r.Header.Get(security.HeaderContentSHA256)
			if err := g.client.CheckDigest(body, digest); err != nil {
				g.fail(w, r, http.StatusUnauthorized, "INVALID_CONTENT_HASH", err.Error())
				return
			}
		}

		err = g.client.Verify(security.CanonicalRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.RawQuery,
			Date:   date,
			Digest: digest,
			UserID: r.Header.Get(security.HeaderUserID),
		}, r.Header.Get(security.HeaderSignature))
		if err != nil {
			g.fail(w, r, http.StatusUnauthorized, "INVALID_SIGNATURE", err.Error())
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	var body []byte
	if v != nil {
		var err error
		body, err = codec.XML.Marshal(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	date := security.FormatDate(time.Now())
	digest := ""
	if len(body) > 0 {
		digest = security.DigestBase64(body)
	}
	sig, err := g.signer.Sign(security.CanonicalResponse{
		Status: status,
		Path:   r.URL.EscapedPath(),
		Date:   date,
		Digest: digest,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", message.MediaType)
	h.Set(security.HeaderDate, date)
	h.Set(security.HeaderSignature, sig)
	if digest != "" {
		h.Set(security.HeaderContentSHA256, digest)
	}

	g.mu.Lock()
	mutate := g.mutate
	g.mu.Unlock()
	if mutate != nil {
		body = mutate(r, status, h, body)
	}

	w.WriteHeader(status)
	w.Write(body)
}

func (g *Gateway) fail(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	errorType := "CLIENT_DATA"
	if status >= 500 {
		errorType = "SERVER"
	}
	g.respond(w, r, status, &message.ErrorXML{
		ErrorCode:    code,
		ErrorMessage: msg,
		ErrorType:    errorType,
	})
}
