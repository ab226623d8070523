package security

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
)

// Signer produces RSA-SHA256 signatures over canonical strings.
// It is immutable and safe for concurrent use.
type Signer struct {
	key  crypto.Signer
	hash crypto.Hash
}

// NewSigner creates a signer around an RSA private key. The key may live in
// memory or on a hardware token as long as it implements crypto.Signer.
func NewSigner(key crypto.Signer) (*Signer, error) {
	if key == nil {
		return nil, fmt.Errorf("private key is required")
	}
	if _, ok := key.Public().(*rsa.PublicKey); !ok {
		return nil, fmt.Errorf("%w: signing key must be RSA, got %T", ErrUnsupportedKey, key.Public())
	}
	return &Signer{key: key, hash: crypto.SHA256}, nil
}

// Sign signs the canonical form of c and returns the base64 signature
func (s *Signer) Sign(c Canonical) (string, error) {
	sig, err := s.SignBytes(c.Canonicalize())
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// SignBytes signs data with RSASSA-PKCS1-v1_5 over its SHA-256 hash
func (s *Signer) SignBytes(data []byte) ([]byte, error) {
	h := s.hash.New()
	h.Write(data)
	sig, err := s.key.Sign(rand.Reader, h.Sum(nil), s.hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return sig, nil
}

// Public returns the public half of the signing key
func (s *Signer) Public() *rsa.PublicKey {
	return s.key.Public().(*rsa.PublicKey)
}

// Verifier checks RSA-SHA256 signatures and Date headers produced by a peer
type Verifier struct {
	publicKey *rsa.PublicKey
	cfg       *VerifierConfig
}

// NewVerifier creates a verifier for the public key in cert
func NewVerifier(cert *x509.Certificate, opts ...Option) (*Verifier, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is required")
	}
	return NewVerifierFromPublicKey(cert.PublicKey, opts...)
}

// NewVerifierFromPublicKey creates a verifier for a bare RSA public key
func NewVerifierFromPublicKey(pub crypto.PublicKey, opts ...Option) (*Verifier, error) {
	publicKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: verification key must be RSA, got %T", ErrUnsupportedKey, pub)
	}
	return &Verifier{publicKey: publicKey, cfg: NewVerifierConfig(opts...)}, nil
}

// Verify checks the base64 signature over the canonical form of c
func (v *Verifier) Verify(c Canonical, signature string) error {
	if signature == "" {
		return verificationError("missing %s header", HeaderSignature)
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return verificationError("malformed signature: %v", err)
	}
	return v.VerifyBytes(c.Canonicalize(), sig)
}

// VerifyBytes checks a raw signature over data
func (v *Verifier) VerifyBytes(data, sig []byte) error {
	h := v.cfg.Hash.New()
	h.Write(data)
	if err := rsa.VerifyPKCS1v15(v.publicKey, v.cfg.Hash, h.Sum(nil), sig); err != nil {
		return verificationError("%v", err)
	}
	return nil
}

// CheckDate verifies that an HTTP-date header value lies within the
// configured skew of the local clock
func (v *Verifier) CheckDate(value string) error {
	if value == "" {
		return verificationError("missing %s header", HeaderDate)
	}
	t, err := ParseDate(value)
	if err != nil {
		return verificationError("malformed %s header %q", HeaderDate, value)
	}
	now := v.cfg.Now()
	if t.Before(now.Add(-v.cfg.ClockSkew)) || t.After(now.Add(v.cfg.ClockSkew)) {
		return verificationError("%s header %q outside accepted window of %s", HeaderDate, value, v.cfg.ClockSkew)
	}
	return nil
}

// CheckDigest verifies that the X-Content-SHA256 header matches body
func (v *Verifier) CheckDigest(body []byte, header string) error {
	if header == "" {
		return verificationError("missing %s header", HeaderContentSHA256)
	}
	if !VerifyDigest(body, header) {
		return verificationError("%s header does not match content", HeaderContentSHA256)
	}
	return nil
}
