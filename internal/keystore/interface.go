// Package keystore loads the key that signs requests to the Digipost gateway
//
// The key can come from different backends:
//
//   - PEM: key and certificate files
//   - PKCS#12: the bundle format enterprise certificates are issued in
//   - PKCS#11: keys stored in hardware security modules (HSM) or smart cards
//
// Every backend yields a Signer, which satisfies crypto.Signer and can be
// passed directly as the client signing key.
package keystore

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"io"
	"time"
)

// Common errors
var (
	ErrKeyNotFound    = errors.New("signing key not found")
	ErrPINRequired    = errors.New("PIN required to unlock key")
	ErrKeyMismatch    = errors.New("certificate does not match signing key")
	ErrUnsupportedKey = errors.New("unsupported signing key type")
)

// Signer performs cryptographic signing operations
//
// Implementations must be safe for concurrent use.
type Signer interface {
	// Sign signs the digest using the underlying private key.
	Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error)

	// Public returns the public key corresponding to the private key.
	Public() crypto.PublicKey

	// Certificate returns the X.509 certificate for this signer, or nil
	// when the backend holds a bare key.
	Certificate() *x509.Certificate

	// Close releases any resources held by the backend.
	Close() error
}

// KeyInfo describes a signing key
type KeyInfo struct {
	// Algorithm is the key algorithm (e.g., "RSA", "EC")
	Algorithm string

	// KeySize is the key size in bits (e.g., 2048 for RSA, 256 for P-256)
	KeySize int

	// NotBefore is when the associated certificate becomes valid
	NotBefore time.Time

	// NotAfter is when the associated certificate expires
	NotAfter time.Time

	// CertificateSubject is the subject DN of the certificate
	CertificateSubject string
}

// Describe returns metadata about s for logging
func Describe(s Signer) KeyInfo {
	info := KeyInfo{
		Algorithm: keyAlgorithmName(s.Public()),
		KeySize:   keySize(s.Public()),
	}
	if cert := s.Certificate(); cert != nil {
		info.NotBefore = cert.NotBefore
		info.NotAfter = cert.NotAfter
		info.CertificateSubject = cert.Subject.String()
	}
	return info
}

func keyAlgorithmName(pub crypto.PublicKey) string {
	switch pub.(type) {
	case *ecdsa.PublicKey:
		return "EC"
	case *rsa.PublicKey:
		return "RSA"
	default:
		return "Unknown"
	}
}

func keySize(pub crypto.PublicKey) int {
	switch k := pub.(type) {
	case *ecdsa.PublicKey:
		return k.Curve.Params().BitSize
	case *rsa.PublicKey:
		return k.N.BitLen()
	default:
		return 0
	}
}

// keySigner is a Signer over an in-memory key
type keySigner struct {
	key  crypto.Signer
	cert *x509.Certificate
}

func newKeySigner(key crypto.Signer, cert *x509.Certificate) (*keySigner, error) {
	if _, ok := key.Public().(*rsa.PublicKey); !ok {
		return nil, ErrUnsupportedKey
	}
	if cert != nil {
		if pub, ok := cert.PublicKey.(*rsa.PublicKey); !ok || !pub.Equal(key.Public()) {
			return nil, ErrKeyMismatch
		}
	}
	return &keySigner{key: key, cert: cert}, nil
}

func (s *keySigner) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return s.key.Sign(rand, digest, opts)
}

func (s *keySigner) Public() crypto.PublicKey {
	return s.key.Public()
}

func (s *keySigner) Certificate() *x509.Certificate {
	return s.cert
}

func (s *keySigner) Close() error {
	return nil
}
