package security

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCertificateExpired is returned when a certificate has expired
	ErrCertificateExpired = errors.New("certificate has expired")
	// ErrCertificateNotYetValid is returned when a certificate is not yet valid
	ErrCertificateNotYetValid = errors.New("certificate is not yet valid")
	// ErrCertificateUntrusted is returned when a certificate is not trusted
	ErrCertificateUntrusted = errors.New("certificate is not trusted")
	// ErrInvalidCertificate is returned for other certificate validation failures
	ErrInvalidCertificate = errors.New("certificate validation failed")
)

// CertificateValidator decides whether the gateway signing certificate
// published in an entry point may be used to verify responses
type CertificateValidator interface {
	ValidateCertificate(cert *x509.Certificate, intermediates []*x509.Certificate) error
}

// DefaultCertificateValidator checks the validity period of a certificate
// and, when a root pool is configured, its chain
type DefaultCertificateValidator struct {
	roots *x509.CertPool
	now   func() time.Time
}

// NewDefaultCertificateValidator creates a validator. A nil pool skips
// chain building and only checks the validity period.
func NewDefaultCertificateValidator(roots *x509.CertPool) *DefaultCertificateValidator {
	return &DefaultCertificateValidator{
		roots: roots,
		now:   time.Now,
	}
}

// ValidateCertificate validates a single certificate
func (v *DefaultCertificateValidator) ValidateCertificate(cert *x509.Certificate, intermediates []*x509.Certificate) error {
	if cert == nil {
		return fmt.Errorf("%w: nil certificate", ErrInvalidCertificate)
	}

	now := v.now()
	if now.Before(cert.NotBefore) {
		return ErrCertificateNotYetValid
	}
	if now.After(cert.NotAfter) {
		return ErrCertificateExpired
	}

	if v.roots == nil {
		return nil
	}

	opts := x509.VerifyOptions{
		Roots:         v.roots,
		CurrentTime:   now,
		Intermediates: x509.NewCertPool(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	for _, intermediate := range intermediates {
		opts.Intermediates.AddCert(intermediate)
	}

	if _, err := cert.Verify(opts); err != nil {
		return fmt.Errorf("%w: %v", ErrCertificateUntrusted, err)
	}
	return nil
}

// ParseCertificatePEM parses the first certificate in a PEM bundle and
// returns any following certificates as intermediates
func ParseCertificatePEM(data []byte) (*x509.Certificate, []*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, nil, fmt.Errorf("%w: no certificate in PEM data", ErrInvalidCertificate)
	}
	return certs[0], certs[1:], nil
}
