//go:build pkcs11

package keystore

import (
	"crypto"
	"crypto/x509"
	"fmt"
	"io"

	"github.com/ThalesIgnite/crypto11"
)

// PKCS11Config holds configuration for a PKCS#11 token
type PKCS11Config struct {
	// ModulePath is the path to the PKCS#11 library (.so/.dylib/.dll)
	ModulePath string

	// SlotID is the slot number to use (optional if SlotLabel is provided)
	SlotID *uint

	// SlotLabel is the token label to search for (optional if SlotID is provided)
	SlotLabel string

	// PIN is the user PIN for authentication
	PIN string

	// KeyLabel is the label of the key pair and its certificate
	KeyLabel string
}

// OpenPKCS11 finds the signing key labelled cfg.KeyLabel on a token
func OpenPKCS11(cfg *PKCS11Config) (Signer, error) {
	if cfg.PIN == "" {
		return nil, ErrPINRequired
	}

	config := &crypto11.Config{
		Path: cfg.ModulePath,
		Pin:  cfg.PIN,
	}
	if cfg.SlotID != nil {
		slotID := int(*cfg.SlotID)
		config.SlotNumber = &slotID
	}
	if cfg.SlotLabel != "" {
		config.TokenLabel = cfg.SlotLabel
	}

	ctx, err := crypto11.Configure(config)
	if err != nil {
		return nil, fmt.Errorf("configuring PKCS#11: %w", err)
	}

	signer, err := loadPKCS11Signer(ctx, cfg.KeyLabel)
	if err != nil {
		ctx.Close()
		return nil, err
	}
	return signer, nil
}

func loadPKCS11Signer(ctx *crypto11.Context, label string) (*pkcs11Signer, error) {
	key, err := ctx.FindKeyPair(nil, []byte(label))
	if err != nil {
		return nil, fmt.Errorf("finding key pair: %w", err)
	}
	if key == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, label)
	}

	cert, err := ctx.FindCertificate(nil, []byte(label), nil)
	if err != nil {
		return nil, fmt.Errorf("finding certificate: %w", err)
	}

	if _, err := newKeySigner(key, cert); err != nil {
		return nil, err
	}
	return &pkcs11Signer{ctx: ctx, key: key, cert: cert}, nil
}

// pkcs11Signer implements Signer using a PKCS#11 key
type pkcs11Signer struct {
	ctx  *crypto11.Context
	key  crypto.Signer
	cert *x509.Certificate
}

func (s *pkcs11Signer) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return s.key.Sign(rand, digest, opts)
}

func (s *pkcs11Signer) Public() crypto.PublicKey {
	return s.key.Public()
}

func (s *pkcs11Signer) Certificate() *x509.Certificate {
	return s.cert
}

func (s *pkcs11Signer) Close() error {
	return s.ctx.Close()
}
