package keystore

import (
	"crypto"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"
)

// LoadPKCS12 loads the signing key and certificate from a PKCS#12 bundle
func LoadPKCS12(path, password string) (Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, path)
		}
		return nil, fmt.Errorf("reading PKCS#12 file: %w", err)
	}

	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, fmt.Errorf("%w: %v", ErrPINRequired, err)
		}
		return nil, fmt.Errorf("decoding PKCS#12 file: %w", err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, ErrUnsupportedKey
	}
	return newKeySigner(signer, cert)
}
