package security

import (
	"errors"
	"fmt"
)

var (
	// ErrSignatureVerification is returned when a response signature, date
	// or content digest fails verification. It is never retryable.
	ErrSignatureVerification = errors.New("signature verification failed")
	// ErrEncryption is returned when a document cannot be encrypted
	ErrEncryption = errors.New("encryption failed")
	// ErrDecryption is returned when an envelope cannot be opened
	ErrDecryption = errors.New("decryption failed")
	// ErrUnsupportedKey is returned for keys that are not RSA keys
	ErrUnsupportedKey = errors.New("unsupported key type")
)

// EncryptionError describes why a document could not be encrypted.
// It matches ErrEncryption with errors.Is.
type EncryptionError struct {
	KeyID string
	Op    string
	Err   error
}

func (e *EncryptionError) Error() string {
	if e.KeyID != "" {
		return fmt.Sprintf("%s: %s (key %s): %v", ErrEncryption, e.Op, e.KeyID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrEncryption, e.Op, e.Err)
}

func (e *EncryptionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrEncryption
func (e *EncryptionError) Is(target error) bool {
	return target == ErrEncryption
}

// verificationError wraps a cause with ErrSignatureVerification
func verificationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSignatureVerification, fmt.Sprintf(format, args...))
}
