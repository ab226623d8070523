package security

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
)

// DigestSize is the size of a content digest in bytes
const DigestSize = sha256.Size

// Digest computes the SHA-256 content digest of data
func Digest(data []byte) [DigestSize]byte {
	return sha256.Sum256(data)
}

// DigestBase64 computes the SHA-256 content digest of data in the
// base64 form used by the X-Content-SHA256 header
func DigestBase64(data []byte) string {
	sum := Digest(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// DigestReader reads r to the end and returns the buffered bytes together
// with their digest. The returned bytes are the ones that must be sent.
func DigestReader(r io.Reader) ([]byte, [DigestSize]byte, error) {
	var buf bytes.Buffer
	hasher := sha256.New()

	if _, err := io.Copy(io.MultiWriter(&buf, hasher), r); err != nil {
		return nil, [DigestSize]byte{}, fmt.Errorf("failed to read content: %w", err)
	}

	var sum [DigestSize]byte
	copy(sum[:], hasher.Sum(nil))

	return buf.Bytes(), sum, nil
}

// VerifyDigest reports whether the base64 encoded digest matches data.
// A value that does not decode to a SHA-256 digest never matches.
func VerifyDigest(data []byte, encoded string) bool {
	claimed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(claimed) != DigestSize {
		return false
	}
	sum := Digest(data)
	return subtle.ConstantTimeCompare(sum[:], claimed) == 1
}
