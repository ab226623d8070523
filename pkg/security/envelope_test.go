package security

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	key := generateRSAKey(t)
	plaintext := []byte("%PDF-1.7 registered letter")

	envelope, err := EncryptEnvelope(plaintext, &key.PublicKey, "print-key-2024")
	require.NoError(t, err)
	assert.False(t, bytes.Contains(envelope, plaintext))

	parsed, err := ParseEnvelope(envelope)
	require.NoError(t, err)
	assert.Equal(t, "print-key-2024", parsed.KeyName())
	assert.Equal(t, AlgorithmAES256GCM, parsed.EncryptionMethod.Algorithm)
	assert.Equal(t, AlgorithmRSAOAEP, parsed.KeyInfo.EncryptedKey.EncryptionMethod.Algorithm)

	decrypted, err := DecryptEnvelope(envelope, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEnvelope_FreshContentKey(t *testing.T) {
	key := generateRSAKey(t)
	plaintext := []byte("same content")

	first, err := EncryptEnvelope(plaintext, &key.PublicKey, "k")
	require.NoError(t, err)
	second, err := EncryptEnvelope(plaintext, &key.PublicKey, "k")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestEnvelope_WrongKeyFails(t *testing.T) {
	key := generateRSAKey(t)
	other := generateRSAKey(t)

	envelope, err := EncryptEnvelope([]byte("secret"), &key.PublicKey, "k")
	require.NoError(t, err)

	_, err = DecryptEnvelope(envelope, other)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestEnvelope_TamperedCipherTextFails(t *testing.T) {
	key := generateRSAKey(t)

	envelope, err := EncryptEnvelope([]byte("secret"), &key.PublicKey, "k")
	require.NoError(t, err)

	parsed, err := ParseEnvelope(envelope)
	require.NoError(t, err)
	value := []byte(parsed.CipherData.CipherValue)
	// flip one base64 character inside the tag
	idx := len(value) - 4
	if value[idx] == 'A' {
		value[idx] = 'B'
	} else {
		value[idx] = 'A'
	}
	tampered := bytes.Replace(envelope, []byte(parsed.CipherData.CipherValue), value, 1)

	_, err = DecryptEnvelope(tampered, key)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestEnvelopeEncrypter(t *testing.T) {
	key := generateRSAKey(t)

	pkix, err := EncodePublicKeyPEM(&key.PublicKey)
	require.NoError(t, err)

	pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey)})

	cert := generateRSATestCert(t, key, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})

	for name, pemData := range map[string][]byte{"pkix": pkix, "pkcs1": pkcs1, "certificate": certPEM} {
		t.Run(name, func(t *testing.T) {
			encrypter, err := NewEnvelopeEncrypter(pemData, "key-1")
			require.NoError(t, err)
			assert.Equal(t, "key-1", encrypter.KeyID())

			envelope, err := encrypter.Encrypt([]byte("letter"))
			require.NoError(t, err)

			plaintext, err := DecryptEnvelope(envelope, key)
			require.NoError(t, err)
			assert.Equal(t, []byte("letter"), plaintext)
		})
	}
}

func TestEnvelopeEncrypter_InvalidKey(t *testing.T) {
	tests := map[string][]byte{
		"not pem":       []byte("not a key"),
		"wrong type":    pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{1, 2, 3}}),
		"garbage bytes": pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: []byte{1, 2, 3}}),
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewEnvelopeEncrypter(data, "key-1")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEncryption)

			var encErr *EncryptionError
			require.True(t, errors.As(err, &encErr))
			assert.Equal(t, "key-1", encErr.KeyID)
			assert.Contains(t, err.Error(), "key-1")
		})
	}
}

func TestEncryptEnvelope_NilKey(t *testing.T) {
	_, err := EncryptEnvelope([]byte("x"), nil, "k")
	assert.ErrorIs(t, err, ErrEncryption)
}

func TestParseEnvelope_Malformed(t *testing.T) {
	_, err := ParseEnvelope([]byte("<EncryptedData"))
	assert.ErrorIs(t, err, ErrDecryption)

	_, err = ParseEnvelope([]byte(`<EncryptedData xmlns="http://www.w3.org/2001/04/xmlenc#"></EncryptedData>`))
	assert.ErrorIs(t, err, ErrDecryption)
}
