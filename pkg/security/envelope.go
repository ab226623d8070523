package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"fmt"
)

const contentKeySize = 32

// EnvelopeEncrypter wraps documents for one recipient key
type EnvelopeEncrypter struct {
	publicKey *rsa.PublicKey
	keyID     string
}

// NewEnvelopeEncrypter parses a PEM encoded RSA public key (PKIX, PKCS#1 or
// an X.509 certificate) and binds it to the key id issued by the gateway
func NewEnvelopeEncrypter(pemData []byte, keyID string) (*EnvelopeEncrypter, error) {
	pub, err := ParsePublicKeyPEM(pemData)
	if err != nil {
		return nil, &EncryptionError{KeyID: keyID, Op: "parse public key", Err: err}
	}
	return &EnvelopeEncrypter{publicKey: pub, keyID: keyID}, nil
}

// KeyID returns the key id carried in produced envelopes
func (e *EnvelopeEncrypter) KeyID() string {
	return e.keyID
}

// Encrypt wraps plaintext in an envelope
func (e *EnvelopeEncrypter) Encrypt(plaintext []byte) ([]byte, error) {
	return EncryptEnvelope(plaintext, e.publicKey, e.keyID)
}

// EncryptEnvelope encrypts plaintext with a fresh AES-256-GCM content key,
// wraps the content key with RSA-OAEP-SHA256 for pub and returns the
// serialized EncryptedData element. keyID is carried unmodified.
func EncryptEnvelope(plaintext []byte, pub *rsa.PublicKey, keyID string) ([]byte, error) {
	if pub == nil {
		return nil, &EncryptionError{KeyID: keyID, Op: "wrap key", Err: fmt.Errorf("recipient public key not set")}
	}

	contentKey := make([]byte, contentKeySize)
	if _, err := rand.Read(contentKey); err != nil {
		return nil, &EncryptionError{KeyID: keyID, Op: "generate content key", Err: err}
	}

	wrappedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, contentKey, nil)
	if err != nil {
		return nil, &EncryptionError{KeyID: keyID, Op: "wrap key", Err: err}
	}

	gcm, err := newGCM(contentKey)
	if err != nil {
		return nil, &EncryptionError{KeyID: keyID, Op: "create cipher", Err: err}
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, &EncryptionError{KeyID: keyID, Op: "generate nonce", Err: err}
	}

	// XML Encryption 1.1 GCM layout: IV || ciphertext || tag
	sealed := gcm.Seal(nonce, nonce, plaintext, nil)

	envelope := &EncryptedData{
		ID:       generateID(),
		MimeType: EnvelopeMimeType,
		EncryptionMethod: &EncryptionMethod{
			Algorithm: AlgorithmAES256GCM,
		},
		KeyInfo: &KeyInfo{
			EncryptedKey: &EncryptedKey{
				EncryptionMethod: &EncryptionMethod{
					Algorithm:    AlgorithmRSAOAEP,
					DigestMethod: &DigestMethod{Algorithm: AlgorithmSHA256},
					MGF:          &MGF{Algorithm: AlgorithmMGF1SHA256},
				},
				KeyInfo:    &KeyInfo{KeyName: keyID},
				CipherData: &CipherData{CipherValue: base64.StdEncoding.EncodeToString(wrappedKey)},
			},
		},
		CipherData: &CipherData{CipherValue: base64.StdEncoding.EncodeToString(sealed)},
	}

	out, err := xml.Marshal(envelope)
	if err != nil {
		return nil, &EncryptionError{KeyID: keyID, Op: "serialize envelope", Err: err}
	}
	return append([]byte(xml.Header), out...), nil
}

// ParseEnvelope parses an envelope without decrypting it
func ParseEnvelope(data []byte) (*EncryptedData, error) {
	var envelope EncryptedData
	if err := xml.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", ErrDecryption, err)
	}
	if envelope.EncryptionMethod == nil || envelope.CipherData == nil ||
		envelope.KeyInfo == nil || envelope.KeyInfo.EncryptedKey == nil ||
		envelope.KeyInfo.EncryptedKey.CipherData == nil {
		return nil, fmt.Errorf("%w: incomplete envelope", ErrDecryption)
	}
	return &envelope, nil
}

// KeyName returns the key id the content key was wrapped for
func (d *EncryptedData) KeyName() string {
	if d.KeyInfo == nil || d.KeyInfo.EncryptedKey == nil || d.KeyInfo.EncryptedKey.KeyInfo == nil {
		return ""
	}
	return d.KeyInfo.EncryptedKey.KeyInfo.KeyName
}

// DecryptEnvelope opens an envelope produced by EncryptEnvelope
func DecryptEnvelope(data []byte, priv *rsa.PrivateKey) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: private key is required", ErrDecryption)
	}

	envelope, err := ParseEnvelope(data)
	if err != nil {
		return nil, err
	}
	if alg := envelope.EncryptionMethod.Algorithm; alg != AlgorithmAES256GCM {
		return nil, fmt.Errorf("%w: unsupported content algorithm %s", ErrDecryption, alg)
	}
	encKey := envelope.KeyInfo.EncryptedKey
	if encKey.EncryptionMethod == nil || encKey.EncryptionMethod.Algorithm != AlgorithmRSAOAEP {
		return nil, fmt.Errorf("%w: unsupported key transport algorithm", ErrDecryption)
	}

	wrappedKey, err := base64.StdEncoding.DecodeString(encKey.CipherData.CipherValue)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed wrapped key: %v", ErrDecryption, err)
	}
	contentKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrappedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: unwrap key: %v", ErrDecryption, err)
	}

	sealed, err := base64.StdEncoding.DecodeString(envelope.CipherData.CipherValue)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cipher value: %v", ErrDecryption, err)
	}

	gcm, err := newGCM(contentKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	if len(sealed) < gcm.NonceSize()+gcm.Overhead() {
		return nil, fmt.Errorf("%w: cipher value too short", ErrDecryption)
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return plaintext, nil
}

// ParsePublicKeyPEM parses an RSA public key from PEM. PKIX "PUBLIC KEY",
// PKCS#1 "RSA PUBLIC KEY" and "CERTIFICATE" blocks are accepted.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	var pub any
	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		pub = key
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		pub = key
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		pub = cert.PublicKey
	default:
		return nil, fmt.Errorf("unexpected PEM block type %q", block.Type)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, pub)
	}
	return rsaKey, nil
}

// EncodePublicKeyPEM encodes an RSA public key as a PKIX PEM block
func EncodePublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
