package security

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/xml"
)

// Algorithm URIs for envelope encryption
const (
	// Content encryption
	AlgorithmAES256GCM = "http://www.w3.org/2009/xmlenc11#aes256-gcm"

	// Key transport
	AlgorithmRSAOAEP = "http://www.w3.org/2009/xmlenc11#rsa-oaep"

	// Digest and mask generation for RSA-OAEP
	AlgorithmSHA256     = "http://www.w3.org/2001/04/xmlenc#sha256"
	AlgorithmMGF1SHA256 = "http://www.w3.org/2009/xmlenc11#mgf1sha256"

	// Request and response signatures
	AlgorithmRSASHA256 = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
)

// XML namespaces used in envelopes
const (
	NSXMLDSig  = "http://www.w3.org/2000/09/xmldsig#"
	NSXMLEnc   = "http://www.w3.org/2001/04/xmlenc#"
	NSXMLEnc11 = "http://www.w3.org/2009/xmlenc11#"
)

// EnvelopeMimeType is the MIME type recorded for wrapped documents
const EnvelopeMimeType = "application/octet-stream"

// EncryptedData is the root element of a document envelope
type EncryptedData struct {
	XMLName          xml.Name          `xml:"http://www.w3.org/2001/04/xmlenc# EncryptedData"`
	ID               string            `xml:"Id,attr,omitempty"`
	MimeType         string            `xml:"MimeType,attr,omitempty"`
	EncryptionMethod *EncryptionMethod `xml:"http://www.w3.org/2001/04/xmlenc# EncryptionMethod"`
	KeyInfo          *KeyInfo          `xml:"http://www.w3.org/2000/09/xmldsig# KeyInfo"`
	CipherData       *CipherData       `xml:"http://www.w3.org/2001/04/xmlenc# CipherData"`
}

// EncryptedKey carries the wrapped content key
type EncryptedKey struct {
	XMLName          xml.Name          `xml:"http://www.w3.org/2001/04/xmlenc# EncryptedKey"`
	ID               string            `xml:"Id,attr,omitempty"`
	EncryptionMethod *EncryptionMethod `xml:"http://www.w3.org/2001/04/xmlenc# EncryptionMethod"`
	KeyInfo          *KeyInfo          `xml:"http://www.w3.org/2000/09/xmldsig# KeyInfo"`
	CipherData       *CipherData       `xml:"http://www.w3.org/2001/04/xmlenc# CipherData"`
}

// EncryptionMethod specifies the encryption algorithm
type EncryptionMethod struct {
	Algorithm    string        `xml:"Algorithm,attr"`
	DigestMethod *DigestMethod `xml:"http://www.w3.org/2000/09/xmldsig# DigestMethod,omitempty"`
	MGF          *MGF          `xml:"http://www.w3.org/2009/xmlenc11# MGF,omitempty"`
}

// DigestMethod specifies the digest algorithm
type DigestMethod struct {
	Algorithm string `xml:"Algorithm,attr"`
}

// MGF specifies the RSA-OAEP mask generation function
type MGF struct {
	Algorithm string `xml:"Algorithm,attr"`
}

// KeyInfo identifies the key used for an encryption step.
// KeyName holds the key id issued by the gateway.
type KeyInfo struct {
	KeyName      string        `xml:"http://www.w3.org/2000/09/xmldsig# KeyName,omitempty"`
	EncryptedKey *EncryptedKey `xml:"http://www.w3.org/2001/04/xmlenc# EncryptedKey,omitempty"`
}

// CipherData contains base64 encoded cipher text
type CipherData struct {
	CipherValue string `xml:"http://www.w3.org/2001/04/xmlenc# CipherValue"`
}

// generateID generates a random ID for XML elements using hex encoding
func generateID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return "ed-" + hex.EncodeToString(b)
}
