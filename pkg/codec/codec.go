// Package codec maps typed API values to and from their wire format.
package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/sirosfoundation/go-digipost/pkg/message"
)

// ErrDecode is returned when a payload cannot be decoded
var ErrDecode = errors.New("failed to decode payload")

// Serializer converts API values to and from bytes
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	MediaType() string
}

// XMLSerializer encodes values with encoding/xml
type XMLSerializer struct {
	mediaType string
}

// XML is the default serializer for the v8 API
var XML Serializer = NewXMLSerializer(message.MediaType)

// NewXMLSerializer creates an XML serializer for a media type
func NewXMLSerializer(mediaType string) *XMLSerializer {
	return &XMLSerializer{mediaType: mediaType}
}

// Marshal encodes v with an XML declaration
func (s *XMLSerializer) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into v
func (s *XMLSerializer) Unmarshal(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: empty body for %T", ErrDecode, v)
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %T: %v", ErrDecode, v, err)
	}
	return nil
}

// MediaType returns the media type sent in Accept and Content-Type headers
func (s *XMLSerializer) MediaType() string {
	return s.mediaType
}

// ErrorPayload is the structured error returned by the gateway
type ErrorPayload struct {
	Code    string
	Message string
	Type    string
}

// ParseError extracts an error payload from a response body. The lookup is
// namespace agnostic so payloads from proxies and older API versions are
// understood as well. It returns false when the body holds no error element.
func ParseError(data []byte) (ErrorPayload, bool) {
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrorPayload{}, false
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return ErrorPayload{}, false
	}

	root := doc.Root()
	if root == nil || root.Tag != "error" {
		return ErrorPayload{}, false
	}

	payload := ErrorPayload{
		Code:    childText(root, "error-code"),
		Message: childText(root, "error-message"),
		Type:    childText(root, "error-type"),
	}
	if payload == (ErrorPayload{}) {
		return ErrorPayload{}, false
	}
	return payload, true
}

func childText(el *etree.Element, tag string) string {
	// etree keeps the prefix in Space, so Tag is the local name
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			return strings.TrimSpace(child.Text())
		}
	}
	return ""
}
