package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-digipost/pkg/message"
)

func TestXMLSerializer(t *testing.T) {
	assert.Equal(t, "application/vnd.digipost-v8+xml", XML.MediaType())

	data, err := XML.Marshal(&message.EncryptionKeyXML{KeyID: "k-1", Value: "pem"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, string(data), `<encryption-key xmlns="http://api.digipost.no/schema/v8"><key-id>k-1</key-id>`)

	var key message.EncryptionKeyXML
	require.NoError(t, XML.Unmarshal(data, &key))
	assert.Equal(t, "k-1", key.KeyID)
	assert.Equal(t, "pem", key.Value)
}

func TestXMLSerializer_UnmarshalErrors(t *testing.T) {
	var key message.EncryptionKeyXML
	assert.ErrorIs(t, XML.Unmarshal(nil, &key), ErrDecode)
	assert.ErrorIs(t, XML.Unmarshal([]byte("  "), &key), ErrDecode)
	assert.ErrorIs(t, XML.Unmarshal([]byte("<encryption-key"), &key), ErrDecode)
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want ErrorPayload
		ok   bool
	}{
		{
			name: "default namespace",
			body: `<error xmlns="http://api.digipost.no/schema/v8"><error-code>UNKNOWN_RECIPIENT</error-code><error-message>No such user</error-message><error-type>CLIENT_DATA</error-type></error>`,
			want: ErrorPayload{Code: "UNKNOWN_RECIPIENT", Message: "No such user", Type: "CLIENT_DATA"},
			ok:   true,
		},
		{
			name: "prefixed namespace",
			body: `<?xml version="1.0"?><dp:error xmlns:dp="http://api.digipost.no/schema/v7"><dp:error-code>X</dp:error-code><dp:error-message> padded </dp:error-message></dp:error>`,
			want: ErrorPayload{Code: "X", Message: "padded"},
			ok:   true,
		},
		{name: "empty", body: "", ok: false},
		{name: "html", body: "<html><body>Bad gateway</body></html>", ok: false},
		{name: "not xml", body: "Bad gateway", ok: false},
		{name: "empty error", body: "<error/>", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseError([]byte(tt.body))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
