package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Header names used by the signing protocol
const (
	HeaderUserID        = "X-Digipost-UserId"
	HeaderDate          = "Date"
	HeaderContentSHA256 = "X-Content-SHA256"
	HeaderSignature     = "X-Digipost-Signature"
)

// Canonical is a value with a canonical string form that can be signed
type Canonical interface {
	Canonicalize() []byte
}

// CanonicalRequest holds the request fields covered by a request signature.
// Digest is empty for bodiless requests.
type CanonicalRequest struct {
	Method string
	Path   string
	Query  string
	Date   string
	Digest string
	UserID string
}

// Canonicalize builds the newline-joined string that is signed for a request:
//
//	METHOD
//	/path
//	date: <date>
//	x-content-sha256: <digest>
//	x-digipost-userid: <user id>
//	query
//
// The digest line is left out for bodiless requests.
func (r CanonicalRequest) Canonicalize() []byte {
	var b strings.Builder
	b.WriteString(strings.ToUpper(r.Method))
	b.WriteByte('\n')
	b.WriteString(strings.ToLower(r.Path))
	b.WriteByte('\n')
	b.WriteString("date: ")
	b.WriteString(r.Date)
	b.WriteByte('\n')
	if r.Digest != "" {
		b.WriteString("x-content-sha256: ")
		b.WriteString(r.Digest)
		b.WriteByte('\n')
	}
	b.WriteString("x-digipost-userid: ")
	b.WriteString(r.UserID)
	b.WriteByte('\n')
	b.WriteString(strings.ToLower(r.Query))
	b.WriteByte('\n')
	return []byte(b.String())
}

// CanonicalResponse holds the response fields covered by a response signature.
// Path is the path of the request the response answers.
type CanonicalResponse struct {
	Status int
	Path   string
	Date   string
	Digest string
}

// Canonicalize builds the newline-joined string that is signed for a response:
//
//	status
//	/path
//	date: <date>
//	x-content-sha256: <digest>
//
// The digest line is left out for responses without a body.
func (r CanonicalResponse) Canonicalize() []byte {
	var b strings.Builder
	b.WriteString(strconv.Itoa(r.Status))
	b.WriteByte('\n')
	b.WriteString(strings.ToLower(r.Path))
	b.WriteByte('\n')
	b.WriteString("date: ")
	b.WriteString(r.Date)
	b.WriteByte('\n')
	if r.Digest != "" {
		b.WriteString("x-content-sha256: ")
		b.WriteString(r.Digest)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// FormatDate formats t as an HTTP-date in GMT
func FormatDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// ParseDate parses an HTTP-date header value
func ParseDate(value string) (time.Time, error) {
	return http.ParseTime(value)
}
