package tts

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	signingClientID = "MSTranslatorAndroidApp"

	// signingKeyBase64 is the Translator mobile client's embedded signing key.
	// It is a fixed protocol parameter, not an operator secret: the issuing
	// endpoint only accepts signatures produced with exactly these bytes, so
	// it is not configurable.
	signingKeyBase64 = "oik6PdDdMnOXemTbwvMn9de/h9lFnfBaCWbGMMZqqoSaQaqUOqjVGm5NqsmjcBI1x+sS9ugjB55HEJWRiFXYFw=="
)

// Signer computes the X-MT-Signature header value for credential-issuing
// requests. The zero value is not usable; construct with NewSigner.
type Signer struct {
	key        []byte
	now        func() time.Time
	newTraceID func() string
}

// NewSigner decodes the embedded signing key. A decode failure means the
// constant itself is corrupt; the process cannot authenticate upstream and
// should not start.
func NewSigner() (*Signer, error) {
	key, err := base64.StdEncoding.DecodeString(signingKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode embedded signing key: %w", err)
	}
	return &Signer{
		key:        key,
		now:        time.Now,
		newTraceID: NewTraceID,
	}, nil
}

// Sign produces "<clientID>::<base64 HMAC-SHA256>::<date>::<traceID>" for
// rawURL. The string-to-sign is the client id, the percent-encoded URL with
// its scheme removed, the formatted date, and a fresh trace id, all lowercased.
func (s *Signer) Sign(rawURL string) string {
	trimmed := rawURL
	if i := strings.Index(rawURL, "://"); i >= 0 {
		trimmed = rawURL[i+3:]
	}

	date := formatSigningDate(s.now())
	traceID := s.newTraceID()

	toSign := strings.ToLower(signingClientID + url.QueryEscape(trimmed) + date + traceID)

	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(toSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return signingClientID + "::" + signature + "::" + date + "::" + traceID
}

// formatSigningDate renders t as the mobile client does: the RFC-1123 UTC
// date with the space before "GMT" dropped, all lowercase, e.g.
// "tue, 02 jan 2024 03:04:05gmt".
func formatSigningDate(t time.Time) string {
	return strings.ToLower(t.UTC().Format("Mon, 02 Jan 2006 15:04:05") + "GMT")
}

// NewTraceID returns a 32-character lowercase hex identifier (a UUID with
// the dashes removed).
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewUserID returns the 16-character lowercase hex identifier sent as
// X-UserId on issuing requests.
func NewUserID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return hex.EncodeToString(b)
}
