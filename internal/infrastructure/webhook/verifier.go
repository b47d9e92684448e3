// Package webhook verifies identity provider webhook deliveries signed in
// the Svix format.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fintrack/backend/internal/domain/identity"
)

// Svix transport headers
const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"
)

const (
	secretPrefix     = "whsec_"
	signatureVersion = "v1"
	defaultTolerance = 5 * time.Minute
)

// Headers are the three transport-level fields a signature covers
type Headers struct {
	ID        string
	Timestamp string
	Signature string
}

// Verifier checks HMAC-SHA256 webhook signatures
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier decodes a whsec_ prefixed base64 secret. A secret without the
// prefix is accepted as-is.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("webhook signing secret is empty")
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return nil, fmt.Errorf("webhook signing secret is not valid base64: %w", err)
	}
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	return &Verifier{key: key, tolerance: tolerance, now: time.Now}, nil
}

// Verify authenticates body against the delivery headers. Any one matching
// v1 signature in the space separated header is accepted.
func (v *Verifier) Verify(h Headers, body []byte) error {
	if h.ID == "" || h.Timestamp == "" || h.Signature == "" {
		return identity.ErrSignatureInvalid.WithCause(fmt.Errorf("missing signature headers"))
	}

	ts, err := strconv.ParseInt(h.Timestamp, 10, 64)
	if err != nil {
		return identity.ErrSignatureInvalid.WithCause(fmt.Errorf("invalid timestamp %q", h.Timestamp))
	}
	skew := v.now().Sub(time.Unix(ts, 0))
	if skew > v.tolerance || skew < -v.tolerance {
		return identity.ErrSignatureExpired
	}

	expected := v.sign(h.ID, h.Timestamp, body)
	for _, candidate := range strings.Fields(h.Signature) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != signatureVersion {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}
	return identity.ErrSignatureInvalid
}

// Sign produces a header value for body. Used by tests and local tooling.
func (v *Verifier) Sign(id string, timestamp time.Time, body []byte) Headers {
	ts := strconv.FormatInt(timestamp.Unix(), 10)
	return Headers{
		ID:        id,
		Timestamp: ts,
		Signature: signatureVersion + "," + base64.StdEncoding.EncodeToString(v.sign(id, ts, body)),
	}
}

func (v *Verifier) sign(id, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id))
	mac.Write([]byte{'.'})
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return mac.Sum(nil)
}
