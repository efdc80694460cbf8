// Package signature authenticates processor webhooks with HMAC-SHA256.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HeaderName carries the hex digest of the raw request body.
const HeaderName = "x-processor-signature"

// Sign returns the lowercase hex HMAC-SHA256 of body keyed by secret.
func Sign(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether header is the signature of body. It never panics and
// returns false for empty, non-hex or wrong-length input.
func Verify(body []byte, header string, secret []byte) bool {
	if header == "" || len(secret) == 0 {
		return false
	}

	got, err := hex.DecodeString(strings.TrimSpace(header))
	if err != nil || len(got) != sha256.Size {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Verifier holds the shared webhook secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(body []byte, header string) bool {
	return Verify(body, header, v.secret)
}
