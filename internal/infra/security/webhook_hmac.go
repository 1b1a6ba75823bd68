package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// WebhookVerifier checks the HMAC-SHA256 signature the upstream sender puts
// on webhook deliveries. An empty secret disables verification.
type WebhookVerifier struct {
	secret []byte
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	if secret == "" {
		return &WebhookVerifier{}
	}
	return &WebhookVerifier{secret: []byte(secret)}
}

func (v *WebhookVerifier) Enabled() bool { return len(v.secret) > 0 }

// Verify compares the hex-encoded signature against the raw request body in
// constant time.
func (v *WebhookVerifier) Verify(body []byte, provided string) bool {
	if !v.Enabled() || provided == "" {
		return false
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(provided))))
}
