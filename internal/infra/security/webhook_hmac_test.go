//go:build !integration

package security_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"subscription-activation/internal/infra/security"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookVerifier(t *testing.T) {
	body := []byte(`{"id": "SUB123"}`)

	t.Run("should accept a valid signature", func(t *testing.T) {
		v := security.NewWebhookVerifier("topsecret")
		if !v.Verify(body, sign("topsecret", body)) {
			t.Error("expected a valid signature to verify")
		}
	})

	t.Run("should accept an uppercase hex signature", func(t *testing.T) {
		v := security.NewWebhookVerifier("topsecret")
		if !v.Verify(body, strings.ToUpper(sign("topsecret", body))) {
			t.Error("expected hex case not to matter")
		}
	})

	t.Run("should reject a signature from the wrong secret", func(t *testing.T) {
		v := security.NewWebhookVerifier("topsecret")
		if v.Verify(body, sign("othersecret", body)) {
			t.Error("expected a mismatched signature to fail")
		}
	})

	t.Run("should reject a tampered body", func(t *testing.T) {
		v := security.NewWebhookVerifier("topsecret")
		if v.Verify([]byte(`{"id": "SUB999"}`), sign("topsecret", body)) {
			t.Error("expected a tampered body to fail")
		}
	})

	t.Run("should reject an empty signature", func(t *testing.T) {
		v := security.NewWebhookVerifier("topsecret")
		if v.Verify(body, "") {
			t.Error("expected an empty signature to fail")
		}
	})

	t.Run("empty secret disables verification", func(t *testing.T) {
		v := security.NewWebhookVerifier("")
		if v.Enabled() {
			t.Error("expected the verifier to be disabled")
		}
	})
}
