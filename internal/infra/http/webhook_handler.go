package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/infra/event"
	"subscription-activation/internal/infra/logging"
)

const (
	maxWebhookBody = 1 << 20 // 1 MiB
	hmacHeader     = "X-Seal-Hmac-Sha256"
)

type webhookResponse struct {
	OK             bool   `json:"ok"`
	Error          string `json:"error,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	OrderID        string `json:"orderId,omitempty"`
	CustomerEmail  string `json:"customerEmail,omitempty"`
	Code           string `json:"code,omitempty"`
	ActivateURL    string `json:"activateUrl,omitempty"`
	QRDataURL      string `json:"qrDataUrl,omitempty"`
}

// handleSubscriptionCreated is the issuance trigger. Malformed payloads are
// acknowledged with 200 so the upstream sender does not retry a hopeless
// shape; only server-side failures (persistence) surface as 5xx.
func (s *Server) handleSubscriptionCreated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, webhookResponse{OK: false, Error: "unreadable body"})
		return
	}

	if s.verifier.Enabled() {
		if !s.verifier.Verify(body, r.Header.Get(hmacHeader)) {
			if s.cfg.Runtime.Dev {
				log.Warn().Msg("webhook HMAC mismatch, continuing in dev mode")
			} else {
				log.Warn().Msg("webhook HMAC mismatch, rejecting")
				writeJSON(w, http.StatusUnauthorized, webhookResponse{OK: false, Error: "bad signature"})
				return
			}
		}
	}

	ev, err := event.Normalize(body)
	if err != nil {
		log.Warn().Err(err).Msg("webhook payload rejected")
		writeJSON(w, http.StatusOK, webhookResponse{OK: false, Error: "missing subscription id in payload"})
		return
	}

	res, err := s.issuance.Issue(ctx, ev)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPayload) {
			writeJSON(w, http.StatusOK, webhookResponse{OK: false, Error: "missing subscription id in payload"})
			return
		}
		log.Error().Err(err).Msg("issuance failed")
		writeJSON(w, http.StatusInternalServerError, webhookResponse{OK: false, Error: "issuance failed"})
		return
	}

	log.Info().Str("code", res.Code).
		Str("customer_email", logging.Redact(res.CustomerEmail, s.cfg.Runtime.Dev)).
		Msg("webhook issuance acknowledged")

	writeJSON(w, http.StatusOK, webhookResponse{
		OK:             true,
		SubscriptionID: res.SubscriptionID,
		OrderID:        res.OrderID,
		CustomerEmail:  res.CustomerEmail,
		Code:           res.Code,
		ActivateURL:    res.ActivateURL,
		QRDataURL:      res.QRDataURL,
	})
}

// handleEcho reflects the request back; dev-only aid for figuring out what
// shape an upstream sender actually posts.
func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"method":  r.Method,
		"query":   r.URL.Query(),
		"headers": r.Header,
		"body":    string(body),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
