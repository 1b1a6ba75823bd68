package http

import (
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"strings"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/infra/logging"
	"subscription-activation/internal/infra/redis"
)

// handleActivate is the redemption endpoint. All three terminal rejections
// (unknown code, wrong subscription, already used) render the same generic
// page so callers cannot probe which codes exist; the specific reason is
// only logged for operators.
func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)

	if !s.allowRedemption(r) {
		http.Error(w, "Too many attempts, try again later", http.StatusTooManyRequests)
		return
	}

	code := strings.TrimSpace(r.URL.Query().Get("code"))
	subID := strings.TrimSpace(r.URL.Query().Get("subId"))
	if code == "" || subID == "" {
		renderPage(w, http.StatusBadRequest, missingParamsPage)
		return
	}

	rec, err := s.redemption.Redeem(ctx, code, subID)
	switch {
	case err == nil:
		renderPage(w, http.StatusOK, fmt.Sprintf(successPage, html.EscapeString(rec.SubscriptionID)))
	case errors.Is(err, domain.ErrCodeNotFound),
		errors.Is(err, domain.ErrCodeMismatch),
		errors.Is(err, domain.ErrCodeAlreadyUsed):
		renderPage(w, http.StatusBadRequest, invalidCodePage)
	case errors.Is(err, domain.ErrInvalidArgument):
		renderPage(w, http.StatusBadRequest, missingParamsPage)
	case errors.Is(err, domain.ErrMarkUsedFailed):
		// The subscription was resumed; only the bookkeeping failed. The
		// customer gets their success page, the reconciler closes the gap.
		log.Error().Err(err).Msg("redemption succeeded with unmarked record")
		renderPage(w, http.StatusOK, fmt.Sprintf(successPage, html.EscapeString(rec.SubscriptionID)))
	default:
		log.Error().Err(err).Msg("redemption failed")
		renderPage(w, http.StatusBadGateway, resumeFailedPage)
	}
}

// allowRedemption applies the per-address fixed window. Redis being down
// fails open: rate limiting is protection, not a dependency.
func (s *Server) allowRedemption(r *http.Request) bool {
	if s.limiter == nil || !s.cfg.RateLimit.Enabled {
		return true
	}
	ok, err := s.limiter.Allow(r.Context(), redis.RedemptionKey(clientAddr(r)),
		s.cfg.RateLimit.Limit, s.cfg.RateLimit.Window)
	if err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Msg("rate limiter unavailable, failing open")
		return true
	}
	return ok
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func renderPage(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

const pageStyle = `<style>
body{font-family:system-ui,-apple-system,Segoe UI,Roboto,sans-serif;background:#f7f7f8;margin:0}
.card{max-width:560px;margin:12vh auto;background:#fff;padding:28px;border-radius:16px;box-shadow:0 6px 28px rgba(0,0,0,.07);text-align:center}
h1{font-size:22px;margin:0 0 8px}p{margin:8px 0;color:#333;line-height:1.5}.muted{color:#666;font-size:14px}
code{background:#f2f2f3;padding:2px 6px;border-radius:6px}
</style>`

const successPage = `<!doctype html>
<html lang="en"><head><meta charset="utf-8"/><meta name="viewport" content="width=device-width, initial-scale=1"/>
<title>Subscription Activated</title>` + pageStyle + `</head>
<body><div class="card">
<h1>Your subscription is activated</h1>
<p>We have resumed your subscription.</p>
<p class="muted">Check your email for your customer portal link.</p>
<p class="muted">You can close this tab now.</p>
<p>Ref: <code>%s</code></p>
</div></body></html>`

const invalidCodePage = `<!doctype html>
<html lang="en"><head><meta charset="utf-8"/><meta name="viewport" content="width=device-width, initial-scale=1"/>
<title>Invalid Code</title>` + pageStyle + `</head>
<body><div class="card">
<h1>Invalid or unknown code</h1>
<p>This activation link is not valid. Please check the link in your email or contact support.</p>
</div></body></html>`

const missingParamsPage = `<!doctype html>
<html lang="en"><head><meta charset="utf-8"/><meta name="viewport" content="width=device-width, initial-scale=1"/>
<title>Missing Parameters</title>` + pageStyle + `</head>
<body><div class="card">
<h1>Missing code or subId</h1>
<p>This activation link is incomplete. Please use the full link from your email.</p>
</div></body></html>`

const resumeFailedPage = `<!doctype html>
<html lang="en"><head><meta charset="utf-8"/><meta name="viewport" content="width=device-width, initial-scale=1"/>
<title>Activation Failed</title>` + pageStyle + `</head>
<body><div class="card">
<h1>We could not reactivate your subscription</h1>
<p>Something went wrong on our side. Your code is still valid, please try the link again in a few minutes.</p>
</div></body></html>`
