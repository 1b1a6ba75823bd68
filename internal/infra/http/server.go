package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"subscription-activation/internal/config"
	"subscription-activation/internal/infra/logging"
	"subscription-activation/internal/infra/redis"
	"subscription-activation/internal/infra/security"
	"subscription-activation/internal/usecase"
)

// Server exposes the public surface: the subscription-created webhook and
// the customer-facing activation endpoint.
type Server struct {
	cfg        *config.Config
	issuance   usecase.IssuanceUseCase
	redemption usecase.RedemptionUseCase
	verifier   *security.WebhookVerifier
	limiter    *redis.RateLimiter // nil disables rate limiting
	log        *zerolog.Logger
	server     *http.Server
}

func NewServer(
	cfg *config.Config,
	issuance usecase.IssuanceUseCase,
	redemption usecase.RedemptionUseCase,
	verifier *security.WebhookVerifier,
	limiter *redis.RateLimiter,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		cfg:        cfg,
		issuance:   issuance,
		redemption: redemption,
		verifier:   verifier,
		limiter:    limiter,
		log:        logger,
	}
}

// Routes builds the public router. Split out from Start so tests can drive
// the handlers through httptest.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(s.traceMiddleware)

	r.Post("/webhook/subscription-created", s.handleSubscriptionCreated)
	r.Get("/activate", s.handleActivate)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	if s.cfg.Runtime.Dev {
		r.HandleFunc("/echo", s.handleEcho)
	}
	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.Routes(),
	}
	s.log.Info().Int("port", s.cfg.Server.Port).Msg("public HTTP server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// traceMiddleware mints a trace id per request and carries it through the
// logging context.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := uuid.NewString()
		ctx := logging.WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Trace-Id", traceID)
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
