package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"subscription-activation/internal/config"
	"subscription-activation/internal/usecase"
)

// Server is the operator-facing API: listing and inspecting activation
// records. It runs on its own port behind a static Bearer key.
type Server struct {
	listing usecase.ListingUseCase
	apiKey  string
	port    int
	log     *zerolog.Logger
	server  *http.Server
}

func NewServer(listing usecase.ListingUseCase, cfg config.AdminConfig, logger *zerolog.Logger) *Server {
	return &Server{
		listing: listing,
		apiKey:  cfg.APIKey,
		port:    cfg.Port,
		log:     logger,
	}
}

func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/activations", s.handleList)
		r.Get("/activations/{code}", s.handleDetail)
	})
	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Routes(),
	}
	s.log.Info().Int("port", s.port).Msg("admin HTTP server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// authMiddleware provides simple Bearer token authentication for the admin API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "bearer") {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
