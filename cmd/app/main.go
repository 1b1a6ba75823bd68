package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"subscription-activation/internal/config"
	"subscription-activation/internal/domain/ports/adapter"
	"subscription-activation/internal/infra/adapters/seal"
	pg "subscription-activation/internal/infra/db/postgres"
	httpapi "subscription-activation/internal/infra/http"
	"subscription-activation/internal/infra/logging"
	"subscription-activation/internal/infra/metrics"
	red "subscription-activation/internal/infra/redis"
	"subscription-activation/internal/infra/sched"
	"subscription-activation/internal/infra/security"
	"subscription-activation/internal/infra/web"
	"subscription-activation/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop upstream, webhook echo)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	recordRepo := pg.NewActivationRecordRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Redis (optional, rate limiting only) ----
	var limiter *red.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
	}

	// ---- Subscription Control ----
	var control adapter.SubscriptionControl
	if cfg.Seal.APIKey != "" {
		control, err = seal.NewClient(cfg.Seal, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("seal client")
		}
	} else {
		// LoadConfig only allows an empty key in dev mode.
		control = seal.NewNoopControl()
		logger.Warn().Msg("seal.api_key missing, using noop subscription control")
	}
	logger.Info().Str("adapter", control.Name()).Msg("subscription control configured")

	// ---- Use cases ----
	issuanceUC := usecase.NewIssuanceUseCase(
		recordRepo, control,
		cfg.Activation.BaseURL, cfg.Activation.CodeLength, cfg.Activation.QRSize,
		logger,
	)
	redemptionUC := usecase.NewRedemptionUseCase(recordRepo, control, txManager, logger)
	listingUC := usecase.NewListingUseCase(recordRepo, logger)

	verifier := security.NewWebhookVerifier(cfg.Activation.WebhookSecret)

	// ---- Servers ----
	publicSrv := httpapi.NewServer(cfg, issuanceUC, redemptionUC, verifier, limiter, logger)
	adminSrv := web.NewServer(listingUC, cfg.Admin, logger)

	errCh := make(chan error, 2)
	go func() { errCh <- publicSrv.Start() }()
	go func() { errCh <- adminSrv.Start() }()

	// ---- Reconciler ----
	if cfg.Reconciler.Enabled {
		rec := sched.NewActivationReconciler(
			recordRepo, control,
			cfg.Reconciler.Interval, cfg.Reconciler.Lookback, cfg.Reconciler.MinAge,
			cfg.Reconciler.Repair,
			logger,
		)
		go rec.Start(ctx)
	}

	// ---- Wait for shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server stopped")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := publicSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("public server shutdown")
	}
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin server shutdown")
	}
}
