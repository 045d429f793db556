// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"hosted-checkout/internal/config"
	"hosted-checkout/internal/domain/ports/adapter"
	"hosted-checkout/internal/domain/ports/repository"
	"hosted-checkout/internal/infra/adapters/email"
	"hosted-checkout/internal/infra/adapters/invoice"
	"hosted-checkout/internal/infra/adapters/payment"
	"hosted-checkout/internal/infra/adapters/webhook"
	"hosted-checkout/internal/infra/api"
	"hosted-checkout/internal/infra/db/filestore"
	pg "hosted-checkout/internal/infra/db/postgres"
	"hosted-checkout/internal/infra/idgen"
	"hosted-checkout/internal/infra/logging"
	"hosted-checkout/internal/infra/metrics"
	red "hosted-checkout/internal/infra/redis"
	"hosted-checkout/internal/infra/sched"
	"hosted-checkout/internal/infra/security"
	"hosted-checkout/internal/infra/worker"
	"hosted-checkout/internal/usecase"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode (console logs, config file optional)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Str("storage", cfg.Storage.Backend).Bool("dev", cfg.Runtime.Dev).Msg("starting hosted checkout")

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("exited with error")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	// ---- Redis (optional unless it is the store) ----
	var redisClient *red.Client
	if cfg.Redis.URL != "" {
		c, err := red.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer c.Close()
		redisClient = c
	}

	// ---- Session store ----
	sessions, closeStore, err := openSessionStore(ctx, cfg, redisClient, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// ---- Background executor ----
	pool := worker.NewPool(cfg.Workers.Count, cfg.Workers.Queue, logger)
	pool.Start(ctx)
	defer func() {
		// runs after the HTTP server has drained, so late webhooks are queued
		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Workers.DrainTimeout)
		defer cancel()
		if err := pool.Shutdown(drainCtx); err != nil {
			logger.Warn().Err(err).Msg("worker pool did not drain in time")
		}
	}()

	// ---- Adapters ----
	signer, err := security.NewSigner(cfg.Webhook.Secret)
	if err != nil {
		return fmt.Errorf("webhook signer: %w", err)
	}
	var mailer adapter.Mailer = email.NewLogMailer(logger)
	if cfg.Email.ResendAPIKey != "" {
		m, err := email.NewResendMailer(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.Endpoint, logger)
		if err != nil {
			return fmt.Errorf("resend mailer: %w", err)
		}
		mailer = m
	} else {
		logger.Warn().Msg("email.resend_api_key not set; invoice emails are simulated")
	}

	checkoutUC := usecase.NewCheckoutUseCase(usecase.CheckoutDeps{
		Sessions: sessions,
		IDs:      idgen.New(),
		Gateway:  payment.NewSimulatedGateway(logger),
		Notifier: webhook.NewHTTPNotifier(signer, cfg.Webhook.Timeout, logger),
		Renderer: invoice.NewPDFRenderer(cfg.Invoice),
		Mailer:   email.NewInvoiceSender(mailer),
		Tasks:    pool,
	}, usecase.CheckoutOptions{
		BaseURL:       cfg.Server.BaseURL,
		SessionTTL:    cfg.Checkout.SessionTTL,
		Retention:     cfg.Checkout.Retention,
		RejectExpired: *cfg.Checkout.RejectExpiredMutations,
	}, logger)

	// ---- Cleanup sweep ----
	var locker red.Locker
	if redisClient != nil {
		locker = red.NewLocker(redisClient)
	}
	cleanup := sched.NewCleanupWorker(cfg.Checkout.CleanupInterval, checkoutUC, locker, logger)
	go func() {
		if err := cleanup.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("cleanup worker stopped")
		}
	}()

	// ---- HTTP ----
	auth := api.NewMerchantAuth(cfg.Merchant.APISecret)
	if auth == nil {
		logger.Warn().Msg("merchant.api_secret not set; session creation is unauthenticated")
	}
	var rate api.RateLimit
	if cfg.Checkout.PayRateLimit > 0 && redisClient != nil {
		rate = api.RateLimit{
			Limiter: red.NewRateLimiter(redisClient),
			Limit:   cfg.Checkout.PayRateLimit,
			Window:  cfg.Checkout.PayRateWindow,
		}
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(checkoutUC, auth, rate, cfg.Server.RequestTimeout, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Str("base_url", cfg.Server.BaseURL).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	return nil
}

// openSessionStore picks the storage backend named in config. The returned
// func releases whatever the backend holds open.
func openSessionStore(ctx context.Context, cfg *config.Config, redisClient *red.Client, logger *zerolog.Logger) (repository.CheckoutSessionRepository, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return filestore.NewMemory(logger), func() {}, nil

	case config.BackendFile:
		s, err := filestore.Open(cfg.Storage.FilePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("file store: %w", err)
		}
		return s, func() {}, nil

	case config.BackendPostgres:
		pool, err := pg.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		go pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)
		var repo repository.CheckoutSessionRepository = pg.NewCheckoutSessionRepo(pool, logger)
		if redisClient != nil {
			repo = pg.NewSessionRepoCacheDecorator(repo, redisClient, cfg.Redis.TTL, cfg.Checkout.Retention, logger)
		}
		return repo, pool.Close, nil

	case config.BackendRedis:
		return red.NewSessionStore(redisClient, cfg.Checkout.Retention, logger), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
}
