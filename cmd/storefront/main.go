// Storefront API - orchestrates the commerce backend, the payment processor
// and the headless CMS behind one JSON API.
// Designed for Cloud Run deployment; session carts and the webhook ledger
// move to Redis when REDIS_URL is set.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v80"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"storefront/internal/adapter"
	"storefront/internal/agility"
	"storefront/internal/cartstore"
	"storefront/internal/checkout"
	"storefront/internal/commercetools"
	"storefront/internal/config"
	"storefront/internal/content"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/payments"
	"storefront/internal/transport"
)

const upstreamTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize structured logger
	logger := initLogger()

	// Load configuration
	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("project_key", cfg.Secrets.Commerce.ProjectKey),
		slog.String("site_url", cfg.SiteURL),
		slog.Bool("stripe", cfg.Secrets.Stripe.Enabled()),
		slog.Bool("cms", cfg.Secrets.CMS.Enabled()),
		slog.Bool("redis", cfg.RedisURL != ""),
	)

	upstream, err := transport.ForProfile(cfg.UpstreamTLSProfile, upstreamTimeout)
	if err != nil {
		return err
	}

	commerce, err := commercetools.NewClient(commercetools.Config{
		ProjectKey:   cfg.Secrets.Commerce.ProjectKey,
		ClientID:     cfg.Secrets.Commerce.ClientID,
		ClientSecret: cfg.Secrets.Commerce.ClientSecret,
		AuthURL:      cfg.Secrets.Commerce.AuthURL,
		APIURL:       cfg.Secrets.Commerce.APIURL,
		Scopes:       cfg.Secrets.Commerce.Scopes,
		Transport:    upstream,
	})
	if err != nil {
		return fmt.Errorf("creating commerce client: %w", err)
	}

	// Hosted checkout sessions are optional; the presence report is served
	// when a session is requested without full configuration.
	sessionCfg := commercetools.SessionConfig{
		ProjectKey:     cfg.Secrets.Commerce.ProjectKey,
		Region:         cfg.Secrets.Checkout.Region,
		ApplicationKey: cfg.Secrets.Checkout.ApplicationKey,
		ClientID:       cfg.Secrets.Checkout.ClientID,
		ClientSecret:   cfg.Secrets.Checkout.ClientSecret,
		AuthURL:        cfg.Secrets.Commerce.AuthURL,
		Transport:      upstream,
	}
	var sessions adapter.HostedSessions
	if sessionCfg.Complete() {
		sc, err := commercetools.NewSessionClient(sessionCfg)
		if err != nil {
			return fmt.Errorf("creating checkout session client: %w", err)
		}
		sessions = sc
	} else {
		logger.Warn("hosted checkout sessions disabled", slog.Any("presence", sessionCfg.Presence()))
	}

	var processor adapter.Processor
	if cfg.Secrets.Stripe.Enabled() {
		backends := stripe.NewBackends(&http.Client{
			Timeout:   80 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		})
		sp, err := payments.NewStripeProcessor(cfg.Secrets.Stripe.SecretKey, cfg.Secrets.Stripe.WebhookSecret, backends)
		if err != nil {
			return fmt.Errorf("creating payment processor: %w", err)
		}
		processor = sp
	} else {
		logger.Warn("payment processor disabled, STRIPE_SECRET_KEY not set")
	}

	// Session carts and the webhook ledger share one Redis client.
	var (
		persister cartstore.Persister = cartstore.NewMemoryPersister()
		ledger    payments.Ledger     = payments.NewMemoryLedger()
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		persister = cartstore.NewRedisPersister(rdb)
		ledger = payments.NewRedisLedger(rdb)
	}

	co := checkout.NewService(commerce, processor, sessions, ledger, checkout.Config{
		SiteURL:          cfg.SiteURL,
		AllowedCountries: cfg.AllowedCountries,
		SessionPresence:  sessionCfg.Presence(),
	}, logger)

	var ct *content.Service
	if cfg.Secrets.CMS.Enabled() {
		cms, err := agility.NewClient(agility.Config{
			GUID:       cfg.Secrets.CMS.GUID,
			FetchKey:   cfg.Secrets.CMS.FetchKey,
			PreviewKey: cfg.Secrets.CMS.PreviewKey,
			Preview:    cfg.Secrets.CMS.Preview,
			Transport:  upstream,
		})
		if err != nil {
			return fmt.Errorf("creating cms client: %w", err)
		}
		ct = content.NewService(cms, commerce, content.Config{
			DefaultLocale: cfg.Secrets.CMS.DefaultLocale,
			Sitemap:       cfg.Secrets.CMS.Sitemap,
		}, logger)
	} else {
		logger.Warn("content routes disabled, CMS not configured")
	}

	h := handler.New(co, commerce, cartstore.New(persister), ct, handler.Options{
		SecureCookies: cfg.IsProduction(),
	}, logger)

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → request id → logging → handler
	// Recovery must be outermost to catch panics from logging middleware
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
	)(mux)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(httpHandler, "storefront"),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
