package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/autoparts-storefront/internal/backend"
	"github.com/fjod/autoparts-storefront/internal/config"
	"github.com/fjod/autoparts-storefront/internal/events"
	"github.com/fjod/autoparts-storefront/internal/gateway"
	httpapi "github.com/fjod/autoparts-storefront/internal/http"
	"github.com/fjod/autoparts-storefront/internal/logger"
	"github.com/fjod/autoparts-storefront/internal/metrics"
	"github.com/fjod/autoparts-storefront/internal/shopper"
	"github.com/fjod/autoparts-storefront/internal/storage"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(rootOpts.EnvFiles...)
			if port != "" {
				cfg.HTTPPort = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides HTTP_PORT)")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	log, closeLog, err := logger.New(logger.Options{
		Service: "storefront",
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		File:    cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLog()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	store, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer store.Close()
	log.Info("cart store ready", "driver", cfg.Store.Driver)

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewAsyncPublisher(
			events.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...),
			events.AsyncOptions{Logger: log},
		)
		log.Info("publishing checkout events", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}
	defer publisher.Close()

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set, every bearer token will be rejected")
	}

	m := metrics.New()
	registry := shopper.NewRegistry(shopper.Config{
		KV:         store,
		Backend:    backend.New(cfg.BackendURL, backend.Options{Logger: log}),
		Scripts:    gateway.NewScriptProbe(cfg.GatewayScriptURL, nil),
		Publisher:  publisher,
		Currency:   cfg.PaymentCurrency,
		IdleTTL:    cfg.SessionIdleTTL,
		GatewayTTL: cfg.GatewayAbandonTTL,
		Logger:     log,
		Metrics:    m,
	})
	defer registry.Close()

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: httpapi.NewRouter(httpapi.RouterConfig{
			Registry:       registry,
			Metrics:        m,
			Logger:         log,
			JWTSecret:      cfg.JWTSecret,
			RequestTimeout: cfg.RequestTimeout,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("storefront listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down storefront")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		return err
	}
	log.Info("storefront stopped")
	return nil
}
