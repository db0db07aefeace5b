package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/godeposit/internal/adapter/http"
	"github.com/iho/godeposit/internal/adapter/http/handler"
	"github.com/iho/godeposit/internal/app"
	"github.com/iho/godeposit/internal/infrastructure/config"
	"github.com/iho/godeposit/internal/infrastructure/logger"
	"github.com/iho/godeposit/internal/infrastructure/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseAutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, log); err != nil {
			return err
		}
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}()

	health := handler.NewHealthHandler().Register("postgres", a.Pool.Ping)
	if a.Redis != nil {
		health.Register("redis", func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() })
	}

	var consumerHandler *handler.ConsumerHandler
	if cfg.ConsumerEnabled {
		consumerHandler = handler.NewConsumerHandler(a.Consumer)
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		HealthHandler:   health,
		ConsumerHandler: consumerHandler,
		Gatherer:        a.Registry,
		Requests:        a.Metrics.HTTPRequests,
		Duration:        a.Metrics.HTTPDuration,
		Logger:          log,
	})
	server := newHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(gctx, server, cfg.HTTPShutdownTimeout, log) })

	if cfg.ScanEnabled {
		g.Go(func() error { return a.Scheduler.Start(gctx) })
	}
	if cfg.OutboxEnabled {
		g.Go(func() error { return a.Relay.Start(gctx) })
	}
	if cfg.ConsumerEnabled {
		g.Go(func() error {
			log.Info().Str("driver", cfg.NotifierDriver).Msg("starting notification consumer")
			return a.Broker.Consume(gctx, a.Consumer.Handle)
		})
	}

	err = g.Wait()
	log.Info().Msg("server stopped")
	return err
}

func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           h,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}
}

// serve runs the server until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
