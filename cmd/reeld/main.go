// Command reeld serves reel composition, animation records and round math
// over HTTP.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/MJE43/stake-reel-engine/internal/animation"
	"github.com/MJE43/stake-reel-engine/internal/animstore"
	"github.com/MJE43/stake-reel-engine/internal/api"
	"github.com/MJE43/stake-reel-engine/internal/config"
	"github.com/MJE43/stake-reel-engine/internal/logger"
	"github.com/MJE43/stake-reel-engine/internal/monitoring"
	"github.com/MJE43/stake-reel-engine/internal/secrets"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = 15 * time.Minute
	// Records older than this belong to rounds nobody will resume.
	purgeAge = 24 * time.Hour
)

// purger is implemented by stores that can drop abandoned records in bulk.
type purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "reeld: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := secrets.ResolveAPIToken(cfg.APIToken, secrets.NewKeyringStore(cfg.KeyringService, cfg.SecretsPath))
	if err != nil {
		log.Warn("api token lookup failed, serving without token", zap.Error(err))
		token = ""
	}

	store, closer, err := animstore.Open(ctx, animstore.Options{
		Backend:    cfg.Store,
		SQLitePath: cfg.DBPath,
		BoltPath:   cfg.BoltPath,
		RedisAddr:  cfg.RedisAddr,
		RedisTTL:   cfg.RedisTTL,
	})
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(reg)

	registry := animation.NewRegistry(store, animation.NewIntervalScheduler(cfg.FrameRate),
		animation.WithLogger(log.Named("animation")),
		animation.WithMetrics(metrics),
	)
	defer registry.CancelAll()

	server := api.NewServer(api.Options{
		Registry:         registry,
		Store:            store,
		Metrics:          metrics,
		Gatherer:         reg,
		Logger:           log,
		Layout:           animation.Layout{CellHeight: cfg.CellHeight, ViewportHeight: cfg.ViewportHeight},
		BaseSpin:         cfg.BaseSpin(),
		JackpotRotations: cfg.JackpotRotations,
		APIToken:         token,
	})

	if p, ok := store.(purger); ok {
		go purgeLoop(ctx, p, log)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      35 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", cfg.Addr),
			zap.String("store", cfg.Store),
			zap.String("version", api.EngineVersion),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func purgeLoop(ctx context.Context, p purger, log *zap.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := p.PurgeBefore(ctx, now.Add(-purgeAge))
			if err != nil {
				log.Warn("purge animation records", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("purged animation records", zap.Int64("count", n))
			}
		}
	}
}
