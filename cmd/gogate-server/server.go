package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/internal/pgstore"
	"github.com/MrEthical07/goGate/metrics/export/prometheus"
)

// accountStore serves credentials and grants; pgstore.Store in production.
type accountStore interface {
	goGate.CredentialStore
	goGate.PermissionStore
}

func buildEngine(cfg goGate.Config, rdb redis.UniversalClient, accounts accountStore, auditOut io.Writer, logger *slog.Logger) (*goGate.Engine, error) {
	b := goGate.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(accounts).
		WithPermissionStore(accounts).
		WithLogger(logger)
	if cfg.Audit.Enabled {
		b = b.WithAuditSink(goGate.NewJSONWriterSink(auditOut))
	}
	return registerOperations(b).Build()
}

func runServer(ctx context.Context, cfg serverConfig, logger *slog.Logger) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()

	accounts, err := pgstore.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = accounts.Close() }()

	engine, err := buildEngine(cfg.Engine, rdb, accounts, os.Stdout, logger)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()
	logger.Info("engine ready", slog.Any("security", engine.SecurityReport()))

	health := func(ctx context.Context) error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		if err := accounts.Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		return nil
	}

	servers := []*http.Server{{
		Addr:              cfg.Addr,
		Handler:           newRouter(engine, logger, health),
		ReadHeaderTimeout: 5 * time.Second,
	}}
	if cfg.Engine.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", prometheus.NewExporter(engine).Handler())
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	serverErr := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info("listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- fmt.Errorf("server %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-serverErr:
		logger.Error("server failed", slog.Any("error", runErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErrs []error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErrs = append(shutdownErrs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
		}
	}
	if runErr != nil {
		shutdownErrs = append(shutdownErrs, runErr)
	}
	return errors.Join(shutdownErrs...)
}
