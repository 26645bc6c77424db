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

	"github.com/thereceipt/receipt-renderer/internal/api"
	"github.com/thereceipt/receipt-renderer/internal/config"
	"github.com/thereceipt/receipt-renderer/internal/logo"
	"github.com/thereceipt/receipt-renderer/internal/store"
)

// Version is set during build via ldflags
var Version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("app", "receipt-renderer"))

	cfg, err := config.Load()
	must(log, err, "load configuration")

	log = newLogger(cfg).With(slog.String("app", "receipt-renderer"))
	slog.SetDefault(log)

	log.Info("configuration_loaded",
		slog.String("version", Version),
		slog.String("port", cfg.ServerPort),
		slog.String("store", cfg.StoreBackend),
	)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	logoStore, closeStore, err := openStore(startupCtx, cfg, log)
	must(log, err, "open logo store")
	defer closeStore()

	raster, err := logo.NewRasterizer(cfg.LogoOptions())
	must(log, err, "configure rasterizer")

	server := api.NewServer(api.Options{
		Logos:               logo.NewService(raster, logoStore, log),
		Logger:              log,
		UploadRatePerMinute: cfg.UploadRatePerMinute,
		AllowedOrigins:      cfg.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%s", cfg.ServerPort),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("api server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server error", slog.Any("error", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		return
	}

	log.Info("server stopped cleanly")
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// openStore connects the configured logo backend. The returned func
// releases its connections.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (logo.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		client, err := store.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewRedisStore(client)
		tenants, err := s.Tenants(ctx)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		log.Info("redis logo store opened", slog.Int("tenants", len(tenants)))
		return s, func() {
			log.Info("closing redis client")
			if err := client.Close(); err != nil {
				log.Error("redis close error", slog.Any("error", err))
			}
		}, nil

	case config.BackendPostgres:
		pool, err := store.NewPostgresPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, func() {
			log.Info("closing postgres pool")
			pool.Close()
		}, nil
	}

	s, err := store.NewFileStore(cfg.StorePath)
	if err != nil {
		return nil, nil, err
	}
	log.Info("file logo store opened", slog.String("path", cfg.StorePath), slog.Int("tenants", len(s.Tenants())))
	return s, func() {}, nil
}

func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
