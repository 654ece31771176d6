package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"expenses/internal/cli"
	apphttp "expenses/internal/http"
	applog "expenses/internal/log"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentApp, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := cli.OpenService(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize expense store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer svc.Close()

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Location:           cfg.Location(),
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting expenses server",
			"port", cfg.Port,
			"db", cfg.SQLiteDBPath,
			"week_start", cfg.Weekday().String(),
			"timezone", cfg.Location().String(),
			applog.FieldOperation, applog.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
