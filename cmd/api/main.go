package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	courier "github.com/nazarhussain/lead-courier/internal"
	"github.com/nazarhussain/lead-courier/internal/ratelimit"
)

func main() {
	// a missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	logger := newLogger()

	config, err := courier.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	contact, subscribe, closeFn, err := newLimiters(ctx, config)
	if err != nil {
		logger.Error("failed to init rate limiter", "err", err)
		os.Exit(1)
	}
	defer closeFn()

	dispatcher := config.NewDispatcher()
	if dispatcher == nil {
		logger.Warn("no mail provider configured, submissions will only be logged")
	}

	srv := courier.NewServer(config, contact, subscribe, dispatcher)

	s := &http.Server{
		Addr:              config.ListenAddr,
		Handler:           srv.Routes(logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("lead-courier listening",
		"addr", config.ListenAddr,
		"rate_store", config.RateStore,
		"mail_enabled", config.Mail.Enabled(),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}

func newLimiters(ctx context.Context, config *courier.Config) (contact, subscribe ratelimit.Limiter, closeFn func(), err error) {
	switch config.RateStore {
	case courier.StoreRedis:
		rdb, err := ratelimit.NewRedisClient(ctx, config.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		contact, err = ratelimit.NewRedisWindow(rdb, config.ContactRate, config.RedisPrefix, "contact")
		if err != nil {
			_ = rdb.Close()
			return nil, nil, nil, err
		}
		subscribe, err = ratelimit.NewRedisWindow(rdb, config.SubscribeRate, config.RedisPrefix, "subscribe")
		if err != nil {
			_ = rdb.Close()
			return nil, nil, nil, err
		}
		return contact, subscribe, func() {
			if err := rdb.Close(); err != nil {
				slog.Default().Error("failed to close redis client", "err", err)
			}
		}, nil
	default:
		c := ratelimit.NewFixedWindow(config.ContactRate)
		sub := ratelimit.NewFixedWindow(config.SubscribeRate)
		c.StartJanitor(ctx, config.SweepEvery)
		sub.StartJanitor(ctx, config.SweepEvery)
		return c, sub, func() {}, nil
	}
}

func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: logLevelFromEnv(),
	}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func logLevelFromEnv() slog.Leveler {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
