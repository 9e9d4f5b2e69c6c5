// Command recalld serves the memory engine over HTTP.
//
// Engine configuration (storage backend, embedding providers, cache) comes
// from the environment or a .env file. Server-level settings (listen
// address, CORS, timeouts) come from an optional recalld.yaml, overridable
// with RECALLD_-prefixed environment variables.
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

	"github.com/spf13/viper"

	"github.com/studyloop/recall/internal/api"
	"github.com/studyloop/recall/pkg/core"
	"github.com/studyloop/recall/pkg/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("recalld exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	v := viper.New()
	v.SetConfigName("recalld")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/recall")
	v.SetEnvPrefix("recalld")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("request_timeout_seconds", 60)
	v.SetDefault("shutdown_timeout_seconds", 15)
	v.SetDefault("allowed_origins", []string{"*"})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		// No config file is fine; defaults and env cover everything.
	}

	cfg, err := core.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	registry, collectors := metrics.NewRegistry()

	client, err := core.NewClient(cfg,
		core.WithClientLogger(logger),
		core.WithClientMetrics(collectors),
	)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client.Start(ctx)

	server := api.NewServer(client, registry, api.Config{
		AllowedOrigins: v.GetStringSlice("allowed_origins"),
		RequestTimeout: time.Duration(v.GetInt("request_timeout_seconds")) * time.Second,
	}, logger)

	httpServer := &http.Server{
		Addr:              v.GetString("listen_addr"),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("recalld listening",
			"addr", httpServer.Addr,
			"storage", cfg.Storage.Provider,
			"default_provider", cfg.Embedding.DefaultProvider)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(v.GetInt("shutdown_timeout_seconds"))*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
