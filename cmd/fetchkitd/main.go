package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/fetchkit/api"
	"github.com/use-agent/fetchkit/api/handler"
	"github.com/use-agent/fetchkit/config"
	"github.com/use-agent/fetchkit/fetchers"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.Log)
	slog.Info("fetchkitd starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
	)

	shared := fetchers.Config{
		Debug: cfg.Fetch.Debug,
	}
	if cfg.Fetch.StorageDatabase != "" {
		shared.StorageArgs = map[string]any{"database": cfg.Fetch.StorageDatabase}
	}

	dispatchers := handler.Dispatchers{
		HTTP:     fetchers.NewFetcher(shared),
		Stealthy: fetchers.NewStealthyFetcher(shared),
		Browser:  fetchers.NewBrowserFetcher(shared),
	}

	router := api.NewRouter(dispatchers, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("fetchkitd stopped")
}
