// Command mock-backend runs a deterministic agent backend for end-to-end
// runs without credentials. It speaks two protocols:
//
//   - POST /v1/chat/completions: OpenAI-compatible Chat Completions,
//     streamed or not, for the openai agent.
//   - POST /v1/runs: the run event stream consumed by the remote agent.
//
// Replies are chosen from the last user message (see reply), so a client
// can trigger failures on purpose.
//
// Configuration:
//
//	MOCK_PORT  - Listen port (default: 9090)
//	MOCK_DELAY - Pause between streamed chunks (default: 0)
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
)

type config struct {
	Port  string
	Delay time.Duration
}

func loadConfig(getenv func(string) string) (config, error) {
	cfg := config{Port: "9090"}
	if v := getenv("MOCK_PORT"); v != "" {
		cfg.Port = v
	}
	if v := getenv("MOCK_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("MOCK_DELAY: %w", err)
		}
		cfg.Delay = d
	}
	return cfg, nil
}

func main() {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newMux(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", cfg.Port, "delay", cfg.Delay)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown incomplete", "error", err)
	}
}

func newMux(cfg config) *http.ServeMux {
	h := &handlers{delay: cfg.Delay}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", h.chatCompletions)
	mux.HandleFunc("POST /v1/runs", h.runs)
	mux.HandleFunc("GET /v1/models", h.models)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, "ok")
	})
	return mux
}
