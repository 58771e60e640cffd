package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rhuss/strom/pkg/config"
	"github.com/rhuss/strom/pkg/debug"
	transporthttp "github.com/rhuss/strom/pkg/transport/http"
)

func newServeCommand(global *globalOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Responses API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(global.ConfigPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port, overrides server.port")
	return cmd
}

// serve wires the agent, engine, auth and HTTP server from cfg and serves
// until ctx is done.
func serve(ctx context.Context, cfg *config.Config) error {
	debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)
	logger := slog.Default()

	a, err := newAgent(cfg.Agent)
	if err != nil {
		return fmt.Errorf("creating agent: %w", err)
	}
	defer a.Close()

	eng, err := newEngine(a, cfg.Agent)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	guard, err := newAuthMiddleware(cfg.Auth)
	if err != nil {
		return fmt.Errorf("creating auth: %w", err)
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	srv := transporthttp.NewServer(eng,
		transporthttp.WithAddr(cfg.Server.Addr()),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithMetricsPath(metricsPath),
		transporthttp.WithGuard(guard),
		transporthttp.WithLogger(logger),
	)

	logger.Info("strom starting",
		slog.String("version", version),
		slog.String("addr", cfg.Server.Addr()),
		slog.String("agent", a.Name()),
		slog.String("default_model", cfg.Agent.DefaultModel),
		slog.String("auth", cfg.Auth.Type),
		slog.Bool("rate_limit", cfg.Auth.RateLimit.Enabled()),
		slog.String("metrics", metricsPath),
	)

	return srv.Run(ctx)
}
