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

	goutils "github.com/jkaninda/go-utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/bpcreech/http-eval/engines"
	"github.com/bpcreech/http-eval/httpeval"
	"github.com/bpcreech/http-eval/internal/config"
	"github.com/bpcreech/http-eval/internal/observability"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(goutils.Env(config.EnvConfig, configPath))
	if err != nil {
		return err
	}

	logHandler := cfg.NewLogHandler(os.Stderr)
	logger := slog.New(logHandler)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetricsCollector()
	tracing, err := observability.NewTracerSetup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Tracer shutdown failed", "error", err)
		}
	}()

	engineOpts := []engines.Option{engines.WithLogHandler(logHandler)}
	seed, err := cfg.SeedProvider()
	if err != nil {
		return err
	}
	if seed != nil {
		engineOpts = append(engineOpts, engines.WithDataProvider(seed))
	}
	machine, err := engines.New(ctx, cfg.EngineType(), engineOpts...)
	if err != nil {
		return fmt.Errorf("engine setup: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := machine.Close(closeCtx); err != nil {
			logger.Warn("Engine shutdown failed", "error", err)
		}
	}()

	if cfg.IgnoreInsecureSocketPermission {
		logger.Warn("Socket permission check disabled", "env", config.EnvIgnoreInsecure)
	}
	handler, err := httpeval.NewHandler(machine,
		httpeval.WithLogHandler(logHandler),
		httpeval.WithEvalPath(cfg.EvalPath),
		httpeval.WithMaxRequestSize(cfg.MaxRequestSize),
		httpeval.WithIgnoreInsecureSocketPermission(cfg.IgnoreInsecureSocketPermission),
		httpeval.WithMetrics(metrics),
		httpeval.WithTracer(tracing.Tracer()),
	)
	if err != nil {
		return fmt.Errorf("handler setup: %w", err)
	}

	servers := make([]*httpeval.Server, 0, 2)
	srv, err := httpeval.NewServer(cfg.SocketPath, handler, logHandler)
	if err != nil {
		return err
	}
	servers = append(servers, srv)

	if cfg.MetricsSocketPath != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
		metricsSrv, err := httpeval.NewServer(cfg.MetricsSocketPath, mux, logHandler)
		if err != nil {
			return err
		}
		servers = append(servers, metricsSrv)
	}

	for i, s := range servers {
		if err := s.Listen(); err != nil {
			for _, started := range servers[:i] {
				_ = started.Shutdown(context.Background())
			}
			return err
		}
	}

	logger.Info("http-eval started",
		"engine", machine.Engine(),
		"socket", cfg.SocketPath,
		"path", cfg.EvalPath,
		"version", version,
	)

	errCh := make(chan error, len(servers))
	for _, s := range servers {
		go func(s *httpeval.Server) {
			errCh <- s.Run(ctx, cfg.ShutdownTimeout)
		}(s)
	}

	var runErr error
	for range servers {
		if err := <-errCh; err != nil {
			runErr = errors.Join(runErr, err)
			stop()
		}
	}
	logger.Info("http-eval stopped")
	return runErr
}
