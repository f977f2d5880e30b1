// Command controlplane starts the multi-tenant agent-workload control
// plane: metadata store, orchestrator adapter, lifecycle engine, agent
// proxy, and the control API that fronts them.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/FilippTrigub/space-goose/internal/agentproxy"
	"github.com/FilippTrigub/space-goose/internal/api"
	"github.com/FilippTrigub/space-goose/internal/config"
	"github.com/FilippTrigub/space-goose/internal/lifecycle"
	"github.com/FilippTrigub/space-goose/internal/metadata"
	"github.com/FilippTrigub/space-goose/internal/metrics"
	"github.com/FilippTrigub/space-goose/internal/orchestrator"
	"github.com/FilippTrigub/space-goose/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.Environment == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = logger

	if level, lerr := zerolog.ParseLevel(cfg.LogLevel); lerr == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Str("db_path", cfg.DBPath).
		Msg("starting control plane")

	ds, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open metadata store")
	}
	defer ds.Close()
	meta := metadata.NewStore(ds, logger)

	orchCfg := orchestrator.Config{KubeconfigPath: cfg.KubeconfigPath}
	orch, err := orchestrator.NewClient(orchCfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build orchestrator client")
	}

	m := metrics.New()
	engine := lifecycle.NewEngine(meta, orch, cfg, m, logger)
	proxy := agentproxy.NewClient(meta, agentproxy.Config{
		DialTimeout:    cfg.AgentDialTimeout.Duration(),
		RequestTimeout: cfg.AgentRequestTimeout.Duration(),
	}, logger)

	server, err := api.NewServer(cfg, api.Deps{
		Engine:  engine,
		Proxy:   proxy,
		Meta:    meta,
		Orch:    orch,
		Metrics: m,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build control API server")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Start()
	}()

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
	case err := <-serverErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("control API server stopped unexpectedly")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if err := server.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("control API shutdown error")
		}
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("control plane stopped")
	case <-shutdownCtx.Done():
		logger.Warn().Msg("forced shutdown after timeout")
		os.Exit(1)
	}
}
