package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/davren/igniter/internal/auth"
	"github.com/davren/igniter/internal/config"
	"github.com/davren/igniter/internal/connectivity"
	"github.com/davren/igniter/internal/gate"
	"github.com/davren/igniter/internal/logging"
	"github.com/davren/igniter/internal/orchestrator"
	"github.com/davren/igniter/internal/resolver"
	"github.com/davren/igniter/internal/server"
	"github.com/davren/igniter/internal/store"
)

func main() {
	configPath := flag.String("config", "cmd/igniterd/config.toml", "daemon config path")
	flag.Parse()

	logging.ConfigureRuntime()
	cfg, err := config.LoadDaemonConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load daemon config")
	}
	log.Info().Str("path", *configPath).Msg("loaded daemon config")

	st, closeStore, err := openStore(cfg.StorePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.StorePath).Msg("failed to open store")
	}
	defer closeStore()

	validator := gate.NewClient(cfg.Gate.URL, cfg.Gate.Key, 10*time.Second)
	provider := resolver.NewClient(cfg.Provider.URL, 10*time.Second)
	monitor := connectivity.NewProbeMonitor(
		cfg.Probe.Addr,
		time.Duration(cfg.Probe.IntervalSeconds)*time.Second,
		3*time.Second,
	)

	orch := orchestrator.New(orchestratorConfig(cfg.Timing), st, validator, provider, monitor)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	orch.Start(ctx)
	defer orch.Stop()

	srv := server.New(cfg.Addr, orch, st, cfg.CorsOrigins)
	if cfg.AuthToken != "" {
		srv.Auth = auth.StaticToken{Token: cfg.AuthToken}
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve()
	}()
	log.Info().Str("name", cfg.Name).Str("addr", cfg.Addr).Msg("daemon started")

	select {
	case <-ctx.Done():
		log.Info().Msg("daemon shutdown")
	case err := <-serveErr:
		log.Fatal().Err(err).Msg("daemon stopped")
	}
}

// openStore falls back to the in-memory store when no path is set.
func openStore(path string) (store.Store, func(), error) {
	if path == "" {
		log.Warn().Msg("no store_path configured, state will not survive restarts")
		return store.NewMemory(), func() {}, nil
	}
	st, err := store.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { _ = st.Close() }, nil
}

func orchestratorConfig(t config.TimingConfig) orchestrator.Config {
	return orchestrator.Config{
		GlobalTimeout:      time.Duration(t.GlobalTimeoutSeconds) * time.Second,
		Debounce:           time.Duration(t.DebounceSeconds) * time.Second,
		OrganicGraceDelay:  time.Duration(t.OrganicGraceDelaySeconds) * time.Second,
		PermissionCooldown: time.Duration(t.PermissionCooldownHours) * time.Hour,
	}
}
