// Package app wires the server components together and owns their
// lifecycle: config validation, state dirs, store, delivery pipeline,
// websocket hub, retention scheduler, and the HTTP server.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"arenachat/internal/retention"
	"arenachat/pkg/api"
	"arenachat/pkg/cache"
	"arenachat/pkg/config"
	"arenachat/pkg/delivery"
	"arenachat/pkg/logger"
	"arenachat/pkg/state"
	"arenachat/pkg/store"
	"arenachat/pkg/telemetry"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	cache  *cache.Messages
	sender *delivery.Sender
	hub    *api.Hub

	srv *http.Server
}

// New initializes resources that do not require a running context: config
// validation, runtime keys, state dirs, the store, and the delivery
// pipeline. Call Run to start the scheduler and HTTP server and block
// until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	// validate effective config early and fail fast
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	logger.InitWithOptions(eff.Config.Logging.Level, eff.Config.Logging.Format)

	// runtime keys: effective config plus any env-provided keys
	_, envRes := config.ParseConfigEnvs()
	config.SetRuntime(config.RuntimeFromConfig(eff.Config, envRes))

	if err := state.EnsureStateDirs(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to prepare state dirs under %s: %w", eff.DBPath, err)
	}
	if err := logger.AttachAuditFileSink(state.PathsVar.Audit); err != nil {
		logger.Warn("audit_sink_unavailable", "error", err)
	}

	if err := store.Open(state.PathsVar.Store); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", state.PathsVar.Store, err)
	}

	a := &App{eff: eff, version: version, commit: commit, buildDate: buildDate}

	a.cache = cache.NewMessages()
	a.hub = api.NewHub()

	opts := []delivery.Option{delivery.WithChangeHook(a.hub.Broadcast)}
	if d := eff.Config.Delivery.SettleTimeout.Duration(); d > 0 {
		opts = append(opts, delivery.WithSettleTimeout(d))
	}
	a.sender = delivery.NewSender(store.Backend{}, a.cache, opts...)

	if d := eff.Config.Delivery.SlowRequestThreshold.Duration(); d > 0 {
		telemetry.SetSlowThreshold(d)
	}

	return a, nil
}

// Run starts the retention scheduler and the HTTP server, and blocks until
// ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	retention.SetEffectiveConfig(a.eff)
	retCancel, err := retention.Start(ctx, a.eff)
	if err != nil {
		return err
	}
	defer retCancel()

	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

// shutdown drains the HTTP server and in-flight settle refreshes, then
// closes the store.
func (a *App) shutdown() {
	if a.srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(sctx); err != nil {
			logger.Warn("http_shutdown_failed", "error", err)
		}
	}
	if a.sender != nil {
		a.sender.Wait()
	}
	if err := store.Close(); err != nil {
		logger.Warn("store_close_failed", "error", err)
	}
	logger.Info("shutdown_complete")
}
