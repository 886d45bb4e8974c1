package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"

	"chatrelay/internal/retention"
	"chatrelay/pkg/config"
	"chatrelay/pkg/ingest"
	"chatrelay/pkg/presence"
	"chatrelay/pkg/registry"
	"chatrelay/pkg/state"
	"chatrelay/pkg/store"
	"chatrelay/pkg/validation"
	"chatrelay/pkg/ws"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	reg  *registry.Registry
	bc   *presence.Broadcaster
	pipe *ingest.Pipeline
	wsh  *ws.Handler

	srv *http.Server
}

// New initializes resources that do not require a running context: the state
// dirs, the pebble store, and the delivery components. It does not start the
// HTTP server or the retention scheduler; call Run to start those and block
// until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	validation.SetMaxContentLength(eff.Config.MaxContentLength())

	if err := state.Init(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to prepare state dirs under %s: %w", eff.DBPath, err)
	}
	if err := store.Open(state.PathsVar.Store); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", state.PathsVar.Store, err)
	}

	reg := registry.New()
	bc := presence.New(reg)
	pipe := ingest.New(reg)
	wsh := ws.NewHandler(reg, bc, pipe, ws.Options{
		QueueSize:    eff.Config.OutboundQueue(),
		WriteTimeout: eff.Config.WriteTimeout(),
		EchoToSender: eff.Config.EchoToSender(),
	})

	return &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		reg:       reg,
		bc:        bc,
		pipe:      pipe,
		wsh:       wsh,
	}, nil
}

// Registry exposes the connection registry for tests and diagnostics.
func (a *App) Registry() *registry.Registry { return a.reg }

// Run starts the HTTP server and blocks until ctx is canceled or a fatal
// server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	retention.SetEffectiveConfig(a.eff)
	stopRetention, err := retention.Start(ctx, a.eff)
	if err != nil {
		return err
	}
	defer stopRetention()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdownHTTP()
		_ = store.Close()
		return nil
	case err := <-errCh:
		_ = store.Close()
		return err
	}
}
