package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatrelay/pkg/config"
	"chatrelay/pkg/state"
	"chatrelay/pkg/store"
)

func TestRunImmediateRequiresConfig(t *testing.T) {
	require.Error(t, RunImmediate())
}

func TestRunImmediatePurgesOldMessages(t *testing.T) {
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })

	_, err := store.AppendMessage("stale", "alice", "bob")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Retention.Enabled = true
	cfg.Retention.MaxAge = "5ms"
	SetEffectiveConfig(config.EffectiveConfigResult{Config: cfg})

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, RunImmediate())

	msgs, err := store.ListHistory("alice", "bob", 0)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestRunImmediateKeepsMessagesInsideWindow(t *testing.T) {
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })

	_, err := store.AppendMessage("fresh", "alice", "bob")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Retention.Enabled = true
	cfg.Retention.MaxAge = "24h"
	SetEffectiveConfig(config.EffectiveConfigResult{Config: cfg})

	require.NoError(t, RunImmediate())

	msgs, err := store.ListHistory("alice", "bob", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestStartValidatesConfig(t *testing.T) {
	require.NoError(t, state.Init(t.TempDir()))

	cfg := &config.Config{}
	eff := config.EffectiveConfigResult{Config: cfg}

	// disabled is a no-op with a usable cancel
	cancel, err := Start(context.Background(), eff)
	require.NoError(t, err)
	cancel()

	cfg.Retention.Enabled = true
	_, err = Start(context.Background(), eff)
	require.Error(t, err) // max_age missing

	cfg.Retention.MaxAge = "24h"
	cfg.Retention.Cron = "definitely not cron"
	_, err = Start(context.Background(), eff)
	require.Error(t, err)
}
