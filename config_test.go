package phasor

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, defaultEventCapacity, cfg.EventCapacity)
	assert.Equal(t, defaultChannelCapacity, cfg.InboxCapacity)
	assert.Equal(t, defaultChannelCapacity, cfg.OutboxCapacity)
	assert.False(t, cfg.Profile)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PHASOR_LOG_LEVEL", "debug")
	t.Setenv("PHASOR_EVENT_CAPACITY", "128")
	t.Setenv("PHASOR_INBOX_CAPACITY", "4")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 128, cfg.EventCapacity)
	assert.Equal(t, 4, cfg.InboxCapacity)
	assert.Equal(t, zerolog.DebugLevel, cfg.logLevel())
}

func TestConfigLogLevelFallback(t *testing.T) {
	cfg := Config{LogLevel: "not-a-level"}
	assert.Equal(t, zerolog.InfoLevel, cfg.logLevel())
}

func TestDefaultWithConfigCapacities(t *testing.T) {
	cfg := Config{LogLevel: "warn", EventCapacity: 2, InboxCapacity: 3, OutboxCapacity: 5}
	app := DefaultWithConfig(cfg)
	defer app.Close()

	AddEvent[collision](app, 0)
	ev, ok := GetResource[Events[collision]](app.World().Resources())
	require.True(t, ok)
	assert.Equal(t, 2, ev.Channel().Cap())

	child := Default()
	sub := NewSubApp[int, int](child, 0, 0)
	require.NoError(t, sub.Start(app))
	assert.Equal(t, 3, sub.inbox.Cap())
	assert.Equal(t, 5, sub.outbox.Cap())
	sub.Deinit()
}
