package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	mgr, err := NewManager(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, path, mgr.GetConfigPath())

	cfg := mgr.Get()
	assert.Equal(t, "ws://127.0.0.1:6123", cfg.PeerURL)
	assert.Equal(t, 300*time.Millisecond, cfg.DebounceWindow)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 2*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 2*time.Second, cfg.ReconnectBackoff)
	assert.Equal(t, 100*time.Millisecond, cfg.VerifyDelay)
	assert.Equal(t, DefaultSubscribeEvents, cfg.SubscribeEvents)
	assert.Equal(t, DefaultImmediateEvents, cfg.ImmediateEvents)
	assert.True(t, cfg.AutoToggleTiling)
	assert.Equal(t, 3, cfg.DegradedThreshold)
	assert.Equal(t, 6124, cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestNewManager_LoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `peer_url: ws://127.0.0.1:7000
debounce_window: 500ms
auto_toggle_tiling: false
subscribe_events:
  - focus_changed
  - window_managed
immediate_events:
  - focus_changed
server_port: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	mgr, err := NewManager(path)
	require.NoError(t, err)

	cfg := mgr.Get()
	assert.Equal(t, "ws://127.0.0.1:7000", cfg.PeerURL)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceWindow)
	assert.False(t, cfg.AutoToggleTiling)
	assert.Equal(t, []string{"focus_changed", "window_managed"}, cfg.SubscribeEvents)
	assert.Equal(t, 0, cfg.ServerPort)
	// Keys missing from the file keep their defaults.
	assert.Equal(t, 2*time.Second, cfg.QueryTimeout)

	assert.True(t, cfg.IsImmediate("focus_changed"))
	assert.False(t, cfg.IsImmediate("window_managed"))
}

func TestNewManager_RejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("peer_url: http://127.0.0.1:6123\n"), 0644))

	_, err := NewManager(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme must be ws or wss")
}

func TestNewManager_EnvOverride(t *testing.T) {
	t.Setenv("GLAZESYNC_PEER_URL", "ws://127.0.0.1:7123")

	mgr, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:7123", mgr.Get().PeerURL)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			PeerURL:          "ws://127.0.0.1:6123",
			ConnectTimeout:   time.Second,
			QueryTimeout:     time.Second,
			ReconnectBackoff: time.Second,
			DebounceWindow:   300 * time.Millisecond,
			SubscribeEvents:  []string{"focus_changed", "window_managed"},
			ImmediateEvents:  []string{"focus_changed"},
			ServerPort:       6124,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "wss", mutate: func(c *Config) { c.PeerURL = "wss://localhost:6123" }},
		{name: "bad scheme", mutate: func(c *Config) { c.PeerURL = "tcp://localhost:6123" }, wantErr: "scheme"},
		{name: "zero window", mutate: func(c *Config) { c.DebounceWindow = 0 }, wantErr: "debounce_window"},
		{name: "zero query timeout", mutate: func(c *Config) { c.QueryTimeout = 0 }, wantErr: "query_timeout"},
		{name: "negative backoff", mutate: func(c *Config) { c.ReconnectBackoff = -time.Second }, wantErr: "reconnect_backoff"},
		{name: "no events", mutate: func(c *Config) { c.SubscribeEvents = nil }, wantErr: "subscribe_events"},
		{
			name:    "immediate not subscribed",
			mutate:  func(c *Config) { c.ImmediateEvents = []string{"pause_changed"} },
			wantErr: "pause_changed",
		},
		{name: "port out of range", mutate: func(c *Config) { c.ServerPort = 70000 }, wantErr: "server_port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestManager_SetRevertsInvalidValue(t *testing.T) {
	mgr, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	require.NoError(t, mgr.Set(KeyDebounceWindow, "150ms"))
	assert.Equal(t, 150*time.Millisecond, mgr.Get().DebounceWindow)

	require.Error(t, mgr.Set(KeyPeerURL, "http://nope"))
	assert.Equal(t, "ws://127.0.0.1:6123", mgr.Get().PeerURL)
	assert.Equal(t, "ws://127.0.0.1:6123", mgr.GetViper().GetString(KeyPeerURL))
}

func TestManager_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	mgr, err := NewManager(path)
	require.NoError(t, err)

	require.NoError(t, mgr.SetPort(7000))
	require.NoError(t, mgr.Save())

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, reloaded.Get().ServerPort)
}

func TestManager_AutoToggleIsRuntimeOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	mgr, err := NewManager(path)
	require.NoError(t, err)

	assert.True(t, mgr.AutoToggleTiling())
	mgr.SetAutoToggleTiling(false)
	assert.False(t, mgr.AutoToggleTiling())
	assert.False(t, mgr.Get().AutoToggleTiling)

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	assert.True(t, reloaded.AutoToggleTiling())
}

func TestManager_GetReturnsCopy(t *testing.T) {
	mgr, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	cfg := mgr.Get()
	cfg.SubscribeEvents[0] = "mutated"
	cfg.DebounceWindow = time.Hour

	assert.Equal(t, DefaultSubscribeEvents[0], mgr.Get().SubscribeEvents[0])
	assert.Equal(t, 300*time.Millisecond, mgr.Get().DebounceWindow)
}
