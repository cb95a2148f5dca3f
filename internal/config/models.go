package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Window manager peer
	PeerURL          string        `json:"peer_url" yaml:"peer_url" mapstructure:"peer_url"`
	ConnectTimeout   time.Duration `json:"connect_timeout" yaml:"connect_timeout" mapstructure:"connect_timeout"`
	QueryTimeout     time.Duration `json:"query_timeout" yaml:"query_timeout" mapstructure:"query_timeout"`
	ReconnectBackoff time.Duration `json:"reconnect_backoff" yaml:"reconnect_backoff" mapstructure:"reconnect_backoff"`

	// Refresh scheduling
	DebounceWindow  time.Duration `json:"debounce_window" yaml:"debounce_window" mapstructure:"debounce_window"`
	VerifyDelay     time.Duration `json:"verify_delay" yaml:"verify_delay" mapstructure:"verify_delay"`
	SubscribeEvents []string      `json:"subscribe_events" yaml:"subscribe_events" mapstructure:"subscribe_events"`
	ImmediateEvents []string      `json:"immediate_events" yaml:"immediate_events" mapstructure:"immediate_events"`

	// Behaviour
	AutoToggleTiling  bool `json:"auto_toggle_tiling" yaml:"auto_toggle_tiling" mapstructure:"auto_toggle_tiling"`
	DegradedThreshold int  `json:"degraded_threshold" yaml:"degraded_threshold" mapstructure:"degraded_threshold"`

	// Local API and logging
	ServerPort int    `json:"server_port" yaml:"server_port" mapstructure:"server_port"`
	LogLevel   string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogPretty  bool   `json:"log_pretty" yaml:"log_pretty" mapstructure:"log_pretty"`
}

// Config keys
const (
	KeyPeerURL           = "peer_url"
	KeyConnectTimeout    = "connect_timeout"
	KeyQueryTimeout      = "query_timeout"
	KeyReconnectBackoff  = "reconnect_backoff"
	KeyDebounceWindow    = "debounce_window"
	KeyVerifyDelay       = "verify_delay"
	KeySubscribeEvents   = "subscribe_events"
	KeyImmediateEvents   = "immediate_events"
	KeyAutoToggleTiling  = "auto_toggle_tiling"
	KeyDegradedThreshold = "degraded_threshold"
	KeyServerPort        = "server_port"
	KeyLogLevel          = "log_level"
	KeyLogPretty         = "log_pretty"
)

// DefaultSubscribeEvents are the GlazeWM events that can change what is shown
var DefaultSubscribeEvents = []string{
	"focus_changed",
	"workspace_activated",
	"workspace_deactivated",
	"workspace_updated",
	"window_managed",
	"window_unmanaged",
	"tiling_direction_changed",
	"binding_modes_changed",
	"focused_container_moved",
	"pause_changed",
}

// DefaultImmediateEvents skip the debounce window. Window open/close events
// arrive in bursts and are left out.
var DefaultImmediateEvents = []string{
	"focus_changed",
	"workspace_activated",
	"workspace_deactivated",
	"workspace_updated",
	"focused_container_moved",
	"tiling_direction_changed",
	"binding_modes_changed",
	"pause_changed",
}

// defaults are registered with viper; durations are strings so files stay readable
func defaults() map[string]any {
	return map[string]any{
		KeyPeerURL:           "ws://127.0.0.1:6123",
		KeyConnectTimeout:    "5s",
		KeyQueryTimeout:      "2s",
		KeyReconnectBackoff:  "2s",
		KeyDebounceWindow:    "300ms",
		KeyVerifyDelay:       "100ms",
		KeySubscribeEvents:   append([]string(nil), DefaultSubscribeEvents...),
		KeyImmediateEvents:   append([]string(nil), DefaultImmediateEvents...),
		KeyAutoToggleTiling:  true,
		KeyDegradedThreshold: 3,
		KeyServerPort:        6124,
		KeyLogLevel:          "info",
		KeyLogPretty:         true,
	}
}

// Validate checks that the configuration can drive the engine
func (c *Config) Validate() error {
	u, err := url.Parse(c.PeerURL)
	if err != nil {
		return fmt.Errorf("invalid peer_url %q: %w", c.PeerURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid peer_url %q: scheme must be ws or wss", c.PeerURL)
	}
	if c.DebounceWindow <= 0 {
		return fmt.Errorf("debounce_window must be positive, got %s", c.DebounceWindow)
	}
	if c.ConnectTimeout <= 0 || c.QueryTimeout <= 0 {
		return fmt.Errorf("connect_timeout and query_timeout must be positive")
	}
	if c.ReconnectBackoff < 0 || c.VerifyDelay < 0 {
		return fmt.Errorf("reconnect_backoff and verify_delay must not be negative")
	}
	if len(c.SubscribeEvents) == 0 {
		return fmt.Errorf("subscribe_events must not be empty")
	}
	subscribed := make(map[string]bool, len(c.SubscribeEvents))
	for _, ev := range c.SubscribeEvents {
		subscribed[ev] = true
	}
	for _, ev := range c.ImmediateEvents {
		if !subscribed[ev] {
			return fmt.Errorf("immediate event %q is not in subscribe_events", ev)
		}
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server_port: %d", c.ServerPort)
	}
	return nil
}

// IsImmediate reports whether eventType bypasses the debounce window
func (c *Config) IsImmediate(eventType string) bool {
	for _, ev := range c.ImmediateEvents {
		if ev == eventType {
			return true
		}
	}
	return false
}
