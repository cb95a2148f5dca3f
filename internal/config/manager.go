package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bryanchriswhite/glazesync/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. GLAZESYNC_PEER_URL
const EnvPrefix = "GLAZESYNC"

// Manager handles configuration. Apart from the auto-toggle flag the loaded
// configuration is immutable once the engine starts.
type Manager struct {
	configPath string
	v          *viper.Viper
	config     *Config
	mu         sync.RWMutex
}

// DefaultConfigPath returns $HOME/.config/glazesync/config.yaml
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "glazesync", "config.yaml"), nil
}

// NewManager loads configFile (or the default path), creating it with
// defaults when it does not exist.
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		actualConfigPath = defaultPath
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetConfigFile(actualConfigPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	m := &Manager{
		configPath: actualConfigPath,
		v:          v,
	}

	if _, err := os.Stat(actualConfigPath); os.IsNotExist(err) {
		logger.WithComponent("config").Info().
			Str("path", actualConfigPath).
			Msg("Config file not found, creating new config")
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := m.load(); err != nil {
		return nil, err
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Str("peer_url", m.config.PeerURL).
		Dur("debounce_window", m.config.DebounceWindow).
		Msg("Config loaded")

	return m, nil
}

// load decodes the viper state into a validated Config
func (m *Manager) load() error {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg := *m.config
	cfg.SubscribeEvents = append([]string(nil), m.config.SubscribeEvents...)
	cfg.ImmediateEvents = append([]string(nil), m.config.ImmediateEvents...)
	return &cfg
}

// GetViper exposes the underlying viper instance for the config subcommands
func (m *Manager) GetViper() *viper.Viper {
	return m.v
}

// Save writes the current viper settings to the config file
func (m *Manager) Save() error {
	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := m.v.WriteConfigAs(m.configPath); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return fmt.Errorf("failed to write config: %w", err)
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Set updates a single key in memory and revalidates
func (m *Manager) Set(key string, value any) error {
	previous := m.v.Get(key)
	m.v.Set(key, value)
	if err := m.load(); err != nil {
		m.v.Set(key, previous)
		return err
	}
	return nil
}

// AutoToggleTiling reports whether new windows trigger a tiling direction toggle
func (m *Manager) AutoToggleTiling() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.AutoToggleTiling
}

// SetAutoToggleTiling flips the runtime flag without touching the file
func (m *Manager) SetAutoToggleTiling(enabled bool) {
	m.mu.Lock()
	m.config.AutoToggleTiling = enabled
	m.mu.Unlock()

	status := "disabled"
	if enabled {
		status = "enabled"
	}
	logger.WithComponent("config").Info().Msgf("Auto-toggle tiling %s", status)
}

// SetPort overrides the API port
func (m *Manager) SetPort(port int) error {
	return m.Set(KeyServerPort, port)
}

// SetLogLevel overrides the log level
func (m *Manager) SetLogLevel(level string) error {
	return m.Set(KeyLogLevel, level)
}

// SetPeerURL overrides the window manager address
func (m *Manager) SetPeerURL(peerURL string) error {
	return m.Set(KeyPeerURL, peerURL)
}

// GetConfigPath returns the config file path
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Watch reloads the file on change. Only auto_toggle_tiling is applied to a
// running process; other edits are logged and need a restart.
func (m *Manager) Watch(onChange func(*Config)) {
	m.v.OnConfigChange(func(e fsnotify.Event) {
		log := logger.WithComponent("config")
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}

		var fresh Config
		if err := m.v.Unmarshal(&fresh); err != nil {
			log.Warn().Err(err).Str("path", e.Name).Msg("Ignoring unreadable config change")
			return
		}
		if err := fresh.Validate(); err != nil {
			log.Warn().Err(err).Str("path", e.Name).Msg("Ignoring invalid config change")
			return
		}

		m.mu.Lock()
		changed := m.config.AutoToggleTiling != fresh.AutoToggleTiling
		m.config.AutoToggleTiling = fresh.AutoToggleTiling
		current := *m.config
		m.mu.Unlock()

		if changed {
			log.Info().Bool("auto_toggle_tiling", fresh.AutoToggleTiling).Msg("Applied config change")
		} else {
			log.Info().Str("path", e.Name).Msg("Config file changed; restart to apply settings other than auto_toggle_tiling")
		}
		if onChange != nil {
			onChange(&current)
		}
	})
	m.v.WatchConfig()
}
