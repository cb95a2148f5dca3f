package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/glazesync/internal/config"
	"github.com/bryanchriswhite/glazesync/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "glazesync",
		Short: "glazesync - live GlazeWM workspace state for status surfaces",
		Long: `glazesync mirrors GlazeWM's workspaces, windows and focus into a local
cache and serves it to status surfaces such as tray icons and taskbar bars.

Features:
  • Event-driven refresh over GlazeWM's WebSocket IPC
  • Debounced queries for bursts of window open/close events
  • Immediate refresh for focus and workspace changes
  • Automatic reconnect when GlazeWM restarts
  • Optional tiling direction toggle for every new window
  • Local REST + WebSocket API for consumers`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := viper.GetString("log_level")
			if level == "" {
				level = "info"
			}
			logger.Init(level, true)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/glazesync/config.yaml)")
	rootCmd.PersistentFlags().String("peer", "", "GlazeWM IPC address (default is ws://127.0.0.1:6123)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("peer_url", rootCmd.PersistentFlags().Lookup("peer"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig opens the config manager and applies global flag overrides
func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if peer := viper.GetString("peer_url"); viper.IsSet("peer_url") && peer != "" {
		if err := configMgr.SetPeerURL(peer); err != nil {
			return nil, err
		}
	}
	if level := viper.GetString("log_level"); viper.IsSet("log_level") && level != "" {
		if err := configMgr.SetLogLevel(level); err != nil {
			return nil, err
		}
	}

	return configMgr, nil
}
