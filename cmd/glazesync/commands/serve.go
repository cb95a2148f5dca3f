package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/glazesync/internal/api"
	"github.com/bryanchriswhite/glazesync/internal/engine"
	"github.com/bryanchriswhite/glazesync/internal/glazewm"
	"github.com/bryanchriswhite/glazesync/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the synchronization engine and local API",
	Long: `Start the glazesync engine: subscribe to GlazeWM events, keep the
workspace snapshot fresh and serve it on a local HTTP API.

The API listens on 127.0.0.1 only. Set --port 0 to run without it.`,
	Example: `  # Start with defaults (GlazeWM on ws://127.0.0.1:6123, API on 6124)
  glazesync serve

  # Start with a custom API port
  glazesync serve --port 9090

  # Start with debug logging
  glazesync serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", -1, "API server port (default is 6124, 0 disables the API)")
	serveCmd.Flags().Bool("no-auto-toggle", false, "do not toggle tiling direction for new windows")
	viper.BindPFlag("server_port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	// Override port from flag if provided
	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port >= 0 {
			if err := configMgr.SetPort(port); err != nil {
				return err
			}
		}
	}
	if noAuto, _ := cmd.Flags().GetBool("no-auto-toggle"); noAuto {
		configMgr.SetAutoToggleTiling(false)
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	log := logger.WithComponent("serve")

	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Str("peer_url", cfg.PeerURL).
		Bool("auto_toggle_tiling", configMgr.AutoToggleTiling()).
		Msg("Starting glazesync")

	dialer := glazewm.NewDialer(cfg.PeerURL, cfg.ConnectTimeout)
	eng := engine.New(configMgr, dialer)
	configMgr.Watch(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *api.Server
	serverErr := make(chan error, 1)
	if cfg.ServerPort > 0 {
		server = api.NewServer(eng, configMgr)
		eng.OnChange(server.Publish)
		go func() {
			serverErr <- server.Start(cfg.ServerPort)
		}()
	}

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- eng.Run(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("API server failed")
		}
		stop()
	}

	log.Info().Msg("Shutting down gracefully...")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("API server shutdown")
		}
	}

	if err := <-engineDone; err != nil {
		return fmt.Errorf("engine stopped: %w", err)
	}
	return nil
}
