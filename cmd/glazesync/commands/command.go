package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bryanchriswhite/glazesync/internal/engine"
	"github.com/bryanchriswhite/glazesync/internal/glazewm"
	"github.com/spf13/cobra"
)

var commandCmd = &cobra.Command{
	Use:   "command COMMAND...",
	Short: "Send a command to GlazeWM",
	Long: `Send a single command to GlazeWM over its IPC connection.

Shortcuts: toggle-tiling, toggle-floating, close, redraw, reload.`,
	Example: `  # Toggle tiling direction
  glazesync command toggle-tiling

  # Focus workspace 2 (use -- so GlazeWM flags are passed through)
  glazesync command -- focus --workspace 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

var commandShortcuts = map[string]string{
	"toggle-tiling":   engine.CmdToggleTilingDirection,
	"toggle-floating": engine.CmdToggleFloating,
	"close":           engine.CmdClose,
	"redraw":          engine.CmdRedraw,
	"reload":          engine.CmdReloadConfig,
}

func init() {
	rootCmd.AddCommand(commandCmd)
}

func runCommand(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if shortcut, ok := commandShortcuts[text]; ok {
		text = shortcut
	}

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	eng := engine.New(configMgr, glazewm.NewDialer(cfg.PeerURL, cfg.ConnectTimeout))
	defer eng.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout+cfg.QueryTimeout)
	defer cancel()

	if err := eng.Send(ctx, text); err != nil {
		return fmt.Errorf("command %q failed: %w", text, err)
	}

	fmt.Printf("✅ Sent: %s\n", text)
	return nil
}
