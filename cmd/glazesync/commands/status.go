package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/bryanchriswhite/glazesync/internal/engine"
	"github.com/bryanchriswhite/glazesync/internal/glazewm"
	"github.com/bryanchriswhite/glazesync/internal/state"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query GlazeWM once and print workspaces",
	Long: `Connect to GlazeWM, query the current topology once and print the
normalized workspace snapshot.`,
	Example: `  # Print workspaces as a table (default)
  glazesync status

  # Print the snapshot as JSON
  glazesync status --format json

  # Include window titles
  glazesync status --windows`,
	RunE: runStatus,
}

var (
	statusFormat  string
	statusWindows bool
)

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusFormat, "format", "f", "table", "output format (table or json)")
	statusCmd.Flags().BoolVarP(&statusWindows, "windows", "w", false, "list windows under each workspace")
}

func runStatus(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	eng := engine.New(configMgr, glazewm.NewDialer(cfg.PeerURL, cfg.ConnectTimeout))
	defer eng.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout+cfg.QueryTimeout)
	defer cancel()

	if err := eng.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to query GlazeWM: %w", err)
	}
	snap := eng.Snapshot()

	switch statusFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(snap)
	case "table":
		return printSnapshotTable(snap, statusWindows)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", statusFormat)
	}
}

func printSnapshotTable(snap state.Snapshot, withWindows bool) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "WORKSPACE\tFOCUSED\tWINDOWS")
	fmt.Fprintln(w, "---------\t-------\t-------")

	for _, ws := range snap.Workspaces {
		focused := ""
		if ws.Focused {
			focused = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", ws.Name, focused, len(ws.Windows))

		if !withWindows {
			continue
		}
		for _, win := range ws.Windows {
			fmt.Fprintf(w, "  └ %s\t\t%s\n", windowLabel(win), win.ProcessName)
		}
	}

	fmt.Fprintf(w, "\nTotal windows: %d\n", snap.TotalWindowCount)
	return nil
}

// windowLabel prefers the title, falls back to the process, and truncates
func windowLabel(win state.WindowRecord) string {
	label := win.Title
	if strings.TrimSpace(label) == "" {
		label = win.ProcessName
	}
	if label == "" {
		label = "Unknown"
	}
	if r := []rune(label); len(r) > 40 {
		label = string(r[:37]) + "..."
	}
	return label
}
