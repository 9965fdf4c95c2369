package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zeusync/tileboard/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tileboard",
	Short: "Interactive tile board server and terminal viewer",
	Long: `tileboard hosts an instanced tile board that renderers drive with
pointer actions: toggle, select, delete, create and rotate tiles.

Available subcommands:
  serve   - Serve the board to WebSocket and QUIC renderers
  view    - Drive a local board from the terminal
  layouts - Manage saved layouts`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd, viewCmd, layoutsCmd)
}

// loadConfig reads --config, falling back to the defaults when it is unset.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(configPath)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
