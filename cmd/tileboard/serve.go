package main

import (
	"github.com/spf13/cobra"

	"github.com/zeusync/tileboard/internal/injector"
)

var (
	serveHTTPAddr string
	serveQUICAddr string
	servePopulate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the board to WebSocket and QUIC renderers",
	Long: `Run one board session and expose it on /ws (WebSocket) and, when an
address is configured, over QUIC. Flags override the config file.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http", "", "HTTP listen address")
	serveCmd.Flags().StringVar(&serveQUICAddr, "quic", "", "QUIC listen address")
	serveCmd.Flags().BoolVar(&servePopulate, "populate", false, "fill the board with random tiles at startup")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveHTTPAddr != "" {
		cfg.Server.HTTPAddr = serveHTTPAddr
	}
	if serveQUICAddr != "" {
		cfg.Server.QUICAddr = serveQUICAddr
	}
	if servePopulate {
		cfg.Board.Populate = true
	}

	srv, cleanup, err := injector.InitializeServer(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	return srv.Run(cmd.Context())
}
