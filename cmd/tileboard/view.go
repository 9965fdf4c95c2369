package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/zeusync/tileboard/internal/injector"
)

var (
	viewLayout   string
	viewPopulate bool
	viewLogFile  string
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Drive a local board from the terminal",
	Long: `Draw the board top-down and edit it with the mouse.

Keys:
  1-4     activate, select, delete, create mode
  g       next creation group
  r       rotate the selected tile
  x       reset all active tiles
  p       populate the grid
  h       place the hero on the selected tile
  w/s a/d move and turn the hero
  arrows  pan
  q, Esc  quit

Shift-click deletes in any mode.`,
	RunE: runView,
}

func init() {
	viewCmd.Flags().StringVar(&viewLayout, "layout", "", "load a saved layout before starting")
	viewCmd.Flags().BoolVar(&viewPopulate, "populate", false, "fill the board with random tiles")
	viewCmd.Flags().StringVar(&viewLogFile, "log-file", "tileboard-view.log", "log destination while the terminal is in use")
}

func runView(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// The terminal owns stderr while the view is running.
	cfg.Log.OutputPaths = []string{viewLogFile}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()

	viewer, cleanup, err := injector.InitializeViewer(cfg, screen)
	if err != nil {
		return err
	}
	defer cleanup()

	if viewLayout != "" {
		if viewer.Layouts == nil {
			return fmt.Errorf("load layout %q: storage is disabled", viewLayout)
		}
		l, err := viewer.Layouts.Load(cmd.Context(), viewLayout)
		if err != nil {
			return err
		}
		if err := viewer.Board.Restore(l); err != nil {
			return err
		}
	} else if viewPopulate || cfg.Board.Populate {
		viewer.View.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone))
	}
	return viewer.View.Run(cmd.Context())
}
