// Package injector assembles the application graph with wire.
package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/tileboard/internal/config"
	"github.com/zeusync/tileboard/internal/core/board"
	"github.com/zeusync/tileboard/internal/core/events/bus"
	"github.com/zeusync/tileboard/internal/core/observability/log"
	"github.com/zeusync/tileboard/internal/core/storage/interfaces"
	"github.com/zeusync/tileboard/internal/core/storage/sqlite"
	"github.com/zeusync/tileboard/internal/render/terminal"
	"github.com/zeusync/tileboard/internal/server"
)

var LoggerSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
)

var BoardSet = wire.NewSet(
	LoggerSet,
	bus.New,
	ProvideBoard,
	ProvideLayoutStore,
)

var ServerSet = wire.NewSet(
	BoardSet,
	ProvideSessionOptions,
	server.NewSession,
	ProvideServer,
)

var ViewerSet = wire.NewSet(
	BoardSet,
	ProvideViewOptions,
	terminal.New,
	wire.Struct(new(Viewer), "*"),
)

// Viewer is the terminal front end together with the board it drives.
type Viewer struct {
	View    *terminal.View
	Board   *board.Board
	Layouts interfaces.LayoutStore
}

func ProvideLogger(cfg *config.Config) (*log.Logger, func(), error) {
	opts, err := cfg.LogOptions()
	if err != nil {
		return nil, nil, err
	}
	logger, err := log.New(opts)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func ProvideBoard(cfg *config.Config, events bus.EventBus, logger log.Log) (*board.Board, error) {
	opts, err := cfg.BoardOptions()
	if err != nil {
		return nil, err
	}
	return board.New(opts, events, logger)
}

// ProvideLayoutStore returns a nil store when storage is disabled.
func ProvideLayoutStore(cfg *config.Config, logger log.Log) (interfaces.LayoutStore, func(), error) {
	if cfg.Storage.Path == "" {
		logger.Info("layout storage disabled")
		return nil, func() {}, nil
	}
	store, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("close layout store", log.Error(err))
		}
	}, nil
}

func ProvideSessionOptions(cfg *config.Config) server.SessionOptions {
	return server.SessionOptions{
		FrameInterval: cfg.Server.FrameInterval(),
		CommandBuffer: cfg.Server.CommandBuffer,
		SendBuffer:    cfg.Server.SendBuffer,
		Populate:      cfg.Board.Populate,
		Seed:          cfg.Board.Seed,
	}
}

func ProvideServer(cfg *config.Config, session *server.Session, logger log.Log) (*server.Server, error) {
	return server.New(cfg.Server, session, logger)
}

func ProvideViewOptions(cfg *config.Config) terminal.Options {
	return terminal.Options{
		FrameInterval: cfg.Server.FrameInterval(),
		Seed:          cfg.Board.Seed,
	}
}
