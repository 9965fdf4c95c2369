//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/gdamore/tcell/v2"
	"github.com/google/wire"

	"github.com/zeusync/tileboard/internal/config"
	"github.com/zeusync/tileboard/internal/core/storage/interfaces"
	"github.com/zeusync/tileboard/internal/server"
)

func InitializeServer(cfg *config.Config) (*server.Server, func(), error) {
	wire.Build(ServerSet)
	return nil, nil, nil
}

func InitializeViewer(cfg *config.Config, screen tcell.Screen) (*Viewer, func(), error) {
	wire.Build(ViewerSet)
	return nil, nil, nil
}

func InitializeLayoutStore(cfg *config.Config) (interfaces.LayoutStore, func(), error) {
	wire.Build(LoggerSet, ProvideLayoutStore)
	return nil, nil, nil
}
