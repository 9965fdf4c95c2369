package injector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/tileboard/internal/config"
	"github.com/zeusync/tileboard/internal/core/board"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(dir, "layouts.db")
	cfg.Log.OutputPaths = []string{filepath.Join(dir, "tileboard.log")}
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Board.TilesNumber = 4
	return cfg
}

func TestInitializeServer(t *testing.T) {
	srv, cleanup, err := InitializeServer(testConfig(t))
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, srv.Session())
	assert.Nil(t, srv.QUICAddr())
}

func TestInitializeServerBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.Level = "loud"
	_, _, err := InitializeServer(cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Animation.Easing = "bounce"
	_, _, err = InitializeServer(cfg)
	assert.Error(t, err)
}

func TestInitializeViewer(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	defer screen.Fini()

	v, cleanup, err := InitializeViewer(testConfig(t), screen)
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, v.View)
	require.NotNil(t, v.Layouts)
	for _, name := range v.Board.Registry().Names() {
		assert.Equal(t, 16, v.Board.Registry().Capacity(name))
	}
}

func TestInitializeLayoutStore(t *testing.T) {
	cfg := testConfig(t)
	store, cleanup, err := InitializeLayoutStore(cfg)
	require.NoError(t, err)
	defer cleanup()

	_, err = store.Save(context.Background(), "empty", board.Layout{})
	require.NoError(t, err)
	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLayoutStoreDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Path = ""
	store, cleanup, err := InitializeLayoutStore(cfg)
	require.NoError(t, err)
	defer cleanup()
	assert.Nil(t, store)
}
