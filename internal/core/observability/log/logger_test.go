package log

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.log")
	logger, err := New(Options{Level: LevelDebug, OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.With(String("component", "test")).Info("tile created",
		String("group", "first"),
		Int("index", 3),
		Error(errors.New("boom")),
		Error(nil))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Contains(t, string(data), `"index":3`)
	assert.Contains(t, string(data), `"error":"boom"`)
}

func TestLoggerLevelGate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.log")
	logger, err := New(Options{Level: LevelWarn, OutputPaths: []string{path}})
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, logger.GetLevel())

	logger.Log(LevelInfo, "hidden")
	logger.SetLevel(LevelDebug)
	logger.Log(LevelInfo, "shown")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestWithContextRequestID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := New(Options{Level: LevelInfo, OutputPaths: []string{path}})
	require.NoError(t, err)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	logger.WithContext(ctx).Info("with id")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"request_id":"req-1"`)
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()
	logger.Info("nothing")
	assert.NotNil(t, logger.With(Bool("k", true)))
}
