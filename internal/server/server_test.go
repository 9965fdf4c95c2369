package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/tileboard/internal/config"
	"github.com/zeusync/tileboard/internal/core/observability/log"
)

func testServerConfig() config.ServerConfig {
	cfg := config.Default().Server
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.QUICAddr = "127.0.0.1:0"
	cfg.WriteTimeout = time.Second
	return cfg
}

func TestServerRun(t *testing.T) {
	s := newTestSession(t, nil, SessionOptions{})
	srv, err := New(testServerConfig(), s, log.NewNop())
	require.NoError(t, err)
	assert.Same(t, s, srv.Session())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()

	select {
	case <-srv.Ready():
	case <-time.After(waitFor):
		t.Fatal("server not ready")
	}
	require.NotNil(t, srv.HTTPAddr())
	require.NotNil(t, srv.QUICAddr())

	resp, err := http.Get("http://" + srv.HTTPAddr().String() + "/healthz")
	require.NoError(t, err)
	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	http.DefaultClient.CloseIdleConnections()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])

	ws := dialWS(t, "http://"+srv.HTTPAddr().String()+"/ws")
	defer ws.Close()
	assert.Equal(t, MessageWelcome, readWS(t, ws).Type)

	qc := dialQUIC(t, srv.QUICAddr().String())
	defer qc.close()
	qc.send(t, Command{ID: "1", Action: ActionSnapshot})
	assert.Equal(t, MessageWelcome, qc.read(t).Type)

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(2 * waitFor):
		t.Fatal("server did not stop")
	}
}

func TestServerWithoutQUIC(t *testing.T) {
	cfg := testServerConfig()
	cfg.QUICAddr = ""
	srv, err := New(cfg, newTestSession(t, nil, SessionOptions{}), log.NewNop())
	require.NoError(t, err)
	assert.Nil(t, srv.QUICAddr())
}

func TestServerListenError(t *testing.T) {
	cfg := testServerConfig()
	cfg.HTTPAddr = "256.0.0.1:bad"
	srv, err := New(cfg, newTestSession(t, nil, SessionOptions{}), log.NewNop())
	require.NoError(t, err)
	assert.Error(t, srv.Run(context.Background()))
}

func TestHealthReportsStoppedSession(t *testing.T) {
	s := newTestSession(t, nil, SessionOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	cancel()
	require.NoError(t, <-errCh)

	srv, err := New(config.ServerConfig{}, s, log.NewNop())
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "stopped")
}
