package server

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"testing"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/tileboard/internal/core/observability/log"
)

type quicClient struct {
	conn   *quic.Conn
	stream *quic.Stream
	r      *bufio.Reader
}

func dialQUIC(t *testing.T, addr string) *quicClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	conn, err := quic.DialAddr(ctx, addr, &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{ALPN},
	}, nil)
	require.NoError(t, err)
	stream, err := conn.OpenStreamSync(ctx)
	require.NoError(t, err)
	return &quicClient{conn: conn, stream: stream, r: bufio.NewReader(stream)}
}

func (c *quicClient) send(t *testing.T, cmd Command) {
	t.Helper()
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	_, err = c.stream.Write(append(data, '\n'))
	require.NoError(t, err)
}

func (c *quicClient) read(t *testing.T) wireMessage {
	t.Helper()
	require.NoError(t, c.stream.SetReadDeadline(time.Now().Add(waitFor)))
	line, err := c.r.ReadBytes('\n')
	require.NoError(t, err)
	var m wireMessage
	require.NoError(t, json.Unmarshal(line, &m))
	return m
}

func (c *quicClient) close() {
	_ = c.conn.CloseWithError(0, "")
}

func TestQUICRoundTrip(t *testing.T) {
	s := newTestSession(t, nil, SessionOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sessionErr := make(chan error, 1)
	go func() { sessionErr <- s.Run(ctx) }()

	q, err := NewQUICServer(s, QUICOptions{WriteTimeout: time.Second}, log.NewNop())
	require.NoError(t, err)
	require.NoError(t, q.Listen("127.0.0.1:0"))
	require.NotNil(t, q.Addr())
	assert.Error(t, q.Listen("127.0.0.1:0"))

	serveErr := make(chan error, 1)
	go func() { serveErr <- q.Serve(ctx) }()

	c := dialQUIC(t, q.Addr().String())
	defer c.close()

	// The stream reaches the server with its first command.
	c.send(t, Command{ID: "snap", Action: ActionSnapshot})
	welcome := c.read(t)
	require.Equal(t, MessageWelcome, welcome.Type)

	var reply *wireReply
	for reply == nil {
		if m := c.read(t); m.Type == MessageReply {
			reply = m.Reply
		}
	}
	assert.Equal(t, "snap", reply.ID)
	require.True(t, reply.OK, reply.Error)
	var snap SnapshotResult
	require.NoError(t, json.Unmarshal(reply.Result, &snap))
	assert.Len(t, snap.Snapshot.Groups, 10)

	c.send(t, Command{ID: "bad", Action: ActionPlaceHero})
	for {
		m := c.read(t)
		if m.Type == MessageReply {
			assert.Equal(t, "bad", m.Reply.ID)
			assert.False(t, m.Reply.OK)
			break
		}
	}

	cancel()
	select {
	case err := <-serveErr:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("quic server did not stop")
	}
	require.NoError(t, <-sessionErr)
	assert.NoError(t, q.Close())
}

func TestQUICServeRequiresListen(t *testing.T) {
	s := newTestSession(t, nil, SessionOptions{})
	q, err := NewQUICServer(s, QUICOptions{}, log.NewNop())
	require.NoError(t, err)
	assert.Nil(t, q.Addr())
	assert.Error(t, q.Serve(context.Background()))
	assert.NoError(t, q.Close())
}

func TestLoadTLSConfig(t *testing.T) {
	conf, err := loadTLSConfig("", "")
	require.NoError(t, err)
	require.Len(t, conf.Certificates, 1)
	assert.Equal(t, []string{ALPN}, conf.NextProtos)
	assert.Equal(t, uint16(tls.VersionTLS13), conf.MinVersion)

	_, err = loadTLSConfig("missing.pem", "missing.key")
	assert.Error(t, err)
}
