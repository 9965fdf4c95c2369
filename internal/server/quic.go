package server

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"

	"github.com/zeusync/tileboard/internal/core/observability/log"
)

// ALPN is the application protocol negotiated on QUIC connections.
const ALPN = "tileboard"

// QUICOptions configures the QUIC listener. With no certificate files a
// self-signed certificate for localhost is generated.
type QUICOptions struct {
	CertFile     string
	KeyFile      string
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// QUICServer carries the same JSON messages as the websocket handler over
// one bidirectional stream per connection, one message per line. The client
// opens the stream and must write the first command before the welcome
// message is sent.
type QUICServer struct {
	session *Session
	opts    QUICOptions
	tls     *tls.Config
	conf    *quic.Config
	log     log.Log

	mu       sync.Mutex
	listener *quic.Listener
	conns    sync.WaitGroup
}

func NewQUICServer(session *Session, opts QUICOptions, logger log.Log) (*QUICServer, error) {
	tlsConf, err := loadTLSConfig(opts.CertFile, opts.KeyFile)
	if err != nil {
		return nil, err
	}
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = 30 * time.Second
	}
	return &QUICServer{
		session: session,
		opts:    opts,
		tls:     tlsConf,
		conf: &quic.Config{
			MaxIdleTimeout:  idle,
			KeepAlivePeriod: idle / 2,
		},
		log: logger.With(log.String("component", "quic")),
	}, nil
}

func (q *QUICServer) Listen(addr string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.listener != nil {
		return errors.New("quic server already listening")
	}
	l, err := quic.ListenAddr(addr, q.tls, q.conf)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	q.listener = l
	q.log.Info("quic listening", log.String("addr", l.Addr().String()))
	return nil
}

// Addr is nil until Listen succeeds.
func (q *QUICServer) Addr() net.Addr {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.listener == nil {
		return nil
	}
	return q.listener.Addr()
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed, then waits for open connections to finish.
func (q *QUICServer) Serve(ctx context.Context) error {
	q.mu.Lock()
	l := q.listener
	q.mu.Unlock()
	if l == nil {
		return errors.New("quic server is not listening")
	}
	defer q.conns.Wait()

	for {
		conn, err := l.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return nil
			}
			return errors.Wrap(err, "accept connection")
		}
		q.conns.Add(1)
		go func() {
			defer q.conns.Done()
			q.handleConn(ctx, conn)
		}()
	}
}

func (q *QUICServer) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.listener == nil {
		return nil
	}
	err := q.listener.Close()
	q.listener = nil
	return err
}

func (q *QUICServer) handleConn(ctx context.Context, conn *quic.Conn) {
	logger := q.log.With(log.String("remote_addr", conn.RemoteAddr().String()))
	stop := context.AfterFunc(ctx, func() {
		_ = conn.CloseWithError(0, "server shutting down")
	})
	defer stop()
	defer func() { _ = conn.CloseWithError(0, "") }()

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		logger.Debug("no stream opened", log.Error(err))
		return
	}
	c, err := q.session.attach(ctx, "quic")
	if err != nil {
		logger.Warn("attach failed", log.Error(err))
		return
	}
	logger = logger.With(log.String("client_id", c.id))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		err := q.writeLoop(stream, c)
		stream.CancelRead(0)
		if err != nil {
			logger.Debug("write loop ended", log.Error(err))
			for range c.send {
			}
		}
	}()

	if err := q.readLoop(ctx, stream, c.id); err != nil {
		logger.Debug("read loop ended", log.Error(err))
	}
	q.session.detach(c)
	<-writerDone
}

func (q *QUICServer) readLoop(ctx context.Context, stream *quic.Stream, clientID string) error {
	sc := bufio.NewScanner(stream)
	sc.Buffer(make([]byte, 0, 4096), maxCommandSize)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		// Scanner reuses its buffer; the session reads the line later.
		data := append([]byte(nil), line...)
		if err := q.session.SubmitRaw(ctx, clientID, data); err != nil {
			return errors.Wrap(err, "submit command")
		}
	}
	return errors.Wrap(sc.Err(), "read command")
}

func (q *QUICServer) writeLoop(stream *quic.Stream, c *client) error {
	w := bufio.NewWriter(stream)
	for data := range c.send {
		if q.opts.WriteTimeout > 0 {
			_ = stream.SetWriteDeadline(time.Now().Add(q.opts.WriteTimeout))
		}
		if _, err := w.Write(data); err != nil {
			return errors.Wrap(err, "write message")
		}
		if err := w.WriteByte('\n'); err != nil {
			return errors.Wrap(err, "write message")
		}
		// Batch whatever is already queued into one flush.
		if len(c.send) == 0 {
			if err := w.Flush(); err != nil {
				return errors.Wrap(err, "flush stream")
			}
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "flush stream")
	}
	return stream.Close()
}

func loadTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	if certFile == "" && keyFile == "" {
		return generateTLSConfig()
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, errors.Wrap(err, "load TLS certificate")
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPN},
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// generateTLSConfig creates a self-signed certificate for local development.
func generateTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, errors.Wrap(err, "generate key")
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{Organization: []string{"tileboard"}},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:     []string{"localhost"},
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, errors.Wrap(err, "create certificate")
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "load generated key pair")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPN},
		MinVersion:   tls.VersionTLS13,
	}, nil
}
