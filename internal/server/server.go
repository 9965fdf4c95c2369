// Package server exposes a tile board session to remote renderers over
// WebSocket and QUIC.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/tileboard/internal/config"
	"github.com/zeusync/tileboard/internal/core/observability/log"
)

const shutdownTimeout = 5 * time.Second

// Server runs a session together with its network listeners.
type Server struct {
	cfg     config.ServerConfig
	session *Session
	quic    *QUICServer
	log     log.Log

	mu       sync.Mutex
	httpAddr net.Addr
	ready    chan struct{}
}

// New builds a server around session. The QUIC listener is created only when
// cfg.QUICAddr is set.
func New(cfg config.ServerConfig, session *Session, logger log.Log) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		session: session,
		log:     logger.With(log.String("component", "server")),
		ready:   make(chan struct{}),
	}
	if cfg.QUICAddr != "" {
		q, err := NewQUICServer(session, QUICOptions{
			CertFile:     cfg.CertFile,
			KeyFile:      cfg.KeyFile,
			WriteTimeout: cfg.WriteTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		s.quic = q
	}
	return s, nil
}

func (s *Server) Session() *Session { return s.session }

// Handler routes /ws to the websocket bridge and /healthz to a liveness probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", NewWebSocketHandler(s.session, s.cfg.WriteTimeout, s.log))
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	select {
	case <-s.session.done:
		status = "stopped"
		code = http.StatusServiceUnavailable
	default:
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// Ready is closed once every listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// HTTPAddr is the bound HTTP address, nil before Ready.
func (s *Server) HTTPAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpAddr
}

// QUICAddr is the bound QUIC address, nil when QUIC is disabled.
func (s *Server) QUICAddr() net.Addr {
	if s.quic == nil {
		return nil
	}
	return s.quic.Addr()
}

// Run serves until ctx is cancelled or a listener fails. Listeners are shut
// down before the session stops so clients see their connections close.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.cfg.HTTPAddr)
	}
	if s.quic != nil {
		if err := s.quic.Listen(s.cfg.QUICAddr); err != nil {
			_ = ln.Close()
			return err
		}
	}
	s.mu.Lock()
	s.httpAddr = ln.Addr()
	s.mu.Unlock()
	close(s.ready)

	sessionCtx, stopSession := context.WithCancel(context.Background())
	defer stopSession()
	sessionDone := make(chan error, 1)
	go func() { sessionDone <- s.session.Run(sessionCtx) }()

	g, gctx := errgroup.WithContext(ctx)

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		s.log.Info("http listening", log.String("addr", ln.Addr().String()))
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve http")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Hijacked websocket connections are not tracked by Shutdown; they
		// end when the session closes their queues.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if s.quic != nil {
		g.Go(func() error { return s.quic.Serve(gctx) })
		g.Go(func() error {
			<-gctx.Done()
			return s.quic.Close()
		})
	}

	g.Go(func() error {
		select {
		case err := <-sessionDone:
			sessionDone <- err
			if err != nil {
				return errors.Wrap(err, "session")
			}
			return errors.New("session stopped unexpectedly")
		case <-gctx.Done():
			return nil
		}
	})

	// Closing the session ends every client queue, which unblocks the
	// connection handlers the listeners are waiting on.
	go func() {
		<-gctx.Done()
		stopSession()
	}()

	err = g.Wait()
	stopSession()
	if serr := <-sessionDone; serr != nil && err == nil {
		err = errors.Wrap(serr, "session")
	}
	s.log.Info("server stopped")
	return err
}
