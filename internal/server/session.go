package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/tileboard/internal/core/board"
	"github.com/zeusync/tileboard/internal/core/events/bus"
	"github.com/zeusync/tileboard/internal/core/observability/log"
	"github.com/zeusync/tileboard/internal/core/storage/interfaces"
)

type SessionOptions struct {
	FrameInterval time.Duration
	CommandBuffer int
	SendBuffer    int
	// Populate fills the board with random tiles before the first frame.
	Populate bool
	Seed     uint64
}

func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		FrameInterval: time.Second / 60,
		CommandBuffer: 64,
		SendBuffer:    32,
	}
}

// client is one connected renderer. Only the session loop sends on or
// closes send.
type client struct {
	id        string
	transport string
	send      chan []byte
}

type envelope struct {
	client string
	cmd    Command
	// err rejects a command that could not be decoded.
	err  error
	fn   func(*board.Board)
	done chan struct{}
}

// Session owns one board and serialises every access to it onto the
// goroutine running Run.
type Session struct {
	board   *board.Board
	layouts interfaces.LayoutStore
	opts    SessionOptions
	log     log.Log
	rng     *rand.Rand

	commands chan envelope
	joins    chan *client
	leaves   chan *client
	done     chan struct{}

	clients map[string]*client
	seq     uint64
}

// NewSession binds a board to a session. layouts may be nil, which disables
// save_layout and load_layout.
func NewSession(b *board.Board, layouts interfaces.LayoutStore, opts SessionOptions, logger log.Log) *Session {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultSessionOptions().FrameInterval
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Session{
		board:    b,
		layouts:  layouts,
		opts:     opts,
		log:      logger.With(log.String("component", "session")),
		rng:      rand.New(rand.NewPCG(seed, seed>>1|1)),
		commands: make(chan envelope, opts.CommandBuffer),
		joins:    make(chan *client),
		leaves:   make(chan *client),
		done:     make(chan struct{}),
		clients:  make(map[string]*client),
	}
}

// Run drives the board until ctx is cancelled. It returns nil on cancellation.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	sub, err := s.board.Events().Subscribe(bus.Wildcard, func(e bus.Event) error {
		s.broadcast(Message{Type: MessageEvent, Event: &e})
		return nil
	})
	if err != nil {
		return err
	}
	defer func() { _ = sub.Cancel() }()
	defer s.closeClients()

	if s.opts.Populate {
		if _, err := s.board.Populate(s.rng); err != nil {
			return fmt.Errorf("populate board: %w", err)
		}
	}

	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()
	last := time.Now()

	s.log.Info("session started", log.Duration("frame_interval", s.opts.FrameInterval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("session stopped", log.Uint64("frames", s.seq))
			return nil

		case c := <-s.joins:
			s.clients[c.id] = c
			s.sendTo(c, Message{Type: MessageWelcome, Welcome: &Welcome{
				ClientID: c.id,
				Snapshot: s.board.Snapshot(),
				Layout:   s.board.Layout(),
			}})
			s.log.Info("client attached", log.String("client_id", c.id), log.String("transport", c.transport))

		case c := <-s.leaves:
			if _, ok := s.clients[c.id]; ok {
				delete(s.clients, c.id)
				close(c.send)
				s.log.Info("client detached", log.String("client_id", c.id))
			}

		case env := <-s.commands:
			if env.fn != nil {
				env.fn(s.board)
				close(env.done)
				continue
			}
			reply := s.execute(ctx, env)
			if c, ok := s.clients[env.client]; ok {
				s.sendTo(c, Message{Type: MessageReply, Reply: &reply})
			}

		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if _, err := s.board.Tick(dt); err != nil {
				s.log.Error("tick failed", log.Error(err))
			}
			s.flush()
		}
	}
}

func (s *Session) flush() {
	f, ok := s.board.Flush()
	if !ok {
		return
	}
	s.seq++
	s.broadcast(Message{Type: MessageFrame, Frame: &Frame{Seq: s.seq, Frame: f}})
}

// Submit queues cmd on behalf of clientID. The reply is delivered on the
// client's send queue.
func (s *Session) Submit(ctx context.Context, clientID string, cmd Command) error {
	return s.enqueueCommand(ctx, envelope{client: clientID, cmd: cmd})
}

// SubmitRaw decodes a JSON command. Undecodable input is answered with an
// error reply rather than failing the connection.
func (s *Session) SubmitRaw(ctx context.Context, clientID string, data []byte) error {
	env := envelope{client: clientID}
	if err := json.Unmarshal(data, &env.cmd); err != nil {
		env.err = fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return s.enqueueCommand(ctx, env)
}

func (s *Session) enqueueCommand(ctx context.Context, env envelope) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.commands <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	}
}

// Do runs fn on the session goroutine and waits for it.
func (s *Session) Do(ctx context.Context, fn func(*board.Board)) error {
	done := make(chan struct{})
	select {
	case s.commands <- envelope{fn: fn, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	}
}

func (s *Session) attach(ctx context.Context, transport string) (*client, error) {
	c := &client{
		id:        uuid.NewString(),
		transport: transport,
		send:      make(chan []byte, s.opts.SendBuffer),
	}
	select {
	case s.joins <- c:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrSessionClosed
	}
}

func (s *Session) detach(c *client) {
	select {
	case s.leaves <- c:
	case <-s.done:
	}
}

func (s *Session) closeClients() {
	for id, c := range s.clients {
		close(c.send)
		delete(s.clients, id)
	}
}

func (s *Session) broadcast(m Message) {
	if len(s.clients) == 0 {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		s.log.Error("encode message", log.String("type", m.Type), log.Error(err))
		return
	}
	for _, c := range s.clients {
		s.enqueue(c, data, m.Type)
	}
}

func (s *Session) sendTo(c *client, m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		s.log.Error("encode message", log.String("type", m.Type), log.Error(err))
		return
	}
	s.enqueue(c, data, m.Type)
}

// enqueue never blocks the loop; a client that falls behind loses messages.
func (s *Session) enqueue(c *client, data []byte, typ string) {
	select {
	case c.send <- data:
	default:
		s.log.Warn("client queue full, dropping message",
			log.String("client_id", c.id), log.String("type", typ))
	}
}

func (s *Session) execute(ctx context.Context, env envelope) Reply {
	cmd := env.cmd
	if env.err != nil {
		return Reply{ID: cmd.ID, OK: false, Error: env.err.Error()}
	}
	result, err := s.dispatch(ctx, cmd)
	if err != nil {
		s.log.Debug("command failed", log.String("action", cmd.Action), log.Error(err))
		return Reply{ID: cmd.ID, OK: false, Error: err.Error()}
	}
	return Reply{ID: cmd.ID, OK: true, Result: result}
}

func (s *Session) dispatch(ctx context.Context, cmd Command) (any, error) {
	b := s.board
	switch cmd.Action {
	case ActionSetToolMode:
		mode, err := board.ParseToolMode(cmd.Mode)
		if err != nil {
			return nil, err
		}
		return nil, b.SetToolMode(mode)

	case ActionSetCreationGroup:
		return nil, b.SetCreationGroup(cmd.Group)

	case ActionPointer:
		if cmd.Pointer == nil {
			return nil, ErrMissingPointer
		}
		return b.DispatchPointerAction(*cmd.Pointer)

	case ActionHover:
		if cmd.Pointer == nil {
			return nil, ErrMissingPointer
		}
		return b.Hover(*cmd.Pointer)

	case ActionRotateSelected:
		return nil, b.RotateSelected()

	case ActionResetAll:
		n, err := b.ResetAll()
		return CountResult{Count: n}, err

	case ActionPopulate:
		n, err := b.Populate(s.rng)
		return CountResult{Count: n}, err

	case ActionPlaceHero:
		return nil, b.PlaceHero()

	case ActionRotateHero:
		return nil, b.RotateHero(cmd.Clockwise)

	case ActionMoveHero:
		return nil, b.MoveHero(cmd.Forward)

	case ActionSnapshot:
		return SnapshotResult{Snapshot: b.Snapshot(), Layout: b.Layout()}, nil

	case ActionSaveLayout:
		if s.layouts == nil {
			return nil, ErrStorageDisabled
		}
		if cmd.Name == "" {
			return nil, ErrMissingName
		}
		id, err := s.layouts.Save(ctx, cmd.Name, b.Layout())
		return SaveResult{ID: id}, err

	case ActionLoadLayout:
		if s.layouts == nil {
			return nil, ErrStorageDisabled
		}
		if cmd.Name == "" {
			return nil, ErrMissingName
		}
		l, err := s.layouts.Load(ctx, cmd.Name)
		if err != nil {
			return nil, err
		}
		if err := b.Restore(l); err != nil {
			return nil, err
		}
		return SnapshotResult{Snapshot: b.Snapshot(), Layout: b.Layout()}, nil
	}
	return nil, fmt.Errorf("%q: %w", cmd.Action, ErrUnknownAction)
}
