// Package board is the interaction core of a tile board: it routes pointer
// actions through the resolver to the registry and animator according to the
// current tool mode.
//
// A Board is not safe for concurrent use. Callers serialise every method,
// including Tick, onto one goroutine.
package board

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/tileboard/internal/core/animation"
	"github.com/zeusync/tileboard/internal/core/events/bus"
	"github.com/zeusync/tileboard/internal/core/geom"
	"github.com/zeusync/tileboard/internal/core/instancing"
	"github.com/zeusync/tileboard/internal/core/observability/log"
	"github.com/zeusync/tileboard/internal/core/picking"
	"github.com/zeusync/tileboard/internal/core/tilestate"
)

const eventSource = "board"

type Options struct {
	Groups []string
	// TilesNumber is the side of the square grid. Each group holds TilesNumber² instances.
	TilesNumber  int
	GroundExtent float32
	Camera       picking.Camera
	Animation    animation.Options
}

func DefaultOptions() Options {
	return Options{
		Groups:       instancing.DefaultGroupNames,
		TilesNumber:  30,
		GroundExtent: 100,
		Camera:       picking.DefaultCamera(),
		Animation:    animation.DefaultOptions(),
	}
}

// Outcome reports what DispatchPointerAction did.
type Outcome struct {
	Action Action         `json:"action"`
	Ref    instancing.Ref `json:"ref"`
	// Started is false when a toggle hit a tile that was already animating.
	Started bool `json:"started,omitempty"`
}

// Preview is the placement rollover shown under the pointer in create mode.
type Preview struct {
	Position mgl32.Vec3 `json:"position"`
	Visible  bool       `json:"visible"`
}

type Board struct {
	opts   Options
	events bus.EventBus
	log    log.Log

	registry *instancing.Registry
	store    *tilestate.Store
	animator *animation.Animator
	resolver *picking.Resolver
	camera   picking.Camera

	mode          ToolMode
	creationGroup string
	selected      instancing.Ref
	hasSelection  bool
	preview       Preview
	highlighter   Highlighter
	hero          Hero
	heroDirty     bool

	clock time.Duration
}

func New(opts Options, events bus.EventBus, logger log.Log) (*Board, error) {
	if opts.TilesNumber <= 0 {
		return nil, fmt.Errorf("tiles number %d: %w", opts.TilesNumber, instancing.ErrInvalidRegistry)
	}
	if events == nil {
		events = bus.New()
	}
	if logger == nil {
		logger = log.NewNop()
	}

	b := &Board{
		opts:        opts,
		events:      events,
		log:         logger.With(log.String("component", "board")),
		camera:      opts.Camera,
		mode:        ToolActivate,
		highlighter: newHighlighter(),
		hero:        newHero(),
	}
	if err := b.reset(); err != nil {
		return nil, err
	}
	b.creationGroup = b.registry.Names()[0]
	if b.registry.Has("first") {
		b.creationGroup = "first"
	}
	return b, nil
}

// reset replaces the registry and every structure bound to it.
func (b *Board) reset() error {
	reg, err := instancing.NewRegistry(b.opts.Groups, b.opts.TilesNumber*b.opts.TilesNumber)
	if err != nil {
		return err
	}
	b.registry = reg
	b.store = tilestate.NewStore()
	b.animator = animation.New(reg, b.store, b.opts.Animation)
	b.resolver = picking.NewResolver(reg, b.opts.GroundExtent)
	b.clearSelection()
	b.preview = Preview{}
	if b.hero.Placed {
		b.resolver.SetBody(heroBody, b.hero.body())
	}
	return nil
}

func (b *Board) Registry() *instancing.Registry { return b.registry }
func (b *Board) Store() *tilestate.Store        { return b.store }
func (b *Board) Animator() *animation.Animator  { return b.animator }
func (b *Board) Events() bus.EventBus           { return b.events }
func (b *Board) Camera() picking.Camera         { return b.camera }
func (b *Board) ToolMode() ToolMode             { return b.mode }
func (b *Board) CreationGroup() string          { return b.creationGroup }
func (b *Board) Preview() Preview               { return b.preview }
func (b *Board) Highlighter() Highlighter       { return b.highlighter }
func (b *Board) Hero() Hero                     { return b.hero }
func (b *Board) Clock() time.Duration           { return b.clock }
func (b *Board) Options() Options               { return b.opts }

func (b *Board) SetCamera(c picking.Camera) { b.camera = c }

// Selection returns the selected tile, if any.
func (b *Board) Selection() (instancing.Ref, bool) {
	return b.selected, b.hasSelection
}

// SetToolMode switches the pointer tool. Any mode other than select clears
// the selection. tool.changed is published only when the mode differs.
func (b *Board) SetToolMode(mode ToolMode) error {
	if _, err := ParseToolMode(string(mode)); err != nil {
		return err
	}
	if mode != ToolSelect && b.hasSelection {
		b.clearSelection()
		b.publish(bus.SelectionCleared, instancing.Ref{}, nil)
	}
	if mode != ToolCreate {
		b.preview.Visible = false
	}
	prev := b.mode
	if prev == mode {
		return nil
	}
	b.mode = mode
	b.log.Debug("tool mode changed", log.String("from", string(prev)), log.String("to", string(mode)))
	b.publish(bus.ToolChanged, instancing.Ref{}, string(mode))
	return nil
}

// SetCreationGroup picks the group new tiles are appended to.
func (b *Board) SetCreationGroup(name string) error {
	if !b.registry.Has(name) {
		return fmt.Errorf("creation group %q: %w", name, instancing.ErrUnknownGroup)
	}
	b.creationGroup = name
	return nil
}

// DispatchPointerAction applies the current tool to whatever is under the
// pointer. A Shift-modified pointer deletes regardless of mode.
func (b *Board) DispatchPointerAction(p picking.Pointer) (Outcome, error) {
	hit, ok, err := b.resolver.Resolve(p, b.camera)
	if err != nil {
		return Outcome{Action: ActionNone}, err
	}

	if ok {
		switch {
		case p.Shift || b.mode == ToolDelete:
			return b.deleteTile(hit.Ref)
		case b.mode == ToolSelect:
			b.selectTile(hit.Ref)
			return Outcome{Action: ActionSelect, Ref: hit.Ref}, nil
		case b.mode == ToolActivate:
			return b.toggleTile(hit.Ref)
		}
		return Outcome{Action: ActionNone, Ref: hit.Ref}, nil
	}

	if b.mode != ToolCreate {
		return Outcome{Action: ActionNone}, nil
	}
	point, onGround, err := b.resolver.ProbeGround(p, b.camera)
	if err != nil || !onGround {
		return Outcome{Action: ActionNone}, err
	}
	return b.createTile(picking.SnapToCell(point))
}

func (b *Board) toggleTile(ref instancing.Ref) (Outcome, error) {
	started, err := b.animator.Animate(ref, !b.store.IsActive(ref))
	if err != nil {
		return Outcome{Action: ActionNone}, fmt.Errorf("toggle %s: %w", ref, err)
	}
	if !started {
		b.log.Debug("toggle ignored, tile animating", log.String("ref", ref.String()))
	}
	return Outcome{Action: ActionToggle, Ref: ref, Started: started}, nil
}

func (b *Board) deleteTile(ref instancing.Ref) (Outcome, error) {
	if err := b.animator.Compose(ref, geom.Hide); err != nil {
		return Outcome{Action: ActionNone}, err
	}
	if b.hasSelection && b.selected == ref {
		b.clearSelection()
		b.publish(bus.SelectionCleared, instancing.Ref{}, nil)
	}
	b.publish(bus.TileDeleted, ref, nil)
	return Outcome{Action: ActionDelete, Ref: ref}, nil
}

func (b *Board) createTile(at mgl32.Vec3) (Outcome, error) {
	ref, err := b.registry.Add(b.creationGroup, geom.At(at))
	if err != nil {
		b.log.Warn("tile not created", log.String("group", b.creationGroup), log.Error(err))
		return Outcome{Action: ActionNone}, fmt.Errorf("create in %s: %w", b.creationGroup, err)
	}
	b.preview.Visible = false
	b.publish(bus.TileCreated, ref, at)
	return Outcome{Action: ActionCreate, Ref: ref}, nil
}

func (b *Board) selectTile(ref instancing.Ref) {
	b.selected = ref
	b.hasSelection = true
	if m, err := b.registry.At(ref); err == nil {
		b.highlighter.show(geom.Position(m))
	}
	b.publish(bus.TileSelected, ref, nil)
}

func (b *Board) clearSelection() {
	b.selected = instancing.Ref{}
	b.hasSelection = false
	b.highlighter.Visible = false
}

// RotateSelected turns the selected tile a quarter turn about its local Y axis.
func (b *Board) RotateSelected() error {
	if !b.hasSelection {
		return ErrNoSelection
	}
	if err := b.animator.Compose(b.selected, geom.QuarterTurnY); err != nil {
		return err
	}
	b.publish(bus.TileRotated, b.selected, nil)
	return nil
}

// ResetAll requests deactivation of every active tile and returns how many
// animations were started. Tiles still animating are left alone.
func (b *Board) ResetAll() (int, error) {
	started := 0
	for _, ref := range b.store.ActiveRefs(b.registry.Less) {
		ok, err := b.animator.Animate(ref, false)
		if err != nil {
			return started, err
		}
		if ok {
			started++
		}
	}
	b.log.Info("reset all tiles", log.Int("started", started))
	return started, nil
}

// Hover moves the placement preview to the cell under the pointer. The preview
// hides over a tile and stays put when the ground is missed.
func (b *Board) Hover(p picking.Pointer) (Preview, error) {
	if _, ok, err := b.resolver.Resolve(p, b.camera); err != nil {
		return b.preview, err
	} else if ok {
		b.preview.Visible = false
		return b.preview, nil
	}
	point, ok, err := b.resolver.ProbeGround(p, b.camera)
	if err != nil {
		return b.preview, err
	}
	if ok {
		b.preview = Preview{Position: picking.SnapToCell(point), Visible: true}
	}
	return b.preview, nil
}

// Tick advances the board clock, every running animation and the highlighter.
func (b *Board) Tick(dt time.Duration) ([]animation.Completion, error) {
	b.clock += dt
	done, err := b.animator.Tick(dt)
	for _, c := range done {
		typ := bus.TileDeactivated
		if c.Active {
			typ = bus.TileActivated
		}
		b.publish(typ, c.Ref, nil)
	}
	b.highlighter.tick(b.clock)
	return done, err
}

func (b *Board) publish(typ string, ref instancing.Ref, data any) {
	if err := b.events.Publish(bus.NewEvent(typ, eventSource, ref, data)); err != nil {
		b.log.Warn("event handler failed", log.String("event", typ), log.Error(err))
	}
}
