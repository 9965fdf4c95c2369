// Package terminal draws a board top-down in a terminal and feeds mouse and
// keyboard input back into it.
package terminal

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/chewxy/math32"
	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/tileboard/internal/core/board"
	"github.com/zeusync/tileboard/internal/core/geom"
	"github.com/zeusync/tileboard/internal/core/instancing"
	"github.com/zeusync/tileboard/internal/core/observability/log"
	"github.com/zeusync/tileboard/internal/core/picking"
	"github.com/zeusync/tileboard/internal/core/tilestate"
)

// cellWidth is the number of columns one world unit spans, so cells come out
// roughly square.
const cellWidth = 2

// Virtual viewport the look-down camera renders into.
const (
	viewportSize = 100
	eyeHeight    = 10
)

type Options struct {
	FrameInterval time.Duration
	Seed          uint64
}

func DefaultOptions() Options {
	return Options{FrameInterval: 33 * time.Millisecond}
}

// View owns the board for as long as Run is active; nothing else may touch
// it concurrently.
type View struct {
	screen tcell.Screen
	board  *board.Board
	opts   Options
	log    log.Log
	rng    *rand.Rand

	panX, panZ int
	buttons    tcell.ButtonMask
	status     string
}

func New(screen tcell.Screen, b *board.Board, opts Options, logger log.Log) *View {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultOptions().FrameInterval
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &View{
		screen: screen,
		board:  b,
		opts:   opts,
		log:    logger.With(log.String("component", "terminal")),
		rng:    rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// Run polls the screen and ticks the board until the user quits or ctx is
// cancelled. The caller owns screen Init and Fini.
func (v *View) Run(ctx context.Context) error {
	v.screen.EnableMouse()
	defer v.screen.DisableMouse()

	events := make(chan tcell.Event, 64)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-stop:
				return
			}
		}
	}()

	ticker := time.NewTicker(v.opts.FrameInterval)
	defer ticker.Stop()
	last := time.Now()
	v.Draw()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if !v.HandleEvent(ev) {
				return nil
			}
		case now := <-ticker.C:
			if _, err := v.board.Tick(now.Sub(last)); err != nil {
				v.log.Error("tick failed", log.Error(err))
			}
			last = now
			// Terminal output is immediate; the dirty set only needs draining.
			v.board.Flush()
			v.Draw()
		}
	}
}

// HandleEvent applies one input event. It returns false when the user asked
// to quit.
func (v *View) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
	case *tcell.EventKey:
		return v.handleKey(ev)
	case *tcell.EventMouse:
		v.handleMouse(ev)
	}
	return true
}

func (v *View) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyLeft:
		v.panX--
	case tcell.KeyRight:
		v.panX++
	case tcell.KeyUp:
		v.panZ--
	case tcell.KeyDown:
		v.panZ++
	case tcell.KeyRune:
		return v.handleRune(ev.Rune())
	}
	return true
}

func (v *View) handleRune(r rune) bool {
	b := v.board
	var err error
	switch r {
	case 'q':
		return false
	case '1':
		err = b.SetToolMode(board.ToolActivate)
	case '2':
		err = b.SetToolMode(board.ToolSelect)
	case '3':
		err = b.SetToolMode(board.ToolDelete)
	case '4':
		err = b.SetToolMode(board.ToolCreate)
	case 'g':
		err = b.SetCreationGroup(nextGroup(b.Registry().Names(), b.CreationGroup()))
	case 'r':
		err = b.RotateSelected()
	case 'x':
		var n int
		n, err = b.ResetAll()
		v.status = fmt.Sprintf("reset %d tiles", n)
	case 'p':
		var n int
		n, err = b.Populate(v.rng)
		v.status = fmt.Sprintf("populated %d tiles", n)
	case 'h':
		err = b.PlaceHero()
	case 'w':
		err = b.MoveHero(true)
	case 's':
		err = b.MoveHero(false)
	case 'a':
		err = b.RotateHero(false)
	case 'd':
		err = b.RotateHero(true)
	default:
		return true
	}
	if err != nil {
		v.status = err.Error()
	}
	return true
}

func nextGroup(names []string, current string) string {
	for i, n := range names {
		if n == current {
			return names[(i+1)%len(names)]
		}
	}
	if len(names) == 0 {
		return current
	}
	return names[0]
}

// handleMouse dispatches on the press edge of the primary button and moves
// the placement preview on every event.
func (v *View) handleMouse(ev *tcell.EventMouse) {
	col, row := ev.Position()
	x, z := v.cellToWorld(col, row)
	p, cam := lookDown(v.board.Camera(), x, z)
	p.Shift = ev.Modifiers()&tcell.ModShift != 0

	prev := v.board.Camera()
	v.board.SetCamera(cam)
	defer v.board.SetCamera(prev)

	pressed := ev.Buttons()&tcell.Button1 != 0 && v.buttons&tcell.Button1 == 0
	v.buttons = ev.Buttons()

	if _, err := v.board.Hover(p); err != nil {
		v.log.Debug("hover failed", log.Error(err))
	}
	if !pressed {
		return
	}
	out, err := v.board.DispatchPointerAction(p)
	if err != nil {
		v.status = err.Error()
		return
	}
	if out.Action != board.ActionNone {
		v.status = fmt.Sprintf("%s %s", out.Action, out.Ref)
	}
}

// lookDown returns a camera straight above (x, z) and the pointer at the
// center of its viewport, so the picking ray runs vertically through the
// clicked cell.
func lookDown(base picking.Camera, x, z float32) (picking.Pointer, picking.Camera) {
	cam := base
	cam.Position = mgl32.Vec3{x, eyeHeight, z}
	cam.Target = mgl32.Vec3{x, 0, z}
	cam.Up = mgl32.Vec3{0, 0, -1}
	if cam.Far < eyeHeight+1 {
		cam.Far = eyeHeight + 1
	}
	return picking.Pointer{
		X:      viewportSize / 2,
		Y:      viewportSize / 2,
		Width:  viewportSize,
		Height: viewportSize,
	}, cam
}

// cellToWorld maps a screen cell to the world point under its middle. The
// result is never on a cell boundary.
func (v *View) cellToWorld(col, row int) (x, z float32) {
	w, h := v.mapSize()
	x = float32(v.panX) + float32(col-w/2)/cellWidth + 0.5/cellWidth
	z = float32(v.panZ) + float32(row-h/2) + 0.5
	return x, z
}

// worldToCell returns the first column and the row of the unit cell holding
// (x, z).
func (v *View) worldToCell(x, z float32) (col, row int, ok bool) {
	w, h := v.mapSize()
	col = int(math32.Floor(x-float32(v.panX)))*cellWidth + w/2
	row = int(math32.Floor(z-float32(v.panZ))) + h/2
	return col, row, col >= 0 && col < w && row >= 0 && row < h
}

// mapSize leaves the last row for the status line.
func (v *View) mapSize() (w, h int) {
	w, h = v.screen.Size()
	if h > 1 {
		h--
	}
	return w, h
}

// Palette gives every group a stable color derived from its name.
func Palette(group string) tcell.Color {
	sum := xxhash.Sum64String(group)
	// Keep each channel in the upper half so glyphs stay readable on black.
	r := int32(sum>>16&0x7f) + 0x80
	g := int32(sum>>8&0x7f) + 0x80
	b := int32(sum&0x7f) + 0x80
	return tcell.NewRGBColor(r, g, b)
}

// Draw renders the current board state.
func (v *View) Draw() {
	v.screen.Clear()
	b := v.board

	b.Registry().Each(func(ref instancing.Ref, m mgl32.Mat4) bool {
		if geom.IsDegenerate(m) {
			return true
		}
		v.drawTile(ref, m, b.Store())
		return true
	})

	if pv := b.Preview(); pv.Visible && b.ToolMode() == board.ToolCreate {
		v.put(pv.Position, '+', '+', tcell.StyleDefault.Foreground(Palette(b.CreationGroup())))
	}
	if hl := b.Highlighter(); hl.Visible {
		v.put(hl.Position, '[', ']', tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true))
	}
	if hero := b.Hero(); hero.Placed {
		v.put(hero.Position(), '@', heroArrow(hero.Transform), tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true))
	}
	v.drawStatus()
	v.screen.Show()
}

func (v *View) drawTile(ref instancing.Ref, m mgl32.Mat4, store *tilestate.Store) {
	style := tcell.StyleDefault.Background(Palette(ref.Group)).Foreground(tcell.ColorBlack)
	left, right := ' ', ' '
	if rec, ok := store.Lookup(ref); ok {
		switch {
		case rec.Animating:
			left, right = '~', '~'
		case rec.Active:
			left, right = '^', '^'
			style = style.Bold(true)
		}
	}
	v.put(geom.Position(m), left, right, style)
}

func (v *View) put(pos mgl32.Vec3, left, right rune, style tcell.Style) {
	col, row, ok := v.worldToCell(pos.X(), pos.Z())
	if !ok {
		return
	}
	w, _ := v.mapSize()
	v.screen.SetContent(col, row, left, nil, style)
	if col+1 < w {
		v.screen.SetContent(col+1, row, right, nil, style)
	}
}

// heroArrow points along the hero's local +Z, as seen from above with -Z up.
func heroArrow(m mgl32.Mat4) rune {
	fwd := m.Mul4x1(mgl32.Vec4{0, 0, 1, 0})
	if math32.Abs(fwd.X()) > math32.Abs(fwd.Z()) {
		if fwd.X() > 0 {
			return '>'
		}
		return '<'
	}
	if fwd.Z() > 0 {
		return 'v'
	}
	return '^'
}

func (v *View) drawStatus() {
	w, h := v.screen.Size()
	if h < 2 {
		return
	}
	b := v.board
	line := fmt.Sprintf(" %s | group %s | tiles %d", b.ToolMode(), b.CreationGroup(), b.Registry().Len())
	if ref, ok := b.Selection(); ok {
		line += " | selected " + ref.String()
	}
	if v.status != "" {
		line += " | " + v.status
	}
	style := tcell.StyleDefault.Reverse(true)
	row := h - 1
	for col := 0; col < w; col++ {
		r := ' '
		if col < len(line) {
			r = rune(line[col])
		}
		v.screen.SetContent(col, row, r, nil, style)
	}
}
