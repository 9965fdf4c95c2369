package board

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/tileboard/internal/core/instancing"
	"github.com/zeusync/tileboard/internal/core/observability/log"
	"github.com/zeusync/tileboard/internal/core/tilestate"
)

const tileRestY = 0.125

type GroupInfo struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Capacity int    `json:"capacity"`
}

// Snapshot is a read-only summary of the whole board.
type Snapshot struct {
	ToolMode      ToolMode         `json:"tool_mode"`
	CreationGroup string           `json:"creation_group"`
	Selection     *instancing.Ref  `json:"selection,omitempty"`
	Groups        []GroupInfo      `json:"groups"`
	Active        []instancing.Ref `json:"active"`
	Animating     []instancing.Ref `json:"animating"`
	Preview       Preview          `json:"preview"`
	Highlighter   Highlighter      `json:"highlighter"`
	Hero          Hero             `json:"hero"`
	Clock         time.Duration    `json:"clock"`
	Digest        uint64           `json:"digest"`
}

func (b *Board) Snapshot() Snapshot {
	s := Snapshot{
		ToolMode:      b.mode,
		CreationGroup: b.creationGroup,
		Active:        []instancing.Ref{},
		Animating:     []instancing.Ref{},
		Preview:       b.preview,
		Highlighter:   b.highlighter,
		Hero:          b.hero,
		Clock:         b.clock,
		Digest:        b.Digest(),
	}
	if b.hasSelection {
		sel := b.selected
		s.Selection = &sel
	}
	for _, g := range b.registry.Groups() {
		s.Groups = append(s.Groups, GroupInfo{Name: g.Name(), Count: g.Count(), Capacity: g.Capacity()})
	}
	b.store.Range(b.registry.Less, func(ref instancing.Ref, r tilestate.Record) bool {
		if r.Active {
			s.Active = append(s.Active, ref)
		}
		if r.Animating {
			s.Animating = append(s.Animating, ref)
		}
		return true
	})
	return s
}

// Digest hashes every live transform in group order. Two boards with equal
// digests render identically.
func (b *Board) Digest() uint64 {
	h := xxhash.New()
	var buf [4]byte
	for _, g := range b.registry.Groups() {
		_, _ = h.WriteString(g.Name())
		for _, m := range g.Live() {
			for _, f := range m {
				binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
				_, _ = h.Write(buf[:])
			}
		}
	}
	return h.Sum64()
}

type TileUpdate struct {
	Group  string     `json:"group"`
	Index  int        `json:"index"`
	Matrix mgl32.Mat4 `json:"matrix"`
}

// Frame carries everything a renderer must re-upload since the last flush.
type Frame struct {
	Updates     []TileUpdate `json:"updates"`
	Highlighter Highlighter  `json:"highlighter"`
	Hero        Hero         `json:"hero"`
	Digest      uint64       `json:"digest"`
}

// Flush drains the registry's dirty set. It reports false when nothing a
// renderer draws has changed.
func (b *Board) Flush() (Frame, bool) {
	updates := b.registry.FlushAll()
	changed := len(updates) > 0 || b.highlighter.Visible || b.heroDirty
	if !changed {
		return Frame{}, false
	}
	b.heroDirty = false

	f := Frame{
		Updates:     make([]TileUpdate, 0, len(updates)),
		Highlighter: b.highlighter,
		Hero:        b.hero,
		Digest:      b.Digest(),
	}
	for _, u := range updates {
		f.Updates = append(f.Updates, TileUpdate{Group: u.Ref.Group, Index: u.Ref.Index, Matrix: u.Transform})
	}
	return f, true
}

type GroupLayout struct {
	Name       string       `json:"name"`
	Transforms []mgl32.Mat4 `json:"transforms"`
}

// Layout is the persistent form of a board.
type Layout struct {
	Groups []GroupLayout    `json:"groups"`
	Active []instancing.Ref `json:"active"`
	Hero   *Hero            `json:"hero,omitempty"`
}

// Layout captures the board at rest. Tiles caught mid-animation are saved at
// the transform their animation started from.
func (b *Board) Layout() Layout {
	l := Layout{Active: b.store.ActiveRefs(b.registry.Less)}
	for _, g := range b.registry.Groups() {
		gl := GroupLayout{Name: g.Name(), Transforms: make([]mgl32.Mat4, g.Count())}
		copy(gl.Transforms, g.Live())
		for i := range gl.Transforms {
			if rec, ok := b.store.Lookup(instancing.Ref{Group: g.Name(), Index: i}); ok && rec.Animating {
				gl.Transforms[i] = rec.Base
			}
		}
		l.Groups = append(l.Groups, gl)
	}
	if b.hero.Placed {
		h := b.hero
		l.Hero = &h
	}
	return l
}

// Restore replaces the board contents with l. Active tiles come back raised
// without animating. Nothing changes if l does not fit the board.
func (b *Board) Restore(l Layout) error {
	capacity := b.opts.TilesNumber * b.opts.TilesNumber
	counts := make(map[string]int, len(l.Groups))
	for _, g := range l.Groups {
		if _, dup := counts[g.Name]; dup {
			return fmt.Errorf("restore group %q twice: %w", g.Name, instancing.ErrInvalidRegistry)
		}
		if !b.registry.Has(g.Name) {
			return fmt.Errorf("restore group %q: %w", g.Name, instancing.ErrUnknownGroup)
		}
		if len(g.Transforms) > capacity {
			return fmt.Errorf("restore group %q: %w", g.Name, instancing.ErrCapacityExceeded)
		}
		counts[g.Name] = len(g.Transforms)
	}
	for _, ref := range l.Active {
		if ref.Index < 0 || ref.Index >= counts[ref.Group] {
			return fmt.Errorf("restore active %s: %w", ref, instancing.ErrInvalidIndex)
		}
	}

	if l.Hero != nil {
		b.hero = *l.Hero
	} else {
		b.hero = newHero()
	}
	b.heroDirty = true
	if err := b.reset(); err != nil {
		return err
	}
	for _, g := range l.Groups {
		for _, m := range g.Transforms {
			if _, err := b.registry.Add(g.Name, m); err != nil {
				return err
			}
		}
	}
	for _, ref := range l.Active {
		rec := b.store.Ensure(ref)
		rec.Active = true
		rec.Base, _ = b.registry.At(ref)
	}
	b.log.Info("layout restored", log.Int("tiles", b.registry.Len()), log.Int("active", len(l.Active)))
	return nil
}
