package board

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/tileboard/internal/core/events/bus"
	"github.com/zeusync/tileboard/internal/core/geom"
	"github.com/zeusync/tileboard/internal/core/instancing"
	"github.com/zeusync/tileboard/internal/core/picking"
)

const (
	heroBody    = "hero"
	heroStandY  = 0.25
	heroStep    = 1
	heroHiddenY = -5
)

var heroHalfExtents = mgl32.Vec3{0.3, 0.5, 0.3}

// Hero is the single character that stands on the board. It starts hidden
// under the ground until placed on a tile.
type Hero struct {
	Transform mgl32.Mat4 `json:"transform"`
	Placed    bool       `json:"placed"`
}

func newHero() Hero {
	return Hero{Transform: geom.At(mgl32.Vec3{0.5, heroHiddenY, 0.5})}
}

func (h Hero) Position() mgl32.Vec3 { return geom.Position(h.Transform) }

// body is the pick volume. The hero's origin is at its feet.
func (h Hero) body() picking.Body {
	return picking.Body{
		Kind:        heroBody,
		Transform:   h.Transform.Mul4(mgl32.Translate3D(0, heroHalfExtents.Y(), 0)),
		HalfExtents: heroHalfExtents,
	}
}

// PlaceHero stands the hero on the selected tile, keeping its heading.
func (b *Board) PlaceHero() error {
	if !b.hasSelection {
		return ErrNoSelection
	}
	m, err := b.registry.At(b.selected)
	if err != nil {
		return err
	}
	p := geom.Position(m)
	b.hero.Transform.SetCol(3, mgl32.Vec4{p.X(), heroStandY, p.Z(), 1})
	b.hero.Placed = true
	b.heroMoved()
	return nil
}

// RotateHero turns the hero a quarter turn; clockwise as seen from above.
func (b *Board) RotateHero(clockwise bool) error {
	if !b.hero.Placed {
		return ErrHeroNotPlaced
	}
	angle := math32.Pi / 2
	if clockwise {
		angle = -angle
	}
	b.hero.Transform = geom.Compose(b.hero.Transform, mgl32.HomogRotate3DY(angle))
	b.heroMoved()
	return nil
}

// MoveHero steps the hero one cell along its local Z axis.
func (b *Board) MoveHero(forward bool) error {
	if !b.hero.Placed {
		return ErrHeroNotPlaced
	}
	step := float32(heroStep)
	if !forward {
		step = -step
	}
	b.hero.Transform = geom.OffsetAlong(b.hero.Transform, geom.AxisZ, step)
	b.heroMoved()
	return nil
}

func (b *Board) heroMoved() {
	b.heroDirty = true
	b.resolver.SetBody(heroBody, b.hero.body())
	b.publish(bus.HeroMoved, instancing.Ref{}, b.hero.Position())
}
