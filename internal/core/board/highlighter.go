package board

import (
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/tileboard/internal/core/geom"
)

const (
	highlighterRestY  = 0.85
	highlighterBob    = 0.1
	highlighterPeriod = 200 * time.Millisecond
	highlighterSpin   = 0.02
)

// Highlighter is the marker that floats over the selected tile.
type Highlighter struct {
	Position mgl32.Vec3 `json:"position"`
	Yaw      float32    `json:"yaw"`
	Visible  bool       `json:"visible"`
}

func newHighlighter() Highlighter {
	return Highlighter{Position: mgl32.Vec3{0, highlighterRestY, 0}}
}

// show moves over a tile and keeps the current bob height.
func (h *Highlighter) show(tile mgl32.Vec3) {
	h.Position = mgl32.Vec3{tile.X(), h.Position.Y(), tile.Z()}
	h.Visible = true
}

// tick spins once per frame and bobs on the board clock.
func (h *Highlighter) tick(clock time.Duration) {
	if !h.Visible {
		return
	}
	h.Yaw = math32.Mod(h.Yaw+highlighterSpin, 2*math32.Pi)
	phase := float32(clock) / float32(highlighterPeriod)
	h.Position[1] = highlighterRestY + math32.Sin(phase)*highlighterBob
}

func (h Highlighter) Transform() mgl32.Mat4 {
	return geom.At(h.Position).Mul4(mgl32.HomogRotate3DY(h.Yaw))
}
