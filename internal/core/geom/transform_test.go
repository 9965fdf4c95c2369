package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestQuarterTurnFourTimesIsIdentity(t *testing.T) {
	m := At(mgl32.Vec3{2.5, 0.125, -3.5})
	r := m
	for i := 0; i < 4; i++ {
		r = Compose(r, QuarterTurnY)
	}
	assert.True(t, Equal(m, r), "got %v", r)
}

func TestHideIsFixedPoint(t *testing.T) {
	m := Compose(At(mgl32.Vec3{1, 0.125, 1}), QuarterTurnY)
	once := Compose(m, Hide)
	twice := Compose(once, Hide)

	assert.True(t, IsDegenerate(once))
	assert.False(t, IsDegenerate(m))
	assert.Equal(t, once, twice)
	assert.Equal(t, Position(m), Position(once))
}

func TestOffsetAlongUsesLocalFrame(t *testing.T) {
	m := Compose(At(mgl32.Vec3{0, 0, 0}), mgl32.HomogRotate3DX(mgl32.DegToRad(90)))
	moved := OffsetAlong(m, AxisY, 1)
	p := Position(moved)
	assert.InDelta(t, 0, p.Y(), 1e-5)
	assert.InDelta(t, 1, p.Z(), 1e-5)
}

func TestParseAxis(t *testing.T) {
	a, ok := ParseAxis("z")
	assert.True(t, ok)
	assert.Equal(t, AxisZ, a)

	a, ok = ParseAxis("w")
	assert.False(t, ok)
	assert.Equal(t, AxisY, a)
}
