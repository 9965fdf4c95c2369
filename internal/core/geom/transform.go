// Package geom holds the instance transform helpers shared by the board core.
// Transforms are column-major mgl32 matrices: position + rotation with a fixed
// unit scale, except for hidden instances which carry a zero scale.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Epsilon is the tolerance used when comparing transforms.
const Epsilon float32 = 1e-5

var (
	// Hide collapses an instance to a point. Composing it twice is the same as once.
	Hide = mgl32.Scale3D(0, 0, 0)
	// QuarterTurnY rotates 90 degrees about the vertical axis.
	QuarterTurnY = mgl32.HomogRotate3DY(math.Pi / 2)
)

// Axis names a local axis of an instance.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// ParseAxis accepts "x", "y" or "z".
func ParseAxis(s string) (Axis, bool) {
	switch s {
	case "x", "X":
		return AxisX, true
	case "y", "Y", "":
		return AxisY, true
	case "z", "Z":
		return AxisZ, true
	}
	return AxisY, false
}

// Unit returns the axis as a unit vector.
func (a Axis) Unit() mgl32.Vec3 {
	switch a {
	case AxisX:
		return mgl32.Vec3{1, 0, 0}
	case AxisZ:
		return mgl32.Vec3{0, 0, 1}
	default:
		return mgl32.Vec3{0, 1, 0}
	}
}

// At builds an unrotated transform at p.
func At(p mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(p.X(), p.Y(), p.Z())
}

// Compose applies delta in the local frame of base.
func Compose(base, delta mgl32.Mat4) mgl32.Mat4 {
	return base.Mul4(delta)
}

// OffsetAlong translates base by d units along its local axis.
func OffsetAlong(base mgl32.Mat4, axis Axis, d float32) mgl32.Mat4 {
	v := axis.Unit().Mul(d)
	return base.Mul4(mgl32.Translate3D(v.X(), v.Y(), v.Z()))
}

// Position extracts the translation column.
func Position(m mgl32.Mat4) mgl32.Vec3 {
	return m.Col(3).Vec3()
}

// IsDegenerate reports whether the linear part of m has collapsed, i.e. the
// instance was hidden.
func IsDegenerate(m mgl32.Mat4) bool {
	return mgl32.Abs(m.Mat3().Det()) < Epsilon
}

// Equal compares two transforms element-wise within Epsilon.
func Equal(a, b mgl32.Mat4) bool {
	for i := range a {
		if mgl32.Abs(a[i]-b[i]) > Epsilon {
			return false
		}
	}
	return true
}
