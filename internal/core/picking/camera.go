package picking

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a perspective camera looking from Position at Target.
type Camera struct {
	Position mgl32.Vec3 `json:"position"`
	Target   mgl32.Vec3 `json:"target"`
	Up       mgl32.Vec3 `json:"up"`
	FovY     float32    `json:"fov_y"` // degrees
	Near     float32    `json:"near"`
	Far      float32    `json:"far"`
}

// DefaultCamera looks straight down on the board from ten units up.
func DefaultCamera() Camera {
	return Camera{
		Position: mgl32.Vec3{0, 10, 0},
		Target:   mgl32.Vec3{0, 0, 0},
		Up:       mgl32.Vec3{0, 0, -1},
		FovY:     60,
		Near:     0.1,
		Far:      60,
	}
}

func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

func (c Camera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
}

// Pointer is a position in viewport pixels, origin at the top-left corner.
type Pointer struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
	Shift  bool    `json:"shift,omitempty"`
}

// NDC converts the pointer to normalized device coordinates in [-1, 1].
func (p Pointer) NDC() (float32, float32) {
	return p.X/p.Width*2 - 1, -(p.Y/p.Height)*2 + 1
}

// Ray is a half-line with a unit direction.
type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
}

func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Ray unprojects the pointer through the camera's near and far planes.
func (c Camera) Ray(p Pointer) (Ray, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return Ray{}, fmt.Errorf("viewport %vx%v: %w", p.Width, p.Height, ErrInvalidViewport)
	}
	nx, ny := p.NDC()
	view := c.View()
	proj := c.Projection(p.Width / p.Height)

	// Unproject against a unit viewport so fractional pointer positions survive.
	near, err := mgl32.UnProject(mgl32.Vec3{(nx + 1) / 2, (ny + 1) / 2, 0}, view, proj, 0, 0, 1, 1)
	if err != nil {
		return Ray{}, err
	}
	far, err := mgl32.UnProject(mgl32.Vec3{(nx + 1) / 2, (ny + 1) / 2, 1}, view, proj, 0, 0, 1, 1)
	if err != nil {
		return Ray{}, err
	}
	dir := far.Sub(near)
	if dir.Len() == 0 {
		return Ray{}, ErrInvalidViewport
	}
	return Ray{Origin: near, Dir: dir.Normalize()}, nil
}
