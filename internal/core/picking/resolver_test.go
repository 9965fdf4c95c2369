package picking

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/tileboard/internal/core/geom"
	"github.com/zeusync/tileboard/internal/core/instancing"
)

var center = Pointer{X: 400, Y: 300, Width: 800, Height: 600}

func newRegistry(t *testing.T) *instancing.Registry {
	t.Helper()
	reg, err := instancing.NewRegistry([]string{"first", "second"}, 10)
	require.NoError(t, err)
	return reg
}

func TestCameraRayPointsIntoScene(t *testing.T) {
	cam := DefaultCamera()

	ray, err := cam.Ray(center)
	require.NoError(t, err)
	assert.InDelta(t, -1, ray.Dir.Y(), 1e-4)
	assert.InDelta(t, 9.9, ray.Origin.Y(), 1e-3)

	right, err := cam.Ray(Pointer{X: 700, Y: 300, Width: 800, Height: 600})
	require.NoError(t, err)
	assert.Greater(t, right.Dir.X(), float32(0))

	top, err := cam.Ray(Pointer{X: 400, Y: 50, Width: 800, Height: 600})
	require.NoError(t, err)
	assert.Less(t, top.Dir.Z(), float32(0))

	_, err = cam.Ray(Pointer{X: 1, Y: 1})
	assert.ErrorIs(t, err, ErrInvalidViewport)
}

func TestResolveNearestTile(t *testing.T) {
	reg := newRegistry(t)
	_, err := reg.Add("first", geom.At(mgl32.Vec3{0, 0.125, 0}))
	require.NoError(t, err)
	upper, err := reg.Add("second", geom.At(mgl32.Vec3{0, 1.125, 0}))
	require.NoError(t, err)

	r := NewResolver(reg, 100)
	hit, ok, err := r.Resolve(center, DefaultCamera())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, upper, hit.Ref)
	assert.Equal(t, instancing.KindTile, hit.Kind)
	assert.InDelta(t, 1.25, hit.Point.Y(), 1e-3)
}

func TestResolveSkipsHiddenTiles(t *testing.T) {
	reg := newRegistry(t)
	ref, err := reg.Add("first", geom.At(mgl32.Vec3{0, 0.125, 0}))
	require.NoError(t, err)
	base, _ := reg.At(ref)
	require.NoError(t, reg.Set(ref, geom.Compose(base, geom.Hide)))

	r := NewResolver(reg, 100)
	_, ok, err := r.Resolve(center, DefaultCamera())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveRotatedTile(t *testing.T) {
	reg := newRegistry(t)
	m := geom.Compose(geom.At(mgl32.Vec3{0, 0.125, 0}), geom.QuarterTurnY)
	ref, err := reg.Add("first", m)
	require.NoError(t, err)

	hit, ok := NewResolver(reg, 100).ResolveRay(Ray{Origin: mgl32.Vec3{0.4, 5, 0.4}, Dir: mgl32.Vec3{0, -1, 0}})
	require.True(t, ok)
	assert.Equal(t, ref, hit.Ref)
}

func TestNearerBodyOccludesTile(t *testing.T) {
	reg := newRegistry(t)
	_, err := reg.Add("first", geom.At(mgl32.Vec3{0, 0.125, 0}))
	require.NoError(t, err)

	r := NewResolver(reg, 100)
	r.SetBody("hero", Body{Kind: "hero", Transform: geom.At(mgl32.Vec3{0, 0.75, 0}), HalfExtents: mgl32.Vec3{0.25, 0.5, 0.25}})
	_, ok, err := r.Resolve(center, DefaultCamera())
	require.NoError(t, err)
	assert.False(t, ok)

	r.RemoveBody("hero")
	_, ok, err = r.Resolve(center, DefaultCamera())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProbeGround(t *testing.T) {
	r := NewResolver(newRegistry(t), 100)

	point, ok, err := r.ProbeGround(center, DefaultCamera())
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0, point.X(), 1e-3)
	assert.InDelta(t, 0, point.Z(), 1e-3)

	snapped := SnapToCell(mgl32.Vec3{-1.2, 0, 3.7})
	assert.Equal(t, mgl32.Vec3{-1.5, 0.125, 3.5}, snapped)

	small := NewResolver(newRegistry(t), 2)
	_, ok, err = small.ProbeGround(Pointer{X: 0, Y: 0, Width: 800, Height: 600}, DefaultCamera())
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok = r.ProbeGroundRay(Ray{Origin: mgl32.Vec3{0, 1, 0}, Dir: mgl32.Vec3{1, 0, 0}})
	assert.False(t, ok)
	_, ok = r.ProbeGroundRay(Ray{Origin: mgl32.Vec3{0, 1, 0}, Dir: mgl32.Vec3{0, 1, 0}})
	assert.False(t, ok)
}
