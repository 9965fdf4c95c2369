// Package picking turns viewport pointers into hits against the instance
// registry and the ground plane.
package picking

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/tileboard/internal/core/geom"
	"github.com/zeusync/tileboard/internal/core/instancing"
)

var ErrInvalidViewport = errors.New("invalid viewport")

// TileHalfExtents is half of the 1 x 0.25 x 1 tile box in instance space.
var TileHalfExtents = mgl32.Vec3{0.5, 0.125, 0.5}

// Body is a non-instanced object that can occlude tiles, such as the hero.
type Body struct {
	Kind        string
	Transform   mgl32.Mat4
	HalfExtents mgl32.Vec3
}

// Hit is the nearest intersection along a pick ray.
type Hit struct {
	Kind     string
	Ref      instancing.Ref
	Point    mgl32.Vec3
	Distance float32
}

// Resolver picks against a registry. GroundExtent bounds the ground plane probe.
type Resolver struct {
	registry     *instancing.Registry
	GroundExtent float32
	bodies       map[string]Body
}

func NewResolver(registry *instancing.Registry, groundExtent float32) *Resolver {
	return &Resolver{
		registry:     registry,
		GroundExtent: groundExtent,
		bodies:       make(map[string]Body),
	}
}

// SetBody adds or replaces a named occluder.
func (r *Resolver) SetBody(name string, b Body) { r.bodies[name] = b }

func (r *Resolver) RemoveBody(name string) { delete(r.bodies, name) }

// Resolve reports the tile under the pointer. A nearer non-tile body hides
// the tile behind it.
func (r *Resolver) Resolve(p Pointer, cam Camera) (Hit, bool, error) {
	ray, err := cam.Ray(p)
	if err != nil {
		return Hit{}, false, err
	}
	hit, ok := r.ResolveRay(ray)
	return hit, ok, nil
}

func (r *Resolver) ResolveRay(ray Ray) (Hit, bool) {
	best := Hit{Distance: math32.Inf(1)}
	found := false

	for _, g := range r.registry.Groups() {
		for i, m := range g.Live() {
			t, ok := intersectBox(ray, m, TileHalfExtents)
			if !ok || t >= best.Distance {
				continue
			}
			best = Hit{Kind: g.Kind(), Ref: instancing.Ref{Group: g.Name(), Index: i}, Distance: t}
			found = true
		}
	}
	for _, b := range r.bodies {
		t, ok := intersectBox(ray, b.Transform, b.HalfExtents)
		if !ok || t >= best.Distance {
			continue
		}
		best = Hit{Kind: b.Kind, Distance: t}
		found = true
	}

	if !found || best.Kind != instancing.KindTile {
		return Hit{}, false
	}
	best.Point = ray.At(best.Distance)
	return best, true
}

// ProbeGround intersects the pointer ray with the y=0 ground plane.
func (r *Resolver) ProbeGround(p Pointer, cam Camera) (mgl32.Vec3, bool, error) {
	ray, err := cam.Ray(p)
	if err != nil {
		return mgl32.Vec3{}, false, err
	}
	point, ok := r.ProbeGroundRay(ray)
	return point, ok, nil
}

func (r *Resolver) ProbeGroundRay(ray Ray) (mgl32.Vec3, bool) {
	if math32.Abs(ray.Dir.Y()) < 1e-6 {
		return mgl32.Vec3{}, false
	}
	t := -ray.Origin.Y() / ray.Dir.Y()
	if t < 0 {
		return mgl32.Vec3{}, false
	}
	point := ray.At(t)
	half := r.GroundExtent / 2
	if math32.Abs(point.X()) > half || math32.Abs(point.Z()) > half {
		return mgl32.Vec3{}, false
	}
	point[1] = 0
	return point, true
}

// SnapToCell floors a ground point to its grid cell and lifts it onto the
// cell's tile center.
func SnapToCell(point mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		math32.Floor(point.X()) + 0.5,
		TileHalfExtents.Y(),
		math32.Floor(point.Z()) + 0.5,
	}
}

// intersectBox runs a slab test in the box's local frame. Hidden instances
// cannot be hit.
func intersectBox(ray Ray, m mgl32.Mat4, half mgl32.Vec3) (float32, bool) {
	if geom.IsDegenerate(m) {
		return 0, false
	}
	inv := m.Inv()
	o := inv.Mul4x1(ray.Origin.Vec4(1)).Vec3()
	d := inv.Mul4x1(ray.Dir.Vec4(0)).Vec3()

	tmin, tmax := float32(0), math32.Inf(1)
	for axis := 0; axis < 3; axis++ {
		if math32.Abs(d[axis]) < 1e-9 {
			if o[axis] < -half[axis] || o[axis] > half[axis] {
				return 0, false
			}
			continue
		}
		inv := 1 / d[axis]
		t1 := (-half[axis] - o[axis]) * inv
		t2 := (half[axis] - o[axis]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
