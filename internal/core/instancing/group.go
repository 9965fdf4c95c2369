package instancing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// KindTile tags groups whose instances are pickable board tiles.
const KindTile = "tile"

// Ref identifies one instance. Index is stable for the lifetime of the instance.
type Ref struct {
	Group string `json:"group" yaml:"group"`
	Index int    `json:"index" yaml:"index"`
}

func (r Ref) String() string {
	return r.Group + "-" + strconv.Itoa(r.Index)
}

// ParseRef reverses Ref.String. Group names may themselves contain dashes.
func ParseRef(s string) (Ref, error) {
	i := strings.LastIndexByte(s, '-')
	if i <= 0 || i == len(s)-1 {
		return Ref{}, fmt.Errorf("malformed instance ref %q", s)
	}
	idx, err := strconv.Atoi(s[i+1:])
	if err != nil || idx < 0 {
		return Ref{}, fmt.Errorf("malformed instance ref %q", s)
	}
	return Ref{Group: s[:i], Index: idx}, nil
}

// Group is one instanced draw unit: a fixed-capacity transform buffer whose
// first Count entries are live.
type Group struct {
	name  string
	kind  string
	order int

	transforms []mgl32.Mat4
	count      int

	// Sparse dirty tracking. dirtyBits dedups indices already queued.
	dirtyIndices []int
	dirtyBits    []uint64
}

func newGroup(name string, order, capacity int) *Group {
	return &Group{
		name:       name,
		kind:       KindTile,
		order:      order,
		transforms: make([]mgl32.Mat4, capacity),
		dirtyBits:  make([]uint64, (capacity+63)/64),
	}
}

func (g *Group) Name() string  { return g.name }
func (g *Group) Kind() string  { return g.kind }
func (g *Group) Order() int    { return g.order }
func (g *Group) Count() int    { return g.count }
func (g *Group) Capacity() int { return len(g.transforms) }

// At returns the transform of a live instance.
func (g *Group) At(index int) (mgl32.Mat4, error) {
	if index < 0 || index >= g.count {
		return mgl32.Mat4{}, fmt.Errorf("%s[%d]: %w", g.name, index, ErrInvalidIndex)
	}
	return g.transforms[index], nil
}

// Live returns the live slice of transforms. Callers must not modify it.
func (g *Group) Live() []mgl32.Mat4 {
	return g.transforms[:g.count]
}

func (g *Group) add(m mgl32.Mat4) (int, error) {
	if g.count >= len(g.transforms) {
		return -1, fmt.Errorf("%s holds %d/%d: %w", g.name, g.count, len(g.transforms), ErrCapacityExceeded)
	}
	index := g.count
	g.transforms[index] = m
	g.count++
	g.markDirty(index)
	return index, nil
}

func (g *Group) set(index int, m mgl32.Mat4) error {
	if index < 0 || index >= g.count {
		return fmt.Errorf("%s[%d]: %w", g.name, index, ErrInvalidIndex)
	}
	g.transforms[index] = m
	g.markDirty(index)
	return nil
}

func (g *Group) markDirty(index int) {
	word, bit := index/64, uint64(1)<<(index%64)
	if g.dirtyBits[word]&bit != 0 {
		return
	}
	g.dirtyBits[word] |= bit
	g.dirtyIndices = append(g.dirtyIndices, index)
}

// Dirty reports whether any instance changed since the last Flush.
func (g *Group) Dirty() bool {
	return len(g.dirtyIndices) > 0
}

// Flush returns the indices changed since the previous Flush, in the order they
// were first touched, and clears the dirty set.
func (g *Group) Flush() []int {
	if len(g.dirtyIndices) == 0 {
		return nil
	}
	out := g.dirtyIndices
	for _, i := range out {
		g.dirtyBits[i/64] &^= uint64(1) << (i % 64)
	}
	g.dirtyIndices = make([]int, 0, len(out))
	return out
}
