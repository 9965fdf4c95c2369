// Package instancing keeps the per-group instance transform buffers that a
// renderer uploads each frame.
package instancing

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultGroupNames mirrors the ten tile styles of the board.
var DefaultGroupNames = []string{
	"first", "second", "third", "fourth", "fifth",
	"sixth", "seventh", "eighth", "ninth", "tenth",
}

// Registry is the fixed set of tile groups, created once per session.
type Registry struct {
	groups []*Group
	byName map[string]*Group
}

// NewRegistry pre-sizes every group with the same capacity.
func NewRegistry(names []string, capacity int) (*Registry, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no groups: %w", ErrInvalidRegistry)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity %d: %w", capacity, ErrInvalidRegistry)
	}

	r := &Registry{
		groups: make([]*Group, 0, len(names)),
		byName: make(map[string]*Group, len(names)),
	}
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("group %d has no name: %w", i, ErrInvalidRegistry)
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("duplicate group %q: %w", name, ErrInvalidRegistry)
		}
		g := newGroup(name, i, capacity)
		r.groups = append(r.groups, g)
		r.byName[name] = g
	}
	return r, nil
}

// Groups returns the groups in declaration order.
func (r *Registry) Groups() []*Group {
	return r.groups
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.groups))
	for i, g := range r.groups {
		names[i] = g.name
	}
	return names
}

func (r *Registry) Group(name string) (*Group, error) {
	g, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownGroup)
	}
	return g, nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Add appends an instance to the named group. A full group rejects the call
// and is left untouched.
func (r *Registry) Add(group string, m mgl32.Mat4) (Ref, error) {
	g, err := r.Group(group)
	if err != nil {
		return Ref{}, err
	}
	index, err := g.add(m)
	if err != nil {
		return Ref{}, err
	}
	return Ref{Group: group, Index: index}, nil
}

func (r *Registry) At(ref Ref) (mgl32.Mat4, error) {
	g, err := r.Group(ref.Group)
	if err != nil {
		return mgl32.Mat4{}, err
	}
	return g.At(ref.Index)
}

func (r *Registry) Set(ref Ref, m mgl32.Mat4) error {
	g, err := r.Group(ref.Group)
	if err != nil {
		return err
	}
	return g.set(ref.Index, m)
}

func (r *Registry) Count(group string) int {
	if g, ok := r.byName[group]; ok {
		return g.count
	}
	return 0
}

func (r *Registry) Capacity(group string) int {
	if g, ok := r.byName[group]; ok {
		return len(g.transforms)
	}
	return 0
}

// Len is the number of live instances across all groups.
func (r *Registry) Len() int {
	n := 0
	for _, g := range r.groups {
		n += g.count
	}
	return n
}

// Each visits every live instance in group order, then index order. Returning
// false stops the walk.
func (r *Registry) Each(fn func(ref Ref, m mgl32.Mat4) bool) {
	for _, g := range r.groups {
		for i := 0; i < g.count; i++ {
			if !fn(Ref{Group: g.name, Index: i}, g.transforms[i]) {
				return
			}
		}
	}
}

// Dirty reports whether any group has unflushed changes.
func (r *Registry) Dirty() bool {
	for _, g := range r.groups {
		if g.Dirty() {
			return true
		}
	}
	return false
}

// Update is one changed instance handed to a renderer.
type Update struct {
	Ref       Ref
	Transform mgl32.Mat4
}

// FlushAll drains the dirty set of every group in group order.
func (r *Registry) FlushAll() []Update {
	var out []Update
	for _, g := range r.groups {
		for _, i := range g.Flush() {
			out = append(out, Update{Ref: Ref{Group: g.name, Index: i}, Transform: g.transforms[i]})
		}
	}
	return out
}

// Less orders refs by group declaration order, then index.
func (r *Registry) Less(a, b Ref) bool {
	ga, gb := r.byName[a.Group], r.byName[b.Group]
	oa, ob := len(r.groups), len(r.groups)
	if ga != nil {
		oa = ga.order
	}
	if gb != nil {
		ob = gb.order
	}
	if oa != ob {
		return oa < ob
	}
	if a.Group != b.Group {
		return a.Group < b.Group
	}
	return a.Index < b.Index
}
