// Package tilestate is the sparse per-instance state table of the board.
package tilestate

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/tileboard/internal/core/instancing"
)

// Record is created on first interaction and lives for the session.
// Active only changes when an animation completes.
type Record struct {
	Active    bool
	Animating bool
	// Base is the transform captured when the last animation started.
	Base mgl32.Mat4
}

// Store maps instance refs to records.
type Store struct {
	records map[instancing.Ref]*Record
}

func NewStore() *Store {
	return &Store{records: make(map[instancing.Ref]*Record)}
}

// Lookup returns a copy of the record, if one exists.
func (s *Store) Lookup(ref instancing.Ref) (Record, bool) {
	r, ok := s.records[ref]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Ensure returns the record for ref, creating an inactive one if needed.
func (s *Store) Ensure(ref instancing.Ref) *Record {
	if r, ok := s.records[ref]; ok {
		return r
	}
	r := &Record{}
	s.records[ref] = r
	return r
}

func (s *Store) IsAnimating(ref instancing.Ref) bool {
	r, ok := s.records[ref]
	return ok && r.Animating
}

func (s *Store) IsActive(ref instancing.Ref) bool {
	r, ok := s.records[ref]
	return ok && r.Active
}

func (s *Store) Len() int {
	return len(s.records)
}

// Range visits records in the order given by less. Returning false stops.
func (s *Store) Range(less func(a, b instancing.Ref) bool, fn func(ref instancing.Ref, r Record) bool) {
	refs := make([]instancing.Ref, 0, len(s.records))
	for ref := range s.records {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return less(refs[i], refs[j]) })
	for _, ref := range refs {
		if !fn(ref, *s.records[ref]) {
			return
		}
	}
}

// ActiveRefs lists every active instance in less order.
func (s *Store) ActiveRefs(less func(a, b instancing.Ref) bool) []instancing.Ref {
	var out []instancing.Ref
	s.Range(less, func(ref instancing.Ref, r Record) bool {
		if r.Active {
			out = append(out, ref)
		}
		return true
	})
	return out
}
