// Package animation moves tile instances between their inactive and active
// offsets. Each instance has at most one task in flight; tasks are polled once
// per frame and always run to completion.
package animation

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/tileboard/internal/core/geom"
	"github.com/zeusync/tileboard/internal/core/instancing"
	"github.com/zeusync/tileboard/internal/core/tilestate"
)

type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateComplete:
		return "complete"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

type Options struct {
	Duration time.Duration
	Easing   Easing
	// Axis is the local axis the tile travels along.
	Axis geom.Axis
	// Lift is the distance between the inactive and active offsets.
	Lift float32
}

func DefaultOptions() Options {
	return Options{
		Duration: 600 * time.Millisecond,
		Easing:   QuadOut,
		Axis:     geom.AxisY,
		Lift:     1,
	}
}

// Task animates one instance toward Target.
type Task struct {
	Ref    instancing.Ref
	Target bool
	Base   mgl32.Mat4

	elapsed  time.Duration
	duration time.Duration
	state    State
}

func (t *Task) State() State { return t.state }

func (t *Task) Elapsed() time.Duration { return t.elapsed }

func (t *Task) linear() float32 {
	if t.duration <= 0 {
		return 1
	}
	return clamp01(float32(t.elapsed) / float32(t.duration))
}

// Completion reports a task that finished during a Tick.
type Completion struct {
	Ref    instancing.Ref
	Active bool
}

type Animator struct {
	registry *instancing.Registry
	store    *tilestate.Store
	opts     Options
	tasks    map[instancing.Ref]*Task
}

func New(registry *instancing.Registry, store *tilestate.Store, opts Options) *Animator {
	if opts.Easing == nil {
		opts.Easing = QuadOut
	}
	return &Animator{
		registry: registry,
		store:    store,
		opts:     opts,
		tasks:    make(map[instancing.Ref]*Task),
	}
}

func (a *Animator) Options() Options { return a.opts }

// Animate starts moving ref toward target. It returns false without touching
// anything when ref is already animating.
func (a *Animator) Animate(ref instancing.Ref, target bool) (bool, error) {
	if a.store.IsAnimating(ref) {
		return false, nil
	}
	base, err := a.registry.At(ref)
	if err != nil {
		return false, err
	}

	rec := a.store.Ensure(ref)
	rec.Animating = true
	rec.Base = base

	a.tasks[ref] = &Task{
		Ref:      ref,
		Target:   target,
		Base:     base,
		duration: a.opts.Duration,
		state:    StateRunning,
	}
	return true, nil
}

// Running is the number of tasks in flight.
func (a *Animator) Running() int { return len(a.tasks) }

// Task returns a copy of the in-flight task for ref.
func (a *Animator) Task(ref instancing.Ref) (Task, bool) {
	t, ok := a.tasks[ref]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Tick advances every running task exactly once, in group then index order,
// and writes the interpolated transforms back to the registry.
func (a *Animator) Tick(dt time.Duration) ([]Completion, error) {
	if len(a.tasks) == 0 {
		return nil, nil
	}

	running := make([]*Task, 0, len(a.tasks))
	for _, t := range a.tasks {
		running = append(running, t)
	}
	sort.Slice(running, func(i, j int) bool {
		return a.registry.Less(running[i].Ref, running[j].Ref)
	})

	var done []Completion
	for _, t := range running {
		t.elapsed += dt
		if err := a.registry.Set(t.Ref, a.current(t)); err != nil {
			return done, fmt.Errorf("animate %s: %w", t.Ref, err)
		}

		if t.elapsed < t.duration {
			continue
		}
		t.state = StateComplete
		rec := a.store.Ensure(t.Ref)
		rec.Animating = false
		rec.Active = t.Target
		delete(a.tasks, t.Ref)
		done = append(done, Completion{Ref: t.Ref, Active: t.Target})
	}
	return done, nil
}

// Compose applies delta in the local frame of ref. A running task keeps
// owning the transform, so delta is folded into its base and survives the
// remaining frames.
func (a *Animator) Compose(ref instancing.Ref, delta mgl32.Mat4) error {
	t, ok := a.tasks[ref]
	if !ok {
		m, err := a.registry.At(ref)
		if err != nil {
			return err
		}
		return a.registry.Set(ref, geom.Compose(m, delta))
	}
	t.Base = geom.Compose(t.Base, delta)
	a.store.Ensure(ref).Base = t.Base
	return a.registry.Set(ref, a.current(t))
}

func (a *Animator) current(t *Task) mgl32.Mat4 {
	offset := a.opts.Easing(t.linear()) * a.opts.Lift
	if !t.Target {
		offset = -offset
	}
	return geom.OffsetAlong(t.Base, a.opts.Axis, offset)
}
