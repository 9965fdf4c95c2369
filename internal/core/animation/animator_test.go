package animation

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/tileboard/internal/core/geom"
	"github.com/zeusync/tileboard/internal/core/instancing"
	"github.com/zeusync/tileboard/internal/core/tilestate"
)

const frame = 16 * time.Millisecond

func setup(t *testing.T, tiles int) (*instancing.Registry, *tilestate.Store, *Animator) {
	t.Helper()
	reg, err := instancing.NewRegistry(instancing.DefaultGroupNames, 900)
	require.NoError(t, err)
	for i := 0; i < tiles; i++ {
		_, err := reg.Add("first", geom.At(mgl32.Vec3{float32(i), 0.125, 0}))
		require.NoError(t, err)
	}
	store := tilestate.NewStore()
	return reg, store, New(reg, store, DefaultOptions())
}

func runFor(t *testing.T, a *Animator, d time.Duration) []Completion {
	t.Helper()
	var all []Completion
	for elapsed := time.Duration(0); elapsed < d; elapsed += frame {
		done, err := a.Tick(frame)
		require.NoError(t, err)
		all = append(all, done...)
	}
	return all
}

func TestToggleMidFlightIsNoop(t *testing.T) {
	reg, store, a := setup(t, 6)
	ref := instancing.Ref{Group: "first", Index: 5}

	started, err := a.Animate(ref, true)
	require.NoError(t, err)
	require.True(t, started)

	runFor(t, a, 200*time.Millisecond)
	rec, ok := store.Lookup(ref)
	require.True(t, ok)
	assert.True(t, rec.Animating)
	assert.False(t, rec.Active, "active must not change mid-flight")

	started, err = a.Animate(ref, false)
	require.NoError(t, err)
	assert.False(t, started)

	task, ok := a.Task(ref)
	require.True(t, ok)
	assert.True(t, task.Target)
	assert.Equal(t, StateRunning, task.State())

	done := runFor(t, a, 600*time.Millisecond)
	assert.Equal(t, []Completion{{Ref: ref, Active: true}}, done)

	rec, _ = store.Lookup(ref)
	assert.True(t, rec.Active)
	assert.False(t, rec.Animating)
	assert.Equal(t, 0, a.Running())

	m, err := reg.At(ref)
	require.NoError(t, err)
	assert.InDelta(t, 1.125, geom.Position(m).Y(), 1e-5)
}

func TestDeactivateReturnsToRest(t *testing.T) {
	reg, store, a := setup(t, 1)
	ref := instancing.Ref{Group: "first", Index: 0}
	rest, _ := reg.At(ref)

	_, err := a.Animate(ref, true)
	require.NoError(t, err)
	runFor(t, a, time.Second)
	_, err = a.Animate(ref, false)
	require.NoError(t, err)
	runFor(t, a, time.Second)

	m, _ := reg.At(ref)
	assert.True(t, geom.Equal(rest, m))
	assert.False(t, store.IsActive(ref))
}

func TestIntermediateFramesAreEasedAndDirty(t *testing.T) {
	reg, _, a := setup(t, 1)
	ref := instancing.Ref{Group: "first", Index: 0}
	reg.FlushAll()

	_, err := a.Animate(ref, true)
	require.NoError(t, err)

	_, err = a.Tick(300 * time.Millisecond)
	require.NoError(t, err)

	m, _ := reg.At(ref)
	assert.InDelta(t, 0.125+QuadOut(0.5), geom.Position(m).Y(), 1e-5)
	updates := reg.FlushAll()
	require.Len(t, updates, 1)
	assert.Equal(t, ref, updates[0].Ref)
}

func TestTasksAdvanceInStableOrder(t *testing.T) {
	_, _, a := setup(t, 3)
	for _, i := range []int{2, 0, 1} {
		_, err := a.Animate(instancing.Ref{Group: "first", Index: i}, true)
		require.NoError(t, err)
	}
	done, err := a.Tick(time.Second)
	require.NoError(t, err)
	require.Len(t, done, 3)
	for i, c := range done {
		assert.Equal(t, i, c.Ref.Index)
	}
}

func TestAnimateUnknownInstance(t *testing.T) {
	_, store, a := setup(t, 0)
	ref := instancing.Ref{Group: "first", Index: 0}
	started, err := a.Animate(ref, true)
	assert.ErrorIs(t, err, instancing.ErrInvalidIndex)
	assert.False(t, started)
	assert.Equal(t, 0, store.Len())
}

func TestZeroDurationCompletesOnFirstTick(t *testing.T) {
	reg, err := instancing.NewRegistry([]string{"first"}, 1)
	require.NoError(t, err)
	ref, err := reg.Add("first", mgl32.Ident4())
	require.NoError(t, err)
	store := tilestate.NewStore()
	opts := DefaultOptions()
	opts.Duration = 0
	a := New(reg, store, opts)

	_, err = a.Animate(ref, true)
	require.NoError(t, err)
	done, err := a.Tick(0)
	require.NoError(t, err)
	assert.Len(t, done, 1)
	assert.True(t, store.IsActive(ref))
}

func TestEasings(t *testing.T) {
	for name, e := range easings {
		assert.InDelta(t, 0, e(0), 1e-6, name)
		assert.InDelta(t, 1, e(1), 1e-6, name)
		prev := float32(0)
		for i := 1; i <= 10; i++ {
			v := e(float32(i) / 10)
			assert.GreaterOrEqual(t, v, prev, name)
			prev = v
		}
	}

	e, err := ParseEasing("")
	require.NoError(t, err)
	assert.InDelta(t, QuadOut(0.3), e(0.3), 1e-6)

	_, err = ParseEasing("bounce")
	assert.Error(t, err)
}

func TestComposeFoldsIntoRunningTask(t *testing.T) {
	reg, store, a := setup(t, 2)
	moving := instancing.Ref{Group: "first", Index: 0}
	idle := instancing.Ref{Group: "first", Index: 1}
	rest, _ := reg.At(moving)

	_, err := a.Animate(moving, true)
	require.NoError(t, err)
	runFor(t, a, 100*time.Millisecond)

	require.NoError(t, a.Compose(moving, geom.Hide))
	m, _ := reg.At(moving)
	assert.True(t, geom.IsDegenerate(m))
	rec, _ := store.Lookup(moving)
	assert.True(t, geom.IsDegenerate(rec.Base))

	runFor(t, a, time.Second)
	m, _ = reg.At(moving)
	assert.True(t, geom.IsDegenerate(m))
	assert.True(t, store.IsActive(moving))
	assert.False(t, geom.Equal(rest, m))

	idleRest, _ := reg.At(idle)
	require.NoError(t, a.Compose(idle, geom.QuarterTurnY))
	m, _ = reg.At(idle)
	assert.True(t, geom.Equal(idleRest.Mul4(geom.QuarterTurnY), m))
	assert.Equal(t, 0, a.Running())

	assert.Error(t, a.Compose(instancing.Ref{Group: "first", Index: 9}, geom.Hide))
}
