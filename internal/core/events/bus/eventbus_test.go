package bus

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/tileboard/internal/core/instancing"
)

type testObserver struct {
	publishCount   int
	deliveredCount int
	lastErr        error
}

func (o *testObserver) OnPublish(_ string, _ Event) {
	o.publishCount++
}

func (o *testObserver) OnDelivered(_ string, handlers int, err error, _ time.Duration) {
	o.deliveredCount += handlers
	o.lastErr = err
}

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	ref := instancing.Ref{Group: "first", Index: 4}

	var got []Event
	_, err := b.Subscribe(TileActivated, func(e Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(NewEvent(TileActivated, "board", ref, nil)))
	require.NoError(t, b.Publish(NewEvent(TileDeleted, "board", ref, nil)))

	require.Len(t, got, 1)
	assert.Equal(t, ref, got[0].Ref)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestWildcardReceivesAfterTypedHandlers(t *testing.T) {
	b := New()
	var order []string
	_, _ = b.Subscribe(Wildcard, func(e Event) error { order = append(order, "wild:"+e.Type); return nil })
	_, _ = b.Subscribe(ToolChanged, func(e Event) error { order = append(order, "typed"); return nil })

	require.NoError(t, b.Publish(NewEvent(ToolChanged, "board", instancing.Ref{}, "create")))
	require.NoError(t, b.Publish(NewEvent(HeroMoved, "board", instancing.Ref{}, nil)))

	assert.Equal(t, []string{"typed", "wild:" + ToolChanged, "wild:" + HeroMoved}, order)
}

func TestHandlerErrorsAreJoined(t *testing.T) {
	b := New()
	e1 := errors.New("one")
	e2 := errors.New("two")
	_, _ = b.Subscribe(TileRotated, func(Event) error { return e1 })
	_, _ = b.Subscribe(TileRotated, func(Event) error { return e2 })

	err := b.PublishBatch(NewEvent(TileRotated, "", instancing.Ref{}, nil))
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	count := 0
	sub, err := b.Subscribe(TileSelected, func(Event) error { count++; return nil })
	require.NoError(t, err)

	_ = b.Publish(NewEvent(TileSelected, "", instancing.Ref{}, nil))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	_ = b.Publish(NewEvent(TileSelected, "", instancing.Ref{}, nil))

	assert.Equal(t, 1, count)
	assert.False(t, sub.IsActive())
	assert.NotEmpty(t, sub.ID())
	assert.NoError(t, b.Unsubscribe(nil))

	_, err = b.Subscribe(TileSelected, nil)
	assert.Error(t, err)
}

// Run with -race: cancelling from another goroutine while events are being
// delivered must be safe.
func TestCancelWhilePublishing(t *testing.T) {
	b := New()
	subs := make([]Subscription, 0, 8)
	for i := 0; i < 8; i++ {
		sub, err := b.Subscribe(Wildcard, func(Event) error { return nil })
		require.NoError(t, err)
		subs = append(subs, sub)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = b.Publish(NewEvent(TileSelected, "", instancing.Ref{}, nil))
		}
	}()
	go func() {
		defer wg.Done()
		for _, sub := range subs {
			_ = sub.Cancel()
		}
	}()
	wg.Wait()

	for _, sub := range subs {
		assert.False(t, sub.IsActive())
	}
}

func TestObserverMetricsOptional(t *testing.T) {
	b := New()
	_, _ = b.Subscribe(TileCreated, func(Event) error { return nil })
	_ = b.Publish(NewEvent(TileCreated, "", instancing.Ref{}, nil))
	assert.Zero(t, b.GetMetrics().Published)

	obs := &testObserver{}
	b.AddObserver(obs)
	_ = b.Publish(NewEvent(TileCreated, "", instancing.Ref{}, nil))
	m := b.GetMetrics()
	assert.Equal(t, uint64(1), m.Published)
	assert.Equal(t, uint64(1), m.DeliveredHandlers)
	assert.Equal(t, uint64(1), m.SubscribersActive)
	assert.Equal(t, 1, obs.publishCount)
	assert.Equal(t, 1, obs.deliveredCount)

	b.RemoveObserver(obs)
	_ = b.Publish(NewEvent(TileCreated, "", instancing.Ref{}, nil))
	assert.Equal(t, 1, obs.publishCount)
}
