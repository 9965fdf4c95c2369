package bus

import (
	"time"

	"github.com/zeusync/tileboard/internal/core/instancing"
)

// EventBus is an in-process pub/sub bus for board notifications.
//
// Key characteristics:
// - Type-based fan-out: handlers subscribe by Event.Type, or to every type with Wildcard.
// - Synchronous delivery: Publish calls handlers in the caller goroutine, in subscription order.
// - Error aggregation: handler errors are joined and returned from Publish.
// - Optional observability: metrics are collected only while observers are registered.
//
// Handlers must not publish back into the bus they are called from.
type EventBus interface {
	Publish(event Event) error
	PublishBatch(events ...Event) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	Unsubscribe(Subscription) error

	AddObserver(obs EventBusObserver)
	RemoveObserver(obs EventBusObserver)
	GetMetrics() EventBusMetrics
}

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// Board event types.
const (
	TileCreated      = "tile.created"
	TileActivated    = "tile.activated"
	TileDeactivated  = "tile.deactivated"
	TileDeleted      = "tile.deleted"
	TileRotated      = "tile.rotated"
	TileSelected     = "tile.selected"
	SelectionCleared = "selection.cleared"
	ToolChanged      = "tool.changed"
	HeroMoved        = "hero.moved"
)

// Event is a value published on the bus. Ref is zero for events that do not
// concern a single tile.
type Event struct {
	Type      string         `json:"type"`
	Source    string         `json:"source,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Ref       instancing.Ref `json:"ref"`
	Data      any            `json:"data,omitempty"`
}

// NewEvent stamps an event with the current time.
func NewEvent(typ, src string, ref instancing.Ref, data any) Event {
	return Event{Type: typ, Source: src, Timestamp: time.Now(), Ref: ref, Data: data}
}

type EventHandler func(event Event) error

type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// EventBusObserver is notified about deliveries. Observers should return quickly.
type EventBusObserver interface {
	OnPublish(eventType string, event Event)
	OnDelivered(eventType string, handlers int, err error, elapsed time.Duration)
}

type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}
