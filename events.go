package phasor

import (
	"reflect"
)

// Events is the typed event queue for one event type, registered as a world
// resource. It wraps a broadcast channel; each EventReader holds its own
// cursor so every reader sees every event.
type Events[T any] struct {
	channel *Broadcast[T]
}

// NewEvents constructs an event queue with the given ring capacity.
func NewEvents[T any](capacity int) Events[T] {
	return Events[T]{channel: NewBroadcast[T](capacity)}
}

// Send pushes an event, blocking while the slowest reader still needs the
// oldest buffered slot.
func (e *Events[T]) Send(v T) error { return e.channel.Push(v) }

// TrySend pushes an event without blocking.
func (e *Events[T]) TrySend(v T) error { return e.channel.TryPush(v) }

// Channel exposes the underlying broadcast channel.
func (e *Events[T]) Channel() *Broadcast[T] { return e.channel }

// Deinit closes the channel when the resource is replaced or removed.
func (e *Events[T]) Deinit() {
	if e.channel != nil {
		e.channel.Close()
	}
}

// eventSubKey derives the subscription key for a (system, event type) pair.
func eventSubKey[T any](sysID uint64) uint64 {
	return sysID ^ hashName(fullTypeName(reflect.TypeFor[T]()))
}

// RegisterEvents installs an Events[T] resource on the world, replacing any
// prior queue for the type.
func RegisterEvents[T any](w *World, capacity int) {
	InsertResource(w.resources, NewEvents[T](capacity))
}

// EventWriter sends events of type T from inside a system. Binding fails
// unless Events[T] was registered on the world.
type EventWriter[T any] struct {
	events *Events[T]
}

func (w *EventWriter[T]) initSystemParam(c *Commands, _ uint64) error {
	ev, ok := GetResource[Events[T]](c.world.resources)
	if !ok {
		return ErrEventMustBeRegistered
	}
	w.events = ev
	return nil
}

// Send pushes an event, blocking on backpressure.
func (w *EventWriter[T]) Send(v T) error { return w.events.Send(v) }

// TrySend pushes an event without blocking.
func (w *EventWriter[T]) TrySend(v T) error { return w.events.TrySend(v) }

// EventReader drains events of type T inside a system. The subscription is
// created once, when the system joins a schedule, keyed by the system's
// identity XOR the event type hash; it is owned by the Events resource and
// released when the system leaves the schedule.
type EventReader[T any] struct {
	sub *Subscription[T]
}

func (r *EventReader[T]) registerSystemParam(sysID uint64, w *World) error {
	ev, ok := GetResource[Events[T]](w.resources)
	if !ok {
		return ErrEventMustBeRegistered
	}
	ev.channel.Subscribe(eventSubKey[T](sysID))
	return nil
}

func (r *EventReader[T]) unregisterSystemParam(sysID uint64, w *World) {
	ev, ok := GetResource[Events[T]](w.resources)
	if !ok {
		return
	}
	if sub, ok := ev.channel.subscription(eventSubKey[T](sysID)); ok {
		sub.Close()
	}
}

func (r *EventReader[T]) initSystemParam(c *Commands, sysID uint64) error {
	ev, ok := GetResource[Events[T]](c.world.resources)
	if !ok {
		return ErrEventMustBeRegistered
	}
	sub, ok := ev.channel.subscription(eventSubKey[T](sysID))
	if !ok {
		return ErrEventReaderNotSubscribed
	}
	r.sub = sub
	return nil
}

// Next returns the next pending event without blocking.
func (r *EventReader[T]) Next() (T, bool) { return r.sub.TryRecv() }

// Recv blocks until an event arrives or the queue closes.
func (r *EventReader[T]) Recv() (T, error) { return r.sub.Recv() }

// Pending returns how many events are buffered ahead of this reader.
func (r *EventReader[T]) Pending() uint64 { return r.sub.Pending() }
