// Package hotplug defines the device discovery interfaces the engine
// consumes.
//
// A Source knows how to find lamp arrays on some transport (MQTT, the local
// terminal, an OS device API). It hands out Watchers that report arrivals
// and departures as Events on a channel, and resolves an announced device
// id into a usable lamp.Array.
//
// Watchers must never block the sender side on a slow consumer for long:
// the engine drains Events on its own goroutine and resolves devices
// asynchronously.
package hotplug

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// ErrUnknownDevice is returned by Resolve when the id was never announced
// or has already gone away.
var ErrUnknownDevice = errors.New("hotplug: unknown device")

// EventType classifies a watcher event.
type EventType int

// Event types.
const (
	Added EventType = iota + 1
	Removed
	EnumerationCompleted
	AvailabilityChanged
)

func (t EventType) String() string {
	switch t {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case EnumerationCompleted:
		return "enumeration_completed"
	case AvailabilityChanged:
		return "availability_changed"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event is a single notification from a Watcher. ID is empty for
// EnumerationCompleted.
type Event struct {
	Type EventType
	ID   string
}

// Watcher reports device arrivals and departures.
type Watcher interface {
	// Events returns the notification channel. It is closed after Stop.
	Events() <-chan Event

	// Start begins emitting events. Devices already present are reported
	// as Added, followed by one EnumerationCompleted.
	Start() error

	// Stop halts emission and releases transport subscriptions. Stopping a
	// stopped watcher is a no-op.
	Stop() error
}

// Source discovers lamp arrays.
type Source interface {
	// Selector returns the query string that identifies this source's
	// device class.
	Selector() string

	// Watch creates a watcher for the devices matched by selector.
	Watch(selector string) (Watcher, error)

	// Resolve turns an announced device id into a lamp.Array.
	Resolve(ctx context.Context, id string) (lamp.Array, error)
}
