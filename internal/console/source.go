package console

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-lampfx/internal/hotplug"
	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// Selector is the only selector Source answers to.
const Selector = "console"

// Source exposes a single Array as a hotplug.Source.
type Source struct {
	array *Array
}

// NewSource wraps arr.
func NewSource(arr *Array) *Source {
	return &Source{array: arr}
}

func (s *Source) Selector() string { return Selector }

func (s *Source) Watch(selector string) (hotplug.Watcher, error) {
	if selector != Selector {
		return nil, fmt.Errorf("console: unsupported selector %q", selector)
	}
	return &watcher{events: make(chan hotplug.Event, 2)}, nil
}

func (s *Source) Resolve(ctx context.Context, id string) (lamp.Array, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id != DeviceID {
		return nil, fmt.Errorf("%w: %s", hotplug.ErrUnknownDevice, id)
	}
	return s.array, nil
}

// watcher reports the terminal once, then enumeration complete.
type watcher struct {
	events chan hotplug.Event
	mu     sync.Mutex
	state  int
}

const (
	watcherIdle = iota
	watcherStarted
	watcherStopped
)

func (w *watcher) Events() <-chan hotplug.Event { return w.events }

func (w *watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != watcherIdle {
		return fmt.Errorf("console: watcher already started")
	}
	w.state = watcherStarted
	w.events <- hotplug.Event{Type: hotplug.Added, ID: DeviceID}
	w.events <- hotplug.Event{Type: hotplug.EnumerationCompleted}
	return nil
}

func (w *watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == watcherStopped {
		return nil
	}
	w.state = watcherStopped
	close(w.events)
	return nil
}

var _ hotplug.Source = (*Source)(nil)
