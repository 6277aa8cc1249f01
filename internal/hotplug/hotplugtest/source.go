// Package hotplugtest provides an in-memory hotplug.Source for tests.
package hotplugtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-lampfx/internal/hotplug"
	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// Selector is the selector string FakeSource answers to.
const Selector = "hotplugtest"

// FakeSource is a scriptable hotplug.Source. Devices are plugged and
// unplugged explicitly; events go to every started watcher.
type FakeSource struct {
	mu       sync.Mutex
	devices  map[string]lamp.Array
	failures map[string]error
	gate     chan struct{}
	watchers []*FakeWatcher
	watchErr error
	resolves int
}

// NewSource returns an empty source.
func NewSource() *FakeSource {
	return &FakeSource{
		devices:  make(map[string]lamp.Array),
		failures: make(map[string]error),
	}
}

func (s *FakeSource) Selector() string { return Selector }

// Watch returns a new watcher. It fails with the error set by FailWatch.
func (s *FakeSource) Watch(selector string) (hotplug.Watcher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watchErr != nil {
		return nil, s.watchErr
	}
	if selector != Selector {
		return nil, fmt.Errorf("hotplugtest: unexpected selector %q", selector)
	}

	w := &FakeWatcher{source: s, events: make(chan hotplug.Event, 64)}
	s.watchers = append(s.watchers, w)
	return w, nil
}

// Resolve returns the plugged array, waiting for Release first when the
// source is held.
func (s *FakeSource) Resolve(ctx context.Context, id string) (lamp.Array, error) {
	s.mu.Lock()
	gate := s.gate
	s.resolves++
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failures[id]; ok {
		return nil, err
	}
	arr, ok := s.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", hotplug.ErrUnknownDevice, id)
	}
	return arr, nil
}

// Plug makes arr resolvable and emits Added.
func (s *FakeSource) Plug(arr lamp.Array) {
	s.mu.Lock()
	s.devices[arr.ID()] = arr
	s.mu.Unlock()
	s.emit(hotplug.Event{Type: hotplug.Added, ID: arr.ID()})
}

// Unplug forgets the device and emits Removed.
func (s *FakeSource) Unplug(id string) {
	s.mu.Lock()
	delete(s.devices, id)
	s.mu.Unlock()
	s.emit(hotplug.Event{Type: hotplug.Removed, ID: id})
}

// Announce emits Added for an id without making it resolvable.
func (s *FakeSource) Announce(id string) {
	s.emit(hotplug.Event{Type: hotplug.Added, ID: id})
}

// FailResolve makes Resolve(id) return err.
func (s *FakeSource) FailResolve(id string, err error) {
	s.mu.Lock()
	s.failures[id] = err
	s.mu.Unlock()
}

// FailWatch makes Watch return err.
func (s *FakeSource) FailWatch(err error) {
	s.mu.Lock()
	s.watchErr = err
	s.mu.Unlock()
}

// Hold blocks every subsequent Resolve until Release.
func (s *FakeSource) Hold() {
	s.mu.Lock()
	s.gate = make(chan struct{})
	s.mu.Unlock()
}

// Release unblocks resolutions held by Hold.
func (s *FakeSource) Release() {
	s.mu.Lock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
	s.mu.Unlock()
}

// Resolves reports how many times Resolve was called.
func (s *FakeSource) Resolves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolves
}

// Watchers returns every watcher created so far.
func (s *FakeSource) Watchers() []*FakeWatcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*FakeWatcher(nil), s.watchers...)
}

func (s *FakeSource) emit(ev hotplug.Event) {
	for _, w := range s.Watchers() {
		w.send(ev)
	}
}

func (s *FakeSource) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.devices))
	for id := range s.devices {
		ids = append(ids, id)
	}
	return ids
}

// FakeWatcher is the watcher handed out by FakeSource.
type FakeWatcher struct {
	source *FakeSource
	events chan hotplug.Event

	mu      sync.Mutex
	started bool
	stopped bool
	starts  int
	stops   int
}

func (w *FakeWatcher) Events() <-chan hotplug.Event { return w.events }

// Start reports every plugged device followed by EnumerationCompleted.
func (w *FakeWatcher) Start() error {
	w.mu.Lock()
	w.starts++
	w.started = true
	w.mu.Unlock()

	for _, id := range w.source.snapshot() {
		w.send(hotplug.Event{Type: hotplug.Added, ID: id})
	}
	w.send(hotplug.Event{Type: hotplug.EnumerationCompleted})
	return nil
}

func (w *FakeWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stops++
	if !w.stopped {
		w.stopped = true
		close(w.events)
	}
	return nil
}

// Starts and Stops count lifecycle calls.
func (w *FakeWatcher) Starts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.starts
}

func (w *FakeWatcher) Stops() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stops
}

func (w *FakeWatcher) send(ev hotplug.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started || w.stopped {
		return
	}
	w.events <- ev
}
