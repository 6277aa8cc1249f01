package device

import (
	"iter"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
	"github.com/nerrad567/gray-logic-lampfx/internal/zone"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AvailabilityHandler is told when a registered array becomes available or
// unavailable. It runs on the array's notification goroutine and must not
// call back into the Registry.
type AvailabilityHandler func(id string, available bool)

type entry struct {
	array   lamp.Array
	cancel  func()
	mapping zone.Mapping
}

// Registry tracks the lamp arrays currently attached.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	onAvail AvailabilityHandler
	logger  Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetAvailabilityHandler installs fn for arrays added from now on.
func (r *Registry) SetAvailabilityHandler(fn AvailabilityHandler) {
	r.mu.Lock()
	r.onAvail = fn
	r.mu.Unlock()
}

// Add registers arr under id. An existing entry with the same id is
// unsubscribed and replaced; the OS layer sometimes refreshes a device
// without reporting its removal first.
//
// Parameters:
//   - id: stable device id from the hotplug source
//   - arr: the resolved lamp array
//
// Returns:
//   - bool: true if a stale entry was replaced
func (r *Registry) Add(id string, arr lamp.Array) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	stale, replaced := r.entries[id]
	if replaced {
		stale.cancel()
	}

	e := &entry{array: arr, cancel: func() {}}
	if fn := r.onAvail; fn != nil {
		e.cancel = arr.OnAvailabilityChanged(func(a lamp.Array) {
			fn(id, a.IsAvailable())
		})
	}
	r.entries[id] = e

	r.logger.Info("lamp array registered",
		"device_id", id,
		"lamps", arr.LampCount(),
		"replaced", replaced,
	)
	return replaced
}

// Remove unsubscribes and drops the entry for id.
//
// Returns:
//   - bool: false if no such entry existed
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.cancel()
	delete(r.entries, id)

	r.logger.Info("lamp array removed", "device_id", id)
	return true
}

// Clear unsubscribes and drops every entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.entries {
		e.cancel()
		delete(r.entries, id)
	}
}

// Get returns the array registered under id, available or not.
func (r *Registry) Get(id string) (lamp.Array, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.array, true
}

// Count returns the number of registered arrays, available or not.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// IsAnyAvailable reports whether at least one registered array is available.
func (r *Registry) IsAnyAvailable() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.array.IsAvailable() {
			return true
		}
	}
	return false
}

// Available yields every available array. The read lock is held for the
// whole iteration, so the loop body must not add or remove devices.
func (r *Registry) Available() iter.Seq2[string, lamp.Array] {
	return func(yield func(string, lamp.Array) bool) {
		r.mu.RLock()
		defer r.mu.RUnlock()

		for id, e := range r.entries {
			if !e.array.IsAvailable() {
				continue
			}
			if !yield(id, e.array) {
				return
			}
		}
	}
}

// SetMapping stores the zone mapping built for id.
//
// Returns:
//   - bool: false if id is not registered
func (r *Registry) SetMapping(id string, m zone.Mapping) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.mapping = m
	return true
}

// Mapping returns the zone mapping stored for id.
func (r *Registry) Mapping(id string) (zone.Mapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return zone.Mapping{}, false
	}
	return e.mapping, true
}
