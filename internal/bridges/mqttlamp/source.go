package mqttlamp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-lampfx/internal/hotplug"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

const (
	// subscribeQoS for descriptors and availability, which must not be lost.
	subscribeQoS = 1

	// DefaultSettleDelay is how long watchers wait for retained
	// descriptors before reporting enumeration complete.
	DefaultSettleDelay = 500 * time.Millisecond

	eventBuffer = 16
)

// Publisher sends one MQTT message.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTClient is the subset of *mqtt.Client the bridge needs.
type MQTTClient interface {
	Publisher
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger is the logging surface the bridge needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Source implements hotplug.Source for lamp arrays announced over MQTT.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Source struct {
	client MQTTClient
	settle time.Duration
	logger Logger

	mu        sync.Mutex
	announced map[string]Announce
	offline   map[string]bool
	arrays    map[string]*Array
	watchers  map[*Watcher]struct{}
	active    int
}

// NewSource creates a source using client. A negative settle delay is
// treated as zero.
func NewSource(client MQTTClient, settle time.Duration) *Source {
	return &Source{
		client:    client,
		settle:    max(settle, 0),
		logger:    noopLogger{},
		announced: make(map[string]Announce),
		offline:   make(map[string]bool),
		arrays:    make(map[string]*Array),
		watchers:  make(map[*Watcher]struct{}),
	}
}

// SetLogger sets the logger. Safe to call before any watcher starts.
func (s *Source) SetLogger(logger Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

func (s *Source) log() Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger
}

// Selector identifies networked lamp arrays.
func (s *Source) Selector() string {
	return "mqtt:" + mqtt.Topics{}.AllDeviceAnnounces()
}

// Watch returns a new, unstarted watcher.
func (s *Source) Watch(selector string) (hotplug.Watcher, error) {
	if selector != s.Selector() {
		return nil, fmt.Errorf("mqttlamp: unsupported selector %q", selector)
	}
	return &Watcher{
		source:   s,
		events:   make(chan hotplug.Event, eventBuffer),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		pumpDone: make(chan struct{}),
	}, nil
}

// Resolve returns the array for an announced device. Repeated calls return
// the same array until the device re-announces or goes away.
func (s *Source) Resolve(ctx context.Context, id string) (lamp.Array, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	desc, ok := s.announced[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", hotplug.ErrUnknownDevice, id)
	}
	if arr, ok := s.arrays[id]; ok {
		return arr, nil
	}
	arr := newArray(id, desc, !s.offline[id], s.client)
	s.arrays[id] = arr
	return arr, nil
}

// attach registers w and subscribes if it is the first active watcher.
// It returns the ids already known.
func (s *Source) attach(w *Watcher) (known []string, subscribe bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.watchers[w] = struct{}{}
	s.active++
	for id := range s.announced {
		known = append(known, id)
	}
	slices.Sort(known)
	return known, s.active == 1
}

// detach unregisters w and reports whether it was the last active watcher.
func (s *Source) detach(w *Watcher) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.watchers[w]; !ok {
		return false
	}
	delete(s.watchers, w)
	s.active--
	return s.active == 0
}

func (s *Source) subscribe() error {
	topics := mqtt.Topics{}
	if err := s.client.Subscribe(topics.AllDeviceAnnounces(), subscribeQoS, s.handleAnnounce); err != nil {
		return fmt.Errorf("subscribing to announces: %w", err)
	}
	if err := s.client.Subscribe(topics.AllDeviceAvailability(), subscribeQoS, s.handleAvailability); err != nil {
		_ = s.client.Unsubscribe(topics.AllDeviceAnnounces()) //nolint:errcheck // Best effort on error path
		return fmt.Errorf("subscribing to availability: %w", err)
	}
	return nil
}

func (s *Source) unsubscribe() error {
	topics := mqtt.Topics{}
	return errors.Join(
		s.client.Unsubscribe(topics.AllDeviceAnnounces()),
		s.client.Unsubscribe(topics.AllDeviceAvailability()),
	)
}

// broadcast queues ev on every started watcher.
func (s *Source) broadcast(ev hotplug.Event) {
	s.mu.Lock()
	targets := make([]*Watcher, 0, len(s.watchers))
	for w := range s.watchers {
		targets = append(targets, w)
	}
	s.mu.Unlock()

	for _, w := range targets {
		w.notify(ev)
	}
}

func (s *Source) handleAnnounce(topic string, payload []byte) error {
	id, leaf, ok := mqtt.ParseDeviceTopic(topic)
	if !ok || leaf != mqtt.LeafAnnounce {
		return fmt.Errorf("%w: unexpected topic %q", ErrInvalidAnnounce, topic)
	}

	if len(payload) == 0 {
		s.remove(id)
		return nil
	}

	desc, err := ParseAnnounce(payload)
	if err != nil {
		return fmt.Errorf("device %s: %w", id, err)
	}

	s.mu.Lock()
	prev, known := s.announced[id]
	if known && prev.Name == desc.Name && slices.Equal(prev.Lamps, desc.Lamps) {
		s.mu.Unlock()
		return nil
	}
	s.announced[id] = desc
	stale := s.arrays[id]
	delete(s.arrays, id)
	logger := s.logger
	s.mu.Unlock()

	if stale != nil {
		stale.setAvailable(false)
	}
	logger.Info("lamp array announced", "device_id", id, "lamps", len(desc.Lamps), "name", desc.Name)
	s.broadcast(hotplug.Event{Type: hotplug.Added, ID: id})
	return nil
}

func (s *Source) remove(id string) {
	s.mu.Lock()
	if _, known := s.announced[id]; !known {
		s.mu.Unlock()
		return
	}
	delete(s.announced, id)
	delete(s.offline, id)
	stale := s.arrays[id]
	delete(s.arrays, id)
	logger := s.logger
	s.mu.Unlock()

	if stale != nil {
		stale.setAvailable(false)
	}
	logger.Info("lamp array withdrawn", "device_id", id)
	s.broadcast(hotplug.Event{Type: hotplug.Removed, ID: id})
}

func (s *Source) handleAvailability(topic string, payload []byte) error {
	id, leaf, ok := mqtt.ParseDeviceTopic(topic)
	if !ok || leaf != mqtt.LeafAvailability {
		return fmt.Errorf("mqttlamp: unexpected availability topic %q", topic)
	}

	var online bool
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case PayloadOnline:
		online = true
	case PayloadOffline:
	default:
		return fmt.Errorf("mqttlamp: device %s: unknown availability %q", id, payload)
	}

	s.mu.Lock()
	wasOnline := !s.offline[id]
	if online {
		delete(s.offline, id)
	} else {
		s.offline[id] = true
	}
	_, announced := s.announced[id]
	arr := s.arrays[id]
	s.mu.Unlock()

	if wasOnline == online {
		return nil
	}
	if arr != nil {
		arr.setAvailable(online)
	}
	if announced {
		s.broadcast(hotplug.Event{Type: hotplug.AvailabilityChanged, ID: id})
	}
	return nil
}

var _ hotplug.Source = (*Source)(nil)
