package mqttlamp

import (
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// frameQoS is fire-and-forget. A lost frame is replaced by the next tick.
const frameQoS = 0

// Array is a networked lamp array. It implements lamp.Array by publishing
// frames to the device's frame topic.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Array struct {
	id    string
	name  string
	lamps []lamp.Info
	topic string
	pub   Publisher

	mu        sync.Mutex
	available bool
	handlers  map[int]func(lamp.Array)
	nextSub   int
}

func newArray(id string, a Announce, available bool, pub Publisher) *Array {
	return &Array{
		id:        id,
		name:      a.Name,
		lamps:     a.Lamps,
		topic:     mqtt.Topics{}.DeviceFrame(id),
		pub:       pub,
		available: available,
		handlers:  make(map[int]func(lamp.Array)),
	}
}

func (a *Array) ID() string { return a.id }

// Name is the human label from the descriptor, possibly empty.
func (a *Array) Name() string { return a.name }

func (a *Array) LampCount() int { return len(a.lamps) }

func (a *Array) LampInfo(index int) lamp.Info { return a.lamps[index] }

func (a *Array) IsAvailable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.available
}

func (a *Array) SetColor(c lamp.Color) error {
	return a.publish(FillFrame(c))
}

func (a *Array) SetColorsForIndices(colors []lamp.Color, indices []int) error {
	if len(colors) != len(indices) {
		return lamp.ErrLengthMismatch
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(a.lamps) {
			return fmt.Errorf("%w: %d", lamp.ErrIndexOutOfRange, idx)
		}
	}
	return a.publish(IndexedFrame(colors, indices))
}

func (a *Array) publish(f Frame) error {
	if !a.IsAvailable() {
		return lamp.ErrUnavailable
	}
	payload, err := EncodeFrame(f)
	if err != nil {
		return fmt.Errorf("encoding frame for %s: %w", a.id, err)
	}
	if err := a.pub.Publish(a.topic, payload, frameQoS, false); err != nil {
		return fmt.Errorf("publishing frame for %s: %w", a.id, err)
	}
	return nil
}

func (a *Array) OnAvailabilityChanged(fn func(lamp.Array)) func() {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.handlers[id] = fn
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.handlers, id)
			a.mu.Unlock()
		})
	}
}

// setAvailable flips availability and runs subscribers outside the lock.
// It reports whether the state changed.
func (a *Array) setAvailable(available bool) bool {
	a.mu.Lock()
	if a.available == available {
		a.mu.Unlock()
		return false
	}
	a.available = available
	fns := make([]func(lamp.Array), 0, len(a.handlers))
	for _, fn := range a.handlers {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(a)
	}
	return true
}

var _ lamp.Array = (*Array)(nil)
