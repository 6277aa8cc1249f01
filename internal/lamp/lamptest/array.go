// Package lamptest provides an in-memory lamp.Array for tests.
package lamptest

import (
	"errors"
	"sync"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// ErrSubmit is the error returned when a FakeArray is told to fail.
var ErrSubmit = errors.New("lamptest: submission failed")

// FakeArray records every frame it receives.
type FakeArray struct {
	id    string
	lamps []lamp.Info

	mu        sync.Mutex
	available bool
	failing   bool
	panicking bool
	frames    [][]lamp.Color
	fill      *lamp.Color
	handlers  map[int]func(lamp.Array)
	nextSub   int
}

// NewArray returns an available array with the given lamp geometry.
func NewArray(id string, lamps ...lamp.Info) *FakeArray {
	return &FakeArray{
		id:        id,
		lamps:     lamps,
		available: true,
		handlers:  make(map[int]func(lamp.Array)),
	}
}

// Row returns n control lamps laid out left to right, spacing apart, at y.
func Row(n int, spacing, y float64) []lamp.Info {
	out := make([]lamp.Info, n)
	for i := range out {
		out[i] = lamp.Info{
			Index:    i,
			Position: lamp.Position{X: float64(i) * spacing, Y: y},
			Purposes: lamp.PurposeControl,
		}
	}
	return out
}

func (a *FakeArray) ID() string     { return a.id }
func (a *FakeArray) LampCount() int { return len(a.lamps) }

func (a *FakeArray) IsAvailable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.available
}

func (a *FakeArray) LampInfo(index int) lamp.Info {
	return a.lamps[index]
}

func (a *FakeArray) SetColor(c lamp.Color) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkLocked(); err != nil {
		return err
	}
	a.fill = &c
	return nil
}

func (a *FakeArray) SetColorsForIndices(colors []lamp.Color, indices []int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkLocked(); err != nil {
		return err
	}
	if len(colors) != len(indices) {
		return lamp.ErrLengthMismatch
	}
	frame := make([]lamp.Color, len(a.lamps))
	for i, idx := range indices {
		if idx < 0 || idx >= len(frame) {
			return lamp.ErrIndexOutOfRange
		}
		frame[idx] = colors[i]
	}
	a.frames = append(a.frames, frame)
	return nil
}

func (a *FakeArray) checkLocked() error {
	if a.panicking {
		panic("lamptest: device exploded")
	}
	if a.failing {
		return ErrSubmit
	}
	return nil
}

func (a *FakeArray) OnAvailabilityChanged(fn func(lamp.Array)) func() {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.handlers[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.handlers, id)
		a.mu.Unlock()
	}
}

// SetAvailable flips availability and notifies subscribers.
func (a *FakeArray) SetAvailable(available bool) {
	a.mu.Lock()
	a.available = available
	handlers := make([]func(lamp.Array), 0, len(a.handlers))
	for _, h := range a.handlers {
		handlers = append(handlers, h)
	}
	a.mu.Unlock()

	for _, h := range handlers {
		h(a)
	}
}

// SetFailing makes every submission return ErrSubmit.
func (a *FakeArray) SetFailing(failing bool) {
	a.mu.Lock()
	a.failing = failing
	a.mu.Unlock()
}

// SetPanicking makes every submission panic.
func (a *FakeArray) SetPanicking(panicking bool) {
	a.mu.Lock()
	a.panicking = panicking
	a.mu.Unlock()
}

// Subscribers returns the number of live availability subscriptions.
func (a *FakeArray) Subscribers() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.handlers)
}

// Frames returns a copy of every frame submitted so far.
func (a *FakeArray) Frames() [][]lamp.Color {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([][]lamp.Color, len(a.frames))
	copy(out, a.frames)
	return out
}

// LastFrame returns the most recent frame, or nil.
func (a *FakeArray) LastFrame() []lamp.Color {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.frames) == 0 {
		return nil
	}
	return a.frames[len(a.frames)-1]
}

// Fill returns the last colour passed to SetColor.
func (a *FakeArray) Fill() (lamp.Color, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fill == nil {
		return lamp.Color{}, false
	}
	return *a.fill, true
}
