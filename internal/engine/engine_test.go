package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-lampfx/internal/hotplug/hotplugtest"
	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
	"github.com/nerrad567/gray-logic-lampfx/internal/lamp/lamptest"
)

var (
	red   = lamp.RGB(0xff, 0, 0)
	green = lamp.RGB(0, 0xff, 0)
	blue  = lamp.RGB(0, 0, 0xff)
)

// fakeClock is a manually stepped Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// fakeInventory records attach/detach calls.
type fakeInventory struct {
	mu       sync.Mutex
	attached []string
	detached []string
}

func (f *fakeInventory) RecordAttached(_ context.Context, id string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached = append(f.attached, id)
	return nil
}

func (f *fakeInventory) RecordDetached(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached = append(f.detached, id)
	return nil
}

func (f *fakeInventory) snapshot() (attached, detached []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.attached...), append([]string(nil), f.detached...)
}

// recordingObserver keeps every FrameStats.
type recordingObserver struct {
	frames []FrameStats
}

func (r *recordingObserver) ObserveFrame(s FrameStats) {
	r.frames = append(r.frames, s)
}

type fixture struct {
	c      *Controller
	clock  *fakeClock
	source *hotplugtest.FakeSource
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	clock := newFakeClock()
	src := hotplugtest.NewSource()
	c := New(src, cfg, WithClock(clock))
	t.Cleanup(func() { _ = c.Close() })

	return &fixture{c: c, clock: clock, source: src}
}

// instantConfig disables blending.
func instantConfig() Config {
	cfg := DefaultConfig()
	cfg.SmoothTransition = false
	return cfg
}

// attach registers arr directly, bypassing the hotplug source.
func (f *fixture) attach(arr *lamptest.FakeArray) *lamptest.FakeArray {
	f.c.registry.Add(arr.ID(), arr)
	return arr
}

func requireFrame(t *testing.T, arr *lamptest.FakeArray) []lamp.Color {
	t.Helper()
	frame := arr.LastFrame()
	require.NotNil(t, frame, "device %s received no frame", arr.ID())
	return frame
}
