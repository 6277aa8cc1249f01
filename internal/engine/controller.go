package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-lampfx/internal/device"
	"github.com/nerrad567/gray-logic-lampfx/internal/effect"
	"github.com/nerrad567/gray-logic-lampfx/internal/hotplug"
	"github.com/nerrad567/gray-logic-lampfx/internal/zone"
)

// Logger defines the logging interface used by the Controller.
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

// inventoryTimeout bounds each inventory write on the hotplug path.
const inventoryTimeout = 5 * time.Second

// Controller renders effects onto every attached lamp array.
//
// All public methods are thread-safe. UpdateEffect calls are serialised
// internally.
type Controller struct {
	source    hotplug.Source
	registry  *device.Registry
	inventory device.Inventory
	logger    Logger
	observer  FrameObserver
	clock     Clock
	epoch     time.Time

	brightness atomicFloat
	speed      atomicFloat
	smooth     atomic.Bool
	transition atomic.Int64

	sched     scheduler
	renderMu  sync.Mutex
	overrides overrideTable
	lastFrame sync.Map // int -> lamp.Color

	layoutMu sync.Mutex
	layout   *zone.Layout

	// lifecycle
	lifeMu  sync.Mutex
	watcher hotplug.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool

	// resolutions in flight, keyed by device id
	pendingMu sync.Mutex
	pending   map[string]uint64
	nextToken uint64
	resolving sync.WaitGroup
}

// New creates a controller that discovers devices through source.
//
// Parameters:
//   - source: hotplug source; may be nil if Start is never called
//   - cfg: initial render configuration (values are clamped)
//   - opts: optional behaviour such as a fake clock
//
// Returns:
//   - *Controller: stopped controller ready for Start
func New(source hotplug.Source, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		source:   source,
		registry: device.NewRegistry(),
		logger:   noopLogger{},
		clock:    systemClock{},
		pending:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.epoch = c.clock.Now()

	c.SetBrightness(cfg.Brightness)
	c.SetSpeed(cfg.Speed)
	c.SetSmoothTransition(cfg.SmoothTransition)
	c.SetTransitionDuration(cfg.TransitionDuration)

	c.registry.SetAvailabilityHandler(c.onAvailabilityChanged)
	return c
}

// SetLogger sets the logger for the controller and its registry.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
	c.registry.SetLogger(logger)
}

// SetInventory records device attach/detach in inv.
func (c *Controller) SetInventory(inv device.Inventory) {
	c.inventory = inv
}

// SetObserver reports per-frame statistics to obs.
func (c *Controller) SetObserver(obs FrameObserver) {
	c.observer = obs
}

// Registry exposes the device registry.
func (c *Controller) Registry() *device.Registry {
	return c.registry
}

// Start subscribes to the hotplug source. Calling Start while started is a
// no-op.
//
// Parameters:
//   - ctx: bounds the event loop and device resolution
//
// Returns:
//   - error: ErrClosed, ErrNoSource, or a watcher failure
func (c *Controller) Start(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.watcher != nil {
		return nil
	}
	if c.source == nil {
		return ErrNoSource
	}

	c.logger.Info("starting lamp array watcher", "selector", c.source.Selector())

	w, err := c.source.Watch(c.source.Selector())
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go c.watch(loopCtx, w, done)

	if err := w.Start(); err != nil {
		cancel()
		_ = w.Stop() //nolint:errcheck // best effort cleanup on error path
		<-done
		return fmt.Errorf("starting watcher: %w", err)
	}

	c.watcher = w
	c.cancel = cancel
	c.done = done

	c.logger.Info("lamp array watcher started")
	return nil
}

// Stop unsubscribes from the hotplug source, waits for in-flight
// resolutions, and forgets every device. Calling Stop while stopped is a
// no-op.
func (c *Controller) Stop() error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	return c.stopLocked()
}

func (c *Controller) stopLocked() error {
	if c.watcher == nil {
		return nil
	}

	c.logger.Info("stopping lamp array watcher")

	c.cancel()
	err := c.watcher.Stop()
	<-c.done

	c.pendingMu.Lock()
	clear(c.pending)
	c.pendingMu.Unlock()
	c.resolving.Wait()

	for _, id := range c.registry.IDs() {
		c.recordDetached(id)
	}
	c.registry.Clear()

	c.watcher, c.cancel, c.done = nil, nil, nil

	if err != nil {
		return fmt.Errorf("stopping watcher: %w", err)
	}
	c.logger.Info("lamp array watcher stopped")
	return nil
}

// Close stops the controller for good. Further Start calls fail.
func (c *Controller) Close() error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.stopLocked()
}

// IsAvailable reports whether any registered device is available.
func (c *Controller) IsAvailable() bool {
	return c.registry.IsAnyAvailable()
}

// SetEffect switches the global effect. With smooth transitions enabled
// and an effect already showing, the change blends over the transition
// duration; otherwise it is immediate. nil clears the global effect.
func (c *Controller) SetEffect(e effect.Effect) {
	duration := 0.0
	if c.SmoothTransition() {
		duration = c.TransitionDuration().Seconds()
	}
	c.sched.switchTo(e, c.elapsed(), duration)

	name := "none"
	if e != nil {
		name = e.Name()
	}
	c.logger.Info("effect switched", "effect", name, "blend_seconds", duration)
}

// Effects returns the current global effect and the blend target, if any.
func (c *Controller) Effects() (current, target effect.Effect) {
	return c.sched.effects()
}

// elapsed returns seconds since the controller was created.
func (c *Controller) elapsed() float64 {
	return c.clock.Now().Sub(c.epoch).Seconds()
}

func (c *Controller) onAvailabilityChanged(id string, available bool) {
	c.logger.Info("lamp array availability changed", "device_id", id, "available", available)
}
