package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// UpdateEffect renders one frame onto every available device.
//
// Nothing happens when no device is available, or when there is neither a
// global effect nor an override; devices then keep their last frame.
// Per-device failures are logged and skipped.
func (c *Controller) UpdateEffect() {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	if !c.registry.IsAnyAvailable() {
		return
	}

	started := c.clock.Now()
	elapsed := started.Sub(c.epoch).Seconds()
	renderTime := elapsed * c.Speed()

	b := c.sched.advance(elapsed)
	overrides := c.overrides.len()
	if b.current == nil && overrides == 0 {
		return
	}

	f := frame{
		blend:        b,
		time:         renderTime,
		brightness:   c.Brightness(),
		hasOverrides: overrides > 0,
	}

	stats := FrameStats{
		Started:   started,
		Overrides: overrides,
		Blending:  b.target != nil,
	}
	if b.current != nil {
		stats.Effect = b.current.Name()
	}

	for id, arr := range c.registry.Available() {
		n, err := c.renderDevice(arr, f)
		if err != nil {
			stats.Failures++
			c.logger.Warn("error updating lamp array", "device_id", id, "error", err)
			continue
		}
		stats.Devices++
		stats.Lamps += n
	}

	if c.observer != nil {
		stats.Duration = c.clock.Now().Sub(started)
		c.observer.ObserveFrame(stats)
	}
}

// frame is the per-tick input shared by every device.
type frame struct {
	blend        blend
	time         float64
	brightness   float64
	hasOverrides bool
}

// renderDevice computes and submits one device's frame. A panic from the
// device or an effect is returned as ErrDevicePanic.
func (c *Controller) renderDevice(arr lamp.Array, f frame) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDevicePanic, r)
		}
	}()

	n = arr.LampCount()
	colors := make([]lamp.Color, n)

	for i := range n {
		colors[i] = c.lampColor(i, arr.LampInfo(i), n, f).Scale(f.brightness)
		if !colors[i].IsTransparent() {
			c.lastFrame.Store(i, colors[i])
		}
	}

	return n, arr.SetColorsForIndices(colors, lamp.Indices(n))
}

// lampColor resolves one lamp before brightness: the override if present,
// otherwise the global effect blended towards the target.
func (c *Controller) lampColor(i int, info lamp.Info, n int, f frame) lamp.Color {
	if f.hasOverrides {
		if e, ok := c.overrides.get(i); ok {
			return e.ColorFor(i, f.time, info, n)
		}
	}

	b := f.blend
	if b.current == nil {
		return lamp.Transparent
	}

	col := b.current.ColorFor(i, f.time, info, n)
	if b.target != nil {
		col = lamp.Lerp(col, b.target.ColorFor(i, f.time, info, n), b.t)
	}
	return col
}

// Run calls UpdateEffect every interval until ctx ends.
//
// Parameters:
//   - ctx: stops the loop when cancelled
//   - interval: frame period, e.g. 33ms for ~30 Hz
//
// Returns:
//   - error: always nil; cancellation is a normal exit
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second / 30
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("render loop started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("render loop stopped")
			return nil
		case <-ticker.C:
			c.UpdateEffect()
		}
	}
}
