package engine

import (
	"context"
	"errors"

	"github.com/nerrad567/gray-logic-lampfx/internal/device"
	"github.com/nerrad567/gray-logic-lampfx/internal/hotplug"
	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// watch drains watcher events until the channel closes or ctx ends.
func (c *Controller) watch(ctx context.Context, w hotplug.Watcher, done chan struct{}) {
	defer close(done)

	events := w.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handleEvent(ctx, ev)
		}
	}
}

// handleEvent applies one watcher event. A failure here is logged and
// never stops the loop.
func (c *Controller) handleEvent(ctx context.Context, ev hotplug.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic handling hotplug event",
				"event", ev.Type.String(),
				"device_id", ev.ID,
				"panic", r,
			)
		}
	}()

	switch ev.Type {
	case hotplug.Added:
		c.logger.Debug("lamp array added", "device_id", ev.ID)
		c.resolve(ctx, ev.ID)
	case hotplug.Removed:
		c.logger.Debug("lamp array removed", "device_id", ev.ID)
		c.evict(ev.ID)
	case hotplug.EnumerationCompleted:
		c.logger.Info("lamp array enumeration completed", "devices", c.registry.Count())
	case hotplug.AvailabilityChanged:
		if arr, ok := c.registry.Get(ev.ID); ok {
			c.onAvailabilityChanged(ev.ID, arr.IsAvailable())
		}
	default:
		c.logger.Warn("unknown hotplug event", "event", ev.Type.String())
	}
}

// resolve turns id into a lamp array in the background. Only the newest
// resolution for an id may register it, and none may after the id was
// removed or the controller stopped.
func (c *Controller) resolve(ctx context.Context, id string) {
	c.pendingMu.Lock()
	c.nextToken++
	token := c.nextToken
	c.pending[id] = token
	c.resolving.Add(1)
	c.pendingMu.Unlock()

	go func() {
		defer c.resolving.Done()

		arr, err := c.resolveSafely(ctx, id)
		if err == nil && arr == nil {
			err = hotplug.ErrUnknownDevice
		}

		c.pendingMu.Lock()
		current, ok := c.pending[id]
		if !ok || current != token {
			c.pendingMu.Unlock()
			c.logger.Debug("discarding stale resolution", "device_id", id)
			return
		}
		delete(c.pending, id)
		if err != nil {
			c.pendingMu.Unlock()
			c.logger.Warn("failed to resolve lamp array", "device_id", id, "error", err)
			return
		}
		c.registry.Add(id, arr)
		c.pendingMu.Unlock()

		c.applyLayout(id, arr)
		c.recordAttached(id, arr.LampCount())
	}()
}

func (c *Controller) resolveSafely(ctx context.Context, id string) (arr lamp.Array, err error) {
	defer func() {
		if r := recover(); r != nil {
			arr, err = nil, errors.New("resolver panicked")
		}
	}()
	return c.source.Resolve(ctx, id)
}

// evict drops id and cancels any resolution still in flight for it.
func (c *Controller) evict(id string) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	removed := c.registry.Remove(id)
	c.pendingMu.Unlock()

	if removed {
		c.recordDetached(id)
	}
}

func (c *Controller) recordAttached(id string, lampCount int) {
	if c.inventory == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), inventoryTimeout)
	defer cancel()

	if err := c.inventory.RecordAttached(ctx, id, lampCount); err != nil {
		c.logger.Warn("failed to record lamp array attach", "device_id", id, "error", err)
	}
}

func (c *Controller) recordDetached(id string) {
	if c.inventory == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), inventoryTimeout)
	defer cancel()

	err := c.inventory.RecordDetached(ctx, id)
	if err != nil && !errors.Is(err, device.ErrDeviceNotFound) {
		c.logger.Warn("failed to record lamp array detach", "device_id", id, "error", err)
	}
}
