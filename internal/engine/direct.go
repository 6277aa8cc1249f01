package engine

import (
	"fmt"
	"sort"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
	"github.com/nerrad567/gray-logic-lampfx/internal/zone"
)

// LampRef identifies one lamp of one device.
type LampRef struct {
	DeviceID string    `json:"device_id"`
	Info     lamp.Info `json:"info"`
}

// Lamps lists every lamp of every available device.
func (c *Controller) Lamps() []LampRef {
	var out []LampRef
	for id, arr := range c.registry.Available() {
		for i := range arr.LampCount() {
			out = append(out, LampRef{DeviceID: id, Info: arr.LampInfo(i)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// SetAllLampsColor paints every lamp of every available device, bypassing
// the effect engine. The next rendered frame overwrites it.
func (c *Controller) SetAllLampsColor(col lamp.Color) {
	if !c.IsAvailable() {
		c.logger.Debug("set all lamps skipped: no device available")
		return
	}

	for id, arr := range c.registry.Available() {
		if err := guard(func() error { return arr.SetColor(col) }); err != nil {
			c.logger.Warn("failed to set all lamps colour", "device_id", id, "error", err)
		}
	}
}

// SetLampColors paints individual lamps on every available device,
// bypassing the effect engine. Indices a device does not have are skipped
// for that device.
func (c *Controller) SetLampColors(colors map[int]lamp.Color) {
	if len(colors) == 0 {
		return
	}
	if !c.IsAvailable() {
		c.logger.Debug("set lamp colours skipped: no device available")
		return
	}

	indices := make([]int, 0, len(colors))
	for i := range colors {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	for id, arr := range c.registry.Available() {
		n := arr.LampCount()
		idx := make([]int, 0, len(indices))
		cols := make([]lamp.Color, 0, len(indices))
		for _, i := range indices {
			if i < 0 || i >= n {
				continue
			}
			idx = append(idx, i)
			cols = append(cols, colors[i])
		}
		if len(idx) == 0 {
			continue
		}

		if err := guard(func() error { return arr.SetColorsForIndices(cols, idx) }); err != nil {
			c.logger.Warn("failed to set lamp colours", "device_id", id, "error", err)
		}
	}
}

// SetColorForKeys paints the lamps mapped to the given key codes. Devices
// without a layout mapping are skipped.
func (c *Controller) SetColorForKeys(codes []uint16, col lamp.Color) {
	type target struct {
		id  string
		arr lamp.Array
	}
	var targets []target
	for id, arr := range c.registry.Available() {
		targets = append(targets, target{id, arr})
	}

	// Mapping takes the registry lock, so it cannot run inside Available.
	for _, t := range targets {
		id, arr := t.id, t.arr
		m, ok := c.registry.Mapping(id)
		if !ok || m.Len() == 0 {
			continue
		}
		indices := m.Indices(codes)
		if len(indices) == 0 {
			continue
		}

		colors := make([]lamp.Color, len(indices))
		for i := range colors {
			colors[i] = col
		}
		if err := guard(func() error { return arr.SetColorsForIndices(colors, indices) }); err != nil {
			c.logger.Warn("failed to set key colours", "device_id", id, "error", err)
		}
	}
}

// SetLayout rebuilds the key mapping of every registered device for a new
// logical layout. Devices that arrive later are mapped on arrival.
func (c *Controller) SetLayout(width, height int, keys []zone.Key) error {
	l := zone.Layout{Width: width, Height: height, Keys: append([]zone.Key(nil), keys...)}
	if err := l.Validate(); err != nil {
		return err
	}

	c.layoutMu.Lock()
	c.layout = &l
	c.layoutMu.Unlock()

	for _, id := range c.registry.IDs() {
		if arr, ok := c.registry.Get(id); ok {
			c.applyLayout(id, arr)
		}
	}
	return nil
}

// applyLayout builds and stores the mapping for one device.
func (c *Controller) applyLayout(id string, arr lamp.Array) {
	c.layoutMu.Lock()
	l := c.layout
	c.layoutMu.Unlock()
	if l == nil {
		return
	}

	var m zone.Mapping
	err := guard(func() error {
		var err error
		m, err = zone.BuildForArray(arr, l.Width, l.Height, l.Keys)
		return err
	})
	if err != nil {
		c.logger.Warn("failed to build key mapping", "device_id", id, "error", err)
		return
	}

	if c.registry.SetMapping(id, m) {
		c.logger.Debug("key mapping built", "device_id", id, "keys", m.Len())
	}
}

// guard runs fn, converting a panic into ErrDevicePanic.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDevicePanic, r)
		}
	}()
	return fn()
}
