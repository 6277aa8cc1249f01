package engine

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-lampfx/internal/effect"
	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// overrideTable maps lamp index to an effect that replaces the global
// effect for that lamp. The count lets the tick skip lookups when empty.
type overrideTable struct {
	m     sync.Map // int -> effect.Effect
	count atomic.Int64
}

func (o *overrideTable) set(index int, e effect.Effect) {
	if _, loaded := o.m.Swap(index, e); !loaded {
		o.count.Add(1)
	}
}

func (o *overrideTable) remove(index int) {
	if _, loaded := o.m.LoadAndDelete(index); loaded {
		o.count.Add(-1)
	}
}

func (o *overrideTable) get(index int) (effect.Effect, bool) {
	v, ok := o.m.Load(index)
	if !ok {
		return nil, false
	}
	return v.(effect.Effect), true
}

func (o *overrideTable) len() int {
	return int(o.count.Load())
}

// SetEffectForIndices installs e as the override for each index, or clears
// the overrides when e is nil. Overrides are shown verbatim, never blended.
func (c *Controller) SetEffectForIndices(indices []int, e effect.Effect) {
	for _, i := range indices {
		if e == nil {
			c.overrides.remove(i)
		} else {
			c.overrides.set(i, e)
		}
	}
}

// ClearOverrides removes every per-lamp override.
func (c *Controller) ClearOverrides() {
	c.overrides.m.Range(func(k, _ any) bool {
		c.overrides.remove(k.(int))
		return true
	})
}

// Overrides returns the overridden lamp indices in ascending order with
// their effect kinds.
func (c *Controller) Overrides() []Override {
	var out []Override
	c.overrides.m.Range(func(k, v any) bool {
		out = append(out, Override{Index: k.(int), Kind: v.(effect.Effect).Kind()})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Override describes one per-lamp override.
type Override struct {
	Index int         `json:"index"`
	Kind  effect.Kind `json:"kind"`
}

// CurrentColor returns the colour last emitted for lamp index, after
// brightness. Lamps that have only ever been transparent report false.
func (c *Controller) CurrentColor(index int) (lamp.Color, bool) {
	v, ok := c.lastFrame.Load(index)
	if !ok {
		return lamp.Color{}, false
	}
	return v.(lamp.Color), true
}
