// Package engine drives lamp arrays from the effect library.
//
// A Controller owns everything the renderer needs: the device registry fed
// by a hotplug source, the current and target global effects, per-lamp
// override effects, and the render configuration (brightness, speed,
// smooth transitions). It has no global state; the caller owns its
// lifecycle through Start, Stop and Close, and drives frames by calling
// UpdateEffect (or Run, which calls it on a ticker).
//
// # Concurrency
//
// Two actors run concurrently. The hotplug goroutine drains watcher events
// and resolves devices in the background; the render tick iterates the
// registry and pushes frames. The registry is the only state they share
// and is guarded by its own lock. Overrides and the last-frame cache are
// concurrent maps so API calls never serialise against the tick. Render
// configuration lives in atomics, clamped on write.
//
// # Rendering
//
// For each lamp of each available device:
//
//	colour = override(i)                          if an override exists
//	       = lerp(current(i), target(i), t)       while blending
//	       = current(i)                           otherwise
//	out    = colour * brightness (alpha kept)
//
// One device failing, by error or panic, is logged and skipped; the tick
// continues with the remaining devices and never fails.
package engine
