// Package effect implements the lighting effect library.
//
// Every effect maps (lamp index, time, lamp geometry, lamp count) to a
// colour and may keep private animation state (falling meteors, expanding
// ripples, lit sparkles, the latest screen capture). The set of effects is
// closed: Effect carries an unexported method so only this package can add
// variants, and Kind allows exhaustive switches in callers.
//
// Effects return lamp.Transparent for "no contribution". Procedural effects
// that paint every lamp return opaque black for unlit lamps instead.
//
// Effects are driven from the render tick, which is single-threaded. Effects
// that accept data from other goroutines (AuroraSync screen frames,
// CustomPattern colours) synchronise that data internally.
//
// Effects can also be built from a declarative Spec, which is how the
// configuration file and the HTTP API describe them:
//
//	e, err := effect.New(effect.Spec{Type: "gradient", Colors: []string{"#ff0000", "#0000ff"}})
package effect
