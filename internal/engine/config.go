package engine

import (
	"math"
	"sync/atomic"
	"time"
)

// Render configuration limits.
const (
	MinBrightness = 0.0
	MaxBrightness = 1.0
	MinSpeed      = 0.1
	MaxSpeed      = 5.0

	DefaultTransitionDuration = 500 * time.Millisecond
)

// Config is the initial render configuration of a Controller.
type Config struct {
	Brightness         float64
	Speed              float64
	SmoothTransition   bool
	TransitionDuration time.Duration
}

// DefaultConfig returns full brightness, normal speed and 500 ms smooth
// transitions.
func DefaultConfig() Config {
	return Config{
		Brightness:         MaxBrightness,
		Speed:              1.0,
		SmoothTransition:   true,
		TransitionDuration: DefaultTransitionDuration,
	}
}

// Clock provides the controller's notion of time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock. Tests use this to step time.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// atomicFloat is a float64 stored as its bit pattern.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

// clampRange clamps v into [lo, hi]; NaN becomes lo.
func clampRange(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Brightness returns the output brightness in [0,1].
func (c *Controller) Brightness() float64 { return c.brightness.Load() }

// SetBrightness sets the output brightness, clamped to [0,1].
func (c *Controller) SetBrightness(v float64) {
	c.brightness.Store(clampRange(v, MinBrightness, MaxBrightness))
}

// Speed returns the animation speed multiplier in [0.1,5].
func (c *Controller) Speed() float64 { return c.speed.Load() }

// SetSpeed sets the animation speed multiplier, clamped to [0.1,5].
func (c *Controller) SetSpeed(v float64) {
	c.speed.Store(clampRange(v, MinSpeed, MaxSpeed))
}

// SmoothTransition reports whether effect switches blend.
func (c *Controller) SmoothTransition() bool { return c.smooth.Load() }

// SetSmoothTransition enables or disables blended effect switches.
func (c *Controller) SetSmoothTransition(v bool) { c.smooth.Store(v) }

// TransitionDuration returns the blend duration used by SetEffect.
func (c *Controller) TransitionDuration() time.Duration {
	return time.Duration(c.transition.Load())
}

// SetTransitionDuration sets the blend duration; negative values are
// treated as zero, which makes every switch instantaneous.
func (c *Controller) SetTransitionDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.transition.Store(int64(d))
}
