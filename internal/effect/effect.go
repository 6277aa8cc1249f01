package effect

import (
	"math"
	"math/rand/v2"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// Kind identifies an effect variant.
type Kind string

// Effect kinds.
const (
	KindMeteor        Kind = "meteor"
	KindRipple        Kind = "ripple"
	KindSparkle       Kind = "sparkle"
	KindGradient      Kind = "gradient"
	KindRainbowWave   Kind = "rainbow_wave"
	KindSpiralRainbow Kind = "spiral_rainbow"
	KindAuroraSync    Kind = "aurora_sync"
	KindCustomPattern Kind = "custom_pattern"
	KindStatic        Kind = "static"
)

// Kinds lists every effect kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindStatic,
		KindMeteor,
		KindRipple,
		KindSparkle,
		KindGradient,
		KindRainbowWave,
		KindSpiralRainbow,
		KindAuroraSync,
		KindCustomPattern,
	}
}

// Effect computes a colour for one lamp at one instant.
type Effect interface {
	// Kind identifies the variant.
	Kind() Kind

	// Name is the human-readable effect name.
	Name() string

	// ColorFor returns the colour of lamp index at time t (seconds, already
	// scaled by the engine speed). info is the lamp's geometry and total the
	// device's lamp count.
	ColorFor(index int, t float64, info lamp.Info, total int) lamp.Color

	// Reset discards animation state so the effect starts fresh.
	Reset()

	sealed()
}

// base is embedded by every variant to close the Effect interface.
type base struct{}

func (base) sealed() {}

// Option configures optional effect behaviour.
type Option func(*options)

type options struct {
	rng    *rand.Rand
	aurora *AuroraSync
}

// WithRand makes randomised effects draw from r. Tests use this to get
// deterministic particles.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rng = r
	}
}

// WithAuroraSync makes New return a for aurora_sync specs instead of a
// fresh instance, so a screen feed keeps reaching the effect on the lamps.
func WithAuroraSync(a *AuroraSync) Option {
	return func(o *options) {
		o.aurora = a
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // visual randomness only
	}
	return o
}

// wrapUnit folds v into [0,1).
func wrapUnit(v float64) float64 {
	return math.Mod(math.Mod(v, 1)+1, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
