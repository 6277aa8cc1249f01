package effect

import (
	"math"
	"math/rand/v2"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// Meteor geometry, in device metres.
const (
	meteorTravel      = 0.6  // particles respawn once past this x
	meteorBand        = 0.2  // start rows are drawn from [0, meteorBand)
	meteorTrail       = 0.15 // falloff radius behind the leading edge
	meteorLead        = 0.05 // falloff radius ahead of the leading edge
	meteorThickness   = 0.05 // vertical tolerance
	meteorGamma       = 2.0
	meteorInitialWait = 2.0 // first launch is delayed by up to this many seconds
	meteorRespawnWait = 1.0
)

// Meteor streaks particles across the device from left to right.
type Meteor struct {
	base
	color lamp.Color
	count int
	speed float64
	rng   *rand.Rand

	particles []meteorParticle
}

type meteorParticle struct {
	startTime float64
	startY    float64
	speed     float64
}

// NewMeteor creates a meteor shower of count particles in color. speed is
// the mean horizontal speed in metres per second.
func NewMeteor(color lamp.Color, count int, speed float64, opts ...Option) *Meteor {
	if count <= 0 {
		count = 5
	}
	if speed <= 0 {
		speed = 0.5
	}
	return &Meteor{
		color: color,
		count: count,
		speed: speed,
		rng:   buildOptions(opts).rng,
	}
}

func (m *Meteor) Kind() Kind   { return KindMeteor }
func (m *Meteor) Name() string { return "Meteor" }
func (m *Meteor) Reset()       { m.particles = nil }

// ColorFor lights a lamp when it sits inside the asymmetric window around a
// particle's leading edge. Overlapping particles keep the brightest hit.
func (m *Meteor) ColorFor(_ int, t float64, info lamp.Info, _ int) lamp.Color {
	for len(m.particles) < m.count {
		m.particles = append(m.particles, meteorParticle{
			startTime: t + m.rng.Float64()*meteorInitialWait,
			startY:    m.rng.Float64() * meteorBand,
			speed:     m.speed * (0.8 + m.rng.Float64()*0.4),
		})
	}

	var best float64
	for i := range m.particles {
		p := &m.particles[i]
		if t < p.startTime {
			continue
		}

		x := (t - p.startTime) * p.speed
		if x > meteorTravel {
			p.startTime = t + m.rng.Float64()*meteorRespawnWait
			p.startY = m.rng.Float64() * meteorBand
			continue
		}

		dx := info.Position.X - x
		dy := math.Abs(info.Position.Y - p.startY)
		if dx <= -meteorTrail || dx >= meteorLead || dy >= meteorThickness {
			continue
		}

		var intensity float64
		if dx < 0 {
			intensity = 1 - math.Abs(dx)/meteorTrail
		} else {
			intensity = 1 - dx/meteorLead
		}
		intensity *= 1 - dy/meteorThickness
		intensity = math.Pow(clamp(intensity, 0, 1), meteorGamma)

		best = math.Max(best, intensity)
	}

	return m.color.WithIntensity(best)
}

// Ripple tuning.
const (
	rippleGrowth   = 0.2  // radius growth, metres per second
	rippleWidth    = 0.03 // half-thickness of the ring
	rippleLifetime = 2.0  // seconds until a ring has faded out
	rippleOriginX  = 0.45
	rippleOriginY  = 0.15
)

// Ripple spawns expanding rings at random points.
type Ripple struct {
	base
	color  lamp.Color
	period float64
	max    int
	rng    *rand.Rand

	rings []ring
}

type ring struct {
	startTime float64
	x, y      float64
}

// NewRipple creates a ripple effect that spawns a ring every period seconds
// and keeps at most maxRings alive.
func NewRipple(color lamp.Color, period float64, maxRings int, opts ...Option) *Ripple {
	if period <= 0 {
		period = 1.5
	}
	if maxRings <= 0 {
		maxRings = 3
	}
	return &Ripple{
		color:  color,
		period: period,
		max:    maxRings,
		rng:    buildOptions(opts).rng,
	}
}

func (r *Ripple) Kind() Kind   { return KindRipple }
func (r *Ripple) Name() string { return "Ripple" }
func (r *Ripple) Reset()       { r.rings = nil }

// ColorFor lights lamps lying on a ring's circumference.
func (r *Ripple) ColorFor(_ int, t float64, info lamp.Info, _ int) lamp.Color {
	if len(r.rings) == 0 || t-r.rings[len(r.rings)-1].startTime > r.period {
		if len(r.rings) >= r.max {
			r.rings = r.rings[1:]
		}
		r.rings = append(r.rings, ring{
			startTime: t,
			x:         r.rng.Float64() * rippleOriginX,
			y:         r.rng.Float64() * rippleOriginY,
		})
	}

	var best float64
	for _, rg := range r.rings {
		age := t - rg.startTime
		radius := age * rippleGrowth

		dist := math.Hypot(info.Position.X-rg.x, info.Position.Y-rg.y)
		diff := math.Abs(dist - radius)
		if diff >= rippleWidth {
			continue
		}

		intensity := (1 - diff/rippleWidth) * math.Max(0, 1-age/rippleLifetime)
		best = math.Max(best, intensity)
	}

	return r.color.WithIntensity(best)
}

// sparkleFade is how long a sparkle takes to die out, in seconds.
const sparkleFade = 0.5

// Sparkle randomly ignites lamps that then fade out.
type Sparkle struct {
	base
	color   lamp.Color
	density float64
	rng     *rand.Rand

	lit map[int]float64 // lamp index -> ignition time
}

// NewSparkle creates a sparkle effect. Each unlit lamp ignites with
// probability density/100 per evaluation.
func NewSparkle(color lamp.Color, density float64, opts ...Option) *Sparkle {
	if density <= 0 {
		density = 0.1
	}
	return &Sparkle{
		color:   color,
		density: density,
		rng:     buildOptions(opts).rng,
		lit:     make(map[int]float64),
	}
}

func (s *Sparkle) Kind() Kind   { return KindSparkle }
func (s *Sparkle) Name() string { return "Sparkle" }
func (s *Sparkle) Reset()       { s.lit = make(map[int]float64) }

func (s *Sparkle) ColorFor(index int, t float64, _ lamp.Info, _ int) lamp.Color {
	if _, ok := s.lit[index]; !ok && s.rng.Float64() < s.density*0.01 {
		s.lit[index] = t
	}

	start, ok := s.lit[index]
	if !ok {
		return lamp.Black
	}

	age := t - start
	if age > sparkleFade {
		delete(s.lit, index)
		return lamp.Black
	}

	return s.color.WithIntensity(easeOut(1 - age/sparkleFade))
}

// easeOut is a quadratic ease-out on [0,1].
func easeOut(x float64) float64 {
	x = clamp(x, 0, 1)
	return 1 - (1-x)*(1-x)
}
