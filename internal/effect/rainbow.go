package effect

import (
	"math"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// RainbowWave scrolls a full hue cycle along one axis.
type RainbowWave struct {
	base
	speed     float64
	scale     float64
	direction Direction
}

// NewRainbowWave creates a rainbow wave. scale is the number of hue cycles
// per metre; speed scales how fast the wave travels.
func NewRainbowWave(speed, scale float64, direction Direction) *RainbowWave {
	if speed <= 0 {
		speed = 1
	}
	if scale <= 0 {
		scale = 2
	}
	return &RainbowWave{speed: speed, scale: scale, direction: direction}
}

func (r *RainbowWave) Kind() Kind   { return KindRainbowWave }
func (r *RainbowWave) Name() string { return "Rainbow Wave" }
func (r *RainbowWave) Reset()       {}

func (r *RainbowWave) ColorFor(_ int, t float64, info lamp.Info, _ int) lamp.Color {
	var pos float64
	switch r.direction {
	case RightToLeft:
		pos = -info.Position.X
	case TopToBottom:
		pos = info.Position.Y
	case BottomToTop:
		pos = -info.Position.Y
	default:
		pos = info.Position.X
	}

	hue := wrapUnit(-t*r.speed*0.2+pos*r.scale) * 360
	return lamp.FromHSV(hue, 1, 1)
}

// Spiral centre, roughly the middle of a laptop keyboard.
const (
	spiralCenterX = 0.225
	spiralCenterY = 0.100
)

// SpiralRainbow rotates a hue spiral around the keyboard centre.
type SpiralRainbow struct {
	base
	speed   float64
	density float64
}

// NewSpiralRainbow creates a spiral rainbow; density controls how tightly
// the arms are wound.
func NewSpiralRainbow(speed, density float64) *SpiralRainbow {
	if speed <= 0 {
		speed = 1
	}
	if density <= 0 {
		density = 5
	}
	return &SpiralRainbow{speed: speed, density: density}
}

func (s *SpiralRainbow) Kind() Kind   { return KindSpiralRainbow }
func (s *SpiralRainbow) Name() string { return "Spiral Rainbow" }
func (s *SpiralRainbow) Reset()       {}

func (s *SpiralRainbow) ColorFor(_ int, t float64, info lamp.Info, _ int) lamp.Color {
	dx := info.Position.X - spiralCenterX
	dy := info.Position.Y - spiralCenterY

	angle := math.Atan2(dy, dx) / (2 * math.Pi)
	dist := math.Hypot(dx, dy)

	hue := wrapUnit(angle+t*s.speed*0.2+dist*s.density*2) * 360
	return lamp.FromHSV(hue, 1, 1)
}
