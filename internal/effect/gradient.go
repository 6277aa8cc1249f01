package effect

import (
	"fmt"
	"math"
	"strings"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// Direction selects the axis and sense of a gradient or wave.
type Direction int

// Directions.
const (
	LeftToRight Direction = iota
	RightToLeft
	TopToBottom
	BottomToTop
)

var directionNames = map[Direction]string{
	LeftToRight: "left_to_right",
	RightToLeft: "right_to_left",
	TopToBottom: "top_to_bottom",
	BottomToTop: "bottom_to_top",
}

func (d Direction) String() string {
	if s, ok := directionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// ParseDirection parses a direction name. The empty string is LeftToRight.
func ParseDirection(s string) (Direction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LeftToRight, nil
	}
	for d, name := range directionNames {
		if name == s {
			return d, nil
		}
	}
	return LeftToRight, fmt.Errorf("%w: direction %q", ErrInvalidParameter, s)
}

// Default physical extents used to normalise gradient positions.
const (
	DefaultGradientWidth  = 2200.0
	DefaultGradientHeight = 800.0
)

// Gradient spreads an ordered list of colours across the device.
type Gradient struct {
	base
	colors    []lamp.Color
	direction Direction
	animated  bool
	period    float64
	width     float64
	height    float64
}

// NewGradient creates a gradient across colors. When animated, the gradient
// scrolls by one full length every period seconds.
func NewGradient(colors []lamp.Color, direction Direction, animated bool, period float64) *Gradient {
	if period <= 0 {
		period = 5
	}
	return &Gradient{
		colors:    append([]lamp.Color(nil), colors...),
		direction: direction,
		animated:  animated,
		period:    period,
		width:     DefaultGradientWidth,
		height:    DefaultGradientHeight,
	}
}

// WithBounds overrides the physical extents positions are normalised by.
// Non-positive values keep the current extent.
func (g *Gradient) WithBounds(width, height float64) *Gradient {
	if width > 0 {
		g.width = width
	}
	if height > 0 {
		g.height = height
	}
	return g
}

func (g *Gradient) Kind() Kind   { return KindGradient }
func (g *Gradient) Name() string { return "Gradient" }
func (g *Gradient) Reset()       {}

func (g *Gradient) ColorFor(_ int, t float64, info lamp.Info, _ int) lamp.Color {
	switch len(g.colors) {
	case 0:
		return lamp.Black
	case 1:
		return g.colors[0]
	}

	pos := g.position(info.Position)
	if g.animated {
		pos = math.Mod(pos+t/g.period, 1)
	}

	segments := len(g.colors) - 1
	segment := 1.0 / float64(segments)
	i := int(pos / segment)
	if i < 0 {
		i = 0
	}
	if i > segments-1 {
		i = segments - 1
	}

	local := (pos - float64(i)*segment) / segment
	return lamp.Lerp(g.colors[i], g.colors[i+1], local)
}

func (g *Gradient) position(p lamp.Position) float64 {
	switch g.direction {
	case RightToLeft:
		return 1 - p.X/g.width
	case TopToBottom:
		return p.Y / g.height
	case BottomToTop:
		return 1 - p.Y/g.height
	default:
		return p.X / g.width
	}
}
