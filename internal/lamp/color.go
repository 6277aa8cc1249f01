package lamp

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an 8-bit ARGB colour.
type Color struct {
	A uint8 `json:"a"`
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Transparent is the "no contribution" colour.
var Transparent = Color{}

// Black is opaque black (lamp on, emitting nothing).
var Black = Color{A: 0xff}

// RGB returns an opaque colour.
func RGB(r, g, b uint8) Color {
	return Color{A: 0xff, R: r, G: g, B: b}
}

// ARGB returns a colour with an explicit alpha channel.
func ARGB(a, r, g, b uint8) Color {
	return Color{A: a, R: r, G: g, B: b}
}

// IsTransparent reports whether the colour contributes nothing.
func (c Color) IsTransparent() bool {
	return c.A == 0
}

// Scale multiplies the colour channels by factor, truncating towards zero.
// Alpha is left untouched. Used both for brightness and effect intensity.
func (c Color) Scale(factor float64) Color {
	return Color{
		A: c.A,
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
	}
}

// WithIntensity returns c scaled by intensity as a fully opaque colour.
func (c Color) WithIntensity(intensity float64) Color {
	s := c.Scale(intensity)
	s.A = 0xff
	return s
}

// String renders the colour as #AARRGGBB.
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.A, c.R, c.G, c.B)
}

// Lerp interpolates every channel (alpha included) from a to b.
// t is clamped to [0,1] and each channel is truncated on write-out.
func Lerp(a, b Color, t float64) Color {
	t = clamp01(t)
	return Color{
		A: lerpChannel(a.A, b.A, t),
		R: lerpChannel(a.R, b.R, t),
		G: lerpChannel(a.G, b.G, t),
		B: lerpChannel(a.B, b.B, t),
	}
}

func lerpChannel(from, to uint8, t float64) uint8 {
	return uint8(float64(from) + (float64(to)-float64(from))*t)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// FromHSV converts hue (degrees), saturation and value to an opaque colour.
func FromHSV(hue, saturation, value float64) Color {
	r, g, b := colorful.Hsv(hue, saturation, value).Clamped().RGB255()
	return RGB(r, g, b)
}

// ParseHex parses "#rrggbb" (or "#rgb") into an opaque colour.
func ParseHex(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	r, g, b := c.RGB255()
	return RGB(r, g, b), nil
}
