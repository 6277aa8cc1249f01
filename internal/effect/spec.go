package effect

import (
	"fmt"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// Spec is the declarative form of an effect, as found in config files and
// API requests. Fields not used by the selected Type are ignored.
type Spec struct {
	Type      Kind           `yaml:"type" json:"type"`
	Color     string         `yaml:"color,omitempty" json:"color,omitempty"`
	Colors    []string       `yaml:"colors,omitempty" json:"colors,omitempty"`
	Direction string         `yaml:"direction,omitempty" json:"direction,omitempty"`
	Animated  bool           `yaml:"animated,omitempty" json:"animated,omitempty"`
	Period    float64        `yaml:"period,omitempty" json:"period,omitempty"`
	Speed     float64        `yaml:"speed,omitempty" json:"speed,omitempty"`
	Scale     float64        `yaml:"scale,omitempty" json:"scale,omitempty"`
	Count     int            `yaml:"count,omitempty" json:"count,omitempty"`
	Density   float64        `yaml:"density,omitempty" json:"density,omitempty"`
	Pattern   map[int]string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Bounds    *Bounds        `yaml:"bounds,omitempty" json:"bounds,omitempty"`
}

// Bounds is the AuroraSync sampling rectangle in device metres.
type Bounds struct {
	CenterX float64 `yaml:"center_x" json:"center_x"`
	CenterY float64 `yaml:"center_y" json:"center_y"`
	Width   float64 `yaml:"width" json:"width"`
	Height  float64 `yaml:"height" json:"height"`
}

// New builds an effect from its declarative spec.
//
// Parameters:
//   - spec: effect type and parameters
//   - opts: optional behaviour such as a deterministic random source
//
// Returns:
//   - Effect: a freshly reset effect
//   - error: ErrUnknownType, ErrInvalidParameter or a colour parse error
func New(spec Spec, opts ...Option) (Effect, error) {
	switch spec.Type {
	case KindStatic:
		c, err := parseColor(spec.Color, lamp.RGB(0xff, 0xff, 0xff))
		if err != nil {
			return nil, err
		}
		return NewStatic(c), nil

	case KindMeteor:
		c, err := parseColor(spec.Color, lamp.RGB(0xff, 0xff, 0xff))
		if err != nil {
			return nil, err
		}
		return NewMeteor(c, spec.Count, spec.Speed, opts...), nil

	case KindRipple:
		c, err := parseColor(spec.Color, lamp.RGB(0x00, 0x80, 0xff))
		if err != nil {
			return nil, err
		}
		return NewRipple(c, spec.Period, spec.Count, opts...), nil

	case KindSparkle:
		c, err := parseColor(spec.Color, lamp.RGB(0xff, 0xff, 0xff))
		if err != nil {
			return nil, err
		}
		if spec.Density < 0 || spec.Density > 1 {
			return nil, fmt.Errorf("%w: sparkle density %v outside [0,1]", ErrInvalidParameter, spec.Density)
		}
		return NewSparkle(c, spec.Density, opts...), nil

	case KindGradient:
		if len(spec.Colors) < 2 {
			return nil, fmt.Errorf("%w: gradient needs at least two colours", ErrInvalidParameter)
		}
		colors := make([]lamp.Color, 0, len(spec.Colors))
		for _, s := range spec.Colors {
			c, err := lamp.ParseHex(s)
			if err != nil {
				return nil, err
			}
			colors = append(colors, c)
		}
		dir, err := ParseDirection(spec.Direction)
		if err != nil {
			return nil, err
		}
		return NewGradient(colors, dir, spec.Animated, spec.Period), nil

	case KindRainbowWave:
		dir, err := ParseDirection(spec.Direction)
		if err != nil {
			return nil, err
		}
		return NewRainbowWave(spec.Speed, spec.Scale, dir), nil

	case KindSpiralRainbow:
		return NewSpiralRainbow(spec.Speed, spec.Density), nil

	case KindAuroraSync:
		a := buildOptions(opts).aurora
		if a == nil {
			a = NewAuroraSync()
		}
		if b := spec.Bounds; b != nil {
			a.SetBounds(b.CenterX, b.CenterY, b.Width, b.Height)
		}
		return a, nil

	case KindCustomPattern:
		p := NewCustomPattern()
		for index, s := range spec.Pattern {
			if index < 0 {
				return nil, fmt.Errorf("%w: pattern index %d", ErrInvalidParameter, index)
			}
			c, err := lamp.ParseHex(s)
			if err != nil {
				return nil, err
			}
			p.SetColor(index, c)
		}
		return p, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrUnknownType)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, spec.Type)
	}
}

func parseColor(s string, fallback lamp.Color) (lamp.Color, error) {
	if s == "" {
		return fallback, nil
	}
	return lamp.ParseHex(s)
}
