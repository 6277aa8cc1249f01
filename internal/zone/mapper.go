package zone

import (
	"math"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// MatchThreshold is the largest squared normalised distance at which a key
// may still claim a lamp.
const MatchThreshold = 0.05

// Key is one logical key of a layout, positioned in layout pixels.
type Key struct {
	Code uint16 `yaml:"code" json:"code"`
	X    int    `yaml:"x" json:"x"`
	Y    int    `yaml:"y" json:"y"`
}

// Mapping associates key codes with lamp indices. The zero value is empty.
type Mapping struct {
	byCode map[uint16]int
}

// Lookup returns the lamp index claimed by code.
func (m Mapping) Lookup(code uint16) (int, bool) {
	idx, ok := m.byCode[code]
	return idx, ok
}

// Len returns the number of mapped keys.
func (m Mapping) Len() int {
	return len(m.byCode)
}

// Indices resolves codes to lamp indices, skipping unmapped codes.
func (m Mapping) Indices(codes []uint16) []int {
	out := make([]int, 0, len(codes))
	for _, code := range codes {
		if idx, ok := m.byCode[code]; ok {
			out = append(out, idx)
		}
	}
	return out
}

type normalisedLamp struct {
	index int
	x, y  float64
}

// Build computes the key → lamp mapping for one device.
//
// Only lamps carrying the control purpose take part. Keys are matched in
// order and the first key to claim a lamp keeps it: a later key whose
// nearest lamp is already taken stays unmapped, and a repeated key code
// keeps its first lamp.
func Build(lamps []lamp.Info, width, height int, keys []Key) (Mapping, error) {
	if width <= 0 || height <= 0 {
		return Mapping{}, ErrInvalidLayout
	}

	candidates := normalise(lamps)
	m := Mapping{byCode: make(map[uint16]int)}
	if len(candidates) == 0 {
		return m, nil
	}
	claimed := make(map[int]bool)

	for _, key := range keys {
		kx := float64(key.X) / float64(width)
		ky := float64(key.Y) / float64(height)

		best := -1
		bestDist := math.MaxFloat64
		for _, c := range candidates {
			d := (c.x-kx)*(c.x-kx) + (c.y-ky)*(c.y-ky)
			if d < bestDist {
				bestDist = d
				best = c.index
			}
		}

		if best == -1 || bestDist >= MatchThreshold {
			continue
		}
		if _, seen := m.byCode[key.Code]; seen || claimed[best] {
			continue
		}
		m.byCode[key.Code] = best
		claimed[best] = true
	}

	return m, nil
}

// BuildForArray reads the geometry of arr and builds its mapping.
func BuildForArray(arr lamp.Array, width, height int, keys []Key) (Mapping, error) {
	lamps := make([]lamp.Info, arr.LampCount())
	for i := range lamps {
		lamps[i] = arr.LampInfo(i)
	}
	return Build(lamps, width, height, keys)
}

// normalise scales control-lamp positions into [0,1]x[0,1]. A degenerate
// axis (all lamps on one line) is left unscaled.
func normalise(lamps []lamp.Info) []normalisedLamp {
	var control []lamp.Info
	for _, l := range lamps {
		if l.Purposes.Has(lamp.PurposeControl) {
			control = append(control, l)
		}
	}
	if len(control) == 0 {
		return nil
	}

	minX, maxX := control[0].Position.X, control[0].Position.X
	minY, maxY := control[0].Position.Y, control[0].Position.Y
	for _, l := range control[1:] {
		minX = math.Min(minX, l.Position.X)
		maxX = math.Max(maxX, l.Position.X)
		minY = math.Min(minY, l.Position.Y)
		maxY = math.Max(maxY, l.Position.Y)
	}

	rangeX := maxX - minX
	if rangeX <= 0 {
		rangeX = 1
	}
	rangeY := maxY - minY
	if rangeY <= 0 {
		rangeY = 1
	}

	out := make([]normalisedLamp, len(control))
	for i, l := range control {
		out[i] = normalisedLamp{
			index: l.Index,
			x:     (l.Position.X - minX) / rangeX,
			y:     (l.Position.Y - minY) / rangeY,
		}
	}
	return out
}
