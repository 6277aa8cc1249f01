package lamp

// Position is a lamp's location in device space, in metres.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Purposes is a bitset describing what a lamp is for.
type Purposes uint32

// Lamp purpose flags.
const (
	PurposeUndefined Purposes = 0
	PurposeControl   Purposes = 1 << (iota - 1)
	PurposeAccent
	PurposeBranding
	PurposeStatus
	PurposeIllumination
	PurposePresentation
)

// Has reports whether all bits of flag are set.
func (p Purposes) Has(flag Purposes) bool {
	return p&flag == flag && flag != 0
}

// Info is the immutable geometry of one lamp.
type Info struct {
	Index    int      `json:"index"`
	Position Position `json:"position"`
	Purposes Purposes `json:"purposes"`
}

// Array is the capability set of an addressable lamp device.
//
// Implementations must be safe for concurrent use: the render tick submits
// frames while hotplug callbacks may flip availability.
type Array interface {
	// ID is the stable device identifier reported by the hotplug source.
	ID() string

	// LampCount is the number of individually addressable lamps.
	LampCount() int

	// IsAvailable reports whether the device currently accepts colours.
	IsAvailable() bool

	// LampInfo returns the geometry of lamp index (0..LampCount-1).
	LampInfo(index int) Info

	// SetColor paints every lamp with one colour.
	SetColor(c Color) error

	// SetColorsForIndices paints colors[i] on lamp indices[i].
	SetColorsForIndices(colors []Color, indices []int) error

	// OnAvailabilityChanged registers fn to run whenever availability flips.
	// The returned function removes the registration; calling it twice is safe.
	OnAvailabilityChanged(fn func(Array)) (cancel func())
}

// Indices returns 0..n-1.
func Indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
