package mqttlamp

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/fxamacker/cbor/v2"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// Availability payloads.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// maxLamps bounds a descriptor so a frame always fits one MQTT message.
const maxLamps = 4096

// Announce is the retained descriptor a device publishes.
type Announce struct {
	Name  string      `json:"name,omitempty"`
	Lamps []lamp.Info `json:"lamps"`
}

// ParseAnnounce decodes and validates a descriptor. Lamps are returned
// sorted by index and must cover 0..n-1 exactly once.
func ParseAnnounce(payload []byte) (Announce, error) {
	var a Announce
	if err := json.Unmarshal(payload, &a); err != nil {
		return Announce{}, fmt.Errorf("%w: %w", ErrInvalidAnnounce, err)
	}
	if len(a.Lamps) == 0 {
		return Announce{}, fmt.Errorf("%w: no lamps", ErrInvalidAnnounce)
	}
	if len(a.Lamps) > maxLamps {
		return Announce{}, fmt.Errorf("%w: %d lamps exceeds %d", ErrInvalidAnnounce, len(a.Lamps), maxLamps)
	}

	slices.SortFunc(a.Lamps, func(x, y lamp.Info) int { return x.Index - y.Index })
	for i, info := range a.Lamps {
		if info.Index != i {
			return Announce{}, fmt.Errorf("%w: lamp indices must run 0..%d without gaps", ErrInvalidAnnounce, len(a.Lamps)-1)
		}
	}
	return a, nil
}

// Frame is one colour update for a device. Either Fill is set, or Indices
// and RGBA carry four bytes (R, G, B, A) per listed lamp.
type Frame struct {
	Indices []uint16 `cbor:"indices,omitempty"`
	RGBA    []byte   `cbor:"rgba,omitempty"`
	Fill    []byte   `cbor:"fill,omitempty"`
}

var (
	frameEncMode cbor.EncMode
	frameDecMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	frameEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create frame CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
	frameDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create frame CBOR decoder mode: %v", err))
	}
}

// FillFrame builds a frame painting every lamp with c.
func FillFrame(c lamp.Color) Frame {
	return Frame{Fill: []byte{c.R, c.G, c.B, c.A}}
}

// IndexedFrame builds a frame for the given lamps. The slices must have the
// same length.
func IndexedFrame(colors []lamp.Color, indices []int) Frame {
	f := Frame{
		Indices: make([]uint16, len(indices)),
		RGBA:    make([]byte, 0, 4*len(colors)),
	}
	for i, idx := range indices {
		f.Indices[i] = uint16(idx) // #nosec G115 -- bounded by maxLamps
		c := colors[i]
		f.RGBA = append(f.RGBA, c.R, c.G, c.B, c.A)
	}
	return f
}

// EncodeFrame encodes f as deterministic CBOR.
func EncodeFrame(f Frame) ([]byte, error) {
	return frameEncMode.Marshal(f)
}

// DecodeFrame decodes and validates a frame payload.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := frameDecMode.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}
	switch {
	case f.Fill != nil && len(f.Fill) != 4:
		return Frame{}, fmt.Errorf("%w: fill must be 4 bytes", ErrInvalidFrame)
	case f.Fill == nil && len(f.RGBA) != 4*len(f.Indices):
		return Frame{}, fmt.Errorf("%w: %d rgba bytes for %d indices", ErrInvalidFrame, len(f.RGBA), len(f.Indices))
	}
	return f, nil
}

// Colors expands the frame into (index, colour) pairs. A fill frame yields
// nothing; use FillColor.
func (f Frame) Colors() map[int]lamp.Color {
	out := make(map[int]lamp.Color, len(f.Indices))
	for i, idx := range f.Indices {
		p := f.RGBA[4*i : 4*i+4]
		out[int(idx)] = lamp.ARGB(p[3], p[0], p[1], p[2])
	}
	return out
}

// FillColor returns the fill colour, if this is a fill frame.
func (f Frame) FillColor() (lamp.Color, bool) {
	if len(f.Fill) != 4 {
		return lamp.Color{}, false
	}
	return lamp.ARGB(f.Fill[3], f.Fill[0], f.Fill[1], f.Fill[2]), true
}
