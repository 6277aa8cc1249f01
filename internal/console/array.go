package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// DeviceID is the id the terminal device reports.
const DeviceID = "console"

// maxCachedColors bounds the escape sequence cache for animated effects.
const maxCachedColors = 4096

// keyPitch is the spacing of a standard keyboard key in metres.
const keyPitch = 0.019

// Array is a terminal-backed lamp.Array.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Array struct {
	lamps   []lamp.Info
	columns int

	mu     sync.Mutex
	out    *bufio.Writer
	frame  []lamp.Color
	drawn  int
	colors map[lamp.Color]*color.Color
	force  bool
}

// NewArray creates a grid of count lamps, columns per row, drawn to w.
// Non-positive values fall back to one lamp and one column.
func NewArray(w io.Writer, count, columns int) *Array {
	count = max(count, 1)
	columns = max(columns, 1)

	lamps := make([]lamp.Info, count)
	for i := range lamps {
		lamps[i] = lamp.Info{
			Index: i,
			Position: lamp.Position{
				X: float64(i%columns) * keyPitch,
				Y: float64(i/columns) * keyPitch,
			},
			Purposes: lamp.PurposeControl,
		}
	}

	return &Array{
		lamps:   lamps,
		columns: columns,
		out:     bufio.NewWriter(w),
		frame:   make([]lamp.Color, count),
		colors:  make(map[lamp.Color]*color.Color),
	}
}

// ForceColor emits escape codes even when the writer is not a terminal.
func (a *Array) ForceColor() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.force = true
	clear(a.colors)
}

func (a *Array) ID() string { return DeviceID }

func (a *Array) LampCount() int { return len(a.lamps) }

func (a *Array) IsAvailable() bool { return true }

func (a *Array) LampInfo(index int) lamp.Info { return a.lamps[index] }

func (a *Array) SetColor(c lamp.Color) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.frame {
		a.frame[i] = c
	}
	return a.drawLocked()
}

func (a *Array) SetColorsForIndices(colors []lamp.Color, indices []int) error {
	if len(colors) != len(indices) {
		return lamp.ErrLengthMismatch
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, idx := range indices {
		if idx < 0 || idx >= len(a.frame) {
			return fmt.Errorf("%w: %d", lamp.ErrIndexOutOfRange, idx)
		}
	}
	for i, idx := range indices {
		a.frame[idx] = colors[i]
	}
	return a.drawLocked()
}

// OnAvailabilityChanged never fires: the terminal is always there.
func (a *Array) OnAvailabilityChanged(func(lamp.Array)) func() {
	return func() {}
}

// Frame returns a copy of the colours last drawn.
func (a *Array) Frame() []lamp.Color {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]lamp.Color(nil), a.frame...)
}

func (a *Array) rows() int {
	return (len(a.lamps) + a.columns - 1) / a.columns
}

// drawLocked repaints the grid over the previous one.
func (a *Array) drawLocked() error {
	if a.drawn > 0 {
		fmt.Fprintf(a.out, "\x1b[%dA", a.drawn)
	}

	var row strings.Builder
	for r := range a.rows() {
		row.Reset()
		for col := range a.columns {
			i := r*a.columns + col
			if i >= len(a.frame) {
				break
			}
			row.WriteString(a.cell(a.frame[i]))
		}
		row.WriteString("\x1b[K\n")
		if _, err := a.out.WriteString(row.String()); err != nil {
			return fmt.Errorf("drawing console frame: %w", err)
		}
	}
	a.drawn = a.rows()

	if err := a.out.Flush(); err != nil {
		return fmt.Errorf("drawing console frame: %w", err)
	}
	return nil
}

// cell renders one lamp. Alpha dims the colour so transparent lamps are dark.
func (a *Array) cell(c lamp.Color) string {
	shown := c.Scale(float64(c.A) / 0xff)
	shown.A = 0xff

	painter, ok := a.colors[shown]
	if !ok {
		if len(a.colors) >= maxCachedColors {
			clear(a.colors)
		}
		painter = color.BgRGB(int(shown.R), int(shown.G), int(shown.B))
		if a.force {
			painter.EnableColor()
		}
		a.colors[shown] = painter
	}
	return painter.Sprint("  ")
}

var _ lamp.Array = (*Array)(nil)
