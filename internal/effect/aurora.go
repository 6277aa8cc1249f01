package effect

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// Default sampling rectangle: a 0.45 x 0.15 m keyboard whose top-left lamp
// sits at the origin.
const (
	defaultAuroraWidth  = 0.45
	defaultAuroraHeight = 0.15
	minAuroraExtent     = 0.01
)

// AuroraSync mirrors the screen onto the lamps. Screen frames arrive from a
// capture goroutine through UpdateScreenData; each lamp samples the pixel
// under its position mapped into a configurable bounding rectangle.
type AuroraSync struct {
	base

	screen atomic.Pointer[screenFrame]

	mu                     sync.RWMutex
	centerX, centerY, w, h float64
}

type screenFrame struct {
	pixels        []lamp.Color // row-major
	width, height int
}

// NewAuroraSync creates an AuroraSync effect with the default bounds.
func NewAuroraSync() *AuroraSync {
	a := &AuroraSync{}
	a.SetBounds(defaultAuroraWidth/2, defaultAuroraHeight/2, defaultAuroraWidth, defaultAuroraHeight)
	return a
}

func (a *AuroraSync) Kind() Kind   { return KindAuroraSync }
func (a *AuroraSync) Name() string { return "Aurora Sync" }

// Reset keeps the last screen frame: it belongs to the capture, not to the
// animation.
func (a *AuroraSync) Reset() {}

// SetBounds sets the lamp-space rectangle that the screen is stretched over.
// Widths or heights below 1 cm fall back to the defaults.
func (a *AuroraSync) SetBounds(centerX, centerY, width, height float64) {
	if width < minAuroraExtent {
		width = defaultAuroraWidth
	}
	if height < minAuroraExtent {
		height = defaultAuroraHeight
	}

	a.mu.Lock()
	a.centerX, a.centerY, a.w, a.h = centerX, centerY, width, height
	a.mu.Unlock()
}

// UpdateScreenData publishes a new screen frame of width x height pixels in
// row-major order. The buffer is copied.
func (a *AuroraSync) UpdateScreenData(pixels []lamp.Color, width, height int) error {
	if width <= 0 || height <= 0 || len(pixels) < width*height {
		return fmt.Errorf("%w: %d pixels for %dx%d", ErrScreenSize, len(pixels), width, height)
	}

	frame := &screenFrame{
		pixels: append([]lamp.Color(nil), pixels[:width*height]...),
		width:  width,
		height: height,
	}
	a.screen.Store(frame)
	return nil
}

// ColorFor returns transparent until the first screen frame arrives.
func (a *AuroraSync) ColorFor(_ int, _ float64, info lamp.Info, _ int) lamp.Color {
	frame := a.screen.Load()
	if frame == nil {
		return lamp.Transparent
	}

	a.mu.RLock()
	u := 0.5 + (info.Position.X-a.centerX)/a.w
	v := 0.5 + (info.Position.Y-a.centerY)/a.h
	a.mu.RUnlock()

	u = clamp(u, 0, 0.999)
	v = clamp(v, 0, 0.999)

	px := int(u * float64(frame.width))
	py := int(v * float64(frame.height))

	c := frame.pixels[py*frame.width+px]
	c.A = 0xff
	return c
}
