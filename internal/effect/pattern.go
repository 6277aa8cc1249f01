package effect

import (
	"sync"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// CustomPattern paints a caller-supplied colour per lamp index. Unset lamps
// are transparent so a pattern can be layered as an override.
type CustomPattern struct {
	base

	mu     sync.RWMutex
	colors map[int]lamp.Color
}

// NewCustomPattern creates an empty pattern.
func NewCustomPattern() *CustomPattern {
	return &CustomPattern{colors: make(map[int]lamp.Color)}
}

func (p *CustomPattern) Kind() Kind   { return KindCustomPattern }
func (p *CustomPattern) Name() string { return "Custom Pattern" }
func (p *CustomPattern) Reset()       {}

// SetColor assigns a colour to one lamp index.
func (p *CustomPattern) SetColor(index int, c lamp.Color) {
	p.mu.Lock()
	p.colors[index] = c
	p.mu.Unlock()
}

// Clear removes every assigned colour.
func (p *CustomPattern) Clear() {
	p.mu.Lock()
	p.colors = make(map[int]lamp.Color)
	p.mu.Unlock()
}

func (p *CustomPattern) ColorFor(index int, _ float64, _ lamp.Info, _ int) lamp.Color {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if c, ok := p.colors[index]; ok {
		return c
	}
	return lamp.Transparent
}

// Static paints every lamp with one colour.
type Static struct {
	base
	color lamp.Color
}

// NewStatic creates a solid-colour effect.
func NewStatic(c lamp.Color) *Static {
	return &Static{color: c}
}

func (s *Static) Kind() Kind   { return KindStatic }
func (s *Static) Name() string { return "Static" }
func (s *Static) Reset()       {}

func (s *Static) ColorFor(int, float64, lamp.Info, int) lamp.Color {
	return s.color
}
