package zone

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Layout is a logical keyboard layout in pixel coordinates.
type Layout struct {
	Width  int   `yaml:"width" json:"width"`
	Height int   `yaml:"height" json:"height"`
	Keys   []Key `yaml:"keys" json:"keys"`
}

// Validate checks the layout dimensions.
func (l Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return ErrInvalidLayout
	}
	return nil
}

// LoadLayout reads a YAML layout file.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("reading layout file: %w", err)
	}

	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("parsing layout file: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}
