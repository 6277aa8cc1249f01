package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

func TestNew_EveryKind(t *testing.T) {
	for _, k := range Kinds() {
		t.Run(string(k), func(t *testing.T) {
			e, err := New(Spec{Type: k, Colors: []string{"#ff0000", "#0000ff"}}, seeded())
			require.NoError(t, err)
			assert.Equal(t, k, e.Kind())
			assert.NotEmpty(t, e.Name())
		})
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		want error
	}{
		{"missing type", Spec{}, ErrUnknownType},
		{"unknown type", Spec{Type: "plasma"}, ErrUnknownType},
		{"bad colour", Spec{Type: KindStatic, Color: "not-a-colour"}, lamp.ErrInvalidColor},
		{"single-colour gradient", Spec{Type: KindGradient, Colors: []string{"#ff0000"}}, ErrInvalidParameter},
		{"bad gradient colour", Spec{Type: KindGradient, Colors: []string{"#ff0000", "x"}}, lamp.ErrInvalidColor},
		{"bad direction", Spec{Type: KindRainbowWave, Direction: "up"}, ErrInvalidParameter},
		{"sparkle density", Spec{Type: KindSparkle, Density: 2}, ErrInvalidParameter},
		{"negative pattern index", Spec{Type: KindCustomPattern, Pattern: map[int]string{-1: "#ffffff"}}, ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.spec)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNew_FromYAML(t *testing.T) {
	const doc = `
type: custom_pattern
pattern:
  0: "#ff0000"
  3: "#0000ff"
`
	var spec Spec
	require.NoError(t, yaml.Unmarshal([]byte(doc), &spec))

	e, err := New(spec)
	require.NoError(t, err)

	assert.Equal(t, red, e.ColorFor(0, 0, at(0, 0), 4))
	assert.Equal(t, blue, e.ColorFor(3, 0, at(0, 0), 4))
	assert.True(t, e.ColorFor(1, 0, at(0, 0), 4).IsTransparent())
}

func TestNew_AuroraBounds(t *testing.T) {
	e, err := New(Spec{Type: KindAuroraSync, Bounds: &Bounds{CenterX: 1, CenterY: 1, Width: 2, Height: 2}})
	require.NoError(t, err)

	a := e.(*AuroraSync)
	assert.InDelta(t, 2.0, a.w, 1e-9)
	assert.InDelta(t, 1.0, a.centerX, 1e-9)
}

func TestNew_SharedAuroraSync(t *testing.T) {
	shared := NewAuroraSync()

	first, err := New(Spec{Type: KindAuroraSync}, WithAuroraSync(shared))
	require.NoError(t, err)
	second, err := New(Spec{Type: KindAuroraSync, Bounds: &Bounds{Width: 0.3, Height: 0.1}}, WithAuroraSync(shared))
	require.NoError(t, err)

	assert.Same(t, shared, first)
	assert.Same(t, shared, second)
	assert.InDelta(t, 0.3, shared.w, 1e-9)

	other, err := New(Spec{Type: KindStatic, Color: "#ffffff"}, WithAuroraSync(shared))
	require.NoError(t, err)
	_, isAurora := other.(*AuroraSync)
	assert.False(t, isAurora)
}

func TestNew_GradientParameters(t *testing.T) {
	e, err := New(Spec{Type: KindGradient, Colors: []string{"#ff0000", "#0000ff"}, Direction: "right_to_left"})
	require.NoError(t, err)

	assert.Equal(t, blue, e.ColorFor(0, 0, at(0, 0), 1))
}
