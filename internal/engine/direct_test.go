package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
	"github.com/nerrad567/gray-logic-lampfx/internal/lamp/lamptest"
	"github.com/nerrad567/gray-logic-lampfx/internal/zone"
)

func TestSetAllLampsColor(t *testing.T) {
	f := newFixture(t, instantConfig())
	a := f.attach(lamptest.NewArray("a", lamptest.Row(2, 0.02, 0)...))
	b := f.attach(lamptest.NewArray("b", lamptest.Row(2, 0.02, 0)...))
	b.SetPanicking(true)

	assert.NotPanics(t, func() { f.c.SetAllLampsColor(red) })

	got, ok := a.Fill()
	require.True(t, ok)
	assert.Equal(t, red, got)
}

func TestSetAllLampsColor_NoDevice(t *testing.T) {
	f := newFixture(t, instantConfig())
	assert.NotPanics(t, func() { f.c.SetAllLampsColor(red) })
}

func TestSetLampColors_SkipsIndicesOutOfRange(t *testing.T) {
	f := newFixture(t, instantConfig())
	small := f.attach(lamptest.NewArray("small", lamptest.Row(2, 0.02, 0)...))
	large := f.attach(lamptest.NewArray("large", lamptest.Row(4, 0.02, 0)...))

	f.c.SetLampColors(map[int]lamp.Color{1: red, 3: blue})

	assert.Equal(t, []lamp.Color{{}, red}, requireFrame(t, small))
	assert.Equal(t, []lamp.Color{{}, red, {}, blue}, requireFrame(t, large))

	f.c.SetLampColors(nil)
	assert.Len(t, large.Frames(), 1)
}

func TestSetColorForKeys(t *testing.T) {
	f := newFixture(t, instantConfig())
	mapped := f.attach(lamptest.NewArray("mapped", lamptest.Row(3, 0.1, 0)...))

	require.NoError(t, f.c.SetLayout(200, 100, []zone.Key{
		{Code: 30, X: 0, Y: 0},
		{Code: 31, X: 100, Y: 0},
		{Code: 32, X: 200, Y: 0},
	}))

	unmapped := f.attach(lamptest.NewArray("unmapped", lamptest.Row(3, 0.1, 0)...))

	f.c.SetColorForKeys([]uint16{30, 32, 99}, green)

	assert.Equal(t, []lamp.Color{green, {}, green}, requireFrame(t, mapped))
	assert.Empty(t, unmapped.Frames())
}

func TestSetLayout_RejectsInvalidSize(t *testing.T) {
	f := newFixture(t, instantConfig())
	assert.ErrorIs(t, f.c.SetLayout(0, 10, nil), zone.ErrInvalidLayout)
}

func TestLamps(t *testing.T) {
	f := newFixture(t, instantConfig())
	f.attach(lamptest.NewArray("b", lamptest.Row(1, 0, 0)...))
	f.attach(lamptest.NewArray("a", lamptest.Row(2, 0.02, 0)...))
	off := f.attach(lamptest.NewArray("c", lamptest.Row(5, 0.02, 0)...))
	off.SetAvailable(false)

	lamps := f.c.Lamps()
	require.Len(t, lamps, 3)
	assert.Equal(t, "a", lamps[0].DeviceID)
	assert.Equal(t, 0, lamps[0].Info.Index)
	assert.Equal(t, 1, lamps[1].Info.Index)
	assert.Equal(t, "b", lamps[2].DeviceID)
}
