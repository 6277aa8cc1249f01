package mqttlamp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

func resolvedArray(t *testing.T) (*Array, *mockBroker) {
	t.Helper()
	broker := newMockBroker()
	broker.retain(topics.DeviceAnnounce("kbd"), []byte(twoLamps))
	s := NewSource(broker, 0)
	startWatcher(t, s)

	arr, err := s.Resolve(context.Background(), "kbd")
	require.NoError(t, err)
	return arr.(*Array), broker
}

func TestArray_SetColorsForIndicesPublishesFrame(t *testing.T) {
	arr, broker := resolvedArray(t)

	require.NoError(t, arr.SetColorsForIndices(
		[]lamp.Color{lamp.RGB(255, 0, 0), lamp.RGB(0, 0, 255)},
		[]int{0, 1},
	))

	pubs := broker.publishes()
	require.Len(t, pubs, 1)
	assert.Equal(t, "lampfx/device/kbd/frame", pubs[0].Topic)
	assert.Equal(t, byte(0), pubs[0].QoS)
	assert.False(t, pubs[0].Retained)

	f, err := DecodeFrame(pubs[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, lamp.RGB(0, 0, 255), f.Colors()[1])
}

func TestArray_SetColorPublishesFill(t *testing.T) {
	arr, broker := resolvedArray(t)

	require.NoError(t, arr.SetColor(lamp.RGB(9, 8, 7)))

	f, err := DecodeFrame(broker.publishes()[0].Payload)
	require.NoError(t, err)
	c, ok := f.FillColor()
	require.True(t, ok)
	assert.Equal(t, lamp.RGB(9, 8, 7), c)
}

func TestArray_RejectsBadInput(t *testing.T) {
	arr, broker := resolvedArray(t)

	assert.ErrorIs(t, arr.SetColorsForIndices([]lamp.Color{lamp.Black}, []int{0, 1}), lamp.ErrLengthMismatch)
	assert.ErrorIs(t, arr.SetColorsForIndices([]lamp.Color{lamp.Black}, []int{2}), lamp.ErrIndexOutOfRange)
	assert.ErrorIs(t, arr.SetColorsForIndices([]lamp.Color{lamp.Black}, []int{-1}), lamp.ErrIndexOutOfRange)
	assert.Empty(t, broker.publishes())
}

func TestArray_PublishErrorIsWrapped(t *testing.T) {
	arr, broker := resolvedArray(t)
	boom := errors.New("not connected")
	broker.publishErr = boom

	assert.ErrorIs(t, arr.SetColor(lamp.Black), boom)
}

func TestArray_CancelSubscriptionTwice(t *testing.T) {
	arr, _ := resolvedArray(t)

	calls := 0
	cancel := arr.OnAvailabilityChanged(func(lamp.Array) { calls++ })
	cancel()
	cancel()

	arr.setAvailable(false)
	assert.Equal(t, 0, calls)
}
