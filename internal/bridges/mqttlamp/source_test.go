package mqttlamp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-lampfx/internal/hotplug"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

const twoLamps = `{"name":"desk","lamps":[{"index":0,"position":{"x":0,"y":0,"z":0},"purposes":1},{"index":1,"position":{"x":0.02,"y":0,"z":0},"purposes":1}]}`

var topics = mqtt.Topics{}

func startWatcher(t *testing.T, s *Source) *Watcher {
	t.Helper()
	hw, err := s.Watch(s.Selector())
	require.NoError(t, err)
	w := hw.(*Watcher)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func nextEvent(t *testing.T, w *Watcher) hotplug.Event {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return hotplug.Event{}
	}
}

func requireNoEvent(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event %v %s", ev.Type, ev.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSource_Watch_RejectsForeignSelector(t *testing.T) {
	s := NewSource(newMockBroker(), 0)

	_, err := s.Watch("usb:hid")
	assert.Error(t, err)
}

func TestSource_RetainedAnnouncesThenEnumerationCompleted(t *testing.T) {
	broker := newMockBroker()
	broker.retain(topics.DeviceAnnounce("kbd-a"), []byte(twoLamps))
	broker.retain(topics.DeviceAnnounce("kbd-b"), []byte(twoLamps))
	s := NewSource(broker, 0)

	w := startWatcher(t, s)

	got := map[string]bool{}
	got[nextEvent(t, w).ID] = true
	got[nextEvent(t, w).ID] = true
	assert.Equal(t, map[string]bool{"kbd-a": true, "kbd-b": true}, got)
	assert.Equal(t, hotplug.EnumerationCompleted, nextEvent(t, w).Type)
	assert.Equal(t, 2, broker.subscriptions())
}

func TestSource_SettleDelay(t *testing.T) {
	s := NewSource(newMockBroker(), 30*time.Millisecond)
	w := startWatcher(t, s)

	requireNoEvent(t, w)
	assert.Equal(t, hotplug.EnumerationCompleted, nextEvent(t, w).Type)
}

func TestSource_LiveAnnounceAndWithdraw(t *testing.T) {
	broker := newMockBroker()
	s := NewSource(broker, 0)
	w := startWatcher(t, s)
	require.Equal(t, hotplug.EnumerationCompleted, nextEvent(t, w).Type)

	require.NoError(t, broker.deliver(topics.DeviceAnnounce("strip"), []byte(twoLamps)))
	assert.Equal(t, hotplug.Event{Type: hotplug.Added, ID: "strip"}, nextEvent(t, w))

	// An identical re-announce is not news.
	require.NoError(t, broker.deliver(topics.DeviceAnnounce("strip"), []byte(twoLamps)))
	requireNoEvent(t, w)

	require.NoError(t, broker.deliver(topics.DeviceAnnounce("strip"), nil))
	assert.Equal(t, hotplug.Event{Type: hotplug.Removed, ID: "strip"}, nextEvent(t, w))

	// Withdrawing an unknown device is ignored.
	require.NoError(t, broker.deliver(topics.DeviceAnnounce("ghost"), nil))
	requireNoEvent(t, w)
}

func TestSource_InvalidAnnounceIsRejected(t *testing.T) {
	broker := newMockBroker()
	s := NewSource(broker, 0)
	w := startWatcher(t, s)
	nextEvent(t, w)

	err := broker.deliver(topics.DeviceAnnounce("bad"), []byte(`{"lamps":[]}`))
	assert.ErrorIs(t, err, ErrInvalidAnnounce)
	requireNoEvent(t, w)

	_, err = s.Resolve(context.Background(), "bad")
	assert.ErrorIs(t, err, hotplug.ErrUnknownDevice)
}

func TestSource_Resolve(t *testing.T) {
	broker := newMockBroker()
	broker.retain(topics.DeviceAnnounce("kbd"), []byte(twoLamps))
	s := NewSource(broker, 0)
	startWatcher(t, s)

	arr, err := s.Resolve(context.Background(), "kbd")
	require.NoError(t, err)
	assert.Equal(t, "kbd", arr.ID())
	assert.Equal(t, 2, arr.LampCount())
	assert.True(t, arr.IsAvailable())
	assert.InDelta(t, 0.02, arr.LampInfo(1).Position.X, 1e-9)
	assert.Equal(t, "desk", arr.(*Array).Name())

	again, err := s.Resolve(context.Background(), "kbd")
	require.NoError(t, err)
	assert.Same(t, arr, again)

	_, err = s.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, hotplug.ErrUnknownDevice)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Resolve(ctx, "kbd")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSource_ReannounceReplacesArray(t *testing.T) {
	broker := newMockBroker()
	broker.retain(topics.DeviceAnnounce("kbd"), []byte(twoLamps))
	s := NewSource(broker, 0)
	w := startWatcher(t, s)
	nextEvent(t, w)
	nextEvent(t, w)

	old, err := s.Resolve(context.Background(), "kbd")
	require.NoError(t, err)

	require.NoError(t, broker.deliver(topics.DeviceAnnounce("kbd"), []byte(`{"lamps":[{"index":0}]}`)))
	assert.Equal(t, hotplug.Event{Type: hotplug.Added, ID: "kbd"}, nextEvent(t, w))
	assert.False(t, old.IsAvailable(), "stale array must stop accepting frames")

	fresh, err := s.Resolve(context.Background(), "kbd")
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.LampCount())
}

func TestSource_Availability(t *testing.T) {
	broker := newMockBroker()
	broker.retain(topics.DeviceAnnounce("kbd"), []byte(twoLamps))
	s := NewSource(broker, 0)
	w := startWatcher(t, s)
	nextEvent(t, w)
	nextEvent(t, w)

	arr, err := s.Resolve(context.Background(), "kbd")
	require.NoError(t, err)

	flips := make(chan bool, 4)
	cancel := arr.OnAvailabilityChanged(func(a lamp.Array) { flips <- a.IsAvailable() })
	defer cancel()

	require.NoError(t, broker.deliver(topics.DeviceAvailability("kbd"), []byte("offline")))
	assert.Equal(t, hotplug.Event{Type: hotplug.AvailabilityChanged, ID: "kbd"}, nextEvent(t, w))
	assert.False(t, <-flips)
	assert.ErrorIs(t, arr.SetColor(lamp.RGB(1, 1, 1)), lamp.ErrUnavailable)

	// Repeating the same state is not a change.
	require.NoError(t, broker.deliver(topics.DeviceAvailability("kbd"), []byte("offline")))
	requireNoEvent(t, w)

	require.NoError(t, broker.deliver(topics.DeviceAvailability("kbd"), []byte(" ONLINE\n")))
	assert.Equal(t, hotplug.AvailabilityChanged, nextEvent(t, w).Type)
	assert.True(t, <-flips)

	assert.Error(t, broker.deliver(topics.DeviceAvailability("kbd"), []byte("sleepy")))
}

func TestSource_OfflineBeforeResolve(t *testing.T) {
	broker := newMockBroker()
	broker.retain(topics.DeviceAnnounce("kbd"), []byte(twoLamps))
	broker.retain(topics.DeviceAvailability("kbd"), []byte("offline"))
	s := NewSource(broker, 0)
	startWatcher(t, s)

	arr, err := s.Resolve(context.Background(), "kbd")
	require.NoError(t, err)
	assert.False(t, arr.IsAvailable())
}

func TestSource_SecondWatcherSeesKnownDevices(t *testing.T) {
	broker := newMockBroker()
	broker.retain(topics.DeviceAnnounce("kbd"), []byte(twoLamps))
	s := NewSource(broker, 0)
	first := startWatcher(t, s)
	nextEvent(t, first)

	second := startWatcher(t, s)
	assert.Equal(t, hotplug.Event{Type: hotplug.Added, ID: "kbd"}, nextEvent(t, second))
	assert.Equal(t, hotplug.EnumerationCompleted, nextEvent(t, second).Type)
}

func TestWatcher_StopUnsubscribesLast(t *testing.T) {
	broker := newMockBroker()
	s := NewSource(broker, 0)

	hw1, _ := s.Watch(s.Selector())
	hw2, _ := s.Watch(s.Selector())
	require.NoError(t, hw1.Start())
	require.NoError(t, hw2.Start())

	require.NoError(t, hw1.Stop())
	assert.Equal(t, 2, broker.subscriptions())

	require.NoError(t, hw2.Stop())
	assert.Equal(t, 0, broker.subscriptions())
	require.NoError(t, hw2.Stop())

	_, open := <-hw2.Events()
	assert.False(t, open)
	assert.ErrorIs(t, hw2.Start(), ErrWatcherStarted)
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	s := NewSource(newMockBroker(), 0)
	hw, err := s.Watch(s.Selector())
	require.NoError(t, err)

	require.NoError(t, hw.Stop())
	_, open := <-hw.Events()
	assert.False(t, open)
}

func TestWatcher_StartFailsWhenSubscribeFails(t *testing.T) {
	broker := newMockBroker()
	broker.subscribeErr = errors.New("broker said no")
	s := NewSource(broker, 0)

	hw, err := s.Watch(s.Selector())
	require.NoError(t, err)
	assert.Error(t, hw.Start())
	require.NoError(t, hw.Stop())
}

func TestWatcher_DoesNotBlockDelivery(t *testing.T) {
	broker := newMockBroker()
	s := NewSource(broker, 0)
	w := startWatcher(t, s)

	// Nobody reads Events while far more than the channel buffer arrives.
	for i := range 200 {
		payload := []byte("offline")
		if i%2 == 1 {
			payload = []byte("online")
		}
		require.NoError(t, broker.deliver(topics.DeviceAnnounce("kbd"), []byte(twoLamps)))
		require.NoError(t, broker.deliver(topics.DeviceAvailability("kbd"), payload))
	}

	assert.Equal(t, hotplug.EnumerationCompleted, nextEvent(t, w).Type)
	assert.Equal(t, hotplug.Event{Type: hotplug.Added, ID: "kbd"}, nextEvent(t, w))
}
