package mqttlamp

import "errors"

var (
	// ErrInvalidAnnounce is returned for descriptors that cannot be used.
	ErrInvalidAnnounce = errors.New("mqttlamp: invalid announce")

	// ErrInvalidFrame is returned when a frame payload is malformed.
	ErrInvalidFrame = errors.New("mqttlamp: invalid frame")

	// ErrWatcherStarted is returned when Start is called twice.
	ErrWatcherStarted = errors.New("mqttlamp: watcher already started")
)
