package engine

import "errors"

var (
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("engine: controller closed")

	// ErrNoSource is returned by Start when the controller has no hotplug
	// source.
	ErrNoSource = errors.New("engine: no hotplug source")

	// ErrDevicePanic wraps a panic recovered while pushing a frame.
	ErrDevicePanic = errors.New("engine: device panicked")
)
