package engine

import "time"

// FrameStats summarises one rendered frame.
type FrameStats struct {
	Started   time.Time
	Duration  time.Duration
	Devices   int
	Lamps     int
	Failures  int
	Overrides int
	Blending  bool
	Effect    string
}

// FrameObserver receives statistics for every rendered frame. It is called
// on the render goroutine and must return quickly.
type FrameObserver interface {
	ObserveFrame(stats FrameStats)
}
