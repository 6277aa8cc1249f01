package influxdb

import (
	"sync/atomic"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-lampfx/internal/engine"
)

// MeasurementFrame is the measurement name for sampled render frames.
const MeasurementFrame = "lampfx_frame"

// PointWriter accepts points for asynchronous delivery. *Client satisfies it.
type PointWriter interface {
	WritePoint(point *write.Point)
}

// FrameRecorder turns render statistics into InfluxDB points. It implements
// engine.FrameObserver and writes one point per SampleEvery frames.
//
// Thread Safety:
//   - ObserveFrame is safe for concurrent use.
type FrameRecorder struct {
	w     PointWriter
	every uint64
	seen  atomic.Uint64
}

// NewFrameRecorder creates a recorder writing to w. A sampleEvery below 1
// records every frame.
func NewFrameRecorder(w PointWriter, sampleEvery int) *FrameRecorder {
	every := uint64(1)
	if sampleEvery > 1 {
		every = uint64(sampleEvery)
	}
	return &FrameRecorder{w: w, every: every}
}

// ObserveFrame implements engine.FrameObserver.
func (r *FrameRecorder) ObserveFrame(stats engine.FrameStats) {
	if (r.seen.Add(1)-1)%r.every != 0 {
		return
	}

	effect := stats.Effect
	if effect == "" {
		effect = "none"
	}

	point := write.NewPoint(
		MeasurementFrame,
		map[string]string{
			"effect": effect,
		},
		map[string]interface{}{
			"duration_us": stats.Duration.Microseconds(),
			"devices":     stats.Devices,
			"lamps":       stats.Lamps,
			"failures":    stats.Failures,
			"overrides":   stats.Overrides,
			"blending":    stats.Blending,
		},
		stats.Started,
	)
	r.w.WritePoint(point)
}

// Frames returns how many frames have been observed, sampled or not.
func (r *FrameRecorder) Frames() uint64 {
	return r.seen.Load()
}

var _ engine.FrameObserver = (*FrameRecorder)(nil)
