package influxdb

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-lampfx/internal/engine"
	"github.com/nerrad567/gray-logic-lampfx/internal/infrastructure/config"
)

type capturingWriter struct {
	mu     sync.Mutex
	points []*write.Point
}

func (w *capturingWriter) WritePoint(p *write.Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.points = append(w.points, p)
}

func (w *capturingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.points)
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Token:   "t",
		Org:     "lampfx",
		Bucket:  "frames",
	})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClient_ZeroValue(t *testing.T) {
	c := &Client{}

	if c.IsConnected() {
		t.Error("IsConnected() = true for zero client")
	}
	c.WritePoint(write.NewPoint("x", nil, map[string]interface{}{"v": 1}, time.Now()))
	c.Flush()
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestFrameRecorder_WritesPoint(t *testing.T) {
	w := &capturingWriter{}
	rec := NewFrameRecorder(w, 1)
	started := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	rec.ObserveFrame(engine.FrameStats{
		Started:   started,
		Duration:  1500 * time.Microsecond,
		Devices:   2,
		Lamps:     208,
		Failures:  1,
		Overrides: 3,
		Blending:  true,
		Effect:    "rainbow_wave",
	})

	if w.count() != 1 {
		t.Fatalf("wrote %d points, want 1", w.count())
	}
	p := w.points[0]

	if p.Name() != MeasurementFrame {
		t.Errorf("Name() = %q, want %q", p.Name(), MeasurementFrame)
	}
	if !p.Time().Equal(started) {
		t.Errorf("Time() = %v, want %v", p.Time(), started)
	}

	tags := p.TagList()
	if len(tags) != 1 || tags[0].Key != "effect" || tags[0].Value != "rainbow_wave" {
		t.Errorf("tags = %v, want effect=rainbow_wave", tags)
	}

	fields := make(map[string]interface{})
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	want := map[string]interface{}{
		"duration_us": int64(1500),
		"devices":     int64(2),
		"lamps":       int64(208),
		"failures":    int64(1),
		"overrides":   int64(3),
		"blending":    true,
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("field %s = %v (%T), want %v (%T)", k, fields[k], fields[k], v, v)
		}
	}
}

func TestFrameRecorder_NoEffectTag(t *testing.T) {
	w := &capturingWriter{}
	NewFrameRecorder(w, 0).ObserveFrame(engine.FrameStats{Started: time.Now()})

	if w.count() != 1 {
		t.Fatalf("wrote %d points, want 1", w.count())
	}
	if tags := w.points[0].TagList(); tags[0].Value != "none" {
		t.Errorf("effect tag = %q, want none", tags[0].Value)
	}
}

func TestFrameRecorder_Sampling(t *testing.T) {
	tests := []struct {
		name   string
		every  int
		frames int
		want   int
	}{
		{"every frame", 1, 10, 10},
		{"zero means every frame", 0, 4, 4},
		{"every third", 3, 10, 4},
		{"every thirtieth", 30, 60, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &capturingWriter{}
			rec := NewFrameRecorder(w, tt.every)

			for range tt.frames {
				rec.ObserveFrame(engine.FrameStats{Started: time.Now(), Effect: "static"})
			}

			if w.count() != tt.want {
				t.Errorf("wrote %d points, want %d", w.count(), tt.want)
			}
			if rec.Frames() != uint64(tt.frames) {
				t.Errorf("Frames() = %d, want %d", rec.Frames(), tt.frames)
			}
		})
	}
}

func TestFrameRecorder_Concurrent(t *testing.T) {
	w := &capturingWriter{}
	rec := NewFrameRecorder(w, 2)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				rec.ObserveFrame(engine.FrameStats{Started: time.Now()})
			}
		}()
	}
	wg.Wait()

	if w.count() != 200 {
		t.Errorf("wrote %d points, want 200", w.count())
	}
}
