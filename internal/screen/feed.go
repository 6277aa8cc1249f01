package screen

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG captures
	_ "image/png"  // PNG captures
	"os"
	"sync"
	"sync/atomic"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/nerrad567/gray-logic-lampfx/internal/lamp"
)

// Defaults for the sampling grid and capture rate.
const (
	DefaultWidth    = 64
	DefaultHeight   = 36
	DefaultInterval = 100 * time.Millisecond
)

var (
	// ErrNoImage is returned by sources that have nothing to capture yet.
	ErrNoImage = errors.New("screen: no image available")

	// ErrStale is returned by FreshnessCheck when the capture stopped updating.
	ErrStale = errors.New("screen: capture is stale")
)

// ImageSource produces screen images.
type ImageSource interface {
	Capture(ctx context.Context) (image.Image, error)
}

// Sink receives row-major pixel buffers. *effect.AuroraSync satisfies it.
type Sink interface {
	UpdateScreenData(pixels []lamp.Color, width, height int) error
}

// Logger is the logging surface the feed needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// FileSource decodes a PNG or JPEG written by an external capture tool.
type FileSource struct {
	Path string
}

// Capture reads and decodes the file. A missing file is ErrNoImage.
func (s FileSource) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoImage, s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening capture: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding capture %s: %w", s.Path, err)
	}
	return img, nil
}

// FreshnessCheck returns a health check that fails unless path was
// modified within maxAge. It suits process.Config.HealthCheck for the
// helper that writes the capture.
func FreshnessCheck(path string, maxAge time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNoImage, path)
		}
		if err != nil {
			return fmt.Errorf("checking capture: %w", err)
		}
		if age := time.Since(info.ModTime()); age > maxAge {
			return fmt.Errorf("%w: %s last written %s ago", ErrStale, path, age.Round(time.Millisecond))
		}
		return nil
	}
}

// Feed pushes scaled captures into a Sink on a fixed interval.
type Feed struct {
	src      ImageSource
	sink     Sink
	width    int
	height   int
	interval time.Duration

	logger  Logger
	frames  atomic.Uint64
	mu      sync.Mutex
	lastErr string
}

// NewFeed creates a feed. Non-positive sizes and intervals use the defaults.
func NewFeed(src ImageSource, sink Sink, width, height int, interval time.Duration) *Feed {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Feed{
		src:      src,
		sink:     sink,
		width:    width,
		height:   height,
		interval: interval,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger. Call before Run.
func (f *Feed) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	f.logger = logger
}

// Frames returns how many captures reached the sink.
func (f *Feed) Frames() uint64 {
	return f.frames.Load()
}

// Run captures until ctx is cancelled. Capture failures are logged once per
// distinct error and do not stop the feed. It returns nil on cancellation.
func (f *Feed) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		f.report(f.Step(ctx))

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Step performs one capture and push.
func (f *Feed) Step(ctx context.Context) error {
	img, err := f.src.Capture(ctx)
	if err != nil {
		return err
	}
	if err := f.sink.UpdateScreenData(Sample(img, f.width, f.height), f.width, f.height); err != nil {
		return fmt.Errorf("pushing screen frame: %w", err)
	}
	f.frames.Add(1)
	return nil
}

func (f *Feed) report(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	f.mu.Lock()
	changed := msg != f.lastErr
	f.lastErr = msg
	f.mu.Unlock()

	switch {
	case !changed:
	case err == nil:
		f.logger.Debug("screen capture recovered")
	case errors.Is(err, ErrNoImage), errors.Is(err, context.Canceled):
		f.logger.Debug("screen capture unavailable", "error", err)
	default:
		f.logger.Warn("screen capture failed", "error", err)
	}
}

// Sample scales img to width x height and returns opaque row-major pixels.
func Sample(img image.Image, width, height int) []lamp.Color {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	out := make([]lamp.Color, 0, width*height)
	for y := range height {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+4*width]
		for x := range width {
			p := row[4*x : 4*x+4]
			out = append(out, lamp.RGB(p[0], p[1], p[2]))
		}
	}
	return out
}
