// Package recorder drives a sensor through its lifecycle to produce a
// video artifact on disk.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neuronav/go-neuronav/pkg/sensor"
)

// defaultPollInterval bounds the frame-pump polling rate when the
// sensor reports no frame available.
const defaultPollInterval = 5 * time.Millisecond

// defaultFPS is the writer frame rate for sensors that do not expose
// their configured rate.
const defaultFPS = 30

// Client records frame sequences from a sensor into video files.
type Client struct {
	apiKey       string
	upload       bool
	outputDir    string
	pollInterval time.Duration
	logger       *slog.Logger
	newWriter    WriterFactory
}

// Option configures a Client.
type Option func(*Client)

// WithUpload toggles cloud upload after recording. Reserved: the flag
// is carried but upload is not implemented yet.
func WithUpload(upload bool) Option {
	return func(c *Client) { c.upload = upload }
}

// WithOutputDir sets the artifact directory. Default "recordings".
func WithOutputDir(dir string) Option {
	return func(c *Client) { c.outputDir = dir }
}

// WithPollInterval sets the pause between polls when no frame is
// available. Default 5ms.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithWriterFactory replaces the video writer. Used by tests.
func WithWriterFactory(factory WriterFactory) Option {
	return func(c *Client) { c.newWriter = factory }
}

// NewClient creates a recording client. The api key is the neuronav
// cloud credential; it is stored for the future upload feature and
// must be non-empty.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	c := &Client{
		apiKey:       apiKey,
		outputDir:    "recordings",
		pollInterval: defaultPollInterval,
		logger:       slog.Default(),
		newWriter:    newVideoWriter,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Recording describes a finished capture.
type Recording struct {
	// ID uniquely identifies this recording.
	ID uuid.UUID

	// Path is the artifact location. Empty when no frame was captured.
	Path string

	// Frames is the number of frames written.
	Frames int

	// Duration is the wall-clock length of the record loop.
	Duration time.Duration

	// StartedAt is when the loop began.
	StartedAt time.Time
}

// Record starts the sensor and pumps frames into a video file until
// the duration elapses or ctx is cancelled, whichever comes first. A
// zero duration records until cancelled. Cancellation is a normal
// termination, not an error.
//
// Whatever way the loop exits, the sensor is stopped and cleaned up
// and the writer is closed, so the artifact is always finalized and
// the device always released.
func (c *Client) Record(ctx context.Context, s sensor.Sensor, duration time.Duration) (rec *Recording, err error) {
	if err := s.Start(ctx); err != nil {
		// Start never claimed the frame pump, but resources may be
		// partially acquired.
		if cerr := s.Cleanup(); cerr != nil {
			c.logger.Warn("cleanup after failed start", "error", cerr)
		}
		return nil, err
	}

	var w FrameWriter
	defer func() {
		if serr := s.Stop(); serr != nil && err == nil {
			err = serr
		}
		if cerr := s.Cleanup(); cerr != nil && err == nil {
			err = cerr
		}
		if w != nil {
			if werr := w.Close(); werr != nil && err == nil {
				err = werr
			}
		}
	}()

	started := time.Now()
	rec = &Recording{ID: uuid.New(), StartedAt: started}
	path := artifactPath(c.outputDir, s.Name(), s.Mode(), started)

	logger := c.logger.With(
		"recording_id", rec.ID,
		"sensor", s.Name(),
		"mode", s.Mode(),
	)
	logger.Info("recording started", "duration", duration, "path", path)

	var deadline time.Time
	if duration > 0 {
		deadline = started.Add(duration)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("recording cancelled")
			rec.Duration = time.Since(started)
			return rec, nil
		default:
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			break
		}

		ok, rerr := s.Read(ctx)
		if rerr != nil {
			return nil, rerr
		}
		if !ok {
			time.Sleep(c.pollInterval)
			continue
		}

		frame := s.Frame()
		if w == nil {
			w, err = c.openWriter(path, s, frame)
			if err != nil {
				return nil, err
			}
			rec.Path = path
		}
		if werr := w.Write(frame); werr != nil {
			return nil, werr
		}
		rec.Frames++
	}

	rec.Duration = time.Since(started)
	logger.Info("recording finished",
		"frames", rec.Frames,
		"elapsed", rec.Duration,
	)
	return rec, nil
}

// openWriter lazily creates the artifact writer sized to the first
// frame, at the sensor's frame rate when it exposes one.
func (c *Client) openWriter(path string, s sensor.Sensor, frame *sensor.Frame) (FrameWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("recorder: create output dir: %w", err)
	}

	fps := defaultFPS
	if rated, ok := s.(sensor.SensorWithRate); ok {
		fps = rated.FPS()
	}

	return c.newWriter(path, frame.Width, frame.Height, fps)
}

// artifactPath names the artifact from capture start time, sensor name
// and mode, so separate recordings of the same sensor never collide.
func artifactPath(dir, name string, mode sensor.Mode, started time.Time) string {
	ts := started.Format("20060102_150405")
	file := fmt.Sprintf("%s_%s_%s.mp4", ts, strings.ReplaceAll(name, "-", "_"), mode)
	return filepath.Join(dir, file)
}
