package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Replay is a sensor backed by a video file instead of hardware. It
// loops the file when it runs out of frames, which makes it useful for
// exercising the recording client with repeatable footage.
type Replay struct {
	name   string
	source string
	logger *slog.Logger

	mu    sync.Mutex
	state State
	cap   *gocv.VideoCapture
	mat   gocv.Mat
	frame Frame
	fps   int
	next  time.Time
}

// NewReplay creates a replay sensor for the given video file.
func NewReplay(source string, logger *slog.Logger) *Replay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replay{
		name:   "replay",
		source: source,
		logger: logger.With("sensor", "replay", "source", source),
		state:  StateUninitialized,
	}
}

// Initialize opens the source file.
func (r *Replay) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateUninitialized {
		return fmt.Errorf("%w: initialize in state %s", ErrInvalidState, r.state)
	}

	cap, err := gocv.VideoCaptureFile(r.source)
	if err != nil {
		return fmt.Errorf("%w: replay source %s: %v", ErrDeviceNotFound, r.source, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return fmt.Errorf("%w: replay source %s", ErrDeviceNotFound, r.source)
	}

	r.cap = cap
	r.mat = gocv.NewMat()
	r.fps = int(cap.Get(gocv.VideoCaptureFPS))
	if r.fps <= 0 {
		r.fps = 30
	}

	r.state = StateInitialized
	r.logger.Info("replay source opened", "fps", r.fps)
	return nil
}

// Start begins frame production from the top of the file.
func (r *Replay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateInitialized && r.state != StateStopped {
		return fmt.Errorf("%w: start in state %s", ErrInvalidState, r.state)
	}

	r.next = time.Time{}
	r.state = StateRunning
	return nil
}

// Read pulls the next frame, rewinding to the start of the file at the
// end. Frame production is paced to the file's frame rate.
func (r *Replay) Read(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRunning {
		return false, fmt.Errorf("%w: read in state %s", ErrInvalidState, r.state)
	}

	now := time.Now()
	if !r.next.IsZero() && now.Before(r.next) {
		return false, nil
	}

	if !r.cap.Read(&r.mat) || r.mat.Empty() {
		r.cap.Set(gocv.VideoCapturePosFrames, 0)
		if !r.cap.Read(&r.mat) || r.mat.Empty() {
			return false, nil
		}
	}

	interval := time.Second / time.Duration(r.fps)
	if r.next.IsZero() || now.Sub(r.next) > interval {
		r.next = now.Add(interval)
	} else {
		r.next = r.next.Add(interval)
	}

	r.frame.reset(r.mat.Cols(), r.mat.Rows(), r.mat.Channels())
	copy(r.frame.Data, r.mat.ToBytes())
	return true, nil
}

// Frame returns the most recently read frame, valid until the next Read.
func (r *Replay) Frame() *Frame {
	return &r.frame
}

// Stop halts frame production but keeps the file open.
func (r *Replay) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRunning {
		return nil
	}
	r.state = StateStopped
	return nil
}

// Cleanup releases the file handle. Idempotent.
func (r *Replay) Cleanup() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateReleased {
		return nil
	}

	var err error
	if r.cap != nil {
		err = r.cap.Close()
		r.cap = nil
		if cerr := r.mat.Close(); err == nil {
			err = cerr
		}
	}
	r.frame = Frame{}
	r.state = StateReleased
	return err
}

// Name returns "replay".
func (r *Replay) Name() string {
	return r.name
}

// Mode returns ModeReplay.
func (r *Replay) Mode() Mode {
	return ModeReplay
}

// FPS returns the source file's frame rate.
func (r *Replay) FPS() int {
	return r.fps
}

var _ SensorWithRate = (*Replay)(nil)
