package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// backend is the mode-specific half of the adapter. The adapter owns
// the lifecycle state machine; backends own the capture resource.
type backend interface {
	// initialize resolves dependencies and verifies the capture source
	// exists. No resource is claimed yet.
	initialize(ctx context.Context) error

	// open claims the capture resource and begins producing frames.
	open(ctx context.Context) error

	// grab pulls one frame into dst. It returns false without an error
	// when no frame is available yet.
	grab(ctx context.Context, dst *Frame) (bool, error)

	// release frees the capture resource claimed by open. Must be safe
	// to call when nothing is open.
	release() error

	// close frees everything. Must be idempotent and safe in any state.
	close() error
}

// Adapter presents one of the interchangeable capture backends behind
// the Sensor contract. The mode is fixed at construction.
type Adapter struct {
	name    string
	cfg     Config
	logger  *slog.Logger
	backend backend

	mu    sync.Mutex
	state State
	frame Frame
}

// NewAdapter creates an adapter for the configured mode. An
// unrecognized mode fails here, before any resource is touched.
func NewAdapter(name string, cfg Config, logger *slog.Logger) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("sensor", name, "mode", cfg.Mode)

	a := &Adapter{
		name:   name,
		cfg:    cfg,
		logger: logger,
		state:  StateUninitialized,
	}

	switch cfg.Mode {
	case ModeDevice:
		a.backend = newDeviceBackend(cfg, logger)
	case ModeWebcam:
		a.backend = newWebcamBackend(cfg)
	case ModeSynthetic:
		a.backend = newSyntheticBackend(cfg)
	default:
		// Validate already rejected this.
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, cfg.Mode)
	}

	return a, nil
}

// Initialize resolves backend dependencies and prepares the pipeline.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateUninitialized {
		return fmt.Errorf("%w: initialize in state %s", ErrInvalidState, a.state)
	}

	if err := a.backend.initialize(ctx); err != nil {
		return err
	}

	a.state = StateInitialized
	a.logger.Info("sensor initialized",
		"width", a.cfg.Width,
		"height", a.cfg.Height,
		"fps", a.cfg.FPS,
	)
	return nil
}

// Start claims the capture resource and transitions to running.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateInitialized && a.state != StateStopped {
		return fmt.Errorf("%w: start in state %s", ErrInvalidState, a.state)
	}

	if err := a.backend.open(ctx); err != nil {
		return err
	}

	a.state = StateRunning
	a.logger.Info("sensor started")
	return nil
}

// Read pulls one frame from the active backend. False means no frame
// was available yet; the caller polls.
func (a *Adapter) Read(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateRunning {
		return false, fmt.Errorf("%w: read in state %s", ErrInvalidState, a.state)
	}

	return a.backend.grab(ctx, &a.frame)
}

// Frame returns the most recently read frame, valid until the next Read.
func (a *Adapter) Frame() *Frame {
	return &a.frame
}

// Stop releases the capture handle but retains the configuration.
// Calling Stop when not running is a no-op.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateRunning {
		return nil
	}

	if err := a.backend.release(); err != nil {
		return err
	}

	a.state = StateStopped
	a.logger.Info("sensor stopped")
	return nil
}

// Cleanup fully releases all resources. Idempotent, valid in any
// state, safe after a failed Start.
func (a *Adapter) Cleanup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateReleased {
		return nil
	}

	err := a.backend.close()
	a.state = StateReleased
	a.frame = Frame{}
	if err != nil {
		return err
	}

	a.logger.Info("sensor released")
	return nil
}

// Name returns the sensor name.
func (a *Adapter) Name() string {
	return a.name
}

// Mode returns the configured capture mode.
func (a *Adapter) Mode() Mode {
	return a.cfg.Mode
}

// FPS returns the target frame rate.
func (a *Adapter) FPS() int {
	return a.cfg.FPS
}

// State returns the current lifecycle state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Ensure Adapter implements the full contract.
var _ SensorWithRate = (*Adapter)(nil)
