package sensor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/neuronav/go-neuronav/pkg/deps"
)

// factoryOptions collects GetDepthai configuration.
type factoryOptions struct {
	cfg           Config
	mockSource    Mode
	allowFallback bool
	logger        *slog.Logger
	resolver      *deps.Resolver
}

// Option configures GetDepthai.
type Option func(*factoryOptions)

// WithMockSource forces the given mock mode (webcam or synthetic)
// instead of attempting the physical device.
func WithMockSource(mode Mode) Option {
	return func(o *factoryOptions) { o.mockSource = mode }
}

// WithWebcamIndex selects the webcam used in webcam mode and as the
// hardware fallback. Default 0.
func WithWebcamIndex(index int) Option {
	return func(o *factoryOptions) { o.cfg.DeviceIndex = index }
}

// WithResolution sets the capture resolution. Default 1280x720.
func WithResolution(width, height int) Option {
	return func(o *factoryOptions) {
		o.cfg.Width = width
		o.cfg.Height = height
	}
}

// WithFPS sets the target frame rate. Default 30.
func WithFPS(fps int) Option {
	return func(o *factoryOptions) { o.cfg.FPS = fps }
}

// WithDeviceID pins device mode to a specific physical unit.
func WithDeviceID(id string) Option {
	return func(o *factoryOptions) { o.cfg.DeviceID = id }
}

// WithPython sets the interpreter for the DepthAI toolchain.
func WithPython(bin string) Option {
	return func(o *factoryOptions) { o.cfg.PythonBin = bin }
}

// WithAllowFallback controls whether a missing device or unresolvable
// driver stack falls back to the webcam mock. Default true.
func WithAllowFallback(allow bool) Option {
	return func(o *factoryOptions) { o.allowFallback = allow }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *factoryOptions) { o.logger = logger }
}

// WithResolver replaces the dependency resolver used in device mode.
func WithResolver(r *deps.Resolver) Option {
	return func(o *factoryOptions) { o.resolver = r }
}

// GetDepthai constructs and initializes a ready-to-use sensor. It
// prefers a real OAK device; when the driver stack cannot be resolved
// or no device is connected, and fallback is allowed, it selects the
// mock source (webcam by default, synthetic via WithMockSource) at the
// factory level. The returned sensor is initialized and immediately
// eligible for Start. With fallback disabled, initialization failures
// propagate unchanged.
func GetDepthai(ctx context.Context, name string, opts ...Option) (Sensor, error) {
	o := &factoryOptions{
		cfg:           DefaultConfig(),
		allowFallback: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if name == "" {
		name = "oak-d-pro"
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	// An explicit mock source overrides device detection entirely.
	if o.mockSource != "" {
		return o.build(ctx, name, o.mockSource)
	}

	s, err := o.build(ctx, name, ModeDevice)
	if err == nil {
		return s, nil
	}
	if !o.allowFallback || !isFallbackTrigger(err) {
		return nil, err
	}

	fallback := ModeWebcam
	o.logger.Warn("no usable depth device, falling back to mock",
		"fallback", fallback,
		"error", err,
	)
	return o.build(ctx, name, fallback)
}

// build constructs an adapter in the given mode and initializes it,
// propagating initialization failures unchanged.
func (o *factoryOptions) build(ctx context.Context, name string, mode Mode) (Sensor, error) {
	cfg := o.cfg
	cfg.Mode = mode

	a, err := NewAdapter(name, cfg, o.logger)
	if err != nil {
		return nil, err
	}
	if o.resolver != nil {
		if db, ok := a.backend.(*deviceBackend); ok {
			db.resolver = o.resolver
		}
	}

	if err := a.Initialize(ctx); err != nil {
		_ = a.Cleanup()
		return nil, err
	}
	return a, nil
}

// isFallbackTrigger reports whether err is an absence-of-hardware
// condition rather than a real failure.
func isFallbackTrigger(err error) bool {
	return errors.Is(err, deps.ErrUnavailable) || errors.Is(err, ErrDeviceNotFound)
}
