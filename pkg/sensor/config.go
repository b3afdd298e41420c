package sensor

import "fmt"

// Mode is the backing capture technology for a sensor instance.
type Mode string

const (
	// ModeDevice captures from a physical OAK depth camera.
	ModeDevice Mode = "device"
	// ModeWebcam captures from an indexed webcam.
	ModeWebcam Mode = "webcam"
	// ModeSynthetic generates procedural test frames.
	ModeSynthetic Mode = "synthetic"
	// ModeReplay replays frames from a video file (see Replay).
	ModeReplay Mode = "replay"
)

// Config holds sensor configuration.
type Config struct {
	// Mode selects the capture backend. Fixed for the sensor lifetime.
	Mode Mode

	// Width is the frame width in pixels.
	Width int

	// Height is the frame height in pixels.
	Height int

	// FPS is the target frame rate.
	FPS int

	// DeviceIndex selects the webcam in webcam mode.
	DeviceIndex int

	// DeviceID selects a specific physical unit in device mode.
	// Empty means the first available device.
	DeviceID string

	// PythonBin is the interpreter running the DepthAI toolchain in
	// device mode. Default "python3".
	PythonBin string
}

// DefaultConfig returns a Config with the stock capture geometry.
func DefaultConfig() Config {
	return Config{
		Mode:      ModeDevice,
		Width:     1280,
		Height:    720,
		FPS:       30,
		PythonBin: "python3",
	}
}

// Validate checks the configuration, failing fast before any resource
// is touched.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDevice, ModeWebcam, ModeSynthetic:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("%w: fps %d", ErrInvalidConfig, c.FPS)
	}
	if c.DeviceIndex < 0 {
		return fmt.Errorf("%w: device index %d", ErrInvalidConfig, c.DeviceIndex)
	}
	return nil
}
