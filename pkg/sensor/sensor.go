// Package sensor provides a uniform interface to visual capture sources.
//
// Three backends hide behind the same contract:
//   - Device - a Luxonis OAK depth camera driven through the DepthAI toolchain
//   - Webcam - any indexed capture device via OpenCV
//   - Synthetic - procedurally generated test frames, no hardware
//
// The backend is fixed when a sensor is constructed; falling back from
// hardware to a mock source is a factory decision (see GetDepthai),
// never a silent runtime switch inside the adapter.
package sensor

import (
	"context"
)

// Sensor is a capture source with a fixed lifecycle. Implementations
// move through uninitialized → initialized → running → stopped →
// released; see State for the valid transitions.
type Sensor interface {
	// Initialize resolves backend dependencies and prepares the capture
	// pipeline. Valid only in the uninitialized state.
	Initialize(ctx context.Context) error

	// Start claims the capture resource and begins producing frames.
	// Valid from initialized or stopped.
	Start(ctx context.Context) error

	// Read pulls one frame from the backend. It returns false, without
	// an error, when no frame is available yet; callers poll. Valid
	// only while running.
	Read(ctx context.Context) (bool, error)

	// Frame returns the most recently read frame. The returned frame is
	// only valid until the next Read call.
	Frame() *Frame

	// Stop releases the capture resource but keeps the configuration,
	// allowing a later Start. Safe to call when not running.
	Stop() error

	// Cleanup fully releases all resources. Safe to call multiple times
	// and from any state, including after a failed Start.
	Cleanup() error

	// Name returns the sensor name (e.g. "oak-d-pro").
	Name() string

	// Mode returns the backing capture technology.
	Mode() Mode
}

// SensorWithRate extends Sensor with the configured frame rate.
type SensorWithRate interface {
	Sensor

	// FPS returns the target frame rate.
	FPS() int
}
