package sensor

import "errors"

// Sentinel errors for the sensor lifecycle. Match with errors.Is.
var (
	// ErrInvalidConfig is returned for an unrecognized mode or
	// inconsistent parameters at construction time.
	ErrInvalidConfig = errors.New("sensor: invalid configuration")

	// ErrDeviceNotFound is returned when device mode cannot enumerate a
	// physical unit, or a capture source does not exist.
	ErrDeviceNotFound = errors.New("sensor: device not found")

	// ErrDeviceBusy is returned when the underlying device is already
	// claimed by another process or handle.
	ErrDeviceBusy = errors.New("sensor: device busy")

	// ErrInvalidState is returned when an operation is invoked outside
	// its valid lifecycle state.
	ErrInvalidState = errors.New("sensor: invalid lifecycle state")
)
