package sensor

// State is the lifecycle state of a sensor.
type State int

const (
	// StateUninitialized is the state before Initialize.
	StateUninitialized State = iota
	// StateInitialized means dependencies are resolved and the sensor
	// is eligible for Start.
	StateInitialized
	// StateRunning means frames can be read.
	StateRunning
	// StateStopped means the capture handle is released but the sensor
	// can be started again.
	StateStopped
	// StateReleased means all resources are gone. Terminal.
	StateReleased
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}
