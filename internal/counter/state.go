// Package counter implements the detection and counting engine: the
// adaptive baseline, the FREE/OCCUPIED hysteresis state machine, and the
// control loop that owns all mutable state.
package counter

// State is the occupancy state of the beam.
type State int

const (
	// StateFree means no person is in the beam.
	StateFree State = iota
	// StateOccupied means a person has entered the beam and not yet left.
	StateOccupied
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "FREE"
	case StateOccupied:
		return "OCCUPIED"
	default:
		return "UNKNOWN"
	}
}

// Transition is the outcome of one detector evaluation.
type Transition int

const (
	// NoTransition means the state did not change this cycle.
	NoTransition Transition = iota
	// Arrived is the FREE to OCCUPIED transition, the sole counting event.
	Arrived
	// DepartedCleared is the debounced OCCUPIED to FREE transition.
	DepartedCleared
	// DepartedTimeout is the safety-timeout OCCUPIED to FREE transition.
	DepartedTimeout
)

func (t Transition) String() string {
	switch t {
	case NoTransition:
		return "none"
	case Arrived:
		return "arrived"
	case DepartedCleared:
		return "departed"
	case DepartedTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}
