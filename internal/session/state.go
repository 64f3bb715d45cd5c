package session

// State is a session's lifecycle state.
type State string

const (
	// StateActive accepts all operations.
	StateActive State = "active"

	// StateSuspended accepts resume, complete, and artifact operations.
	// Suspension is not a write-lock: artifacts may still be stored.
	StateSuspended State = "suspended"

	// StateCompleted is terminal. No transition leaves it.
	StateCompleted State = "completed"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateActive, StateSuspended, StateCompleted:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s State) Terminal() bool {
	return s == StateCompleted
}

// CanTransitionTo reports whether the lifecycle permits moving from s to
// next.
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StateActive:
		return next == StateSuspended || next == StateCompleted
	case StateSuspended:
		return next == StateActive || next == StateCompleted
	default:
		return false
	}
}
