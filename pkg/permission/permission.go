// Package permission models camera consent state, a best-effort persisted
// hint of it, and the reconciliation rule that only a live platform
// signal may establish a state; the hint never does.
package permission

import "errors"

// State is the camera consent state.
type State string

const (
	// StatePrompt means consent has not been decided; the user must act.
	StatePrompt State = "prompt"
	// StateGranted means capture is allowed.
	StateGranted State = "granted"
	// StateDenied means the user or platform declined capture.
	StateDenied State = "denied"
)

// Valid reports whether s is one of the three known states.
func (s State) Valid() bool {
	switch s {
	case StatePrompt, StateGranted, StateDenied:
		return true
	}
	return false
}

// ErrUnsupported is returned by a Query that cannot inspect consent
// state on this platform. Callers fall back to acquisition-outcome
// inference.
var ErrUnsupported = errors.New("permission query unsupported")

// Query inspects the live consent state without prompting the user.
// Implementations are platform specific and feature-detected; a nil
// Query means the capability is absent.
type Query interface {
	Status() (State, error)
}

// QueryFunc is a proxy type for Query.
type QueryFunc func() (State, error)

func (f QueryFunc) Status() (State, error) {
	return f()
}

// Reconcile derives the starting state from the live query. Without a
// usable live signal the state is prompt: the persisted hint never
// becomes the state, it may at most schedule an acquisition whose
// outcome then sets the state.
func Reconcile(q Query) State {
	if q != nil {
		if live, err := q.Status(); err == nil && live.Valid() {
			return live
		}
	}
	return StatePrompt
}
