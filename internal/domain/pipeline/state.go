package pipeline

// State is a stage of a single pipeline run
type State string

const (
	StateStart       State = "START"
	StateDriverReady State = "DRIVER_READY"
	StateLoggedIn    State = "LOGGED_IN"
	StateNavigated   State = "NAVIGATED"
	StateSearched    State = "SEARCHED"
	StateExported    State = "EXPORTED"
	StateNormalized  State = "NORMALIZED"
	StateReconciled  State = "RECONCILED"
	StateCleanedUp   State = "CLEANED_UP"
	StateDone        State = "DONE"
)

var validStates = map[State]bool{
	StateStart:       true,
	StateDriverReady: true,
	StateLoggedIn:    true,
	StateNavigated:   true,
	StateSearched:    true,
	StateExported:    true,
	StateNormalized:  true,
	StateReconciled:  true,
	StateCleanedUp:   true,
	StateDone:        true,
}

// IsTerminal returns true once the run has finished, successfully or not
func (s State) IsTerminal() bool {
	return s == StateDone
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known pipeline state
func (s State) IsValid() bool {
	return validStates[s]
}
