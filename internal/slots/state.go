// Package slots tracks the demand state of each managed display slot: what it
// should show, whether a pipeline run is in flight, and whether it is settled.
package slots

// State is the lifecycle position of a slot.
type State int

const (
	// StateInit is a slot that has no assignment yet.
	StateInit State = iota
	// StateNewAssignment is a slot with a path assigned and no run completed for it.
	StateNewAssignment
	// StateIdle is a settled slot: nothing to do until reassigned or dirtied.
	StateIdle
	// StateDirty is a slot whose delivered image no longer matches its size.
	StateDirty
	// StateFailed is a slot whose last run returned an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateNewAssignment:
		return "NEW_ASSIGNMENT"
	case StateIdle:
		return "IDLE"
	case StateDirty:
		return "DIRTY"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the state name for JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseState converts a state name back to a State.
func ParseState(name string) (State, bool) {
	for s := StateInit; s <= StateFailed; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return StateInit, false
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	parsed, ok := ParseState(string(text))
	if !ok {
		return &unknownStateError{name: string(text)}
	}
	*s = parsed
	return nil
}

type unknownStateError struct{ name string }

func (e *unknownStateError) Error() string { return "unknown slot state " + e.name }
