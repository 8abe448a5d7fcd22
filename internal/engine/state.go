package engine

// State is the position of a run in the chunk state machine.
type State int

const (
	StateIdle State = iota
	StateReading
	StateValid
	StateSkipped
	StateCommitting
	StateCommitted
	StateChunkFailed
	StateDone
	StateAborted
)

var stateNames = [...]string{
	StateIdle:        "IDLE",
	StateReading:     "READING",
	StateValid:       "VALID",
	StateSkipped:     "SKIPPED",
	StateCommitting:  "COMMITTING",
	StateCommitted:   "COMMITTED",
	StateChunkFailed: "CHUNK_FAILED",
	StateDone:        "DONE",
	StateAborted:     "ABORTED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}
