package pipeline

// State is a step of one run. Runs move strictly forward through them.
type State int

const (
	StateInit State = iota
	StateLoadExisting
	StateRunSources
	StateMerge
	StateDeduplicate
	StatePersist
	StateDone
)

var stateNames = [...]string{
	StateInit:         "INIT",
	StateLoadExisting: "LOAD_EXISTING",
	StateRunSources:   "RUN_SOURCES",
	StateMerge:        "MERGE",
	StateDeduplicate:  "DEDUPLICATE",
	StatePersist:      "PERSIST",
	StateDone:         "DONE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}
