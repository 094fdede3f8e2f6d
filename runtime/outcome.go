package runtime

// State is a step of the wrap-and-publish state machine.
//
//	RUNNING → LOCATING → LOADING → PUBLISHING → DONE
//
// ABORTED is terminal and reachable from every state.
type State string

// Orchestrator states.
const (
	StateRunning    State = "RUNNING"
	StateLocating   State = "LOCATING"
	StateLoading    State = "LOADING"
	StatePublishing State = "PUBLISHING"
	StateDone       State = "DONE"
	StateAborted    State = "ABORTED"
)

// Process exit codes. A failed tool run exits with the tool's own code.
const (
	ExitCodeSuccess     = 0
	ExitCodeFailure     = 1
	ExitCodeInterrupted = 130
)

// Phase is a user-facing banner printed as the pipeline advances.
type Phase string

// Pipeline phases.
const (
	PhaseRun        Phase = "Phase 1: Running harbor"
	PhaseLocate     Phase = "Phase 2.1: Extracting results directory"
	PhaseStructured Phase = "Phase 2.2: Uploading structured results"
	PhaseBlob       Phase = "Phase 2.3: Uploading result files"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}

// next reports whether from → to is a legal transition.
func next(from, to State) bool {
	if to == StateAborted {
		return !from.Terminal()
	}
	switch from {
	case StateRunning:
		return to == StateLocating
	case StateLocating:
		return to == StateLoading || to == StateDone
	case StateLoading:
		return to == StatePublishing
	case StatePublishing:
		return to == StateDone
	default:
		return false
	}
}
