package generator

// Phase is the lifecycle position of a generation session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the value held by a Session. Transitions never mutate the
// receiver; they return the next State.
//
// Seq identifies the submission that owns the Submitting phase. A completion
// carrying any other Seq is stale and must be dropped.
type State struct {
	Phase  Phase
	Result *GeneratedResult
	Err    error
	Seq    uint64
}

// Begin arms a new submission. It fails with ErrSubmissionInFlight if one is
// already pending.
func (s State) Begin() (State, error) {
	if s.Phase == PhaseSubmitting {
		return s, ErrSubmissionInFlight
	}
	return State{Phase: PhaseSubmitting, Seq: s.Seq + 1}, nil
}

// Resolve applies a successful completion. ok is false when seq is stale.
func (s State) Resolve(seq uint64, res *GeneratedResult) (next State, ok bool) {
	if s.Phase != PhaseSubmitting || seq != s.Seq {
		return s, false
	}
	return State{Phase: PhaseSucceeded, Result: res, Seq: s.Seq}, true
}

// Reject applies a failed completion. ok is false when seq is stale.
func (s State) Reject(seq uint64, err error) (next State, ok bool) {
	if s.Phase != PhaseSubmitting || seq != s.Seq {
		return s, false
	}
	return State{Phase: PhaseFailed, Err: err, Seq: s.Seq}, true
}

// Supersede invalidates any pending submission and returns to Idle.
func (s State) Supersede() State {
	return State{Phase: PhaseIdle, Seq: s.Seq + 1}
}

// ErrorMessage is the user-facing text for the current error.
func (s State) ErrorMessage() string {
	return UserMessage(s.Err)
}
