package memo

// Kind enumerates workflow states
type Kind int

const (
	KindIdle Kind = iota
	KindValidating
	KindSubmitting
	KindSucceeded
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindValidating:
		return "validating"
	case KindSubmitting:
		return "submitting"
	case KindSucceeded:
		return "succeeded"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// State is the workflow state. Receipt is set only when Succeeded and Err
// only when Failed.
type State struct {
	Kind    Kind             `json:"kind"`
	Receipt *Receipt         `json:"receipt,omitempty"`
	Err     *SubmissionError `json:"error,omitempty"`
}

func idleState() State {
	return State{Kind: KindIdle}
}

func succeededState(receipt Receipt) State {
	return State{Kind: KindSucceeded, Receipt: &receipt}
}

func failedState(err *SubmissionError) State {
	return State{Kind: KindFailed, Err: err}
}

func (s State) IsSubmitting() bool {
	return s.Kind == KindSubmitting
}

// CanRetry reports whether the state carries a retriable failure
func (s State) CanRetry() bool {
	return s.Kind == KindFailed && s.Err != nil && s.Err.IsRetriable
}
