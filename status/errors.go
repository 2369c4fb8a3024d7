package status

import "fmt"

// ProgrammingError wraps a caller-fault failure (spec §7: duplicate
// sibling NodeIDs, a second Process call, Resume/Fail/Cancel before
// Process on a ProcessContext) with enough context to diagnose blame —
// the operation that rejected the call, the NodeID and/or event ID
// involved, and the underlying cause. A handler node without a callback
// reports the plain handler.ErrMissingHandler sentinel instead.
//
// Grounded on the teacher's orchestrate/state.ExecutionError and
// orchestrate/workflows.ChainError, both of which wrap a plain cause with
// the node/step that failed and expose it via Unwrap.
type ProgrammingError struct {
	Op      string
	NodeID  string
	EventID string
	Err     error
}

func (e *ProgrammingError) Error() string {
	switch {
	case e.NodeID != "" && e.EventID != "":
		return fmt.Sprintf("%s: node %q, event %q: %v", e.Op, e.NodeID, e.EventID, e.Err)
	case e.NodeID != "":
		return fmt.Sprintf("%s: node %q: %v", e.Op, e.NodeID, e.Err)
	case e.EventID != "":
		return fmt.Sprintf("%s: event %q: %v", e.Op, e.EventID, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

// Unwrap enables errors.Is/errors.As against the wrapped cause.
func (e *ProgrammingError) Unwrap() error { return e.Err }
