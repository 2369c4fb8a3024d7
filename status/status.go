// Package status defines the small, closed vocabularies shared by every
// node in the event tree: the node status enum, priority ordering, handler
// result codes, and the process-level result returned to callers.
//
// Grounded on the teacher's orchestrate/messaging.Priority (int const block,
// low-to-high ordering) and on observability.Level (a small ordered int
// enum with a String method) for the shape of these types.
package status

// NodeStatus is the terminal or in-progress state of a node after Process.
//
// Unknown is the initial state only; Success, Failure, and Cancelled are
// terminal; Waiting is non-terminal but suspends processing until an
// external Resume, Fail, or Cancel call re-drives the node.
type NodeStatus int

const (
	Unknown NodeStatus = iota
	Success
	Failure
	Waiting
	Cancelled
)

// String renders the status for logging and test failure messages.
func (s NodeStatus) String() string {
	switch s {
	case Unknown:
		return "UNKNOWN"
	case Success:
		return "SUCCESS"
	case Failure:
		return "FAILURE"
	case Waiting:
		return "WAITING"
	case Cancelled:
		return "CANCELLED"
	default:
		return "INVALID"
	}
}

// Terminal reports whether s is one of the three terminal statuses.
// Waiting and Unknown are not terminal.
func (s NodeStatus) Terminal() bool {
	switch s {
	case Success, Failure, Cancelled:
		return true
	default:
		return false
	}
}

// Invert flips Success and Failure into one another. Cancelled and Waiting
// pass through unchanged, matching the inverter rule in spec §3/§4.1: it
// never observes Unknown and never inverts Waiting.
func Invert(s NodeStatus) NodeStatus {
	switch s {
	case Success:
		return Failure
	case Failure:
		return Success
	default:
		return s
	}
}
