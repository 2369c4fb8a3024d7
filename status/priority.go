package status

// Priority orders sibling nodes within a layer. Higher priority runs
// first; Order (tracked on the node itself, not here) breaks ties.
//
// Grounded on orchestrate/messaging.Priority, which uses the same
// low-to-high int const block shape; this enum runs the comparison the
// other direction (higher value still means "more important"), matching
// spec §3's CRITICAL > HIGH > NORMAL > LOW > BACKGROUND ordering.
type Priority int

const (
	Background Priority = iota
	Low
	Normal
	High
	Critical
)

// String renders the priority name for logging.
func (p Priority) String() string {
	switch p {
	case Background:
		return "BACKGROUND"
	case Low:
		return "LOW"
	case Normal:
		return "NORMAL"
	case High:
		return "HIGH"
	case Critical:
		return "CRITICAL"
	default:
		return "INVALID"
	}
}
