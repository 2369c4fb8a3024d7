package status

// Phase names a lifecycle stage in the fixed PhaseTree order defined by
// spec §3/§4.6: VALIDATE, PREPARE, EXECUTE, then a SUCCESS/FAILURE choice,
// then an optional CANCEL, then COMPLETE (always last).
type Phase int

const (
	Validate Phase = iota
	Prepare
	Execute
	SuccessPhase
	FailurePhase
	CancelPhase
	Complete
	phaseCount
)

// String renders the phase name for logging and addressing phase-root nodes.
func (p Phase) String() string {
	switch p {
	case Validate:
		return "VALIDATE"
	case Prepare:
		return "PREPARE"
	case Execute:
		return "EXECUTE"
	case SuccessPhase:
		return "SUCCESS"
	case FailurePhase:
		return "FAILURE"
	case CancelPhase:
		return "CANCEL"
	case Complete:
		return "COMPLETE"
	default:
		return "INVALID"
	}
}

// Phases lists every phase in PhaseTree order.
func Phases() []Phase {
	return []Phase{Validate, Prepare, Execute, SuccessPhase, FailurePhase, CancelPhase, Complete}
}

// PhaseMask is a bitmask of completed phases (Event.CompletedPhases in
// spec §3). Bit i corresponds to Phase(i).
type PhaseMask uint8

// Bit returns the bitmask bit for this phase.
func (p Phase) Bit() PhaseMask {
	return 1 << PhaseMask(p)
}

// Has reports whether phase p's bit is set in the mask.
func (m PhaseMask) Has(p Phase) bool {
	return m&p.Bit() != 0
}

// With returns a new mask with phase p's bit set.
func (m PhaseMask) With(p Phase) PhaseMask {
	return m | p.Bit()
}
