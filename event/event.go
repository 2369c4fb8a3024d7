// Package event defines the Event type that flows through the node tree:
// a stable identifier, a creation timestamp, an immutable key/value data
// bag, the three control bits, and the phase-tracking fields from spec §3.
//
// Grounded on the teacher's orchestrate/state.State: the same immutable,
// copy-on-write Set/Get/Merge shape and the same uuid-based identifier
// generation used by state.New / orchestrate/messaging.generateID.
package event

import (
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/arborlane/evtree/status"
)

// ReservedDiagnosticKey is the data bag key under which a recovered handler
// panic's diagnostic is recorded, per spec §7 ("Handler exceptions ...
// treat as FAIL with a recorded diagnostic in the event's data bag under a
// reserved key").
const ReservedDiagnosticKey = "__panic__"

// Event is the opaque-to-the-core unit of work threaded through the tree.
//
// Event is a value type: every mutating method (Set, Merge, markers below)
// returns a new Event rather than modifying the receiver, mirroring
// orchestrate/state.State's immutability contract. Handlers earlier in a
// phase cannot have their view of the data bag invalidated by handlers
// that run later in the same Process call.
type Event struct {
	ID        string
	EventType string
	CreatedAt time.Time
	Data      map[string]any

	IsCancelled bool
	HasFailures bool
	IsCompleted bool

	CurrentPhase    status.Phase
	CompletedPhases status.PhaseMask
}

// New creates an Event with a fresh uuidv7 identifier (matching
// orchestrate/messaging.generateID's use of uuid.NewV7 for
// time-ordered identifiers) and an empty data bag.
func New() Event {
	return Event{
		ID:        uuid.Must(uuid.NewV7()).String(),
		CreatedAt: time.Now(),
		Data:      make(map[string]any),
	}
}

// NewWithID creates an Event with a caller-supplied identifier, for hosts
// that already have a stable event ID (e.g. an upstream request ID).
func NewWithID(id string) Event {
	e := New()
	e.ID = id
	return e
}

// WithType returns a new Event with EventType set, the key a ContextManager
// uses to look up the type-level prototype to process it against (spec
// §4.5/§6).
func (e Event) WithType(eventType string) Event {
	clone := e
	clone.EventType = eventType
	return clone
}

// Get retrieves a value from the data bag.
func (e Event) Get(key string) (any, bool) {
	v, ok := e.Data[key]
	return v, ok
}

// Clone returns an independent copy of the Event with its own data bag.
func (e Event) Clone() Event {
	clone := e
	clone.Data = maps.Clone(e.Data)
	return clone
}

// Set returns a new Event with key set to value in the data bag. The
// receiver is left unmodified.
func (e Event) Set(key string, value any) Event {
	clone := e.Clone()
	clone.Data[key] = value
	return clone
}

// Merge returns a new Event whose data bag combines e's with other's,
// with other's keys taking precedence on conflict.
func (e Event) Merge(other Event) Event {
	clone := e.Clone()
	maps.Copy(clone.Data, other.Data)
	return clone
}

// WithDiagnostic records a recovered handler panic's diagnostic under the
// reserved key, per spec §7.
func (e Event) WithDiagnostic(diagnostic string) Event {
	return e.Set(ReservedDiagnosticKey, diagnostic)
}

// MarkCancelled returns a new Event with IsCancelled set true.
func (e Event) MarkCancelled() Event {
	clone := e
	clone.IsCancelled = true
	return clone
}

// MarkFailed returns a new Event with HasFailures set true.
func (e Event) MarkFailed() Event {
	clone := e
	clone.HasFailures = true
	return clone
}

// MarkCompleted returns a new Event with IsCompleted set true.
func (e Event) MarkCompleted() Event {
	clone := e
	clone.IsCompleted = true
	return clone
}

// EnterPhase returns a new Event with CurrentPhase updated.
func (e Event) EnterPhase(p status.Phase) Event {
	clone := e
	clone.CurrentPhase = p
	return clone
}

// CompletePhase returns a new Event with p's bit set in CompletedPhases.
// Per spec §3's invariant, callers must only do this after p's subtree
// terminates in SUCCESS.
func (e Event) CompletePhase(p status.Phase) Event {
	clone := e
	clone.CompletedPhases = clone.CompletedPhases.With(p)
	return clone
}
