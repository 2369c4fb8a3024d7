// Package process implements ProcessContext, the owner of one event's
// single pass through a root node (spec §4.4): it drives Process exactly
// once, then serializes any later cross-thread Resume/Fail/Cancel calls
// against each other and against a Process call still on the stack.
//
// Grounded on the teacher's orchestrate/hub.Hub, which guards its agent
// registration map and in-flight request/response bookkeeping with a
// mutex so that registrations and message delivery arriving from
// different goroutines never race each other; ProcessContext reuses the
// same "one mutex held for the duration of the call" shape to serialize
// Process/Resume/Fail/Cancel (spec §5's "internal per-event mutex ...
// queued and applied at the next safe point" — a goroutine blocked on
// Mutex.Lock is exactly such a queue, drained in the order the runtime
// wakes it, the moment the active call releases the lock).
package process

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/arborlane/evtree/config"
	"github.com/arborlane/evtree/event"
	"github.com/arborlane/evtree/node"
	"github.com/arborlane/evtree/observability"
	"github.com/arborlane/evtree/status"
)

// Sentinel causes wrapped by status.ProgrammingError (spec §7): caller
// misuse, never a domain outcome. Check with errors.Is.
var (
	// ErrAlreadyProcessed is the cause when Process is called a second
	// time on a ProcessContext whose most recent Process/Resume/Fail/Cancel
	// call did not end CANCELLED (spec §5: "at most one Process per event
	// instance").
	ErrAlreadyProcessed = errors.New("process: Process already called for this context")

	// ErrAlreadyCancelled is the specific cause for a context whose most
	// recent Process/Resume/Fail/Cancel call ended CANCELLED, per the
	// resolved Open Question in spec §9 ("a CANCELLED node never re-enters
	// processing").
	ErrAlreadyCancelled = errors.New("process: event already reached CANCELLED; it cannot be processed again")

	// ErrNotProcessed is the cause when Resume, Fail, or Cancel is called
	// before any Process call has run for this context.
	ErrNotProcessed = errors.New("process: Resume/Fail/Cancel called before Process")

	// ErrTooManyResumeTargets is the cause when a Resume or Fail call
	// targets more NodeIDs than config.ProcessConfig.MaxResumeTargets
	// permits.
	ErrTooManyResumeTargets = errors.New("process: Resume/Fail call exceeds MaxResumeTargets")
)

func (pc *ProcessContext) programmingError(op string, cause error) error {
	return &status.ProgrammingError{Op: op, EventID: pc.ev.ID, Err: cause}
}

const (
	eventProcessStart    observability.EventType = "process.start"
	eventProcessWaiting  observability.EventType = "process.waiting"
	eventProcessTerminal observability.EventType = "process.terminal"
	eventProcessControl  observability.EventType = "process.control"
)

// ProcessContext owns the root node and event for a single event's
// processing lifetime (spec §4.4). It is safe for concurrent use: Process
// runs once, and Resume/Fail/Cancel may arrive from any goroutine
// afterward.
type ProcessContext struct {
	mu sync.Mutex

	root     node.Node
	observer observability.Observer

	maxResumeTargets int

	ev         event.Event
	processed  bool
	lastResult status.NodeStatus
}

// New constructs a ProcessContext over root. A nil observer defaults to
// observability.NoOpObserver.
func New(root node.Node, observer observability.Observer) *ProcessContext {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}
	return &ProcessContext{
		root:       root,
		observer:   observer,
		lastResult: status.Unknown,
	}
}

// NewFromConfig constructs a ProcessContext over root, resolving its
// observer from cfg.Observer and applying cfg.MaxResumeTargets to every
// later Resume/Fail call.
func NewFromConfig(root node.Node, cfg config.ProcessConfig) (*ProcessContext, error) {
	observer, err := cfg.ResolveObserver()
	if err != nil {
		return nil, err
	}
	pc := New(root, observer)
	pc.maxResumeTargets = cfg.MaxResumeTargets
	return pc, nil
}

// Event returns the context's current event snapshot.
func (pc *ProcessContext) Event() event.Event {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.ev
}

// LastResult returns the status returned by the most recent
// Process/Resume/Fail/Cancel call, or status.Unknown before the first.
func (pc *ProcessContext) LastResult() status.NodeStatus {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.lastResult
}

// Process drives the root node against ev exactly once (spec §4.4). A
// second call returns ErrAlreadyProcessed (or ErrAlreadyCancelled, if the
// most recent Process/Resume/Fail/Cancel call ended CANCELLED) without
// touching the tree.
func (pc *ProcessContext) Process(ctx context.Context, ev event.Event) (status.NodeStatus, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.processed {
		if pc.lastResult == status.Cancelled {
			return status.Unknown, pc.programmingError("process.Process", ErrAlreadyCancelled)
		}
		return status.Unknown, pc.programmingError("process.Process", ErrAlreadyProcessed)
	}
	pc.processed = true
	pc.root = resetIfNeeded(pc.root)
	pc.ev = ev

	pc.emit(ctx, eventProcessStart, nil)

	newEv, result, err := pc.root.Process(ctx, ev)
	if err != nil {
		pc.lastResult = status.Unknown
		pc.ev = newEv
		return status.Unknown, err
	}

	pc.ev = pc.finalize(newEv, result)
	pc.lastResult = result
	pc.emitResult(ctx, result)
	return result, nil
}

// Resume re-drives whichever node is WAITING, targeting nodeIDs (empty
// targets whatever is waiting), and continues the tree to its next
// terminal or WAITING status (spec §4.4).
func (pc *ProcessContext) Resume(ctx context.Context, nodeIDs []string) (status.NodeStatus, error) {
	return pc.control(ctx, "resume", nodeIDs, node.Node.Resume)
}

// Fail is Resume's symmetric counterpart, injecting failure instead of
// success into the targeted waiting node(s).
func (pc *ProcessContext) Fail(ctx context.Context, nodeIDs []string) (status.NodeStatus, error) {
	return pc.control(ctx, "fail", nodeIDs, node.Node.Fail)
}

// Cancel unconditionally transitions the tree to CANCELLED from wherever
// it currently stands (spec §4.4/§5: terminal and irreversible).
func (pc *ProcessContext) Cancel(ctx context.Context) (status.NodeStatus, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if !pc.processed {
		return status.Unknown, pc.programmingError("process.Cancel", ErrNotProcessed)
	}

	pc.emit(ctx, eventProcessControl, map[string]any{"action": "cancel"})
	newEv, result := pc.root.Cancel(ctx, pc.ev)
	pc.ev = pc.finalize(newEv, result)
	pc.lastResult = result
	pc.emitResult(ctx, result)
	return result, nil
}

// control runs apply (a Node.Resume/Node.Fail method expression) against
// the current root and event under the lock, so concurrent callers never
// read pc.root/pc.ev outside of it (spec §5's serialization guarantee).
func (pc *ProcessContext) control(ctx context.Context, action string, nodeIDs []string, apply func(node.Node, context.Context, event.Event, []string) (event.Event, status.NodeStatus)) (status.NodeStatus, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if !pc.processed {
		return status.Unknown, pc.programmingError("process."+action, ErrNotProcessed)
	}
	if pc.maxResumeTargets > 0 && len(nodeIDs) > pc.maxResumeTargets {
		return status.Unknown, pc.programmingError("process."+action, ErrTooManyResumeTargets)
	}

	pc.emit(ctx, eventProcessControl, map[string]any{"action": action, "nodeIDs": nodeIDs})
	newEv, result := apply(pc.root, ctx, pc.ev, nodeIDs)
	pc.ev = pc.finalize(newEv, result)
	pc.lastResult = result
	pc.emitResult(ctx, result)
	return result, nil
}

// finalize applies the control-bit bookkeeping ProcessContext itself is
// responsible for (spec §4.4). Nodes already mark IsCancelled/HasFailures/
// IsCompleted as they resolve (event.MarkCancelled etc.); this is the
// backstop for a CANCELLED result reaching here without having passed
// through a node that set the bit itself (e.g. a bare, phase-less root).
func (pc *ProcessContext) finalize(ev event.Event, result status.NodeStatus) event.Event {
	if result == status.Cancelled && !ev.IsCancelled {
		ev = ev.MarkCancelled()
	}
	return ev
}

func (pc *ProcessContext) emitResult(ctx context.Context, result status.NodeStatus) {
	if result == status.Waiting {
		pc.emit(ctx, eventProcessWaiting, nil)
		return
	}
	pc.emit(ctx, eventProcessTerminal, map[string]any{"result": result.String()})
}

func (pc *ProcessContext) emit(ctx context.Context, eventType observability.EventType, data map[string]any) {
	pc.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "process.ProcessContext",
		Data:      data,
	})
}

// resetIfNeeded returns n unchanged if it is already in its initial
// UNKNOWN status, or a fresh Clone of n otherwise (spec §4.4: "resets
// root status to UNKNOWN if needed"). Roots assembled fresh by a registry
// GetContext call are already UNKNOWN; this only matters if a
// ProcessContext is built over a root some other caller already drove.
func resetIfNeeded(n node.Node) node.Node {
	if n.Status() == status.Unknown {
		return n
	}
	return n.Clone()
}
