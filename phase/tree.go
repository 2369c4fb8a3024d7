// Package phase implements the fixed-shape phase orchestration root (spec
// §3/§4.6): a distinguished node that threads an event through VALIDATE,
// PREPARE, EXECUTE, a SUCCESS/FAILURE choice, an optional CANCEL, and a
// COMPLETE phase that always runs last.
//
// Grounded on orchestrate/state.stateGraph.execute's edge-evaluation loop
// (an ordered search for the first matching transition out of the current
// state) for the stage-by-stage routing, and on layer.Sequential's single
// waiting-child bubble mechanism for how a WAITING phase suspends and
// later resumes — reshaped here into a fixed six-stage state machine
// instead of a dynamic child list, since the SUCCESS/FAILURE branch is a
// conditional router (picking exactly one slot by accumulated outcome)
// rather than either kind of sequential evaluator in package layer.
package phase

import (
	"context"
	"time"

	"github.com/arborlane/evtree/event"
	"github.com/arborlane/evtree/node"
	"github.com/arborlane/evtree/observability"
	"github.com/arborlane/evtree/status"
)

type stage int

const (
	stageValidate stage = iota
	stagePrepare
	stageExecute
	stageOutcome
	stageCancel
	stageComplete
	stageDone
)

// Tree is the PhaseTree root (spec §3). Each slot is optional; an absent
// slot is elided and treated as a vacuous SUCCESS for that phase.
type Tree struct {
	node.BaseNode

	slots    map[status.Phase]node.Node
	observer observability.Observer

	stage     stage
	cancelled bool
	outcome   status.NodeStatus // accumulated SUCCESS/FAILURE from VALIDATE..EXECUTE
	waitingOn status.Phase
}

// NewTree constructs a Tree from a set of phase slots. A nil observer
// defaults to observability.NoOpObserver.
func NewTree(id string, slots map[status.Phase]node.Node, observer observability.Observer, conditions ...node.Condition) *Tree {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}
	cloned := make(map[status.Phase]node.Node, len(slots))
	for k, v := range slots {
		cloned[k] = v
	}
	return &Tree{
		BaseNode: node.NewBase(id, status.Normal, 0, false, conditions...),
		slots:    cloned,
		observer: observer,
	}
}

// Eligible implements node.Node.
func (t *Tree) Eligible(ev event.Event) bool {
	return node.Evaluate(t.Conditions(), ev, t)
}

// Slot returns the node currently occupying phase p, if any.
func (t *Tree) Slot(p status.Phase) (node.Node, bool) {
	n, ok := t.slots[p]
	return n, ok
}

// SetSlot assigns n to phase p, replacing whatever previously occupied it.
// Used by the context manager's merge pass (spec §4.5) to splice an
// override's phase roots into a type clone before processing begins; not
// safe to call once Process has started driving the tree.
func (t *Tree) SetSlot(p status.Phase, n node.Node) {
	t.slots[p] = n
}

// Process implements node.Node, driving the fixed stage sequence from
// wherever it last left off.
func (t *Tree) Process(ctx context.Context, ev event.Event) (event.Event, status.NodeStatus, error) {
	if t.Terminal() {
		return ev, t.Status(), nil
	}
	if t.Status() == status.Waiting {
		return ev, status.Waiting, nil
	}
	return t.run(ctx, ev, status.Unknown, false)
}

// stageToPhase maps the three linear entry stages to their status.Phase.
func stageToPhase(s stage) status.Phase {
	switch s {
	case stagePrepare:
		return status.Prepare
	case stageExecute:
		return status.Execute
	default:
		return status.Validate
	}
}

// run walks the stage machine starting at t.stage. If haveInjected is
// true, the first stage visited uses injected as its child's result
// instead of invoking that child's Process — this is how Resume/Fail
// re-enter the machine with an externally-produced status instead of
// re-driving the already-waiting child.
func (t *Tree) run(ctx context.Context, ev event.Event, injected status.NodeStatus, haveInjected bool) (event.Event, status.NodeStatus, error) {
	curEv := ev

	for {
		switch t.stage {
		case stageValidate, stagePrepare, stageExecute:
			phaseKind := stageToPhase(t.stage)
			child, ok := t.slots[phaseKind]
			if !ok {
				curEv = curEv.CompletePhase(phaseKind)
				t.outcome = status.Success
				t.stage++
				continue
			}

			curEv = curEv.EnterPhase(phaseKind)
			result, err := t.driveOrInject(ctx, &curEv, child, &injected, &haveInjected)
			if err != nil {
				return curEv, status.Unknown, err
			}

			switch result {
			case status.Waiting:
				t.waitingOn = phaseKind
				t.emit(ctx, phaseKind)
				return curEv, t.ResolveTerminal(status.Waiting), nil
			case status.Cancelled:
				t.cancelled = true
				curEv = curEv.MarkCancelled()
				t.stage = stageOutcome
			case status.Failure:
				curEv = curEv.MarkFailed()
				t.outcome = status.Failure
				t.stage = stageOutcome
			default:
				curEv = curEv.CompletePhase(phaseKind)
				t.outcome = status.Success
				t.stage++
			}
			continue

		case stageOutcome:
			if t.cancelled {
				t.stage = stageCancel
				continue
			}
			key := status.SuccessPhase
			if t.outcome == status.Failure {
				key = status.FailurePhase
			}
			child, ok := t.slots[key]
			if !ok {
				curEv = curEv.CompletePhase(key)
				t.stage = stageCancel
				continue
			}

			curEv = curEv.EnterPhase(key)
			result, err := t.driveOrInject(ctx, &curEv, child, &injected, &haveInjected)
			if err != nil {
				return curEv, status.Unknown, err
			}

			switch result {
			case status.Waiting:
				t.waitingOn = key
				t.emit(ctx, key)
				return curEv, t.ResolveTerminal(status.Waiting), nil
			case status.Cancelled:
				t.cancelled = true
				curEv = curEv.MarkCancelled()
			case status.Success:
				curEv = curEv.CompletePhase(key)
			default:
				curEv = curEv.MarkFailed()
			}
			t.stage = stageCancel
			continue

		case stageCancel:
			if t.cancelled {
				child, ok := t.slots[status.CancelPhase]
				if !ok {
					curEv = curEv.CompletePhase(status.CancelPhase)
				} else {
					curEv = curEv.EnterPhase(status.CancelPhase)
					result, err := t.driveOrInject(ctx, &curEv, child, &injected, &haveInjected)
					if err != nil {
						return curEv, status.Unknown, err
					}
					if result == status.Waiting {
						t.waitingOn = status.CancelPhase
						t.emit(ctx, status.CancelPhase)
						return curEv, t.ResolveTerminal(status.Waiting), nil
					}
					if result == status.Success {
						curEv = curEv.CompletePhase(status.CancelPhase)
					}
				}
			}
			t.stage = stageComplete
			continue

		case stageComplete:
			child, ok := t.slots[status.Complete]
			if !ok {
				curEv = curEv.CompletePhase(status.Complete)
			} else {
				curEv = curEv.EnterPhase(status.Complete)
				result, err := t.driveOrInject(ctx, &curEv, child, &injected, &haveInjected)
				if err != nil {
					return curEv, status.Unknown, err
				}
				if result == status.Waiting {
					t.waitingOn = status.Complete
					t.emit(ctx, status.Complete)
					return curEv, t.ResolveTerminal(status.Waiting), nil
				}
				if result == status.Success {
					curEv = curEv.CompletePhase(status.Complete)
				}
			}
			t.stage = stageDone
			curEv = curEv.MarkCompleted()
			return curEv, t.ResolveTerminal(t.finalOutcome()), nil

		default: // stageDone; Terminal() already guards callers from reaching here.
			return curEv, t.Status(), nil
		}
	}
}

// driveOrInject consumes the one-shot injected result if present,
// otherwise drives child.Process against *curEv.
func (t *Tree) driveOrInject(ctx context.Context, curEv *event.Event, child node.Node, injected *status.NodeStatus, haveInjected *bool) (status.NodeStatus, error) {
	if *haveInjected {
		*haveInjected = false
		return *injected, nil
	}
	newEv, result, err := child.Process(ctx, *curEv)
	*curEv = newEv
	return result, err
}

func (t *Tree) finalOutcome() status.NodeStatus {
	if t.cancelled {
		return status.Cancelled
	}
	if t.outcome == status.Unknown {
		return status.Success
	}
	return t.outcome
}

// Resume implements node.Node: re-drives the phase slot that was waiting,
// then continues the stage machine with its result.
func (t *Tree) Resume(ctx context.Context, ev event.Event, nodeIDs []string) (event.Event, status.NodeStatus) {
	return t.control(ctx, ev, nodeIDs, func(n node.Node, e event.Event, ids []string) (event.Event, status.NodeStatus) {
		return n.Resume(ctx, e, ids)
	})
}

// Fail implements node.Node, Resume's symmetric counterpart.
func (t *Tree) Fail(ctx context.Context, ev event.Event, nodeIDs []string) (event.Event, status.NodeStatus) {
	return t.control(ctx, ev, nodeIDs, func(n node.Node, e event.Event, ids []string) (event.Event, status.NodeStatus) {
		return n.Fail(ctx, e, ids)
	})
}

func (t *Tree) control(ctx context.Context, ev event.Event, nodeIDs []string, apply func(node.Node, event.Event, []string) (event.Event, status.NodeStatus)) (event.Event, status.NodeStatus) {
	if t.Status() != status.Waiting {
		return ev, t.Status()
	}
	child, ok := t.slots[t.waitingOn]
	if !ok {
		return ev, t.Status()
	}

	newEv, childStatus := apply(child, ev, nodeIDs)
	if childStatus == status.Waiting {
		return newEv, status.Waiting
	}

	finalEv, result, err := t.run(ctx, newEv, childStatus, true)
	if err != nil {
		finalEv = finalEv.WithDiagnostic(err.Error()).MarkFailed()
		return finalEv, t.ResolveTerminal(status.Failure)
	}
	return finalEv, result
}

// Cancel implements node.Node: cascades Cancel into whichever phase slot
// is currently active (if any), then runs the CANCEL and COMPLETE phases
// (spec §4.6). Slots that haven't started yet — including CANCEL and
// COMPLETE themselves — are left alone so they still get to run.
func (t *Tree) Cancel(ctx context.Context, ev event.Event) (event.Event, status.NodeStatus) {
	if t.Terminal() {
		return ev, t.Status()
	}

	t.cancelled = true
	newEv := ev
	if t.Status() == status.Waiting {
		if child, ok := t.slots[t.waitingOn]; ok {
			newEv, _ = child.Cancel(ctx, newEv)
		}
	}
	newEv = newEv.MarkCancelled()

	if t.stage < stageOutcome {
		t.stage = stageOutcome
	}
	finalEv, result, err := t.run(ctx, newEv, status.Unknown, false)
	if err != nil {
		finalEv = finalEv.WithDiagnostic(err.Error())
	}
	return finalEv, result
}

// Clone implements node.Node.
func (t *Tree) Clone() node.Node {
	slots := make(map[status.Phase]node.Node, len(t.slots))
	for k, v := range t.slots {
		slots[k] = v.Clone()
	}
	return &Tree{
		BaseNode: t.BaseNode.CloneBase(),
		slots:    slots,
		observer: t.observer,
	}
}

func (t *Tree) emit(ctx context.Context, p status.Phase) {
	t.observer.OnEvent(ctx, observability.Event{
		Type:      "phase.wait",
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    t.ID(),
		Data:      map[string]any{"phase": p.String()},
	})
}
