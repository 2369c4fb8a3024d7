package layer

import (
	"context"

	"github.com/arborlane/evtree/event"
	"github.com/arborlane/evtree/node"
	"github.com/arborlane/evtree/observability"
	"github.com/arborlane/evtree/status"
)

// Kind distinguishes the two sequential-evaluator shapes. Both drive their
// AvailableChildren in (Priority desc, Order asc) order, one at a time;
// they differ only in which result short-circuits the pass and what the
// pass resolves to if it runs out of children without short-circuiting
// (spec §4.2: "Both are sequential-child evaluators; they differ only in
// aggregation").
type Kind int

const (
	// SequenceKind stops and fails on the first child FAILURE; it succeeds
	// only if every available child succeeds.
	SequenceKind Kind = iota
	// SelectorKind stops and succeeds on the first child SUCCESS; it fails
	// only if every available child fails.
	SelectorKind
)

// Sequential implements both Sequence and Selector (spec §4.2), sharing
// the pop-head-and-continue driving loop grounded on
// orchestrate/workflows.ProcessChain's sequential fold.
type Sequential struct {
	Container
	kind Kind
}

// NewSequence constructs a Sequence layer node.
func NewSequence(id string, priority status.Priority, order int, withInverter bool, observer observability.Observer, conditions ...node.Condition) *Sequential {
	return &Sequential{
		Container: NewContainer(id, priority, order, withInverter, observer, conditions...),
		kind:      SequenceKind,
	}
}

// NewSelector constructs a Selector layer node.
func NewSelector(id string, priority status.Priority, order int, withInverter bool, observer observability.Observer, conditions ...node.Condition) *Sequential {
	return &Sequential{
		Container: NewContainer(id, priority, order, withInverter, observer, conditions...),
		kind:      SelectorKind,
	}
}

// Eligible implements node.Node.
func (s *Sequential) Eligible(ev event.Event) bool {
	return node.Evaluate(s.Conditions(), ev, s)
}

// Process implements node.Node (spec §4.2).
func (s *Sequential) Process(ctx context.Context, ev event.Event) (event.Event, status.NodeStatus, error) {
	if s.Terminal() {
		return ev, s.Status(), nil
	}
	if !s.Eligible(ev) {
		return ev, s.ResolveTerminal(status.Success), nil
	}

	if s.available == nil && s.waitingChild == nil {
		s.resetCursor(ev)
	}

	if s.Status() == status.Waiting && s.waitingChild != nil {
		// Parked on a child awaiting an external Resume/Fail/Cancel;
		// re-driving here changes nothing.
		return ev, status.Waiting, nil
	}

	return s.driveLoop(ctx, ev)
}

// driveLoop runs from s.cursor to the end of s.available, processing each
// undriven child and aggregating per s.kind's short-circuit rule.
func (s *Sequential) driveLoop(ctx context.Context, ev event.Event) (event.Event, status.NodeStatus, error) {
	curEv := ev
	for s.cursor < len(s.available) {
		child := s.available[s.cursor]

		result := child.Status()
		if !result.Terminal() {
			var err error
			curEv, result, err = child.Process(ctx, curEv)
			if err != nil {
				return curEv, status.Unknown, err
			}
		}

		switch {
		case result == status.Waiting:
			s.waitingChild = child
			s.emit(ctx, "layer.wait", observability.LevelVerbose, map[string]any{"child": child.ID()})
			return curEv, s.ResolveTerminal(status.Waiting), nil
		case result == status.Cancelled:
			s.waitingChild = nil
			return curEv.MarkCancelled(), s.ResolveTerminal(status.Cancelled), nil
		case s.shortCircuits(result):
			s.waitingChild = nil
			return curEv, s.ResolveTerminal(result), nil
		}

		s.waitingChild = nil
		s.cursor++
	}

	return curEv, s.ResolveTerminal(s.exhaustedStatus()), nil
}

func (s *Sequential) shortCircuits(result status.NodeStatus) bool {
	if s.kind == SequenceKind {
		return result == status.Failure
	}
	return result == status.Success
}

func (s *Sequential) exhaustedStatus() status.NodeStatus {
	if s.kind == SequenceKind {
		return status.Success
	}
	return status.Failure
}

// Resume implements node.Node (spec §4.2/§4.4): routes to the single
// recorded waiting child, then continues the drive loop with its result.
func (s *Sequential) Resume(ctx context.Context, ev event.Event, nodeIDs []string) (event.Event, status.NodeStatus) {
	if s.Status() != status.Waiting || s.waitingChild == nil {
		return ev, s.Status()
	}
	forwarded, matched := routeToChild(nodeIDs, s.waitingChild.ID())
	if !matched {
		return ev, s.Status()
	}
	newEv, childStatus := s.waitingChild.Resume(ctx, ev, forwarded)
	return s.afterChildControl(ctx, newEv, childStatus)
}

// Fail implements node.Node, Resume's symmetric counterpart.
func (s *Sequential) Fail(ctx context.Context, ev event.Event, nodeIDs []string) (event.Event, status.NodeStatus) {
	if s.Status() != status.Waiting || s.waitingChild == nil {
		return ev, s.Status()
	}
	forwarded, matched := routeToChild(nodeIDs, s.waitingChild.ID())
	if !matched {
		return ev, s.Status()
	}
	newEv, childStatus := s.waitingChild.Fail(ctx, ev, forwarded)
	return s.afterChildControl(ctx, newEv, childStatus)
}

// afterChildControl continues the drive loop once the waiting child's
// externally-injected status is known.
func (s *Sequential) afterChildControl(ctx context.Context, ev event.Event, childStatus status.NodeStatus) (event.Event, status.NodeStatus) {
	if childStatus == status.Waiting {
		return ev, status.Waiting
	}
	if childStatus == status.Cancelled {
		s.waitingChild = nil
		return ev.MarkCancelled(), s.ResolveTerminal(status.Cancelled)
	}
	if s.shortCircuits(childStatus) {
		s.waitingChild = nil
		return ev, s.ResolveTerminal(childStatus)
	}

	s.waitingChild = nil
	s.cursor++
	newEv, result, err := s.driveLoop(ctx, ev)
	if err != nil {
		newEv = newEv.WithDiagnostic(err.Error()).MarkFailed()
		return newEv, s.ResolveTerminal(status.Failure)
	}
	return newEv, result
}

// Cancel implements node.Node: cancels every non-terminal available child
// (or, if Process was never called, every registered child) and
// transitions unconditionally to CANCELLED.
func (s *Sequential) Cancel(ctx context.Context, ev event.Event) (event.Event, status.NodeStatus) {
	targets := s.available
	if targets == nil {
		targets = s.Children()
	}
	newEv := ev
	for _, child := range targets {
		if child.Status().Terminal() {
			continue
		}
		newEv, _ = child.Cancel(ctx, newEv)
	}
	s.waitingChild = nil
	newEv = newEv.MarkCancelled()
	return newEv, s.ResolveTerminal(status.Cancelled)
}

// Clone implements node.Node: children are cloned independently, and the
// transient driving state (available/cursor/waitingChild) resets.
func (s *Sequential) Clone() node.Node {
	return &Sequential{
		Container: s.Container.cloneContainer(),
		kind:      s.kind,
	}
}
