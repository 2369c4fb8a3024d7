package layer

import (
	"context"

	"github.com/arborlane/evtree/event"
	"github.com/arborlane/evtree/node"
	"github.com/arborlane/evtree/observability"
	"github.com/arborlane/evtree/status"
)

// Parallel drives every available child on each Process call, regardless
// of how many are already waiting, and resolves against success/failure
// thresholds rather than a single pass/fail child (spec §4.3). Grounded on
// orchestrate/workflows.ProcessParallel's threshold-counted worker
// aggregation, reshaped from a concurrent worker pool into a
// single-threaded one-at-a-time drive so the cooperative suspension
// protocol in spec §5 still holds: multiple children may be WAITING at
// once, each independently addressable by NodeID.
type Parallel struct {
	Container

	successThreshold int
	failureThreshold int
	waiting          map[string]node.Node
}

// NewParallel constructs a Parallel layer node. A successThreshold or
// failureThreshold of zero or less resolves to, respectively, "every
// available child must succeed" and "any single failure trips it" —
// the spec's stated defaults when a threshold isn't configured.
func NewParallel(id string, priority status.Priority, order int, withInverter bool, successThreshold, failureThreshold int, observer observability.Observer, conditions ...node.Condition) *Parallel {
	return &Parallel{
		Container:        NewContainer(id, priority, order, withInverter, observer, conditions...),
		successThreshold: successThreshold,
		failureThreshold: failureThreshold,
		waiting:          make(map[string]node.Node),
	}
}

// Eligible implements node.Node.
func (p *Parallel) Eligible(ev event.Event) bool {
	return node.Evaluate(p.Conditions(), ev, p)
}

// Process implements node.Node (spec §4.3).
func (p *Parallel) Process(ctx context.Context, ev event.Event) (event.Event, status.NodeStatus, error) {
	if p.Terminal() {
		return ev, p.Status(), nil
	}
	if !p.Eligible(ev) {
		return ev, p.ResolveTerminal(status.Success), nil
	}

	if p.available == nil && len(p.waiting) == 0 {
		p.resetCursor(ev)
	}

	return p.drive(ctx, ev)
}

// effectiveThresholds resolves the configured thresholds against the
// current AvailableChildren count.
func (p *Parallel) effectiveThresholds() (success, failure int) {
	success = p.successThreshold
	if success <= 0 {
		success = len(p.available)
	}
	failure = p.failureThreshold
	if failure <= 0 {
		failure = 1
	}
	return success, failure
}

// drive processes every available child once per call (children already
// terminal or WAITING from a previous round are not re-invoked), then
// evaluates the aggregation rule from spec §4.3 in order: success
// threshold, then failure threshold, then WAITING, then CANCELLED (at
// least one child cancelled and every child terminal), then FAILURE as
// the fallback when nothing else was crossed.
func (p *Parallel) drive(ctx context.Context, ev event.Event) (event.Event, status.NodeStatus, error) {
	curEv := ev
	successCount, failureCount, cancelledCount := 0, 0, 0
	successThreshold, failureThreshold := p.effectiveThresholds()

	for _, child := range p.available {
		result := child.Status()
		if !result.Terminal() && result != status.Waiting {
			var err error
			curEv, result, err = child.Process(ctx, curEv)
			if err != nil {
				return curEv, status.Unknown, err
			}
		}

		switch result {
		case status.Success:
			successCount++
			delete(p.waiting, child.ID())
		case status.Failure:
			failureCount++
			delete(p.waiting, child.ID())
		case status.Cancelled:
			cancelledCount++
			delete(p.waiting, child.ID())
		case status.Waiting:
			p.waiting[child.ID()] = child
		}

		if successCount >= successThreshold {
			return p.finish(curEv, status.Success)
		}
		if failureCount >= failureThreshold {
			return p.finish(curEv, status.Failure)
		}
	}

	if len(p.waiting) > 0 {
		p.emit(ctx, "layer.wait", observability.LevelVerbose, map[string]any{"waiting": len(p.waiting)})
		return curEv, p.ResolveTerminal(status.Waiting), nil
	}

	if cancelledCount > 0 && successCount+failureCount+cancelledCount == len(p.available) {
		return curEv.MarkCancelled(), p.ResolveTerminal(status.Cancelled), nil
	}

	return p.finish(curEv, status.Failure)
}

func (p *Parallel) finish(ev event.Event, raw status.NodeStatus) (event.Event, status.NodeStatus, error) {
	p.waiting = make(map[string]node.Node)
	if raw == status.Failure {
		ev = ev.MarkFailed()
	}
	return ev, p.ResolveTerminal(raw), nil
}

// Resume implements node.Node (spec §4.3/§4.4). Unlike Sequence/Selector,
// Parallel may have several children WAITING at once; nodeIDs selects
// which of them to resume (empty selects all).
func (p *Parallel) Resume(ctx context.Context, ev event.Event, nodeIDs []string) (event.Event, status.NodeStatus) {
	if p.Status() != status.Waiting {
		return ev, p.Status()
	}
	return p.controlWaiting(ctx, ev, nodeIDs, func(n node.Node, e event.Event, ids []string) (event.Event, status.NodeStatus) {
		return n.Resume(ctx, e, ids)
	})
}

// Fail implements node.Node, Resume's symmetric counterpart.
func (p *Parallel) Fail(ctx context.Context, ev event.Event, nodeIDs []string) (event.Event, status.NodeStatus) {
	if p.Status() != status.Waiting {
		return ev, p.Status()
	}
	return p.controlWaiting(ctx, ev, nodeIDs, func(n node.Node, e event.Event, ids []string) (event.Event, status.NodeStatus) {
		return n.Fail(ctx, e, ids)
	})
}

func (p *Parallel) controlWaiting(ctx context.Context, ev event.Event, nodeIDs []string, apply func(node.Node, event.Event, []string) (event.Event, status.NodeStatus)) (event.Event, status.NodeStatus) {
	curEv := ev
	touched := false

	for id, child := range p.waiting {
		forwarded, matched := routeToChild(nodeIDs, id)
		if !matched {
			continue
		}
		touched = true
		var childStatus status.NodeStatus
		curEv, childStatus = apply(child, curEv, forwarded)
		if childStatus != status.Waiting {
			delete(p.waiting, id)
		}
	}

	if !touched {
		return ev, p.Status()
	}
	return p.reevaluateAfterControl(curEv)
}

// reevaluateAfterControl re-runs the aggregation rule over the current
// child statuses without re-invoking Process on any of them.
func (p *Parallel) reevaluateAfterControl(ev event.Event) (event.Event, status.NodeStatus) {
	successCount, failureCount, cancelledCount := 0, 0, 0
	for _, child := range p.available {
		switch child.Status() {
		case status.Success:
			successCount++
		case status.Failure:
			failureCount++
		case status.Cancelled:
			cancelledCount++
		}
	}

	successThreshold, failureThreshold := p.effectiveThresholds()
	switch {
	case successCount >= successThreshold:
		ev, s, _ := p.finish(ev, status.Success)
		return ev, s
	case failureCount >= failureThreshold:
		ev, s, _ := p.finish(ev, status.Failure)
		return ev, s
	case len(p.waiting) > 0:
		return ev, status.Waiting
	case cancelledCount > 0 && successCount+failureCount+cancelledCount == len(p.available):
		p.waiting = make(map[string]node.Node)
		return ev.MarkCancelled(), p.ResolveTerminal(status.Cancelled)
	default:
		ev, s, _ := p.finish(ev, status.Failure)
		return ev, s
	}
}

// Cancel implements node.Node: cancels every non-terminal available child
// (or every registered child, if Process was never called).
func (p *Parallel) Cancel(ctx context.Context, ev event.Event) (event.Event, status.NodeStatus) {
	targets := p.available
	if targets == nil {
		targets = p.Children()
	}
	newEv := ev
	for _, child := range targets {
		if child.Status().Terminal() {
			continue
		}
		newEv, _ = child.Cancel(ctx, newEv)
	}
	p.waiting = make(map[string]node.Node)
	newEv = newEv.MarkCancelled()
	return newEv, p.ResolveTerminal(status.Cancelled)
}

// Clone implements node.Node.
func (p *Parallel) Clone() node.Node {
	return &Parallel{
		Container:        p.Container.cloneContainer(),
		successThreshold: p.successThreshold,
		failureThreshold: p.failureThreshold,
		waiting:          make(map[string]node.Node),
	}
}
