// Package layer implements the three composite node shapes — Sequence,
// Selector, and Parallel — that evaluate and aggregate their children's
// statuses (spec §4.2/§4.3).
//
// Grounded on orchestrate/workflows.ProcessChain (sequential fold over
// items, fail-fast on the first error) for the Sequence/Selector
// pop-head-and-continue loop, and on orchestrate/workflows.ProcessParallel
// (worker-counted fan-out with a FailFast/collect-all mode) for Parallel's
// threshold-counted aggregation — reshaped from concurrent-worker-pool
// execution into the single-threaded cooperative driving spec §5 requires.
package layer

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/arborlane/evtree/event"
	"github.com/arborlane/evtree/node"
	"github.com/arborlane/evtree/observability"
	"github.com/arborlane/evtree/status"
)

// ErrDuplicateChild is the cause wrapped by a status.ProgrammingError
// returned from AddChild when a second child is registered under a
// NodeID already used by a sibling (spec §6/§7).
var ErrDuplicateChild = errors.New("layer: duplicate child NodeID under the same parent")

// Container holds the fields shared by every layer node shape: the child
// map (insertion-ordered for diagnostics), and the live per-Process-cycle
// scheduling state (spec §3's AvailableChildren / ProcessStack).
type Container struct {
	node.BaseNode

	children     map[string]node.Node
	insertOrder  []string
	observer     observability.Observer

	available    []node.Node // snapshot at Process entry, sorted (priority desc, order asc)
	cursor       int         // index into available of the next undriven child
	waitingChild node.Node   // the child currently WAITING, if any
}

// NewContainer constructs a Container in its initial state.
func NewContainer(id string, priority status.Priority, order int, withInverter bool, observer observability.Observer, conditions ...node.Condition) Container {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}
	return Container{
		BaseNode: node.NewBase(id, priority, order, withInverter, conditions...),
		children: make(map[string]node.Node),
		observer: observer,
	}
}

// AddChild registers a child under its own NodeID. Duplicate NodeIDs
// within the same parent are rejected (spec §6).
func (c *Container) AddChild(n node.Node) error {
	if _, exists := c.children[n.ID()]; exists {
		return &status.ProgrammingError{Op: "layer.AddChild", NodeID: n.ID(), Err: ErrDuplicateChild}
	}
	c.children[n.ID()] = n
	c.insertOrder = append(c.insertOrder, n.ID())
	return nil
}

// Child returns the direct child with the given NodeID, if any.
func (c *Container) Child(id string) (node.Node, bool) {
	n, ok := c.children[id]
	return n, ok
}

// ReplaceChild inserts n under its own NodeID, overwriting any existing
// child with that ID in place (registration order unchanged on overwrite)
// or appending if the ID is new. Used by the context manager's merge pass
// (spec §4.5) to splice an override's children into a type clone;
// unlike AddChild it never rejects a duplicate ID, since override-wins is
// exactly the point.
func (c *Container) ReplaceChild(n node.Node) {
	if _, exists := c.children[n.ID()]; !exists {
		c.insertOrder = append(c.insertOrder, n.ID())
	}
	c.children[n.ID()] = n
}

// Children returns the children in insertion order (diagnostic use only;
// evaluation order is always the (Priority desc, Order asc) sort).
func (c *Container) Children() []node.Node {
	out := make([]node.Node, 0, len(c.insertOrder))
	for _, id := range c.insertOrder {
		out = append(out, c.children[id])
	}
	return out
}

// snapshotAvailable computes AvailableChildren: eligible (conditions pass)
// children, sorted (Priority desc, Order asc). Children already in a
// terminal status are kept; the drive loops use their stored status
// without re-driving them. Called at Process entry, per spec §4.2/§4.3.
func (c *Container) snapshotAvailable(ev event.Event) []node.Node {
	eligible := make([]node.Node, 0, len(c.children))
	for _, id := range c.insertOrder {
		child := c.children[id]
		if !child.Eligible(ev) {
			continue
		}
		eligible = append(eligible, child)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Priority() != eligible[j].Priority() {
			return eligible[i].Priority() > eligible[j].Priority()
		}
		return eligible[i].Order() < eligible[j].Order()
	})
	return eligible
}

// resetCursor starts a fresh driving pass: new AvailableChildren snapshot,
// cursor at zero, no recorded waiting child.
func (c *Container) resetCursor(ev event.Event) {
	c.available = c.snapshotAvailable(ev)
	c.cursor = 0
	c.waitingChild = nil
}

// emit is a small convenience wrapper so layer Process/Resume/Fail/Cancel
// implementations read as a single line per event, matching the teacher's
// observer.OnEvent(ctx, observability.Event{...}) call sites.
func (c *Container) emit(ctx context.Context, eventType observability.EventType, level observability.Level, data map[string]any) {
	c.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    c.ID(),
		Data:      data,
	})
}

// cloneContainer copies the Container for a fresh Process cycle: children
// are themselves cloned (so clones don't share template node state), but
// the observer is shared by reference. Transient scheduling fields reset
// to zero, matching node.BaseNode.CloneBase's reset-to-UNKNOWN contract.
func (c *Container) cloneContainer() Container {
	children := make(map[string]node.Node, len(c.children))
	for id, child := range c.children {
		children[id] = child.Clone()
	}
	insertOrder := make([]string, len(c.insertOrder))
	copy(insertOrder, c.insertOrder)
	return Container{
		BaseNode:    c.BaseNode.CloneBase(),
		children:    children,
		insertOrder: insertOrder,
		observer:    c.observer,
	}
}

// routeToChild decides whether a Resume/Fail target list (nodeIDs) selects
// childID. An empty nodeIDs always matches (spec §4.4: no ID targets
// whatever is waiting) and forwards an empty tail list (unrestricted,
// since the cooperative single-threaded model guarantees at most one live
// waiting chain beneath any single child at a time). Otherwise every id
// whose head segment equals childID contributes its tail (if any) to the
// forwarded list; matched is false if no id's head matched at all.
func routeToChild(nodeIDs []string, childID string) (forwarded []string, matched bool) {
	if len(nodeIDs) == 0 {
		return nil, true
	}
	for _, id := range nodeIDs {
		head, tail := node.HeadTail(id)
		if head != childID {
			continue
		}
		matched = true
		if tail != "" {
			forwarded = append(forwarded, tail)
		}
	}
	return forwarded, matched
}
