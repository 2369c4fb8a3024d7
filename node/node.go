// Package node defines the shared Node contract (spec §3/§9: "Polymorphic
// node set ... represent as a sum type with a shared operation set
// {Process, GetStatus, Resume, Fail, Cancel, Clone}") and the BaseNode
// fields every concrete node shape (handler, sequence, selector, parallel)
// embeds: NodeID, Priority, Order, Conditions, WithInverter, and the
// current status.
//
// Grounded on orchestrate/state.StateNode (the minimal Execute(ctx, state)
// interface every node shape implements) for the interface shape, and on
// orchestrate/state/edge.go's TransitionPredicate combinators (And/Or/Not)
// for the Condition chain in condition.go.
package node

import (
	"context"

	"github.com/arborlane/evtree/event"
	"github.com/arborlane/evtree/status"
)

// Node is the operation set every node shape in the tree implements.
// Process, Resume, Fail, and Cancel all thread the Event through by value
// and return the (possibly updated) Event alongside the node's resulting
// status, matching the copy-on-write contract in package event.
type Node interface {
	// ID returns the node's NodeID, unique among its siblings.
	ID() string

	// Priority returns the node's scheduling priority.
	Priority() status.Priority

	// Order returns the node's registration-order tiebreaker.
	Order() int

	// Status returns the node's current, possibly terminal, status.
	Status() status.NodeStatus

	// Eligible evaluates the node's condition chain against ev. An empty
	// chain is vacuously eligible. A panicking condition is treated as
	// false (spec §7: "Condition exceptions: treat the condition as false").
	Eligible(ev event.Event) bool

	// Process drives the node: evaluates conditions and terminal-status
	// short-circuits, then (for a handler) invokes the callback or (for a
	// layer) drives children, returning the resulting Event and status.
	// Only a programming error (spec §7) is returned in err.
	Process(ctx context.Context, ev event.Event) (event.Event, status.NodeStatus, error)

	// Resume re-drives a WAITING node toward a non-waiting terminal
	// status. nodeIDs scopes which waiting descendant(s) to target; an
	// empty slice targets the first waiting descendant found by in-order
	// descent, except that a Parallel layer passes it on to every one of
	// its waiting children (spec §4.2/§4.3/§4.4).
	Resume(ctx context.Context, ev event.Event, nodeIDs []string) (event.Event, status.NodeStatus)

	// Fail is Resume's symmetric counterpart, injecting failure instead
	// of success into the targeted waiting node(s).
	Fail(ctx context.Context, ev event.Event, nodeIDs []string) (event.Event, status.NodeStatus)

	// Cancel unconditionally transitions the node (and, for layers, its
	// non-terminal children) to CANCELLED.
	Cancel(ctx context.Context, ev event.Event) (event.Event, status.NodeStatus)

	// Clone returns an independent copy suitable for a fresh Process
	// cycle: a fresh status field, but (per spec §4.1/§9) a handler
	// leaf's ExecutionCount counter is shared by reference with its
	// template and every other clone of that template.
	Clone() Node
}

// BaseNode holds the fields common to every node shape (spec §3). Concrete
// node types embed BaseNode and call its helpers from their own Process/
// Resume/Fail/Cancel implementations.
type BaseNode struct {
	id           string
	priority     status.Priority
	order        int
	conditions   []Condition
	withInverter bool
	current      status.NodeStatus
}

// NewBase constructs a BaseNode in its initial UNKNOWN status.
func NewBase(id string, priority status.Priority, order int, withInverter bool, conditions ...Condition) BaseNode {
	return BaseNode{
		id:           id,
		priority:     priority,
		order:        order,
		conditions:   conditions,
		withInverter: withInverter,
		current:      status.Unknown,
	}
}

func (b *BaseNode) ID() string                 { return b.id }
func (b *BaseNode) Priority() status.Priority  { return b.priority }
func (b *BaseNode) Order() int                 { return b.order }
func (b *BaseNode) Status() status.NodeStatus  { return b.current }
func (b *BaseNode) WithInverter() bool         { return b.withInverter }
func (b *BaseNode) Conditions() []Condition    { return b.conditions }
func (b *BaseNode) setStatus(s status.NodeStatus) { b.current = s }

// SetStatus stores s as the node's current status as is, without applying
// the inverter. The node shapes in this module set their status through
// ResolveTerminal instead.
func (b *BaseNode) SetStatus(s status.NodeStatus) { b.setStatus(s) }

// Terminal reports whether the node's current status is terminal.
func (b *BaseNode) Terminal() bool {
	return b.current.Terminal()
}

// resolveTerminal applies the inverter (if the raw status is not WAITING)
// and stores + returns the final status. Shared by every concrete node's
// Process/Resume/Fail so the inverter rule in spec §3/§4.1 is applied
// exactly once, in exactly one place.
func (b *BaseNode) resolveTerminal(raw status.NodeStatus) status.NodeStatus {
	final := raw
	if b.withInverter && raw != status.Waiting {
		final = status.Invert(raw)
	}
	b.setStatus(final)
	return final
}

// cloneBase returns a copy of b reset to UNKNOWN status, for node Clone
// implementations to embed.
func (b BaseNode) cloneBase() BaseNode {
	b.current = status.Unknown
	return b
}

// CloneBase is the exported form of cloneBase for concrete node Clone
// implementations in other packages.
func (b BaseNode) CloneBase() BaseNode { return b.cloneBase() }

// ResolveTerminal is the exported form of resolveTerminal for concrete
// node implementations in other packages.
func (b *BaseNode) ResolveTerminal(raw status.NodeStatus) status.NodeStatus {
	return b.resolveTerminal(raw)
}
