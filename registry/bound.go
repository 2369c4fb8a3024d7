package registry

import (
	"context"
	"fmt"

	"github.com/arborlane/evtree/event"
	"github.com/arborlane/evtree/node"
	"github.com/arborlane/evtree/observability"
	"github.com/arborlane/evtree/process"
	"github.com/arborlane/evtree/status"
)

// ErrNotYetProcessed is returned by Resume/Fail/Cancel on a BoundEvent that
// has not had Process called on it yet.
var ErrNotYetProcessed = fmt.Errorf("registry: Resume/Fail/Cancel called before Process")

// BoundEvent is the Event-surface sugar from spec §6: Process/Resume/
// Fail/Cancel/Context read like methods on the event itself, with the
// ContextManager lookup and ProcessContext bookkeeping hidden behind them.
// It is a thin convenience wrapper; host code that wants direct control
// over a registry.ContextManager or a process.ProcessContext can still use
// either package on its own.
type BoundEvent struct {
	manager     *ContextManager
	instanceID  string
	eventScoped node.Node
	observer    observability.Observer

	ev event.Event
	pc *process.ProcessContext
}

// Bind pairs ev with manager, ready for Process. ev.EventType selects which
// type-level prototype GetContext assembles against.
func Bind(manager *ContextManager, ev event.Event) *BoundEvent {
	return &BoundEvent{manager: manager, ev: ev}
}

// WithInstance scopes the eventual GetContext call to instanceID's
// registered override, if any (spec §4.5 step 2).
func (b *BoundEvent) WithInstance(instanceID string) *BoundEvent {
	b.instanceID = instanceID
	return b
}

// WithObserver attaches an observer to the ProcessContext Process will
// construct. A nil/unset observer defaults to observability.NoOpObserver.
func (b *BoundEvent) WithObserver(observer observability.Observer) *BoundEvent {
	b.observer = observer
	return b
}

// Context attaches an event-scoped tree (built ad-hoc via the builder for
// this one event), merged in on top of the type and instance prototypes
// (spec §4.5 step 3, spec §6's "Context(builderDelegate, instance?)").
func (b *BoundEvent) Context(eventScoped node.Node) *BoundEvent {
	b.eventScoped = eventScoped
	return b
}

// Event returns the current event snapshot (post-Process/Resume/Fail/
// Cancel, if any of those have run).
func (b *BoundEvent) Event() event.Event {
	if b.pc != nil {
		return b.pc.Event()
	}
	return b.ev
}

// Process assembles the effective tree from the manager and drives it
// against the bound event exactly once (spec §4.4/§4.5/§6).
func (b *BoundEvent) Process(ctx context.Context) (status.NodeStatus, error) {
	if b.pc != nil {
		// A repeat call goes to the existing ProcessContext, which rejects it.
		return b.pc.Process(ctx, b.ev)
	}
	root, err := b.manager.GetContext(ctx, b.ev.EventType, b.instanceID, b.eventScoped)
	if err != nil {
		return status.Unknown, err
	}
	b.pc = process.New(root, b.observer)
	return b.pc.Process(ctx, b.ev)
}

// Resume delegates to the underlying ProcessContext's Resume.
func (b *BoundEvent) Resume(ctx context.Context, nodeIDs ...string) (status.NodeStatus, error) {
	if b.pc == nil {
		return status.Unknown, ErrNotYetProcessed
	}
	return b.pc.Resume(ctx, nodeIDs)
}

// Fail delegates to the underlying ProcessContext's Fail.
func (b *BoundEvent) Fail(ctx context.Context, nodeIDs ...string) (status.NodeStatus, error) {
	if b.pc == nil {
		return status.Unknown, ErrNotYetProcessed
	}
	return b.pc.Fail(ctx, nodeIDs)
}

// Cancel delegates to the underlying ProcessContext's Cancel.
func (b *BoundEvent) Cancel(ctx context.Context) (status.NodeStatus, error) {
	if b.pc == nil {
		return status.Unknown, ErrNotYetProcessed
	}
	return b.pc.Cancel(ctx)
}
