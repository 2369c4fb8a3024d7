// Package handler implements HandlerNode, the tree's leaf: a node that
// invokes a user callback and maps its HandlerResult onto a NodeStatus.
//
// Grounded on orchestrate/state.FunctionNode, which wraps a plain function
// as a StateNode the same way HandlerNode wraps a callback as a Node; the
// shared-by-reference ExecutionCount counter (spec §4.1/§9: "each handler
// template owns a heap-allocated counter cell; clone copies the reference
// to the cell, not the value") is new here because FunctionNode has no
// analogous execution-count bookkeeping in the teacher.
package handler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/arborlane/evtree/event"
	"github.com/arborlane/evtree/node"
	"github.com/arborlane/evtree/status"
)

// Func is a handler callback. It receives the event and the node invoking
// it (so a callback can read its own NodeID, e.g. for logging) and returns
// the (possibly updated) event plus a HandlerResult. Extending spec §4.1's
// "(event, node) -> HandlerResult" signature with a returned Event follows
// the same immutable-data-flow contract every other node-shaped callback
// in this module uses (package event, orchestrate/state.StateNode.Execute).
type Func func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult)

// ErrMissingHandler is a programming error (spec §7): a HandlerNode was
// built or cloned without a callback.
var ErrMissingHandler = fmt.Errorf("handler: node has no callback")

// HandlerNode is the tree's leaf node shape (spec §4.1).
type HandlerNode struct {
	node.BaseNode

	handler        Func
	maxExecutions  *int
	executionCount *int64
}

// New constructs a HandlerNode. maxExecutions of nil means unbounded.
func New(id string, priority status.Priority, order int, withInverter bool, maxExecutions *int, handlerFn Func, conditions ...node.Condition) *HandlerNode {
	return &HandlerNode{
		BaseNode:       node.NewBase(id, priority, order, withInverter, conditions...),
		handler:        handlerFn,
		maxExecutions:  maxExecutions,
		executionCount: new(int64),
	}
}

// ExecutionCount returns the number of times the callback has actually
// been invoked, shared across every clone of this node's template.
func (h *HandlerNode) ExecutionCount() int64 {
	return atomic.LoadInt64(h.executionCount)
}

// Eligible implements node.Node.
func (h *HandlerNode) Eligible(ev event.Event) bool {
	return node.Evaluate(h.Conditions(), ev, h)
}

// Process implements node.Node (spec §4.1).
func (h *HandlerNode) Process(ctx context.Context, ev event.Event) (event.Event, status.NodeStatus, error) {
	if h.Status().Terminal() {
		return ev, h.Status(), nil
	}

	if !h.Eligible(ev) {
		return ev, h.ResolveTerminal(status.Success), nil
	}

	if h.maxExecutions != nil && atomic.LoadInt64(h.executionCount) >= int64(*h.maxExecutions) {
		return ev, h.ResolveTerminal(status.Success), nil
	}

	if h.handler == nil {
		return ev, status.Unknown, ErrMissingHandler
	}

	newEv, result, err := h.invoke(ctx, ev)
	if err != nil {
		newEv = newEv.WithDiagnostic(err.Error())
		result = status.Fail
	}

	raw := result.ToNodeStatus()
	if raw == status.Failure {
		newEv = newEv.MarkFailed()
	}

	return newEv, h.ResolveTerminal(raw), nil
}

// invoke calls the handler, recovering a panic into a FAIL result with a
// recorded diagnostic per spec §7 ("Handler exceptions ... treat as FAIL
// with a recorded diagnostic in the event's data bag under a reserved key").
func (h *HandlerNode) invoke(ctx context.Context, ev event.Event) (resultEv event.Event, result status.HandlerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			resultEv = ev.WithDiagnostic(fmt.Sprintf("%v", r))
			result = status.Fail
			err = nil
		}
	}()

	atomic.AddInt64(h.executionCount, 1)
	resultEv, result = h.handler(ctx, ev, h)
	return resultEv, result, nil
}

// Resume implements node.Node (spec §4.1).
func (h *HandlerNode) Resume(ctx context.Context, ev event.Event, nodeIDs []string) (event.Event, status.NodeStatus) {
	if h.Status() != status.Waiting {
		return ev, h.Status()
	}
	if !targets(nodeIDs, h.ID()) {
		return ev, h.Status()
	}
	return ev, h.ResolveTerminal(status.Success)
}

// Fail implements node.Node (spec §4.1).
func (h *HandlerNode) Fail(ctx context.Context, ev event.Event, nodeIDs []string) (event.Event, status.NodeStatus) {
	if h.Status() != status.Waiting {
		return ev, h.Status()
	}
	if !targets(nodeIDs, h.ID()) {
		return ev, h.Status()
	}
	newEv := ev.MarkFailed()
	return newEv, h.ResolveTerminal(status.Failure)
}

// Cancel implements node.Node (spec §4.1): unconditional transition to
// CANCELLED, bypassing the inverter (Cancelled is never inverted).
func (h *HandlerNode) Cancel(ctx context.Context, ev event.Event) (event.Event, status.NodeStatus) {
	return ev.MarkCancelled(), h.ResolveTerminal(status.Cancelled)
}

// Clone implements node.Node. The ExecutionCount counter is shared by
// reference with h (and every other existing clone), per spec §4.1/§9.
func (h *HandlerNode) Clone() node.Node {
	return &HandlerNode{
		BaseNode:       h.BaseNode.CloneBase(),
		handler:        h.handler,
		maxExecutions:  h.maxExecutions,
		executionCount: h.executionCount,
	}
}

// targets reports whether nodeIDs is empty (matches anything) or contains id.
func targets(nodeIDs []string, id string) bool {
	if len(nodeIDs) == 0 {
		return true
	}
	for _, n := range nodeIDs {
		if n == id {
			return true
		}
	}
	return false
}
