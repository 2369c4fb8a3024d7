// Package builder implements the fluent tree-assembly surface from spec
// §6: Sequence/Selector/Parallel/Handler constructors that chain option
// setters and end in a Build call producing a node.Node, plus (in tree.go)
// the phase-tree-level TreeBuilder with its named OnValidate/OnPrepare/...
// sugar.
//
// Grounded on orchestrate/messaging.MessageBuilder's shape: a constructor
// that seeds a struct with its required fields and sane defaults, chained
// setters that each return the same pointer, and a terminal Build call.
package builder

import (
	"github.com/arborlane/evtree/handler"
	"github.com/arborlane/evtree/layer"
	"github.com/arborlane/evtree/node"
	"github.com/arborlane/evtree/observability"
	"github.com/arborlane/evtree/status"
)

// NodeBuilder is satisfied by every builder in this package: LayerBuilder
// and HandlerBuilder. Build assembles the node.Node it describes,
// recursing into any children, and surfaces the first structural error
// encountered (e.g. a duplicate sibling NodeID, spec §6/§7) rather than
// panicking.
type NodeBuilder interface {
	Build() (node.Node, error)
}

// LayerBuilder assembles a Sequence, Selector, or Parallel layer node.
type LayerBuilder struct {
	id           string
	kind         layer.Kind
	isParallel   bool
	priority     status.Priority
	order        int
	withInverter bool
	conditions   []node.Condition
	observer     observability.Observer

	successThreshold int
	failureThreshold int

	children []NodeBuilder
}

// Sequence starts building a Sequence layer node named id.
func Sequence(id string) *LayerBuilder {
	return &LayerBuilder{id: id, kind: layer.SequenceKind, priority: status.Normal}
}

// Selector starts building a Selector layer node named id.
func Selector(id string) *LayerBuilder {
	return &LayerBuilder{id: id, kind: layer.SelectorKind, priority: status.Normal}
}

// Parallel starts building a Parallel layer node named id. A
// successThreshold or failureThreshold of zero defers to Parallel's own
// defaults (require-all-success, any-failure-trips), per spec §4.3.
func Parallel(id string, successThreshold, failureThreshold int) *LayerBuilder {
	return &LayerBuilder{
		id:               id,
		isParallel:       true,
		priority:         status.Normal,
		successThreshold: successThreshold,
		failureThreshold: failureThreshold,
	}
}

// Priority sets the node's scheduling priority (default status.Normal).
func (b *LayerBuilder) Priority(p status.Priority) *LayerBuilder {
	b.priority = p
	return b
}

// Order sets the node's registration-order tiebreaker (default 0).
func (b *LayerBuilder) Order(order int) *LayerBuilder {
	b.order = order
	return b
}

// WithInverter marks the node's result as inverted (spec §3/§4.1).
func (b *LayerBuilder) WithInverter() *LayerBuilder {
	b.withInverter = true
	return b
}

// When appends eligibility conditions (spec §3: an empty chain is
// vacuously eligible).
func (b *LayerBuilder) When(conditions ...node.Condition) *LayerBuilder {
	b.conditions = append(b.conditions, conditions...)
	return b
}

// Observer attaches an observer for this layer's lifecycle events.
func (b *LayerBuilder) Observer(observer observability.Observer) *LayerBuilder {
	b.observer = observer
	return b
}

// Child appends a child node builder, evaluated in Build in the order
// added (registration order; actual driving order is always the
// Priority-desc/Order-asc sort, spec §4.2/§4.3).
func (b *LayerBuilder) Child(child NodeBuilder) *LayerBuilder {
	b.children = append(b.children, child)
	return b
}

// Build assembles the layer node and its children. Duplicate sibling
// NodeIDs are rejected (spec §6), surfaced as the status.ProgrammingError
// layer.AddChild returns.
func (b *LayerBuilder) Build() (node.Node, error) {
	var container interface {
		node.Node
		AddChild(node.Node) error
	}

	switch {
	case b.isParallel:
		container = layer.NewParallel(b.id, b.priority, b.order, b.withInverter, b.successThreshold, b.failureThreshold, b.observer, b.conditions...)
	case b.kind == layer.SelectorKind:
		container = layer.NewSelector(b.id, b.priority, b.order, b.withInverter, b.observer, b.conditions...)
	default:
		container = layer.NewSequence(b.id, b.priority, b.order, b.withInverter, b.observer, b.conditions...)
	}

	for _, childBuilder := range b.children {
		child, err := childBuilder.Build()
		if err != nil {
			return nil, err
		}
		if err := container.AddChild(child); err != nil {
			return nil, err
		}
	}
	return container, nil
}

// HandlerBuilder assembles a HandlerNode leaf.
type HandlerBuilder struct {
	id            string
	fn            handler.Func
	priority      status.Priority
	order         int
	withInverter  bool
	conditions    []node.Condition
	maxExecutions *int
}

// Handler starts building a HandlerNode named id, invoking fn.
func Handler(id string, fn handler.Func) *HandlerBuilder {
	return &HandlerBuilder{id: id, fn: fn, priority: status.Normal}
}

// Priority sets the node's scheduling priority (default status.Normal).
func (b *HandlerBuilder) Priority(p status.Priority) *HandlerBuilder {
	b.priority = p
	return b
}

// Order sets the node's registration-order tiebreaker (default 0).
func (b *HandlerBuilder) Order(order int) *HandlerBuilder {
	b.order = order
	return b
}

// WithInverter marks the node's result as inverted (spec §3/§4.1).
func (b *HandlerBuilder) WithInverter() *HandlerBuilder {
	b.withInverter = true
	return b
}

// When appends eligibility conditions.
func (b *HandlerBuilder) When(conditions ...node.Condition) *HandlerBuilder {
	b.conditions = append(b.conditions, conditions...)
	return b
}

// MaxExecutions caps the number of times the callback may run across the
// handler template's clones before it auto-resolves SUCCESS without
// invoking the callback again (spec §4.1).
func (b *HandlerBuilder) MaxExecutions(n int) *HandlerBuilder {
	b.maxExecutions = &n
	return b
}

// Build assembles the HandlerNode leaf.
func (b *HandlerBuilder) Build() (node.Node, error) {
	return handler.New(b.id, b.priority, b.order, b.withInverter, b.maxExecutions, b.fn, b.conditions...), nil
}
