package builder

import (
	"github.com/arborlane/evtree/node"
	"github.com/arborlane/evtree/observability"
	"github.com/arborlane/evtree/phase"
	"github.com/arborlane/evtree/status"
)

// TreeBuilder assembles the phase-tree root (spec §3/§4.6): VALIDATE,
// PREPARE, EXECUTE, SUCCESS/FAILURE, an optional CANCEL, and COMPLETE. Each
// On<Phase> call is sugar that installs a builder into the corresponding
// phase slot; a slot left unset is simply absent from the assembled
// phase.Tree, which treats it as a vacuous SUCCESS (spec §4.6).
type TreeBuilder struct {
	id         string
	slots      map[status.Phase]NodeBuilder
	observer   observability.Observer
	conditions []node.Condition
}

// NewTree starts building a phase-tree root named id.
func NewTree(id string) *TreeBuilder {
	return &TreeBuilder{id: id, slots: make(map[status.Phase]NodeBuilder)}
}

// OnValidate installs b as the VALIDATE phase's root.
func (t *TreeBuilder) OnValidate(b NodeBuilder) *TreeBuilder { return t.on(status.Validate, b) }

// OnPrepare installs b as the PREPARE phase's root.
func (t *TreeBuilder) OnPrepare(b NodeBuilder) *TreeBuilder { return t.on(status.Prepare, b) }

// OnExecute installs b as the EXECUTE phase's root.
func (t *TreeBuilder) OnExecute(b NodeBuilder) *TreeBuilder { return t.on(status.Execute, b) }

// OnSuccess installs b as the SUCCESS phase's root.
func (t *TreeBuilder) OnSuccess(b NodeBuilder) *TreeBuilder { return t.on(status.SuccessPhase, b) }

// OnFailure installs b as the FAILURE phase's root.
func (t *TreeBuilder) OnFailure(b NodeBuilder) *TreeBuilder { return t.on(status.FailurePhase, b) }

// OnCancel installs b as the (optional) CANCEL phase's root.
func (t *TreeBuilder) OnCancel(b NodeBuilder) *TreeBuilder { return t.on(status.CancelPhase, b) }

// OnComplete installs b as the COMPLETE phase's root, which always runs
// last regardless of outcome (spec §3/§4.6).
func (t *TreeBuilder) OnComplete(b NodeBuilder) *TreeBuilder { return t.on(status.Complete, b) }

func (t *TreeBuilder) on(p status.Phase, b NodeBuilder) *TreeBuilder {
	t.slots[p] = b
	return t
}

// Observer attaches an observer for the assembled tree's lifecycle events.
func (t *TreeBuilder) Observer(observer observability.Observer) *TreeBuilder {
	t.observer = observer
	return t
}

// When appends eligibility conditions to the phase-tree root itself.
func (t *TreeBuilder) When(conditions ...node.Condition) *TreeBuilder {
	t.conditions = append(t.conditions, conditions...)
	return t
}

// Build assembles every installed phase slot and returns the phase-tree
// root (spec §6's "Build() -> RootNode"). The first structural error from
// any slot (e.g. a duplicate sibling NodeID) aborts assembly.
func (t *TreeBuilder) Build() (node.Node, error) {
	slots := make(map[status.Phase]node.Node, len(t.slots))
	for p, slotBuilder := range t.slots {
		n, err := slotBuilder.Build()
		if err != nil {
			return nil, err
		}
		slots[p] = n
	}
	return phase.NewTree(t.id, slots, t.observer, t.conditions...), nil
}
