// Package registry implements ContextManager, the process-scoped prototype
// registry keyed by event type (spec §4.5): it stores a type-level
// prototype tree per event type plus optional per-instance overrides, and
// assembles an effective tree for each event by cloning and merging them.
//
// Grounded on the teacher's agent.Registry: a mutex-guarded pair of maps
// (here, prototypes and instance overrides instead of configs and lazily
// instantiated agents), the same register/replace/unregister surface, and
// the same fmt.Errorf("%w: ...", sentinel) wrapping for not-found errors.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arborlane/evtree/builder"
	"github.com/arborlane/evtree/config"
	"github.com/arborlane/evtree/handler"
	"github.com/arborlane/evtree/layer"
	"github.com/arborlane/evtree/node"
	"github.com/arborlane/evtree/observability"
	"github.com/arborlane/evtree/phase"
	"github.com/arborlane/evtree/status"
)

const eventContextAssembled observability.EventType = "registry.context_assembled"

// ErrTypeNotRegistered is returned by GetContext and Unregister when no
// type-level prototype has been registered for the requested event type.
var ErrTypeNotRegistered = fmt.Errorf("registry: event type not registered")

// ErrTypeAlreadyRegistered is returned by Register when the event type
// already has a prototype; call Replace (or Unregister first) to change it.
var ErrTypeAlreadyRegistered = fmt.Errorf("registry: event type already registered")

// instanceKey identifies a per-instance override (spec §4.5's
// "(type, instanceID)→PrototypeRoot").
type instanceKey struct {
	eventType  string
	instanceID string
}

// ContextManager is the process-scoped registry described in spec §4.5.
// Safe for concurrent use.
type ContextManager struct {
	mu         sync.RWMutex
	prototypes map[string]node.Node
	instances  map[instanceKey]node.Node

	observer             observability.Observer
	defaultMaxExecutions int
}

// New constructs an empty ContextManager with a NoOpObserver. Use
// NewFromConfig to resolve a named observer and a default handler
// execution cap from a config.ManagerConfig instead.
func New() *ContextManager {
	return &ContextManager{
		prototypes: make(map[string]node.Node),
		instances:  make(map[instanceKey]node.Node),
		observer:   observability.NoOpObserver{},
	}
}

// NewFromConfig constructs a ContextManager from cfg, resolving
// cfg.Observer through the observability registry for the manager's own
// registry.context_assembled events and storing cfg.DefaultMaxExecutions
// for NewHandler to apply.
func NewFromConfig(cfg config.ManagerConfig) (*ContextManager, error) {
	observer, err := cfg.ResolveObserver()
	if err != nil {
		return nil, err
	}
	m := New()
	m.observer = observer
	m.defaultMaxExecutions = cfg.DefaultMaxExecutions
	return m, nil
}

// NewHandler starts a builder.HandlerBuilder for fn, pre-seeded with this
// manager's configured DefaultMaxExecutions (config.ManagerConfig),
// unless DefaultMaxExecutions is 0 (unbounded). A caller may still
// override the cap with a further MaxExecutions call on the returned
// builder before calling Build.
func (m *ContextManager) NewHandler(id string, fn handler.Func) *builder.HandlerBuilder {
	b := builder.Handler(id, fn)
	if m.defaultMaxExecutions > 0 {
		b = b.MaxExecutions(m.defaultMaxExecutions)
	}
	return b
}

// Register stores tree as the type-level prototype for eventType. Returns
// ErrTypeAlreadyRegistered if one is already registered; use Replace to
// overwrite deliberately.
func (m *ContextManager) Register(eventType string, tree node.Node) error {
	if eventType == "" {
		return fmt.Errorf("registry: event type must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.prototypes[eventType]; exists {
		return fmt.Errorf("%w: %s", ErrTypeAlreadyRegistered, eventType)
	}
	m.prototypes[eventType] = tree
	return nil
}

// Replace overwrites the type-level prototype for eventType, registering it
// if not already present.
func (m *ContextManager) Replace(eventType string, tree node.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prototypes[eventType] = tree
}

// RegisterForInstance stores tree as an override prototype scoped to
// (eventType, instanceID), applied on top of the type-level prototype by
// GetContext (spec §4.5 step 2).
func (m *ContextManager) RegisterForInstance(eventType, instanceID string, tree node.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[instanceKey{eventType, instanceID}] = tree
}

// Unregister removes the type-level prototype (and, if instanceID is
// non-empty, the matching instance override instead of the type
// prototype) for eventType.
func (m *ContextManager) Unregister(eventType, instanceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if instanceID != "" {
		delete(m.instances, instanceKey{eventType, instanceID})
		return nil
	}

	if _, exists := m.prototypes[eventType]; !exists {
		return fmt.Errorf("%w: %s", ErrTypeNotRegistered, eventType)
	}
	delete(m.prototypes, eventType)
	return nil
}

// GetContext assembles the effective tree for eventType (spec §4.5):
//  1. clone the type-level prototype;
//  2. if an instance override is registered for instanceID, clone it and
//     merge it into the type clone, override-wins on conflict;
//  3. if eventScoped is non-nil, clone it and merge it in the same way.
//
// instanceID may be empty to skip step 2. eventScoped may be nil to skip
// step 3.
func (m *ContextManager) GetContext(ctx context.Context, eventType, instanceID string, eventScoped node.Node) (node.Node, error) {
	m.mu.RLock()
	prototype, ok := m.prototypes[eventType]
	var override node.Node
	if instanceID != "" {
		override = m.instances[instanceKey{eventType, instanceID}]
	}
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotRegistered, eventType)
	}

	effective := prototype.Clone()

	if override != nil {
		effective = mergeRoot(effective, override.Clone())
	}
	if eventScoped != nil {
		effective = mergeRoot(effective, eventScoped.Clone())
	}

	m.emit(ctx, eventContextAssembled, map[string]any{
		"eventType":      eventType,
		"instanceID":     instanceID,
		"hasOverride":    override != nil,
		"hasEventScoped": eventScoped != nil,
	})

	return effective, nil
}

func (m *ContextManager) emit(ctx context.Context, eventType observability.EventType, data map[string]any) {
	m.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "registry.ContextManager",
		Data:      data,
	})
}

// mergeRoot implements spec §4.5 steps 2/3: splice override into target,
// which is always the type clone (or the result of the previous merge
// step) and so is expected to be phase-shaped. A bare override (a single
// layer or handler node rather than a phase.Tree) is inserted as an
// additional child of the EXECUTE phase by default; a phase-shaped
// override is merged slot by slot.
func mergeRoot(target, override node.Node) node.Node {
	targetTree, targetIsTree := target.(*phase.Tree)

	if overrideTree, ok := override.(*phase.Tree); ok {
		if !targetIsTree {
			// Target has no phase structure of its own; the override's
			// phase structure wins outright.
			return overrideTree
		}
		for _, p := range status.Phases() {
			overrideSlot, present := overrideTree.Slot(p)
			if !present {
				continue
			}
			if existingSlot, exists := targetTree.Slot(p); exists {
				targetTree.SetSlot(p, mergeChildren(existingSlot, overrideSlot))
			} else {
				targetTree.SetSlot(p, overrideSlot)
			}
		}
		return targetTree
	}

	// Bare, phase-less override: default to EXECUTE (spec §4.5).
	if !targetIsTree {
		return mergeChildren(target, override)
	}
	executeSlot, exists := targetTree.Slot(status.Execute)
	if !exists {
		executeSlot = layer.NewSequence("EXECUTE", status.Normal, 0, false, nil)
		targetTree.SetSlot(status.Execute, executeSlot)
	}
	composite, ok := executeSlot.(node.Composite)
	if !ok {
		// A leaf EXECUTE root becomes the first child of a new EXECUTE
		// sequence so the override can sit beside it.
		wrapper := layer.NewSequence("EXECUTE", status.Normal, 0, false, nil)
		wrapper.ReplaceChild(executeSlot)
		targetTree.SetSlot(status.Execute, wrapper)
		composite = wrapper
	}
	composite.ReplaceChild(override)
	return targetTree
}

// mergeChildren walks target and override in lockstep: where both are
// Composite, every override child is recursively merged into (or inserted
// as) the target child sharing its NodeID. Anywhere the shapes diverge —
// a leaf facing a composite, or two incompatible node kinds — the override
// replaces the target wholesale, since override-wins is the rule at every
// level (spec §4.5).
func mergeChildren(target, override node.Node) node.Node {
	targetComposite, targetOK := target.(node.Composite)
	overrideComposite, overrideOK := override.(node.Composite)
	if !targetOK || !overrideOK {
		return override
	}

	for _, child := range overrideComposite.Children() {
		if existing, found := targetComposite.Child(child.ID()); found {
			targetComposite.ReplaceChild(mergeChildren(existing, child))
		} else {
			targetComposite.ReplaceChild(child)
		}
	}
	return targetComposite
}
