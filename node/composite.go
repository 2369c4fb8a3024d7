package node

// Composite is implemented by node shapes with an addressable set of direct
// children: the layer containers (Sequence, Selector, Parallel). The
// context manager's merge pass (spec §4.5) type-asserts a prototype or
// override root to Composite to walk both trees in lockstep and splice an
// override's children into the matching positions of a type clone.
type Composite interface {
	Node

	// Children returns the direct children, in registration order.
	Children() []Node

	// Child returns the direct child with the given NodeID, if any.
	Child(id string) (Node, bool)

	// ReplaceChild inserts child under its own NodeID, overwriting any
	// existing child sharing that ID (override-wins, spec §4.5).
	ReplaceChild(child Node)
}
