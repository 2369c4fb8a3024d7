package node

import "github.com/arborlane/evtree/event"

// Condition gates whether a node is eligible to process ev. All conditions
// in a chain must return true for the node to be eligible; an empty chain
// is vacuously true (spec §3).
type Condition func(ev event.Event, n Node) bool

// Evaluate runs every condition in chain against (ev, n), short-circuiting
// on the first false result. A panicking condition is caught and treated
// as false, matching spec §7's "Condition exceptions: treat the condition
// as false (the node is skipped)".
func Evaluate(chain []Condition, ev event.Event, n Node) (result bool) {
	result = true
	for _, c := range chain {
		if !evaluateOne(c, ev, n) {
			return false
		}
	}
	return result
}

func evaluateOne(c Condition, ev event.Event, n Node) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return c(ev, n)
}

// Not inverts a condition.
func Not(c Condition) Condition {
	return func(ev event.Event, n Node) bool { return !c(ev, n) }
}

// And combines conditions with logical AND (all must be true).
//
// Grounded on orchestrate/state/edge.go's And(predicates ...TransitionPredicate).
func And(conditions ...Condition) Condition {
	return func(ev event.Event, n Node) bool {
		return Evaluate(conditions, ev, n)
	}
}

// Or combines conditions with logical OR (at least one must be true).
//
// Grounded on orchestrate/state/edge.go's Or(predicates ...TransitionPredicate).
func Or(conditions ...Condition) Condition {
	return func(ev event.Event, n Node) bool {
		for _, c := range conditions {
			if evaluateOne(c, ev, n) {
				return true
			}
		}
		return false
	}
}

// DataKeyExists returns a condition checking that key exists in ev's data bag.
//
// Grounded on orchestrate/state/edge.go's KeyExists(key string).
func DataKeyExists(key string) Condition {
	return func(ev event.Event, n Node) bool {
		_, exists := ev.Get(key)
		return exists
	}
}

// DataKeyEquals returns a condition checking that ev's data bag has key set
// to value.
//
// Grounded on orchestrate/state/edge.go's KeyEquals(key string, value any).
func DataKeyEquals(key string, value any) Condition {
	return func(ev event.Event, n Node) bool {
		v, exists := ev.Get(key)
		return exists && v == value
	}
}
