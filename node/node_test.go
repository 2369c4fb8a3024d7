package node_test

import (
	"testing"

	"github.com/arborlane/evtree/event"
	"github.com/arborlane/evtree/node"
	"github.com/arborlane/evtree/status"
)

func TestBaseNode_ResolveTerminal_AppliesInverterExceptOnWaiting(t *testing.T) {
	tests := []struct {
		name    string
		inv     bool
		raw     status.NodeStatus
		want    status.NodeStatus
	}{
		{"no inverter success", false, status.Success, status.Success},
		{"inverter flips success to failure", true, status.Success, status.Failure},
		{"inverter flips failure to success", true, status.Failure, status.Success},
		{"inverter never flips waiting", true, status.Waiting, status.Waiting},
		{"inverter never flips cancelled", true, status.Cancelled, status.Cancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := node.NewBase("n", status.Normal, 0, tt.inv)
			got := b.ResolveTerminal(tt.raw)
			if got != tt.want {
				t.Errorf("ResolveTerminal(%v) = %v, want %v", tt.raw, got, tt.want)
			}
			if b.Status() != tt.want {
				t.Errorf("Status() = %v, want %v", b.Status(), tt.want)
			}
		})
	}
}

func TestBaseNode_Clone_ResetsStatus(t *testing.T) {
	b := node.NewBase("n", status.High, 2, false)
	b.ResolveTerminal(status.Success)

	clone := b.CloneBase()
	if clone.Status() != status.Unknown {
		t.Errorf("CloneBase() status = %v, want UNKNOWN", clone.Status())
	}
	if clone.ID() != "n" || clone.Priority() != status.High || clone.Order() != 2 {
		t.Error("CloneBase() should preserve id/priority/order")
	}
}

func TestEvaluate_EmptyChainIsVacuouslyTrue(t *testing.T) {
	if !node.Evaluate(nil, event.New(), nil) {
		t.Fatal("empty condition chain should be vacuously true")
	}
}

func TestEvaluate_AllMustPass(t *testing.T) {
	always := func(event.Event, node.Node) bool { return true }
	never := func(event.Event, node.Node) bool { return false }

	if !node.Evaluate([]node.Condition{always, always}, event.New(), nil) {
		t.Error("all-true chain should be eligible")
	}
	if node.Evaluate([]node.Condition{always, never}, event.New(), nil) {
		t.Error("any-false chain should not be eligible")
	}
}

func TestEvaluate_PanicTreatedAsFalse(t *testing.T) {
	panicky := func(event.Event, node.Node) bool { panic("boom") }
	if node.Evaluate([]node.Condition{panicky}, event.New(), nil) {
		t.Fatal("a panicking condition should be treated as false")
	}
}

func TestAndOrNot(t *testing.T) {
	yes := func(event.Event, node.Node) bool { return true }
	no := func(event.Event, node.Node) bool { return false }

	if !node.And(yes, yes)(event.New(), nil) {
		t.Error("And(true, true) should be true")
	}
	if node.And(yes, no)(event.New(), nil) {
		t.Error("And(true, false) should be false")
	}
	if !node.Or(no, yes)(event.New(), nil) {
		t.Error("Or(false, true) should be true")
	}
	if !node.Not(no)(event.New(), nil) {
		t.Error("Not(false) should be true")
	}
}

func TestDataKeyConditions(t *testing.T) {
	ev := event.New().Set("status", "approved")

	if !node.DataKeyExists("status")(ev, nil) {
		t.Error("DataKeyExists should find the key")
	}
	if node.DataKeyExists("missing")(ev, nil) {
		t.Error("DataKeyExists should not find a missing key")
	}
	if !node.DataKeyEquals("status", "approved")(ev, nil) {
		t.Error("DataKeyEquals should match the value")
	}
	if node.DataKeyEquals("status", "rejected")(ev, nil) {
		t.Error("DataKeyEquals should not match a different value")
	}
}

func TestSplitJoinHeadTail(t *testing.T) {
	if got := node.SplitPath("a.b.c"); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("SplitPath = %v", got)
	}
	if got := node.JoinPath("a", "b", "c"); got != "a.b.c" {
		t.Errorf("JoinPath = %q, want a.b.c", got)
	}

	head, tail := node.HeadTail("a.b.c")
	if head != "a" || tail != "b.c" {
		t.Errorf("HeadTail = %q, %q, want a, b.c", head, tail)
	}

	head, tail = node.HeadTail("a")
	if head != "a" || tail != "" {
		t.Errorf("HeadTail(bare) = %q, %q, want a, \"\"", head, tail)
	}
}
