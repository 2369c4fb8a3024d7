package phase_test

import (
	"context"
	"testing"

	"github.com/arborlane/evtree/event"
	"github.com/arborlane/evtree/handler"
	"github.com/arborlane/evtree/layer"
	"github.com/arborlane/evtree/node"
	"github.com/arborlane/evtree/phase"
	"github.com/arborlane/evtree/status"
)

func leaf(id string, order int, result status.HandlerResult) *handler.HandlerNode {
	return handler.New(id, status.Normal, order, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
		return ev, result
	})
}

func TestTree_StraightPathSetsPhaseBitsAndSucceeds(t *testing.T) {
	a := leaf("a", 0, status.Done)
	b := leaf("b", 1, status.Done)
	execute := layer.NewSequence("execute", status.Normal, 0, false, nil)
	if err := execute.AddChild(a); err != nil {
		t.Fatal(err)
	}
	if err := execute.AddChild(b); err != nil {
		t.Fatal(err)
	}
	success := leaf("onSuccess", 0, status.Done)

	tree := phase.NewTree("root", map[status.Phase]node.Node{
		status.Execute:      execute,
		status.SuccessPhase: success,
	}, nil)

	ev, s, err := tree.Process(context.Background(), event.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != status.Success {
		t.Fatalf("status = %v, want SUCCESS", s)
	}
	if a.ExecutionCount() != 1 || b.ExecutionCount() != 1 {
		t.Errorf("ExecutionCount a=%d b=%d, want 1 each", a.ExecutionCount(), b.ExecutionCount())
	}

	want := status.Validate.Bit() | status.Prepare.Bit() | status.Execute.Bit() | status.SuccessPhase.Bit() | status.Complete.Bit()
	if ev.CompletedPhases != want {
		t.Errorf("CompletedPhases = %08b, want %08b", ev.CompletedPhases, want)
	}
	if !ev.IsCompleted {
		t.Error("expected IsCompleted=true")
	}
}

func TestTree_FailureRoutesToFailurePhase(t *testing.T) {
	execute := layer.NewSequence("execute", status.Normal, 0, false, nil)
	if err := execute.AddChild(leaf("a", 0, status.Fail)); err != nil {
		t.Fatal(err)
	}

	successRan := false
	success := handler.New("onSuccess", status.Normal, 0, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
		successRan = true
		return ev, status.Done
	})
	failureRan := false
	failure := handler.New("onFailure", status.Normal, 0, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
		failureRan = true
		return ev, status.Done
	})
	completeRan := false
	complete := handler.New("onComplete", status.Normal, 0, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
		completeRan = true
		return ev, status.Done
	})

	tree := phase.NewTree("root", map[status.Phase]node.Node{
		status.Execute:      execute,
		status.SuccessPhase: success,
		status.FailurePhase: failure,
		status.Complete:     complete,
	}, nil)

	ev, s, _ := tree.Process(context.Background(), event.New())
	if s != status.Failure {
		t.Fatalf("status = %v, want FAILURE", s)
	}
	if !ev.HasFailures {
		t.Error("expected HasFailures=true")
	}
	if successRan {
		t.Error("SUCCESS phase should not have run")
	}
	if !failureRan {
		t.Error("FAILURE phase should have run")
	}
	if !completeRan {
		t.Error("COMPLETE phase should always run")
	}
}

func TestTree_SuspensionAndResume(t *testing.T) {
	tailRan := false
	execute := layer.NewSequence("execute", status.Normal, 0, false, nil)
	if err := execute.AddChild(handler.New("a", status.Normal, 0, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
		return ev, status.Wait
	})); err != nil {
		t.Fatal(err)
	}
	if err := execute.AddChild(handler.New("b", status.Normal, 1, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
		tailRan = true
		return ev, status.Done
	})); err != nil {
		t.Fatal(err)
	}

	tree := phase.NewTree("root", map[status.Phase]node.Node{
		status.Execute: execute,
	}, nil)

	_, s, _ := tree.Process(context.Background(), event.New())
	if s != status.Waiting {
		t.Fatalf("status = %v, want WAITING", s)
	}
	if tailRan {
		t.Fatal("b should not have run yet")
	}

	_, s = tree.Resume(context.Background(), event.New(), []string{"a"})
	if s != status.Success {
		t.Fatalf("Resume() = %v, want SUCCESS", s)
	}
	if !tailRan {
		t.Error("b should have run after resume")
	}
}

func TestTree_CancelSkipsOutcomeRunsCancelAndComplete(t *testing.T) {
	execute := layer.NewSequence("execute", status.Normal, 0, false, nil)
	if err := execute.AddChild(leaf("a", 0, status.Done)); err != nil {
		t.Fatal(err)
	}

	successRan := false
	success := handler.New("onSuccess", status.Normal, 0, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
		successRan = true
		return ev, status.Done
	})
	cancelRan := false
	cancelSlot := handler.New("onCancel", status.Normal, 0, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
		cancelRan = true
		return ev, status.Done
	})
	completeRan := false
	complete := handler.New("onComplete", status.Normal, 0, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
		completeRan = true
		return ev, status.Done
	})

	tree := phase.NewTree("root", map[status.Phase]node.Node{
		status.Execute:      execute,
		status.SuccessPhase: success,
		status.CancelPhase:  cancelSlot,
		status.Complete:     complete,
	}, nil)

	ev, s := tree.Cancel(context.Background(), event.New())
	if s != status.Cancelled {
		t.Fatalf("status = %v, want CANCELLED", s)
	}
	if !ev.IsCancelled {
		t.Error("expected IsCancelled=true")
	}
	if successRan {
		t.Error("SUCCESS phase should be skipped on cancellation")
	}
	if !cancelRan {
		t.Error("CANCEL phase should have run")
	}
	if !completeRan {
		t.Error("COMPLETE phase should always run, even after cancellation")
	}
}
