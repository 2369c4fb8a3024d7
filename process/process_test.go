package process_test

import (
	"context"
	"errors"
	"testing"

	"github.com/arborlane/evtree/config"
	"github.com/arborlane/evtree/event"
	"github.com/arborlane/evtree/handler"
	"github.com/arborlane/evtree/layer"
	"github.com/arborlane/evtree/node"
	"github.com/arborlane/evtree/process"
	"github.com/arborlane/evtree/status"
)

func leaf(id string, order int, result status.HandlerResult) *handler.HandlerNode {
	return handler.New(id, status.Normal, order, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
		return ev, result
	})
}

func TestProcessContext_StraightPathSucceeds(t *testing.T) {
	seq := layer.NewSequence("seq", status.Normal, 0, false, nil)
	if err := seq.AddChild(leaf("a", 0, status.Done)); err != nil {
		t.Fatal(err)
	}

	pc := process.New(seq, nil)
	s, err := pc.Process(context.Background(), event.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != status.Success {
		t.Errorf("Process() = %v, want SUCCESS", s)
	}
	if pc.LastResult() != status.Success {
		t.Errorf("LastResult() = %v, want SUCCESS", pc.LastResult())
	}
}

func TestProcessContext_SecondProcessCallIsRejected(t *testing.T) {
	seq := layer.NewSequence("seq", status.Normal, 0, false, nil)
	if err := seq.AddChild(leaf("a", 0, status.Done)); err != nil {
		t.Fatal(err)
	}

	pc := process.New(seq, nil)
	if _, err := pc.Process(context.Background(), event.New()); err != nil {
		t.Fatalf("first Process: unexpected error: %v", err)
	}

	_, err := pc.Process(context.Background(), event.New())
	if !errors.Is(err, process.ErrAlreadyProcessed) {
		t.Errorf("second Process() error = %v, want ErrAlreadyProcessed", err)
	}
}

func TestProcessContext_ReprocessingAfterCancelIsRejectedSpecifically(t *testing.T) {
	seq := layer.NewSequence("seq", status.Normal, 0, false, nil)
	if err := seq.AddChild(handler.New("w", status.Normal, 0, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
		return ev, status.Wait
	})); err != nil {
		t.Fatal(err)
	}

	pc := process.New(seq, nil)
	if _, err := pc.Process(context.Background(), event.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := pc.Cancel(context.Background()); err != nil {
		t.Fatalf("Cancel: unexpected error: %v", err)
	}

	_, err := pc.Process(context.Background(), event.New())
	if !errors.Is(err, process.ErrAlreadyCancelled) {
		t.Errorf("Process() after Cancel error = %v, want ErrAlreadyCancelled", err)
	}
}

func TestProcessContext_ControlBeforeProcessIsRejected(t *testing.T) {
	seq := layer.NewSequence("seq", status.Normal, 0, false, nil)
	pc := process.New(seq, nil)

	if _, err := pc.Resume(context.Background(), nil); !errors.Is(err, process.ErrNotProcessed) {
		t.Errorf("Resume() before Process error = %v, want ErrNotProcessed", err)
	}
	if _, err := pc.Fail(context.Background(), nil); !errors.Is(err, process.ErrNotProcessed) {
		t.Errorf("Fail() before Process error = %v, want ErrNotProcessed", err)
	}
	if _, err := pc.Cancel(context.Background()); !errors.Is(err, process.ErrNotProcessed) {
		t.Errorf("Cancel() before Process error = %v, want ErrNotProcessed", err)
	}
}

func TestProcessContext_SuspensionResumeAndFail(t *testing.T) {
	waiter := func(id string, order int) *handler.HandlerNode {
		return handler.New(id, status.Normal, order, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
			return ev, status.Wait
		})
	}

	t.Run("resume", func(t *testing.T) {
		tailRan := false
		seq := layer.NewSequence("seq", status.Normal, 0, false, nil)
		if err := seq.AddChild(waiter("a", 0)); err != nil {
			t.Fatal(err)
		}
		if err := seq.AddChild(handler.New("b", status.Normal, 1, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
			tailRan = true
			return ev, status.Done
		})); err != nil {
			t.Fatal(err)
		}

		pc := process.New(seq, nil)
		s, err := pc.Process(context.Background(), event.New())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s != status.Waiting {
			t.Fatalf("Process() = %v, want WAITING", s)
		}

		s, err = pc.Resume(context.Background(), []string{"a"})
		if err != nil {
			t.Fatalf("Resume: unexpected error: %v", err)
		}
		if s != status.Success {
			t.Errorf("Resume() = %v, want SUCCESS", s)
		}
		if !tailRan {
			t.Error("tail handler should have run after Resume")
		}
	})

	t.Run("fail", func(t *testing.T) {
		tailRan := false
		seq := layer.NewSequence("seq", status.Normal, 0, false, nil)
		if err := seq.AddChild(waiter("a", 0)); err != nil {
			t.Fatal(err)
		}
		if err := seq.AddChild(handler.New("b", status.Normal, 1, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
			tailRan = true
			return ev, status.Done
		})); err != nil {
			t.Fatal(err)
		}

		pc := process.New(seq, nil)
		if _, err := pc.Process(context.Background(), event.New()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		s, err := pc.Fail(context.Background(), []string{"a"})
		if err != nil {
			t.Fatalf("Fail: unexpected error: %v", err)
		}
		if s != status.Failure {
			t.Errorf("Fail() = %v, want FAILURE", s)
		}
		if tailRan {
			t.Error("tail handler should never run once the sequence failed")
		}
		if !pc.Event().HasFailures {
			t.Error("expected HasFailures=true")
		}
	})
}

func TestProcessContext_CancelMarksEventAndIsTerminal(t *testing.T) {
	seq := layer.NewSequence("seq", status.Normal, 0, false, nil)
	if err := seq.AddChild(leaf("a", 0, status.Done)); err != nil {
		t.Fatal(err)
	}

	pc := process.New(seq, nil)
	if _, err := pc.Process(context.Background(), event.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, err := pc.Cancel(context.Background())
	if err != nil {
		t.Fatalf("Cancel: unexpected error: %v", err)
	}
	if s != status.Cancelled {
		t.Errorf("Cancel() = %v, want CANCELLED", s)
	}
	if !pc.Event().IsCancelled {
		t.Error("expected IsCancelled=true")
	}
}

func TestProcessContext_NewFromConfigEnforcesMaxResumeTargets(t *testing.T) {
	wa := handler.New("wa", status.Normal, 0, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
		return ev, status.Wait
	})
	wb := handler.New("wb", status.Normal, 1, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
		return ev, status.Wait
	})
	par := layer.NewParallel("par", status.Normal, 0, false, 2, 0, nil)
	if err := par.AddChild(wa); err != nil {
		t.Fatal(err)
	}
	if err := par.AddChild(wb); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultProcessConfig()
	cfg.MaxResumeTargets = 1
	pc, err := process.NewFromConfig(par, cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: unexpected error: %v", err)
	}
	if _, err := pc.Process(context.Background(), event.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = pc.Resume(context.Background(), []string{"wa", "wb"})
	if !errors.Is(err, process.ErrTooManyResumeTargets) {
		t.Errorf("Resume with 2 targets and MaxResumeTargets=1 error = %v, want ErrTooManyResumeTargets", err)
	}

	s, err := pc.Resume(context.Background(), []string{"wa"})
	if err != nil {
		t.Fatalf("Resume within the cap: unexpected error: %v", err)
	}
	if s != status.Waiting {
		t.Errorf("Resume(wa) = %v, want WAITING (wb still pending)", s)
	}
}

func TestProcessContext_ConcurrentResumeCallsAreSerialized(t *testing.T) {
	wa := handler.New("wa", status.Normal, 0, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
		return ev, status.Wait
	})
	wb := handler.New("wb", status.Normal, 1, false, nil, func(ctx context.Context, ev event.Event, self node.Node) (event.Event, status.HandlerResult) {
		return ev, status.Wait
	})
	par := layer.NewParallel("par", status.Normal, 0, false, 2, 0, nil)
	if err := par.AddChild(wa); err != nil {
		t.Fatal(err)
	}
	if err := par.AddChild(wb); err != nil {
		t.Fatal(err)
	}

	pc := process.New(par, nil)
	if _, err := pc.Process(context.Background(), event.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan status.NodeStatus, 2)
	go func() {
		s, _ := pc.Resume(context.Background(), []string{"wa"})
		done <- s
	}()
	go func() {
		s, _ := pc.Resume(context.Background(), []string{"wb"})
		done <- s
	}()

	first, second := <-done, <-done
	if first != status.Waiting && first != status.Success {
		t.Errorf("unexpected first result: %v", first)
	}
	if second != status.Waiting && second != status.Success {
		t.Errorf("unexpected second result: %v", second)
	}
	if pc.LastResult() != status.Success {
		t.Errorf("LastResult() = %v, want SUCCESS once both resumed", pc.LastResult())
	}
}
