package status_test

import (
	"testing"

	"github.com/arborlane/evtree/status"
)

func TestNodeStatus_Terminal(t *testing.T) {
	tests := []struct {
		name string
		s    status.NodeStatus
		want bool
	}{
		{"unknown is not terminal", status.Unknown, false},
		{"waiting is not terminal", status.Waiting, false},
		{"success is terminal", status.Success, true},
		{"failure is terminal", status.Failure, true},
		{"cancelled is terminal", status.Cancelled, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Terminal(); got != tt.want {
				t.Errorf("%v.Terminal() = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}

func TestInvert(t *testing.T) {
	tests := []struct {
		name string
		in   status.NodeStatus
		want status.NodeStatus
	}{
		{"success flips to failure", status.Success, status.Failure},
		{"failure flips to success", status.Failure, status.Success},
		{"cancelled passes through", status.Cancelled, status.Cancelled},
		{"waiting passes through", status.Waiting, status.Waiting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.Invert(tt.in); got != tt.want {
				t.Errorf("Invert(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPriority_Ordering(t *testing.T) {
	if !(status.Critical > status.High && status.High > status.Normal &&
		status.Normal > status.Low && status.Low > status.Background) {
		t.Fatal("priority ordering must be CRITICAL > HIGH > NORMAL > LOW > BACKGROUND")
	}
}

func TestHandlerResult_ToNodeStatus(t *testing.T) {
	tests := []struct {
		r    status.HandlerResult
		want status.NodeStatus
	}{
		{status.Done, status.Success},
		{status.Fail, status.Failure},
		{status.Cancel, status.Cancelled},
		{status.Wait, status.Waiting},
	}
	for _, tt := range tests {
		t.Run(tt.r.String(), func(t *testing.T) {
			if got := tt.r.ToNodeStatus(); got != tt.want {
				t.Errorf("%v.ToNodeStatus() = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}
