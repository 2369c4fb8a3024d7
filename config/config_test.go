package config_test

import (
	"testing"

	"github.com/arborlane/evtree/config"
)

func TestManagerConfig_MergeOverlaysNonEmptyFields(t *testing.T) {
	base := config.DefaultManagerConfig()
	override := config.ManagerConfig{Observer: "zerolog"}

	base.Merge(&override)

	if base.Name != "default" {
		t.Errorf("Name = %q, want unchanged %q", base.Name, "default")
	}
	if base.Observer != "zerolog" {
		t.Errorf("Observer = %q, want %q", base.Observer, "zerolog")
	}
}

func TestManagerConfig_ResolveObserverUnknownNameErrors(t *testing.T) {
	cfg := config.ManagerConfig{Name: "m", Observer: "does-not-exist"}
	if _, err := cfg.ResolveObserver(); err == nil {
		t.Error("expected an error resolving an unregistered observer name")
	}
}

func TestManagerConfig_ResolveObserverKnownName(t *testing.T) {
	cfg := config.DefaultManagerConfig()
	obs, err := cfg.ResolveObserver()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs == nil {
		t.Error("expected a non-nil observer")
	}
}

func TestProcessConfig_MergeOverlaysNonZeroFields(t *testing.T) {
	base := config.DefaultProcessConfig()
	override := config.ProcessConfig{MaxResumeTargets: 3}

	base.Merge(&override)

	if base.Observer != "noop" {
		t.Errorf("Observer = %q, want unchanged %q", base.Observer, "noop")
	}
	if base.MaxResumeTargets != 3 {
		t.Errorf("MaxResumeTargets = %d, want 3", base.MaxResumeTargets)
	}
}
