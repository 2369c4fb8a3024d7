// Package config provides plain configuration structs for the registry and
// process packages: named-string fields (resolved against a registry at
// point of use, never at load time) and a Merge method per type so a
// loaded, partial config can be layered over a Default one.
//
// Grounded on orchestrate/config.GraphConfig/CheckpointConfig: the same
// "zero/empty source fields leave the destination untouched" merge rule,
// the same Observer string field resolved through a runtime registry
// rather than imported directly, and the same DefaultXxxConfig() naming.
package config

import (
	"fmt"

	"github.com/arborlane/evtree/observability"
)

// ManagerConfig configures a registry.ContextManager at construction time
// via registry.NewFromConfig: the observer its GetContext calls emit
// context-assembly events through, and the default cap new handler
// prototypes get when built through the manager.
type ManagerConfig struct {
	// Name identifies this manager instance for observability.
	Name string `json:"name"`

	// Observer names a registered observability.Observer ("noop", "slog",
	// "zerolog", or a caller-registered name) the manager emits its own
	// registry.context_assembled events through. A ProcessContext driving
	// a GetContext result does not inherit it; it takes its own observer.
	Observer string `json:"observer"`

	// DefaultMaxExecutions caps how many times a handler built through
	// ContextManager.NewHandler may run across its template's clones,
	// unless a caller overrides it with a further MaxExecutions call on
	// the returned builder (0 = unbounded, spec §4.1/§A.3).
	DefaultMaxExecutions int `json:"default_max_executions"`
}

// DefaultManagerConfig returns a ManagerConfig with sensible defaults:
// named "default", logging through the standard library slog.Default()
// via the pre-registered "slog" observer, and no cap on handler
// executions.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Name:                 "default",
		Observer:             "slog",
		DefaultMaxExecutions: 0,
	}
}

// Merge overlays non-empty/non-zero fields from source onto c.
func (c *ManagerConfig) Merge(source *ManagerConfig) {
	if source.Name != "" {
		c.Name = source.Name
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.DefaultMaxExecutions > 0 {
		c.DefaultMaxExecutions = source.DefaultMaxExecutions
	}
}

// ResolveObserver looks up c.Observer in the observability registry.
func (c *ManagerConfig) ResolveObserver() (observability.Observer, error) {
	obs, err := observability.GetObserver(c.Observer)
	if err != nil {
		return nil, fmt.Errorf("config: resolving manager %q observer: %w", c.Name, err)
	}
	return obs, nil
}

// ProcessConfig configures a single process.ProcessContext.
type ProcessConfig struct {
	// Observer names a registered observability.Observer for this
	// ProcessContext's process.start/process.waiting/process.terminal/
	// process.control events.
	Observer string `json:"observer"`

	// MaxResumeTargets caps how many NodeIDs a single Resume or Fail call
	// may target at once (0 = unbounded). Hosts exposing Resume/Fail over
	// an untrusted transport can use this to bound the work one control
	// call can fan out to.
	MaxResumeTargets int `json:"max_resume_targets"`
}

// DefaultProcessConfig returns a ProcessConfig with sensible defaults: the
// pre-registered "noop" observer (process-level observability is opt-in,
// unlike the manager's) and no cap on Resume/Fail fan-out.
func DefaultProcessConfig() ProcessConfig {
	return ProcessConfig{
		Observer:         "noop",
		MaxResumeTargets: 0,
	}
}

// Merge overlays non-empty/non-zero fields from source onto c.
func (c *ProcessConfig) Merge(source *ProcessConfig) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.MaxResumeTargets > 0 {
		c.MaxResumeTargets = source.MaxResumeTargets
	}
}

// ResolveObserver looks up c.Observer in the observability registry.
func (c *ProcessConfig) ResolveObserver() (observability.Observer, error) {
	obs, err := observability.GetObserver(c.Observer)
	if err != nil {
		return nil, fmt.Errorf("config: resolving process observer: %w", err)
	}
	return obs, nil
}
