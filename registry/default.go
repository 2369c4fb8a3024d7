package registry

import "sync"

var (
	defaultOnce    sync.Once
	defaultManager *ContextManager
)

// DefaultManager returns a lazily-constructed, process-wide ContextManager
// (spec's Design Notes: "a default instance is permitted for convenience
// but all APIs accept an explicit manager"). Every caller that does not
// hold its own ContextManager can share this one; nothing on ContextManager
// or BoundEvent requires it.
func DefaultManager() *ContextManager {
	defaultOnce.Do(func() {
		defaultManager = New()
	})
	return defaultManager
}
