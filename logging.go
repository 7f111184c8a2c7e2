package riverpod

// LifecycleKind names a state transition of a cell or scope configuration.
type LifecycleKind string

const (
	LifecycleCreated         LifecycleKind = "created"
	LifecycleUpdated         LifecycleKind = "updated"
	LifecycleDisposed        LifecycleKind = "disposed"
	LifecycleOverrideAdded   LifecycleKind = "override_added"
	LifecycleOverrideRemoved LifecycleKind = "override_removed"
	LifecycleActivityFailed  LifecycleKind = "activity_failed"
)

// LifecycleEvent describes one lifecycle transition for logging.
type LifecycleEvent struct {
	Kind       LifecycleKind
	Provider   string
	ProviderID uint64
	Source     string
	ScopeID    string
	Scope      string
	Err        error
}

// LifecycleLogger records lifecycle events.
type LifecycleLogger interface {
	LogLifecycle(LifecycleEvent)
}

// LifecycleLoggerFunc adapts a function to LifecycleLogger.
type LifecycleLoggerFunc func(LifecycleEvent)

// LogLifecycle implements LifecycleLogger.
func (f LifecycleLoggerFunc) LogLifecycle(event LifecycleEvent) {
	if f != nil {
		f(event)
	}
}

type noopLifecycleLogger struct{}

func (noopLifecycleLogger) LogLifecycle(LifecycleEvent) {}
