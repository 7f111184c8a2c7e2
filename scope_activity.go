package riverpod

import (
	"context"

	"github.com/Safius-Sifat/riverpod/pkg/activity"
)

// record logs a cell transition and, when hooks are configured, emits the
// matching activity event. Hook failures are logged and never fail the
// operation that triggered them.
func (s *Scope) record(kind LifecycleKind, el element, err error) {
	event := LifecycleEvent{
		Kind:       kind,
		Provider:   el.originName(),
		ProviderID: el.key(),
		Source:     el.source().Name(),
		ScopeID:    s.id,
		Scope:      s.name,
		Err:        err,
	}
	s.logger.LogLifecycle(event)
	s.emit(event)
}

func (s *Scope) recordOverride(kind LifecycleKind, ov Override) {
	event := LifecycleEvent{
		Kind:       kind,
		Provider:   ov.origin.Name(),
		ProviderID: ov.origin.ID(),
		Source:     ov.replacement.Name(),
		ScopeID:    s.id,
		Scope:      s.name,
	}
	s.logger.LogLifecycle(event)
	s.emit(event)
}

func (s *Scope) emit(event LifecycleEvent) {
	if !s.emitter.Enabled() {
		return
	}

	input := activity.ProviderEventInput{
		Provider:   event.Provider,
		ProviderID: event.ProviderID,
		Source:     event.Source,
		Scope: activity.ScopeContext{
			ID:       s.id,
			Name:     s.name,
			Label:    s.label,
			Metadata: s.metadata,
		},
		Err: event.Err,
	}

	var built activity.Event
	switch event.Kind {
	case LifecycleCreated:
		built = activity.BuildProviderCreatedEvent(input)
	case LifecycleUpdated:
		built = activity.BuildProviderUpdatedEvent(input)
	case LifecycleDisposed:
		built = activity.BuildProviderDisposedEvent(input)
	case LifecycleOverrideAdded:
		built = activity.BuildOverrideAddedEvent(input)
	case LifecycleOverrideRemoved:
		built = activity.BuildOverrideRemovedEvent(input)
	default:
		return
	}

	if err := s.emitter.Emit(context.Background(), built); err != nil {
		s.logger.LogLifecycle(LifecycleEvent{
			Kind:       LifecycleActivityFailed,
			Provider:   event.Provider,
			ProviderID: event.ProviderID,
			ScopeID:    s.id,
			Scope:      s.name,
			Err:        err,
		})
	}
}
