package usersink

import (
	"context"
	"maps"

	"github.com/Safius-Sifat/riverpod/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook forwards provider lifecycle events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify records the event on the sink. Events still missing an object
// after normalization are skipped.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = activity.Normalize(event, "")
	if !event.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, usertypes.ActivityRecord{
		ActorID:    identity(event.ActorID),
		TenantID:   identity(event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       maps.Clone(event.Metadata),
		OccurredAt: event.OccurredAt,
	})
}

// identity maps a caller identifier onto the sink's UUID space. Names that
// are not UUIDs get a stable name-based UUID so distinct actors stay apart.
func identity(raw string) uuid.UUID {
	if raw == "" {
		return uuid.Nil
	}
	if id, err := uuid.Parse(raw); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(raw))
}
