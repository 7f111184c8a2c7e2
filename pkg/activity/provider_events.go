package activity

import (
	"maps"
	"strconv"
	"strings"
	"time"
)

const (
	VerbProviderCreated  = "provider.created"
	VerbProviderUpdated  = "provider.updated"
	VerbProviderDisposed = "provider.disposed"
	VerbOverrideAdded    = "provider.override.added"
	VerbOverrideRemoved  = "provider.override.removed"

	ObjectTypeProvider = "provider"
	ObjectTypeOverride = "provider.override"
)

const (
	metadataProviderID    = "provider_id"
	metadataSource        = "source"
	metadataError         = "error"
	metadataScopeID       = "scope_id"
	metadataScopeName     = "scope_name"
	metadataScopeLabel    = "scope_label"
	metadataScopeMetadata = "scope_metadata"
)

// ScopeContext captures the scope a lifecycle event happened in.
type ScopeContext struct {
	ID       string
	Name     string
	Label    string
	Metadata map[string]any
}

// ProviderEventInput describes the common fields of provider lifecycle events.
type ProviderEventInput struct {
	ActorID    string
	TenantID   string
	Channel    string
	Provider   string
	ProviderID uint64
	Source     string
	Scope      ScopeContext
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildProviderCreatedEvent describes a cell materialized for a provider.
func BuildProviderCreatedEvent(input ProviderEventInput) Event {
	return buildProviderEvent(VerbProviderCreated, ObjectTypeProvider, input)
}

// BuildProviderUpdatedEvent describes a cell updated in place by reconciliation.
func BuildProviderUpdatedEvent(input ProviderEventInput) Event {
	return buildProviderEvent(VerbProviderUpdated, ObjectTypeProvider, input)
}

// BuildProviderDisposedEvent describes a cell torn down.
func BuildProviderDisposedEvent(input ProviderEventInput) Event {
	return buildProviderEvent(VerbProviderDisposed, ObjectTypeProvider, input)
}

// BuildOverrideAddedEvent describes an override appearing on a scope.
func BuildOverrideAddedEvent(input ProviderEventInput) Event {
	return buildProviderEvent(VerbOverrideAdded, ObjectTypeOverride, input)
}

// BuildOverrideRemovedEvent describes an override vanishing from a scope.
func BuildOverrideRemovedEvent(input ProviderEventInput) Event {
	return buildProviderEvent(VerbOverrideRemoved, ObjectTypeOverride, input)
}

func buildProviderEvent(verb, objectType string, input ProviderEventInput) Event {
	metadata := maps.Clone(input.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}

	if input.ProviderID != 0 {
		set(metadataProviderID, input.ProviderID)
	}
	if source := strings.TrimSpace(input.Source); source != "" && source != input.Provider {
		set(metadataSource, source)
	}
	if input.Scope.ID != "" {
		set(metadataScopeID, input.Scope.ID)
	}
	if input.Scope.Name != "" {
		set(metadataScopeName, input.Scope.Name)
	}
	if input.Scope.Label != "" {
		set(metadataScopeLabel, input.Scope.Label)
	}
	if len(input.Scope.Metadata) > 0 {
		set(metadataScopeMetadata, maps.Clone(input.Scope.Metadata))
	}
	if input.Err != nil {
		set(metadataError, input.Err.Error())
	}

	return Event{
		Verb:       verb,
		ActorID:    input.ActorID,
		TenantID:   input.TenantID,
		ObjectType: objectType,
		ObjectID:   input.Provider,
		Channel:    input.Channel,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// Normalize prepares an event for delivery. Identifiers are trimmed and the
// metadata map is copied. A missing channel falls back to channel and then
// DefaultChannel, a missing object ID to the provider ID recorded in the
// metadata and then the object type, and a zero timestamp to now (UTC).
func Normalize(event Event, channel string) Event {
	out := Event{
		Verb:       strings.TrimSpace(event.Verb),
		ActorID:    strings.TrimSpace(event.ActorID),
		TenantID:   strings.TrimSpace(event.TenantID),
		ObjectType: strings.TrimSpace(event.ObjectType),
		ObjectID:   strings.TrimSpace(event.ObjectID),
		Channel:    strings.TrimSpace(event.Channel),
		Metadata:   maps.Clone(event.Metadata),
		OccurredAt: event.OccurredAt,
	}
	if out.Channel == "" {
		out.Channel = strings.TrimSpace(channel)
	}
	if out.Channel == "" {
		out.Channel = DefaultChannel
	}
	if out.ObjectID == "" {
		if id, ok := out.Metadata[metadataProviderID].(uint64); ok && id != 0 {
			out.ObjectID = "provider#" + strconv.FormatUint(id, 10)
		} else {
			out.ObjectID = out.ObjectType
		}
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now().UTC()
	}
	return out
}
