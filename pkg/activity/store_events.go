package activity

import (
	"strings"
	"time"
)

const (
	VerbStoreCreated = "store.created"
	VerbStoreUpdated = "store.updated"

	objectTypeStore = "store"
)

// StoreEventInput describes the common fields of store lifecycle events.
type StoreEventInput struct {
	Key        string
	InstanceID string
	Revision   uint64
	Mode       string
	Source     string
	OldValue   any
	NewValue   any
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildStoreCreatedEvent constructs the event emitted once a store has
// resolved its initial value.
func BuildStoreCreatedEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbStoreCreated, input)
}

// BuildStoreUpdatedEvent constructs the event emitted for every accepted change.
func BuildStoreUpdatedEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbStoreUpdated, input)
}

func buildStoreEvent(verb string, input StoreEventInput) Event {
	metadata := cloneMap(input.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	if input.InstanceID != "" {
		set("instance_id", input.InstanceID)
	}
	if input.Revision > 0 {
		set("revision", input.Revision)
	}
	if input.Mode != "" {
		set("mode", input.Mode)
	}
	if input.Source != "" {
		set("source", input.Source)
	}
	if input.OldValue != nil {
		set("old_value", input.OldValue)
	}
	if input.NewValue != nil {
		set("new_value", input.NewValue)
	}

	objectID := strings.TrimSpace(input.Key)
	if objectID == "" {
		objectID = strings.TrimSpace(input.InstanceID)
	}
	if objectID == "" {
		objectID = objectTypeStore
	}

	return Event{
		Verb:       verb,
		ObjectType: objectTypeStore,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
