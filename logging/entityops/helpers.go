package entityops

import (
	"context"

	"crmgen/logging"
)

const (
	// EventEntityCreated is emitted after the adapter confirms a create.
	EventEntityCreated logging.EventType = "entity.created"
	// EventEntityUpdated is emitted after the adapter confirms an update.
	EventEntityUpdated logging.EventType = "entity.updated"
	// EventEntityUnchanged is emitted when an update finds no differing fields
	// and the adapter round trip is skipped.
	EventEntityUnchanged logging.EventType = "entity.unchanged"
	// EventEntitySearched is emitted after a search completes.
	EventEntitySearched logging.EventType = "entity.searched"
)

// MutationPayload captures the columns touched by a create or update.
type MutationPayload struct {
	EntityType string   `json:"entityType"`
	Columns    []string `json:"columns,omitempty"`
	Deleted    []string `json:"deleted,omitempty"`
}

// SearchPayload captures the shape and outcome of a search.
type SearchPayload struct {
	EntityType string `json:"entityType"`
	Groups     int    `json:"groups"`
	Matches    int    `json:"matches"`
}

// Created publishes an info event after a record is created.
func Created(ctx context.Context, pub logging.Publisher, record logging.EntityRef, payload MutationPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventEntityCreated,
		Entity:   record,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryEntity,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Updated publishes an info event after a record is updated.
func Updated(ctx context.Context, pub logging.Publisher, record logging.EntityRef, payload MutationPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventEntityUpdated,
		Entity:   record,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryEntity,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Unchanged publishes a debug event when an update carries no changes.
func Unchanged(ctx context.Context, pub logging.Publisher, record logging.EntityRef, entityType string, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventEntityUnchanged,
		Entity:   record,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryEntity,
		Payload:  MutationPayload{EntityType: entityType},
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Searched publishes a debug event after a search completes.
func Searched(ctx context.Context, pub logging.Publisher, payload SearchPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventEntitySearched,
		Entity:   logging.EntityRef{ID: payload.EntityType, Kind: logging.EntityKindRecord},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryEntity,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
