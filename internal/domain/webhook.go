package domain

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is a registered webhook endpoint. Events matching the filter
// lists are delivered to URL as JSON POSTs. Empty lists match everything.
type Subscription struct {
	ID        uuid.UUID
	URL       string
	CreatedBy string
	CreatedAt time.Time

	// Filters. All non-empty lists must match for an event to be delivered.
	EventTypes []EventType
	SourceIDs  []uuid.UUID
	FlowIDs    []uuid.UUID
}

// Validate checks a subscription about to be registered.
func (s *Subscription) Validate() error {
	if s.URL == "" {
		return NewValidationError("url", "required")
	}
	for _, et := range s.EventTypes {
		if !et.IsValid() {
			return NewValidationError("event_types", "unknown event type "+et.String())
		}
	}
	return nil
}

// Matches reports whether the event passes the subscription's filters.
func (s *Subscription) Matches(e Event) bool {
	if len(s.EventTypes) > 0 && !containsEventType(s.EventTypes, e.Type) {
		return false
	}
	if len(s.SourceIDs) > 0 {
		if e.SourceID == nil || !containsUUID(s.SourceIDs, *e.SourceID) {
			return false
		}
	}
	if len(s.FlowIDs) > 0 {
		if e.FlowID == nil || !containsUUID(s.FlowIDs, *e.FlowID) {
			return false
		}
	}
	return true
}

func containsEventType(list []EventType, v EventType) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

func containsUUID(list []uuid.UUID, v uuid.UUID) bool {
	for _, id := range list {
		if id == v {
			return true
		}
	}
	return false
}

// Event is the envelope delivered to subscribers on catalog mutations and
// deletion-request terminal transitions.
type Event struct {
	Type          EventType `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`

	// Routing hints used by subscription filters.
	SourceID *uuid.UUID `json:"source_id,omitempty"`
	FlowID   *uuid.UUID `json:"flow_id,omitempty"`

	// Payload is a snapshot of the affected entity at mutation time.
	Payload any `json:"payload,omitempty"`
}
