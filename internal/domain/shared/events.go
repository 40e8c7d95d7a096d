package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Admission workflow events. Every successful mutation in the review and
// decision workflow publishes exactly one of these.
const (
	EventRatingSubmitted     EventType = "review.rating_submitted"
	EventAdmissionOffered    EventType = "admission.offered"
	EventAdmissionOfferReset EventType = "admission.offer_reset"
	EventOfferAccepted       EventType = "admission.accepted"
	EventStudentRejected     EventType = "admission.rejected"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the student the event concerns.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler reacts to a published event.
type EventHandler func(ctx context.Context, event Event) error

// EventPublisher is the write side of the event bus, as seen by commands.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Actor       string    `json:"actor,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, studentID, actor string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: studentID,
		Actor:       actor,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Review Events
// ═══════════════════════════════════════════════════════════════════════════

// RatingSubmittedEvent is published after a rating row is inserted.
type RatingSubmittedEvent struct {
	BaseEvent
	RatingID string `json:"rating_id"`
	Rating   int    `json:"rating"`
}

// Payload implements Event interface.
func (e RatingSubmittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.AggregateId,
		"rating_id":  e.RatingID,
		"rated_by":   e.Actor,
		"rating":     e.Rating,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Admission Events
// ═══════════════════════════════════════════════════════════════════════════

// StatusChangedEvent is published after any admission state machine write.
type StatusChangedEvent struct {
	BaseEvent
	Status          string     `json:"status"`
	OfferDate       *time.Time `json:"offer_date,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// Payload implements Event interface.
func (e StatusChangedEvent) Payload() map[string]interface{} {
	p := map[string]interface{}{
		"student_id": e.AggregateId,
		"status":     e.Status,
		"actor":      e.Actor,
	}
	if e.OfferDate != nil {
		p["offer_date"] = e.OfferDate.Format(time.RFC3339)
	}
	if e.RejectionReason != "" {
		p["rejection_reason"] = e.RejectionReason
	}
	return p
}
