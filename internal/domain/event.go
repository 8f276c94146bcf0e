package domain

import "time"

// EventKind what happened to a reservation
type EventKind string

const (
	EventCreated   EventKind = "CREATED"
	EventConfirmed EventKind = "CONFIRMED"
	EventCancelled EventKind = "CANCELLED"
	EventCompleted EventKind = "COMPLETED"
	EventUpdated   EventKind = "UPDATED"
	EventDeleted   EventKind = "DELETED"
)

// ReservationEvent is published after the transaction that produced it commits.
type ReservationEvent struct {
	EventID        string            `json:"event_id"`
	Kind           EventKind         `json:"kind"`
	Reservation    Reservation       `json:"reservation"`
	PreviousStatus ReservationStatus `json:"previous_status,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}
