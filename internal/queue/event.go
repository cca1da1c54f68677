// Package queue carries reservation lifecycle events over RabbitMQ.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a reservation lifecycle transition.
type EventType string

const (
	ReservationCreated   EventType = "reservation.created"
	ReservationConfirmed EventType = "reservation.confirmed"
	ReservationCancelled EventType = "reservation.cancelled"
)

// ReservationEvent is published after a reserve, confirm or cancel has committed.
// It contains enough information for downstream consumers to log or notify
// without querying the primary database.
type ReservationEvent struct {
	EventID       string    `json:"event_id"`
	Type          EventType `json:"type"`
	ReservationID uint64    `json:"reservation_id"`
	UserID        *uint64   `json:"user_id,omitempty"`
	ScheduleID    uint64    `json:"schedule_id"`
	MovieTitle    string    `json:"movie_title,omitempty"`
	Cinema        string    `json:"cinema,omitempty"`
	Address       string    `json:"address,omitempty"`
	StartsAt      time.Time `json:"starts_at,omitempty"`
	SeatLabels    []string  `json:"seats"`
	Reason        string    `json:"reason,omitempty"` // set for cancellations not made by the customer
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewReservationEvent stamps a fresh event id and time.
func NewReservationEvent(t EventType, reservationID, scheduleID uint64, userID *uint64) ReservationEvent {
	return ReservationEvent{
		EventID:       uuid.NewString(),
		Type:          t,
		ReservationID: reservationID,
		UserID:        userID,
		ScheduleID:    scheduleID,
		SeatLabels:    []string{},
		OccurredAt:    time.Now().UTC(),
	}
}
