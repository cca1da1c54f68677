package model

import "time"

// ReservationKind is the lifecycle state of a reservation.
//
//	tentative --confirm--> confirmed
//	tentative --cancel---> cancelled
//	confirmed --cancel---> cancelled
//
// cancelled is terminal.
type ReservationKind string

const (
	ReservationTentative ReservationKind = "tentative"
	ReservationConfirmed ReservationKind = "confirmed"
	ReservationCancelled ReservationKind = "cancelled"
)

// Valid reports whether k is one of the known states.
func (k ReservationKind) Valid() bool {
	switch k {
	case ReservationTentative, ReservationConfirmed, ReservationCancelled:
		return true
	}
	return false
}

// OrderSummary is one line of a user's order history.
type OrderSummary struct {
	ReservationID uint64          `json:"reservation_id"`
	ScheduleID    uint64          `json:"schedule_id"`
	Status        ReservationKind `json:"status"`
	Title         string          `json:"title"`
	StartTime     time.Time       `json:"time"`
	Address       string          `json:"address"`
	Cinema        string          `json:"cinema"`
	Seats         []string        `json:"seats"`
	LastUpdated   time.Time       `json:"last_updated"`
}
