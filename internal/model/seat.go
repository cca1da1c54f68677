package model

import (
	"strconv"
	"strings"
)

// CinemaSeat is one physical seat of a cinema. Seats are addressed by
// customers through their label, the row letter followed by the number
// ("A1", "C12"), which is unique within a cinema.
//
// Fields:
//
//	ID         – primary key identifier.
//	CinemaID   – cinema that contains the seat.
//	LocationID – location of that cinema.
//	SeatRow    – row letter(s).
//	SeatNumber – position within the row.
//	Kind       – free-form seat category (e.g. "standard", "wheelchair").
type CinemaSeat struct {
	ID         uint64 // cinema_seats.id
	CinemaID   uint64 // cinema_seats.cinema_id
	LocationID uint64 // cinema_seats.location_id
	SeatRow    string // cinema_seats.seat_row
	SeatNumber uint32 // cinema_seats.seat_number
	Kind       string // cinema_seats.kind
}

// Label returns the customer-facing seat label. The row is upper-cased so
// labels compare equal however the row was stored.
func (s CinemaSeat) Label() string {
	return strings.ToUpper(strings.TrimSpace(s.SeatRow)) + strconv.FormatUint(uint64(s.SeatNumber), 10)
}

// SeatAvailability is a seat of a schedule's cinema together with whether
// it can still be reserved for that schedule.
type SeatAvailability struct {
	Label     string `json:"seat"`
	Row       string `json:"row"`
	Number    uint32 `json:"number"`
	Kind      string `json:"kind"`
	Available bool   `json:"available"`
}
