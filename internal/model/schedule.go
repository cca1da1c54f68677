package model

import "time"

// Schedule is a showing of a movie in a specific cinema at a specific
// start time. The end time is never stored: it is StartTime plus the
// movie's duration. Unavailable schedules are soft-deleted.
type Schedule struct {
	ID         uint64    `json:"id"`          // schedules.id
	MovieID    uint64    `json:"movie_id"`    // schedules.movie_id
	LocationID uint64    `json:"location_id"` // schedules.location_id
	CinemaID   uint64    `json:"cinema_id"`   // schedules.cinema_id
	StartTime  time.Time `json:"start_time"`  // schedules.start_time (UTC)
	Available  bool      `json:"available"`   // schedules.available
}

// ScheduleOverview is the customer-facing summary of a schedule.
type ScheduleOverview struct {
	ID        uint64    `json:"id"`
	Address   string    `json:"address"`
	Cinema    string    `json:"cinema"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"time"`
	Available bool      `json:"available"`
}

// CinemaSlot is one entry of a cinema's programme for a day.
type CinemaSlot struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}
