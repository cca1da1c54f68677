package service

import (
	"database/sql"
	"time"

	"github.com/iliyamo/cinema-reservation/internal/repository"
)

// Clock returns the current time. Tests substitute a fixed one.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// Repos bundles the repositories the core works through.
type Repos struct {
	Movies       *repository.MovieRepo
	Schedules    *repository.ScheduleRepo
	Seats        *repository.SeatRepo
	Reservations *repository.ReservationRepo
	Locations    *repository.LocationRepo
}

// NewRepos builds every repository over one pool.
func NewRepos(db *sql.DB) Repos {
	return Repos{
		Movies:       repository.NewMovieRepo(db),
		Schedules:    repository.NewScheduleRepo(db),
		Seats:        repository.NewSeatRepo(),
		Reservations: repository.NewReservationRepo(db),
		Locations:    repository.NewLocationRepo(db),
	}
}
