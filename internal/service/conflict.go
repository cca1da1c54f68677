package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-reservation/internal/repository"
)

// Overlaps reports whether the half-open windows [s1,e1) and [s2,e2)
// intersect. It is symmetric, and windows that merely touch do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// Proposal is a showtime to be checked for clashes.
type Proposal struct {
	MovieID    uint64
	LocationID uint64
	CinemaID   uint64
	StartTime  time.Time
	ExcludeID  uint64 // schedule being updated in place; 0 for a new one
}

// ConflictDetector decides whether a proposed showtime overlaps another
// available showtime of the same movie in the same cinema.
type ConflictDetector struct {
	movies    *repository.MovieRepo
	schedules *repository.ScheduleRepo
}

func NewConflictDetector(repos Repos) *ConflictDetector {
	return &ConflictDetector{movies: repos.Movies, schedules: repos.Schedules}
}

// CheckTx locks the movie row, then compares the proposal with every
// available schedule of that movie in the cinema that starts within a day
// of it. Holding the movie lock until the caller commits means two
// concurrent writers for the same movie cannot both see "no clash".
// A missing or withdrawn movie is KindMovieNotFound.
func (d *ConflictDetector) CheckTx(ctx context.Context, tx *sql.Tx, p Proposal) (bool, error) {
	const op = "clash check"
	movie, err := d.movies.LockTx(ctx, tx, p.MovieID)
	if errors.Is(err, repository.ErrMovieNotFound) {
		return false, newError(KindMovieNotFound, op, err)
	}
	if err != nil {
		return false, err
	}
	if !movie.Available {
		return false, newError(KindMovieNotFound, op, fmt.Errorf("movie %d is not available", p.MovieID))
	}

	length := time.Duration(movie.DurationMin) * time.Minute
	start := p.StartTime.UTC()
	end := start.Add(length)

	starts, err := d.schedules.NeighbourStartsTx(ctx, tx, repository.SlotQuery{
		MovieID:    p.MovieID,
		LocationID: p.LocationID,
		CinemaID:   p.CinemaID,
		Start:      start,
		ExcludeID:  p.ExcludeID,
	})
	if err != nil {
		return false, err
	}
	for _, other := range starts {
		if Overlaps(start, end, other, other.Add(length)) {
			return true, nil
		}
	}
	return false, nil
}
