package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/iliyamo/cinema-reservation/internal/database"
	"github.com/iliyamo/cinema-reservation/internal/model"
	"github.com/iliyamo/cinema-reservation/internal/repository"
)

// ScheduleManager creates, updates and withdraws showtimes, and serves the
// read side of the schedule catalogue.
type ScheduleManager struct {
	store        *database.Store
	schedules    *repository.ScheduleRepo
	locations    *repository.LocationRepo
	detector     *ConflictDetector
	deactivation *DeactivationManager
	logger       hclog.Logger
	now          Clock
}

func NewScheduleManager(store *database.Store, repos Repos, detector *ConflictDetector, deactivation *DeactivationManager, logger hclog.Logger) *ScheduleManager {
	return &ScheduleManager{
		store:        store,
		schedules:    repos.Schedules,
		locations:    repos.Locations,
		detector:     detector,
		deactivation: deactivation,
		logger:       logger.Named("schedules"),
		now:          systemClock,
	}
}

// NewSchedule carries the fields of a showtime to create.
type NewSchedule struct {
	MovieID    uint64
	LocationID uint64
	CinemaID   uint64
	StartTime  time.Time
}

// ScheduleChanges lists the fields to change. Nil fields keep their value.
type ScheduleChanges struct {
	MovieID    *uint64
	LocationID *uint64
	CinemaID   *uint64
	StartTime  *time.Time
}

func (c ScheduleChanges) apply(s model.Schedule) model.Schedule {
	if c.MovieID != nil {
		s.MovieID = *c.MovieID
	}
	if c.LocationID != nil {
		s.LocationID = *c.LocationID
	}
	if c.CinemaID != nil {
		s.CinemaID = *c.CinemaID
	}
	if c.StartTime != nil {
		s.StartTime = c.StartTime.UTC()
	}
	return s
}

func sameSlot(a, b model.Schedule) bool {
	return a.MovieID == b.MovieID && a.LocationID == b.LocationID &&
		a.CinemaID == b.CinemaID && a.StartTime.Equal(b.StartTime)
}

// Create adds an available showtime. The start must lie in the future and
// the cinema must belong to the location; the movie must exist and the
// window must not clash with another showing of it in that cinema.
func (m *ScheduleManager) Create(ctx context.Context, in NewSchedule) (uint64, error) {
	const op = "create schedule"
	if !in.StartTime.After(m.now()) {
		return 0, invalid(op, "start time %s is not in the future", in.StartTime.UTC().Format(time.RFC3339))
	}
	var id uint64
	err := m.store.InTx(ctx, func(tx *sql.Tx) error {
		if err := m.checkCinemaTx(ctx, tx, op, in.LocationID, in.CinemaID); err != nil {
			return err
		}
		clash, err := m.detector.CheckTx(ctx, tx, Proposal{
			MovieID: in.MovieID, LocationID: in.LocationID, CinemaID: in.CinemaID, StartTime: in.StartTime,
		})
		if err != nil {
			return err
		}
		if clash {
			return newError(KindClash, op, fmt.Errorf("movie %d already showing in cinema %d around %s",
				in.MovieID, in.CinemaID, in.StartTime.UTC().Format(time.RFC3339)))
		}
		id, err = m.schedules.CreateTx(ctx, tx, model.Schedule{
			MovieID: in.MovieID, LocationID: in.LocationID, CinemaID: in.CinemaID, StartTime: in.StartTime,
		})
		return err
	})
	if err != nil {
		m.logResult(op, err, "movie_id", in.MovieID, "cinema_id", in.CinemaID)
		return 0, asFailure(op, err)
	}
	m.logger.Info("schedule created", "schedule_id", id, "movie_id", in.MovieID, "start", in.StartTime.UTC())
	return id, nil
}

// Update changes a showtime in place. An update that leaves the slot as it
// is commits without further checks. Otherwise the resulting start must lie
// in the future, and a showing that holds confirmed reservations fails with
// KindBlockedByReservation unless force is set; when the change goes ahead
// every live reservation of the showing is cancelled. The schedule is
// excluded from its own clash check.
func (m *ScheduleManager) Update(ctx context.Context, scheduleID uint64, changes ScheduleChanges, force bool) error {
	const op = "update schedule"
	var cancelled []repository.ReservationRef
	err := m.store.InTx(ctx, func(tx *sql.Tx) error {
		current, err := m.schedules.LockTx(ctx, tx, scheduleID)
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return newError(KindNotFound, op, err)
		}
		if err != nil {
			return err
		}
		if !current.Available {
			return newError(KindNotFound, op, fmt.Errorf("schedule %d is not available", scheduleID))
		}
		next := changes.apply(current)
		if sameSlot(current, next) {
			return nil
		}
		if !next.StartTime.After(m.now()) {
			return invalid(op, "start time %s is not in the future", next.StartTime.UTC().Format(time.RFC3339))
		}
		if next.LocationID != current.LocationID || next.CinemaID != current.CinemaID {
			if err := m.checkCinemaTx(ctx, tx, op, next.LocationID, next.CinemaID); err != nil {
				return err
			}
		}

		// The showing ends up in the future even when it starts in the past now.
		if cancelled, err = m.deactivation.releaseTx(ctx, tx, op, []uint64{current.ID}, force); err != nil {
			return err
		}

		clash, err := m.detector.CheckTx(ctx, tx, Proposal{
			MovieID: next.MovieID, LocationID: next.LocationID, CinemaID: next.CinemaID,
			StartTime: next.StartTime, ExcludeID: current.ID,
		})
		if err != nil {
			return err
		}
		if clash {
			return newError(KindClash, op, fmt.Errorf("movie %d already showing in cinema %d around %s",
				next.MovieID, next.CinemaID, next.StartTime.Format(time.RFC3339)))
		}
		return m.schedules.UpdateTx(ctx, tx, next)
	})
	if err != nil {
		m.logResult(op, err, "schedule_id", scheduleID, "force", force)
		return asFailure(op, err)
	}
	m.logger.Info("schedule updated", "schedule_id", scheduleID, "force", force, "cancelled", len(cancelled))
	m.deactivation.announce(ctx, cancelled, "schedule changed")
	return nil
}

// Delete withdraws a showtime; see DeactivationManager.DeactivateSchedule.
func (m *ScheduleManager) Delete(ctx context.Context, scheduleID uint64, force bool) error {
	return m.deactivation.DeactivateSchedule(ctx, scheduleID, force)
}

// Overview returns the customer-facing summary of a showtime.
func (m *ScheduleManager) Overview(ctx context.Context, scheduleID uint64) (model.ScheduleOverview, error) {
	o, err := m.schedules.Overview(ctx, scheduleID)
	if errors.Is(err, repository.ErrScheduleNotFound) {
		return o, newError(KindNotFound, "schedule overview", err)
	}
	if err != nil {
		return o, newError(KindFailed, "schedule overview", err)
	}
	return o, nil
}

// CinemaDay lists one cinema's programme for a UTC calendar day.
func (m *ScheduleManager) CinemaDay(ctx context.Context, locationID, cinemaID uint64, day time.Time) ([]model.CinemaSlot, error) {
	const op = "cinema day"
	if err := m.locations.CinemaExists(ctx, m.store.DB(), locationID, cinemaID); err != nil {
		if errors.Is(err, repository.ErrCinemaNotFound) {
			return nil, newError(KindNotFound, op, err)
		}
		return nil, newError(KindFailed, op, err)
	}
	slots, err := m.schedules.CinemaDay(ctx, locationID, cinemaID, day)
	if err != nil {
		return nil, newError(KindFailed, op, err)
	}
	return slots, nil
}

// Upcoming lists showtimes that have not started yet.
func (m *ScheduleManager) Upcoming(ctx context.Context, f repository.ScheduleFilter) ([]model.Schedule, error) {
	out, err := m.schedules.Upcoming(ctx, f, m.now())
	if err != nil {
		return nil, newError(KindFailed, "upcoming schedules", err)
	}
	return out, nil
}

func (m *ScheduleManager) checkCinemaTx(ctx context.Context, tx *sql.Tx, op string, locationID, cinemaID uint64) error {
	err := m.locations.CinemaExists(ctx, tx, locationID, cinemaID)
	if errors.Is(err, repository.ErrCinemaNotFound) {
		return newError(KindInvalidInput, op, err)
	}
	return err
}

func (m *ScheduleManager) logResult(op string, err error, kv ...any) {
	kv = append(kv, "error", err)
	if KindOf(err) == KindFailed {
		m.logger.Error(op+" failed", kv...)
		return
	}
	m.logger.Debug(op+" rejected", kv...)
}
