package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/iliyamo/cinema-reservation/internal/database"
	"github.com/iliyamo/cinema-reservation/internal/queue"
	"github.com/iliyamo/cinema-reservation/internal/repository"
)

// DeactivationManager soft-deletes movies and schedules. Only future
// showings count: a confirmed reservation for a showing that has started
// never blocks a delete and is never cancelled by one. Rows are never
// physically removed.
type DeactivationManager struct {
	store        *database.Store
	movies       *repository.MovieRepo
	schedules    *repository.ScheduleRepo
	reservations *repository.ReservationRepo
	events       notifier
	logger       hclog.Logger
	now          Clock
}

func NewDeactivationManager(store *database.Store, repos Repos, pub EventPublisher, logger hclog.Logger) *DeactivationManager {
	logger = logger.Named("deactivation")
	return &DeactivationManager{
		store:        store,
		movies:       repos.Movies,
		schedules:    repos.Schedules,
		reservations: repos.Reservations,
		events:       notifier{pub: pub, orders: repos.Reservations, logger: logger},
		logger:       logger,
		now:          systemClock,
	}
}

// DeactivateSchedule withdraws a schedule. If it lies in the future and
// holds confirmed reservations, the call fails with
// KindBlockedByReservation unless force is set, in which case every live
// reservation of the schedule is cancelled first.
func (m *DeactivationManager) DeactivateSchedule(ctx context.Context, scheduleID uint64, force bool) error {
	const op = "delete schedule"
	var cancelled []repository.ReservationRef
	err := m.store.InTx(ctx, func(tx *sql.Tx) error {
		sch, err := m.schedules.LockTx(ctx, tx, scheduleID)
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return newError(KindNotFound, op, err)
		}
		if err != nil {
			return err
		}
		var affected []uint64
		if sch.StartTime.After(m.now()) {
			affected = []uint64{sch.ID}
		}
		if cancelled, err = m.releaseTx(ctx, tx, op, affected, force); err != nil {
			return err
		}
		return m.schedules.SetAvailableTx(ctx, tx, sch.ID, false)
	})
	if err != nil {
		m.logResult(op, err, "schedule_id", scheduleID, "force", force)
		return asFailure(op, err)
	}
	m.logger.Info("schedule deactivated", "schedule_id", scheduleID, "force", force, "cancelled", len(cancelled))
	m.announce(ctx, cancelled, "schedule withdrawn")
	return nil
}

// DeactivateMovie withdraws a movie together with its future schedules,
// under the same blocking and force rules as DeactivateSchedule applied to
// all of those schedules at once.
func (m *DeactivationManager) DeactivateMovie(ctx context.Context, movieID uint64, force bool) error {
	const op = "delete movie"
	var cancelled []repository.ReservationRef
	err := m.store.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := m.movies.LockTx(ctx, tx, movieID); err != nil {
			if errors.Is(err, repository.ErrMovieNotFound) {
				return newError(KindNotFound, op, err)
			}
			return err
		}
		future, err := m.schedules.LockFutureForMovieTx(ctx, tx, movieID, m.now())
		if err != nil {
			return err
		}
		if cancelled, err = m.releaseTx(ctx, tx, op, future, force); err != nil {
			return err
		}
		if err := m.schedules.RetireTx(ctx, tx, future); err != nil {
			return err
		}
		return m.movies.SetAvailableTx(ctx, tx, movieID, false)
	})
	if err != nil {
		m.logResult(op, err, "movie_id", movieID, "force", force)
		return asFailure(op, err)
	}
	m.logger.Info("movie deactivated", "movie_id", movieID, "force", force, "cancelled", len(cancelled))
	m.announce(ctx, cancelled, "movie withdrawn")
	return nil
}

// releaseTx applies the blocking rule to the affected schedules and, when
// allowed to proceed, cancels all of their live reservations.
func (m *DeactivationManager) releaseTx(ctx context.Context, tx *sql.Tx, op string, scheduleIDs []uint64, force bool) ([]repository.ReservationRef, error) {
	if len(scheduleIDs) == 0 {
		return nil, nil
	}
	confirmed, err := m.reservations.CountConfirmedTx(ctx, tx, scheduleIDs)
	if err != nil {
		return nil, err
	}
	if confirmed > 0 && !force {
		return nil, newError(KindBlockedByReservation, op, fmt.Errorf("%d confirmed reservation(s)", confirmed))
	}
	return m.reservations.CancelLiveTx(ctx, tx, scheduleIDs, m.now())
}

func (m *DeactivationManager) announce(ctx context.Context, cancelled []repository.ReservationRef, reason string) {
	for _, c := range cancelled {
		m.events.emit(ctx, queue.ReservationCancelled, c, reason)
	}
}

func (m *DeactivationManager) logResult(op string, err error, kv ...any) {
	kv = append(kv, "error", err)
	if KindOf(err) == KindFailed {
		m.logger.Error(op+" failed", kv...)
		return
	}
	m.logger.Debug(op+" rejected", kv...)
}
