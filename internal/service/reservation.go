package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/iliyamo/cinema-reservation/internal/database"
	"github.com/iliyamo/cinema-reservation/internal/model"
	"github.com/iliyamo/cinema-reservation/internal/queue"
	"github.com/iliyamo/cinema-reservation/internal/repository"
)

// ReservationManager owns the tentative -> confirmed / cancelled state
// machine and the atomic reservation of a set of seats.
type ReservationManager struct {
	store        *database.Store
	schedules    *repository.ScheduleRepo
	seats        *repository.SeatRepo
	reservations *repository.ReservationRepo
	resolver     *AvailabilityResolver
	events       notifier
	logger       hclog.Logger
	now          Clock
}

func NewReservationManager(store *database.Store, repos Repos, resolver *AvailabilityResolver, pub EventPublisher, logger hclog.Logger) *ReservationManager {
	logger = logger.Named("reservations")
	return &ReservationManager{
		store:        store,
		schedules:    repos.Schedules,
		seats:        repos.Seats,
		reservations: repos.Reservations,
		resolver:     resolver,
		events:       notifier{pub: pub, orders: repos.Reservations, logger: logger},
		logger:       logger,
		now:          systemClock,
	}
}

// NormalizeLabels trims and upper-cases seat labels and rejects an empty
// list, blank labels and duplicates. Order is preserved.
func NormalizeLabels(labels []string) ([]string, error) {
	if len(labels) == 0 {
		return nil, errors.New("at least one seat is required")
	}
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.ToUpper(strings.TrimSpace(l))
		if l == "" {
			return nil, errors.New("blank seat label")
		}
		if _, dup := seen[l]; dup {
			return nil, fmt.Errorf("seat %s requested twice", l)
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out, nil
}

// Reserve atomically creates a tentative reservation of the seats for the
// schedule. The schedule row is locked for the whole transaction, so two
// reserve calls for one schedule never interleave between the availability
// read and the seat insert, across any number of server processes. The
// unique index on live reservation seats backs this up in the store.
func (m *ReservationManager) Reserve(ctx context.Context, userID, scheduleID uint64, labels []string) (uint64, error) {
	const op = "reserve"
	labels, err := NormalizeLabels(labels)
	if err != nil {
		return 0, newError(KindInvalidInput, op, err)
	}

	var id uint64
	err = m.store.InTx(ctx, func(tx *sql.Tx) error {
		sch, err := m.schedules.LockTx(ctx, tx, scheduleID)
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return newError(KindInvalidSchedule, op, err)
		}
		if err != nil {
			return err
		}
		if !sch.Available {
			return newError(KindInvalidSchedule, op, fmt.Errorf("schedule %d is not available", scheduleID))
		}

		taken, err := m.resolver.reservedTx(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		var clash []string
		for _, l := range labels {
			if _, ok := taken[l]; ok {
				clash = append(clash, l)
			}
		}
		if len(clash) > 0 {
			return newError(KindSeatAlreadyReserved, op, &SeatsTakenError{Labels: clash})
		}

		seatIDs, err := m.seats.ResolveLabels(ctx, tx, sch.LocationID, sch.CinemaID, labels)
		if err != nil {
			return err
		}
		ids := make([]uint64, 0, len(labels))
		for _, l := range labels {
			sid, ok := seatIDs[l]
			if !ok {
				return newError(KindFailed, op, fmt.Errorf("seat %s does not exist in this cinema", l))
			}
			ids = append(ids, sid)
		}

		id, err = m.reservations.CreateTx(ctx, tx, userID, scheduleID, m.now())
		if err != nil {
			return err
		}
		if err := m.reservations.AddSeatsTx(ctx, tx, id, scheduleID, ids); err != nil {
			if errors.Is(err, repository.ErrSeatTaken) {
				return newError(KindSeatAlreadyReserved, op, &SeatsTakenError{})
			}
			return err
		}
		return nil
	})
	if err != nil {
		m.logFailure(op, err, "user_id", userID, "schedule_id", scheduleID, "seats", labels)
		return 0, asFailure(op, err)
	}
	m.logger.Info("reservation created", "reservation_id", id, "user_id", userID, "schedule_id", scheduleID, "seats", labels)
	m.events.emit(ctx, queue.ReservationCreated, repository.ReservationRef{ID: id, UserID: &userID, ScheduleID: scheduleID}, "")
	return id, nil
}

// Confirm moves the user's tentative reservation to confirmed. It returns
// false, without error, when the reservation does not exist, belongs to
// another user, is not tentative or its schedule has been withdrawn.
func (m *ReservationManager) Confirm(ctx context.Context, userID, reservationID uint64) (bool, error) {
	const op = "confirm"
	ok, err := m.reservations.Confirm(ctx, userID, reservationID, m.now())
	if err != nil {
		m.logFailure(op, err, "user_id", userID, "reservation_id", reservationID)
		return false, newError(KindFailed, op, err)
	}
	if !ok {
		m.logger.Debug("confirm had no effect", "user_id", userID, "reservation_id", reservationID)
		return false, nil
	}
	m.events.emit(ctx, queue.ReservationConfirmed, repository.ReservationRef{ID: reservationID, UserID: &userID}, "")
	return true, nil
}

// Cancel moves the user's reservation to cancelled and frees its seats. It
// returns false, without error, when the reservation does not exist,
// belongs to another user or is already cancelled.
func (m *ReservationManager) Cancel(ctx context.Context, userID, reservationID uint64) (bool, error) {
	const op = "cancel"
	var ok bool
	err := m.store.InTx(ctx, func(tx *sql.Tx) (err error) {
		ok, err = m.reservations.CancelTx(ctx, tx, userID, reservationID, m.now())
		return err
	})
	if err != nil {
		m.logFailure(op, err, "user_id", userID, "reservation_id", reservationID)
		return false, newError(KindFailed, op, err)
	}
	if !ok {
		m.logger.Debug("cancel had no effect", "user_id", userID, "reservation_id", reservationID)
		return false, nil
	}
	m.events.emit(ctx, queue.ReservationCancelled, repository.ReservationRef{ID: reservationID, UserID: &userID}, "")
	return true, nil
}

// History returns the user's orders, latest showing first.
func (m *ReservationManager) History(ctx context.Context, userID uint64) ([]model.OrderSummary, error) {
	orders, err := m.reservations.History(ctx, userID)
	if err != nil {
		return nil, newError(KindFailed, "order history", err)
	}
	return orders, nil
}

// logFailure logs expected outcomes at debug and store trouble at error.
func (m *ReservationManager) logFailure(op string, err error, kv ...any) {
	kv = append(kv, "error", err)
	switch k := KindOf(err); {
	case k != KindFailed:
		m.logger.Debug(op+" rejected", kv...)
	case database.IsLockConflict(err):
		m.logger.Warn(op+" lost a lock conflict", kv...)
	default:
		m.logger.Error(op+" failed", kv...)
	}
}
