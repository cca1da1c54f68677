package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/iliyamo/cinema-reservation/internal/database"
	"github.com/iliyamo/cinema-reservation/internal/model"
	"github.com/iliyamo/cinema-reservation/internal/repository"
)

// AvailabilityResolver derives per-schedule seat availability from the
// live reservations of that schedule.
type AvailabilityResolver struct {
	store  *database.Store
	seats  *repository.SeatRepo
	logger hclog.Logger
}

func NewAvailabilityResolver(store *database.Store, repos Repos, logger hclog.Logger) *AvailabilityResolver {
	return &AvailabilityResolver{store: store, seats: repos.Seats, logger: logger.Named("availability")}
}

// Availability lists every seat of the schedule's cinema with its
// availability. A schedule without provisioned seats, including one that
// does not exist, is KindNotFound; a store failure is KindFailed.
func (a *AvailabilityResolver) Availability(ctx context.Context, scheduleID uint64) ([]model.SeatAvailability, error) {
	const op = "seat availability"
	seats, err := a.seats.Availability(ctx, a.store.DB(), scheduleID)
	if err != nil {
		a.logger.Error("availability query failed", "schedule_id", scheduleID, "error", err)
		return nil, newError(KindFailed, op, err)
	}
	if len(seats) == 0 {
		return nil, newError(KindNotFound, op, fmt.Errorf("schedule %d has no seats", scheduleID))
	}
	return seats, nil
}

// reservedTx is the in-transaction view used by Reserve: the labels held by
// tentative or confirmed reservations of the schedule.
func (a *AvailabilityResolver) reservedTx(ctx context.Context, tx *sql.Tx, scheduleID uint64) (map[string]struct{}, error) {
	return a.seats.ReservedLabels(ctx, tx, scheduleID)
}
