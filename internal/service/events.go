package service

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/iliyamo/cinema-reservation/internal/queue"
	"github.com/iliyamo/cinema-reservation/internal/repository"
)

// EventPublisher receives reservation events after their transaction has
// committed.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// notifier enriches and publishes lifecycle events. Publishing never
// affects the outcome of the operation that triggered it.
type notifier struct {
	pub    EventPublisher
	orders *repository.ReservationRepo
	logger hclog.Logger
}

func (n notifier) emit(ctx context.Context, t queue.EventType, c repository.ReservationRef, reason string) {
	if n.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	ev := queue.NewReservationEvent(t, c.ID, c.ScheduleID, c.UserID)
	ev.Reason = reason
	if o, err := n.orders.Summary(ctx, c.ID); err == nil {
		ev.ScheduleID = o.ScheduleID
		ev.MovieTitle = o.Title
		ev.Cinema = o.Cinema
		ev.Address = o.Address
		ev.StartsAt = o.StartTime
		ev.SeatLabels = o.Seats
	} else {
		n.logger.Debug("event enrichment skipped", "reservation_id", c.ID, "error", err)
	}
	if err := n.pub.Publish(ctx, ev); err != nil {
		n.logger.Warn("reservation event dropped", "type", t, "reservation_id", c.ID, "error", err)
	}
}
