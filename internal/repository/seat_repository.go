package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/cinema-reservation/internal/database"
	"github.com/iliyamo/cinema-reservation/internal/model"
)

// SeatRepo answers seat questions for a schedule. Every method takes a
// database.Querier so it can run inside the reservation transaction.
type SeatRepo struct{}

func NewSeatRepo() *SeatRepo { return &SeatRepo{} }

// Availability lists every seat of the schedule's cinema with a flag telling
// whether a live (tentative or confirmed) reservation of this schedule holds
// it. Seats reserved for other schedules never leak in, and a seat appears
// once however many cancelled reservations reference it. An unknown schedule
// yields an empty slice.
func (r *SeatRepo) Availability(ctx context.Context, q database.Querier, scheduleID uint64) ([]model.SeatAvailability, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT cs.seat_row, cs.seat_number, cs.kind, reserved.seat_id IS NULL
		 FROM schedules s
		 JOIN cinema_seats cs ON cs.location_id = s.location_id AND cs.cinema_id = s.cinema_id
		 LEFT JOIN (
		     SELECT DISTINCT rs.seat_id
		     FROM reservation_seats rs
		     JOIN reservations r ON r.id = rs.reservation_id
		     WHERE r.schedule_id = ? AND r.kind <> 'cancelled'
		 ) AS reserved ON reserved.seat_id = cs.id
		 WHERE s.id = ?
		 ORDER BY cs.seat_row, cs.seat_number`,
		scheduleID, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("seat availability %d: %w", scheduleID, err)
	}
	defer rows.Close()
	out := []model.SeatAvailability{}
	for rows.Next() {
		var seat model.CinemaSeat
		var available bool
		if err := rows.Scan(&seat.SeatRow, &seat.SeatNumber, &seat.Kind, &available); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		out = append(out, model.SeatAvailability{
			Label:     seat.Label(),
			Row:       seat.SeatRow,
			Number:    seat.SeatNumber,
			Kind:      seat.Kind,
			Available: available,
		})
	}
	return out, rows.Err()
}

// ReservedLabels returns the labels held by live reservations of the schedule.
func (r *SeatRepo) ReservedLabels(ctx context.Context, q database.Querier, scheduleID uint64) (map[string]struct{}, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT cs.seat_row, cs.seat_number
		 FROM reservations r
		 JOIN reservation_seats rs ON rs.reservation_id = r.id
		 JOIN cinema_seats cs ON cs.id = rs.seat_id
		 WHERE r.schedule_id = ? AND r.kind <> 'cancelled'`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("reserved seats %d: %w", scheduleID, err)
	}
	defer rows.Close()
	taken := make(map[string]struct{})
	for rows.Next() {
		var seat model.CinemaSeat
		if err := rows.Scan(&seat.SeatRow, &seat.SeatNumber); err != nil {
			return nil, fmt.Errorf("scan reserved seat: %w", err)
		}
		taken[seat.Label()] = struct{}{}
	}
	return taken, rows.Err()
}

// ResolveLabels maps seat labels of one cinema to seat ids. Labels that do
// not exist in the cinema are absent from the result.
func (r *SeatRepo) ResolveLabels(ctx context.Context, q database.Querier, locationID, cinemaID uint64, labels []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(labels))
	if len(labels) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(labels)+2)
	args = append(args, locationID, cinemaID)
	for _, l := range labels {
		args = append(args, l)
	}
	rows, err := q.QueryContext(ctx,
		`SELECT id, seat_row, seat_number FROM cinema_seats
		 WHERE location_id = ? AND cinema_id = ? AND CONCAT(seat_row, seat_number) IN (`+placeholders(len(labels))+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("resolve seats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var seat model.CinemaSeat
		if err := rows.Scan(&seat.ID, &seat.SeatRow, &seat.SeatNumber); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		out[seat.Label()] = seat.ID
	}
	return out, rows.Err()
}
