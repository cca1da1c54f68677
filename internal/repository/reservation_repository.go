package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-reservation/internal/database"
	"github.com/iliyamo/cinema-reservation/internal/model"
)

// ReservationRepo provides the reservation state transitions. Every
// transition is a single conditional UPDATE so the state machine holds even
// when two requests race on the same reservation.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts a tentative reservation and returns its id.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID, scheduleID uint64, now time.Time) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (user_id, schedule_id, kind, last_updated) VALUES (?, ?, 'tentative', ?)`,
		userID, scheduleID, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert reservation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert reservation: %w", err)
	}
	return uint64(id), nil
}

// AddSeatsTx links the seats to the reservation in one statement. A
// collision with a live row of the same schedule yields ErrSeatTaken.
func (r *ReservationRepo) AddSeatsTx(ctx context.Context, tx *sql.Tx, reservationID, scheduleID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `INSERT INTO reservation_seats (reservation_id, schedule_id, seat_id, active) VALUES `
	args := make([]any, 0, len(seatIDs)*3)
	for i, id := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, 1)"
		args = append(args, reservationID, scheduleID, id)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		if database.IsDuplicate(err) {
			return ErrSeatTaken
		}
		return fmt.Errorf("insert reservation seats: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != int64(len(seatIDs)) {
		return fmt.Errorf("insert reservation seats: %d of %d rows written", n, len(seatIDs))
	}
	return nil
}

// Confirm moves the user's tentative reservation to confirmed, provided its
// schedule is still available. It reports false when no such reservation
// exists, when it belongs to someone else, or when it is not tentative.
func (r *ReservationRepo) Confirm(ctx context.Context, userID, id uint64, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations r
		 JOIN schedules s ON s.id = r.schedule_id
		 SET r.kind = 'confirmed', r.last_updated = ?
		 WHERE r.id = ? AND r.user_id = ? AND r.kind = 'tentative' AND s.available`,
		now.UTC(), id, userID)
	if err != nil {
		return false, fmt.Errorf("confirm reservation %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("confirm reservation %d: %w", id, err)
	}
	return n == 1, nil
}

// CancelTx moves the user's reservation to cancelled unless it already is,
// and frees its seats. It reports false when nothing changed.
func (r *ReservationRepo) CancelTx(ctx context.Context, tx *sql.Tx, userID, id uint64, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET kind = 'cancelled', last_updated = ?
		 WHERE id = ? AND user_id = ? AND kind <> 'cancelled'`,
		now.UTC(), id, userID)
	if err != nil {
		return false, fmt.Errorf("cancel reservation %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel reservation %d: %w", id, err)
	}
	if n != 1 {
		return false, nil
	}
	if err := r.releaseSeatsTx(ctx, tx, []uint64{id}); err != nil {
		return false, err
	}
	return true, nil
}

// CountConfirmedTx counts confirmed reservations across the schedules.
func (r *ReservationRepo) CountConfirmedTx(ctx context.Context, tx *sql.Tx, scheduleIDs []uint64) (int, error) {
	if len(scheduleIDs) == 0 {
		return 0, nil
	}
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE kind = 'confirmed' AND schedule_id IN (`+placeholders(len(scheduleIDs))+`)`,
		uint64Args(scheduleIDs)...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count confirmed reservations: %w", err)
	}
	return n, nil
}

// ReservationRef identifies a reservation affected by a state change.
type ReservationRef struct {
	ID         uint64
	UserID     *uint64
	ScheduleID uint64
}

// CancelLiveTx cancels every tentative or confirmed reservation of the
// schedules and frees their seats. It returns what it cancelled.
func (r *ReservationRepo) CancelLiveTx(ctx context.Context, tx *sql.Tx, scheduleIDs []uint64, now time.Time) ([]ReservationRef, error) {
	if len(scheduleIDs) == 0 {
		return nil, nil
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT id, user_id, schedule_id FROM reservations
		 WHERE kind <> 'cancelled' AND schedule_id IN (`+placeholders(len(scheduleIDs))+`)
		 ORDER BY id FOR UPDATE`,
		uint64Args(scheduleIDs)...)
	if err != nil {
		return nil, fmt.Errorf("live reservations: %w", err)
	}
	var out []ReservationRef
	for rows.Next() {
		var (
			c   ReservationRef
			uid sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &uid, &c.ScheduleID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan live reservation: %w", err)
		}
		if uid.Valid {
			v := uint64(uid.Int64)
			c.UserID = &v
		}
		out = append(out, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("live reservations: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}

	ids := make([]uint64, len(out))
	for i, c := range out {
		ids[i] = c.ID
	}
	args := append([]any{now.UTC()}, uint64Args(ids)...)
	if _, err := tx.ExecContext(ctx,
		`UPDATE reservations SET kind = 'cancelled', last_updated = ? WHERE id IN (`+placeholders(len(ids))+`)`,
		args...); err != nil {
		return nil, fmt.Errorf("cancel reservations: %w", err)
	}
	if err := r.releaseSeatsTx(ctx, tx, ids); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReservationRepo) releaseSeatsTx(ctx context.Context, tx *sql.Tx, reservationIDs []uint64) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE reservation_seats SET active = NULL WHERE reservation_id IN (`+placeholders(len(reservationIDs))+`)`,
		uint64Args(reservationIDs)...); err != nil {
		return fmt.Errorf("release seats: %w", err)
	}
	return nil
}

const orderQuery = `SELECT r.id, r.schedule_id, r.kind, r.last_updated, m.title, s.start_time,
       l.address, c.friendly_name, cs.seat_row, cs.seat_number
FROM reservations r
JOIN schedules s ON s.id = r.schedule_id
JOIN movies m ON m.id = s.movie_id
JOIN cinemas c ON c.location_id = s.location_id AND c.id = s.cinema_id
JOIN locations l ON l.id = c.location_id
LEFT JOIN reservation_seats rs ON rs.reservation_id = r.id
LEFT JOIN cinema_seats cs ON cs.id = rs.seat_id
`

// History returns the user's reservations, latest showing first, each with
// its seat labels.
func (r *ReservationRepo) History(ctx context.Context, userID uint64) ([]model.OrderSummary, error) {
	return r.orders(ctx, orderQuery+`WHERE r.user_id = ?
ORDER BY s.start_time DESC, r.id DESC, cs.seat_row, cs.seat_number`, userID)
}

// Summary returns one reservation in the same shape as History.
func (r *ReservationRepo) Summary(ctx context.Context, id uint64) (model.OrderSummary, error) {
	out, err := r.orders(ctx, orderQuery+`WHERE r.id = ?
ORDER BY cs.seat_row, cs.seat_number`, id)
	if err != nil {
		return model.OrderSummary{}, err
	}
	if len(out) == 0 {
		return model.OrderSummary{}, sql.ErrNoRows
	}
	return out[0], nil
}

func (r *ReservationRepo) orders(ctx context.Context, q string, args ...any) ([]model.OrderSummary, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("order history: %w", err)
	}
	defer rows.Close()
	out := []model.OrderSummary{}
	for rows.Next() {
		var (
			o   model.OrderSummary
			row sql.NullString
			num sql.NullInt64
		)
		if err := rows.Scan(&o.ReservationID, &o.ScheduleID, &o.Status, &o.LastUpdated, &o.Title,
			&o.StartTime, &o.Address, &o.Cinema, &row, &num); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if !o.Status.Valid() {
			return nil, fmt.Errorf("reservation %d has unknown kind %q", o.ReservationID, o.Status)
		}
		if n := len(out); n == 0 || out[n-1].ReservationID != o.ReservationID {
			o.StartTime, o.LastUpdated = o.StartTime.UTC(), o.LastUpdated.UTC()
			o.Seats = []string{}
			out = append(out, o)
		}
		if row.Valid && num.Valid {
			last := &out[len(out)-1]
			last.Seats = append(last.Seats, model.CinemaSeat{SeatRow: row.String, SeatNumber: uint32(num.Int64)}.Label())
		}
	}
	return out, rows.Err()
}
