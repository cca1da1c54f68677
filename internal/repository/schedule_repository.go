package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/cinema-reservation/internal/model"
)

// ScheduleRepo reads and writes showtimes. All times are stored and
// compared in UTC.
type ScheduleRepo struct {
	db *sql.DB
}

func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

const scheduleCols = `id, movie_id, location_id, cinema_id, start_time, available`

func scanSchedule(row interface{ Scan(...any) error }) (model.Schedule, error) {
	var s model.Schedule
	err := row.Scan(&s.ID, &s.MovieID, &s.LocationID, &s.CinemaID, &s.StartTime, &s.Available)
	s.StartTime = s.StartTime.UTC()
	return s, err
}

// LockTx loads the schedule and locks its row until the transaction ends.
// Reservations for one schedule serialise on this lock.
func (r *ScheduleRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Schedule, error) {
	s, err := scanSchedule(tx.QueryRowContext(ctx,
		`SELECT `+scheduleCols+` FROM schedules WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Schedule{}, ErrScheduleNotFound
	}
	if err != nil {
		return model.Schedule{}, fmt.Errorf("lock schedule %d: %w", id, err)
	}
	return s, nil
}

// SlotQuery selects the schedules that could clash with a proposed one.
type SlotQuery struct {
	MovieID    uint64
	LocationID uint64
	CinemaID   uint64
	Start      time.Time
	ExcludeID  uint64 // 0 excludes nothing
}

// NeighbourStartsTx returns the start times of the available schedules of
// the same movie in the same cinema whose start date lies within one day of
// q.Start. Exact overlap is decided by the caller.
func (r *ScheduleRepo) NeighbourStartsTx(ctx context.Context, tx *sql.Tx, q SlotQuery) ([]time.Time, error) {
	day := q.Start.UTC().Format("2006-01-02")
	rows, err := tx.QueryContext(ctx,
		`SELECT start_time FROM schedules
		 WHERE movie_id = ? AND location_id = ? AND cinema_id = ? AND available
		   AND DATE(start_time) BETWEEN DATE_SUB(?, INTERVAL 1 DAY) AND DATE_ADD(?, INTERVAL 1 DAY)
		   AND id <> ?`,
		q.MovieID, q.LocationID, q.CinemaID, day, day, q.ExcludeID)
	if err != nil {
		return nil, fmt.Errorf("neighbour schedules: %w", err)
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan neighbour schedule: %w", err)
		}
		out = append(out, t.UTC())
	}
	return out, rows.Err()
}

// CreateTx inserts an available schedule and returns its id.
func (r *ScheduleRepo) CreateTx(ctx context.Context, tx *sql.Tx, s model.Schedule) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO schedules (movie_id, location_id, cinema_id, start_time, available) VALUES (?, ?, ?, ?, TRUE)`,
		s.MovieID, s.LocationID, s.CinemaID, s.StartTime.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert schedule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert schedule: %w", err)
	}
	return uint64(id), nil
}

// UpdateTx rewrites the movie, cinema and start of a locked schedule.
func (r *ScheduleRepo) UpdateTx(ctx context.Context, tx *sql.Tx, s model.Schedule) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE schedules SET movie_id = ?, location_id = ?, cinema_id = ?, start_time = ? WHERE id = ?`,
		s.MovieID, s.LocationID, s.CinemaID, s.StartTime.UTC(), s.ID); err != nil {
		return fmt.Errorf("update schedule %d: %w", s.ID, err)
	}
	return nil
}

// SetAvailableTx flips the soft-delete flag of a locked schedule.
func (r *ScheduleRepo) SetAvailableTx(ctx context.Context, tx *sql.Tx, id uint64, available bool) error {
	if _, err := tx.ExecContext(ctx, `UPDATE schedules SET available = ? WHERE id = ?`, available, id); err != nil {
		return fmt.Errorf("set schedule %d available=%t: %w", id, available, err)
	}
	return nil
}

// LockFutureForMovieTx locks and returns the ids of the movie's available
// schedules starting after now.
func (r *ScheduleRepo) LockFutureForMovieTx(ctx context.Context, tx *sql.Tx, movieID uint64, now time.Time) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM schedules WHERE movie_id = ? AND available AND start_time > ? ORDER BY id FOR UPDATE`,
		movieID, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("future schedules of movie %d: %w", movieID, err)
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan schedule id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RetireTx marks the given schedules unavailable.
func (r *ScheduleRepo) RetireTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE schedules SET available = FALSE WHERE id IN (`+placeholders(len(ids))+`)`,
		uint64Args(ids)...); err != nil {
		return fmt.Errorf("retire schedules: %w", err)
	}
	return nil
}

// Overview returns the customer-facing summary of a schedule.
func (r *ScheduleRepo) Overview(ctx context.Context, id uint64) (model.ScheduleOverview, error) {
	var o model.ScheduleOverview
	err := r.db.QueryRowContext(ctx,
		`SELECT s.id, l.address, c.friendly_name, m.title, s.start_time, s.available
		 FROM schedules s
		 JOIN cinemas c ON c.location_id = s.location_id AND c.id = s.cinema_id
		 JOIN locations l ON l.id = c.location_id
		 JOIN movies m ON m.id = s.movie_id
		 WHERE s.id = ?`, id,
	).Scan(&o.ID, &o.Address, &o.Cinema, &o.Title, &o.StartTime, &o.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScheduleOverview{}, ErrScheduleNotFound
	}
	if err != nil {
		return model.ScheduleOverview{}, fmt.Errorf("schedule overview %d: %w", id, err)
	}
	o.StartTime = o.StartTime.UTC()
	return o, nil
}

// CinemaDay lists a cinema's programme for one UTC calendar day, including
// soft-deleted entries so administrators see the whole picture.
func (r *ScheduleRepo) CinemaDay(ctx context.Context, locationID, cinemaID uint64, day time.Time) ([]model.CinemaSlot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, m.title, s.start_time, DATE_ADD(s.start_time, INTERVAL m.duration MINUTE), s.available
		 FROM schedules s
		 JOIN movies m ON m.id = s.movie_id
		 WHERE s.location_id = ? AND s.cinema_id = ? AND DATE(s.start_time) = ?
		 ORDER BY s.start_time`,
		locationID, cinemaID, day.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("cinema day: %w", err)
	}
	defer rows.Close()
	out := []model.CinemaSlot{}
	for rows.Next() {
		var s model.CinemaSlot
		if err := rows.Scan(&s.ID, &s.Title, &s.Start, &s.End, &s.Available); err != nil {
			return nil, fmt.Errorf("scan cinema slot: %w", err)
		}
		s.Start, s.End = s.Start.UTC(), s.End.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// ScheduleFilter narrows Upcoming. Zero values mean "any".
type ScheduleFilter struct {
	MovieID    uint64
	LocationID uint64
	Day        time.Time
}

// Upcoming lists available schedules starting after now, optionally
// narrowed by movie, location and day.
func (r *ScheduleRepo) Upcoming(ctx context.Context, f ScheduleFilter, now time.Time) ([]model.Schedule, error) {
	where := []string{"available", "start_time > ?"}
	args := []any{now.UTC()}
	if f.MovieID != 0 {
		where = append(where, "movie_id = ?")
		args = append(args, f.MovieID)
	}
	if f.LocationID != 0 {
		where = append(where, "location_id = ?")
		args = append(args, f.LocationID)
	}
	if !f.Day.IsZero() {
		where = append(where, "DATE(start_time) = ?")
		args = append(args, f.Day.UTC().Format("2006-01-02"))
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+scheduleCols+` FROM schedules WHERE `+strings.Join(where, " AND ")+` ORDER BY start_time, id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("upcoming schedules: %w", err)
	}
	defer rows.Close()
	out := []model.Schedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func uint64Args(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
