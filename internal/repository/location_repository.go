package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-reservation/internal/database"
	"github.com/iliyamo/cinema-reservation/internal/model"
)

// LocationRepo exposes venues and their cinemas.
type LocationRepo struct {
	db *sql.DB
}

func NewLocationRepo(db *sql.DB) *LocationRepo { return &LocationRepo{db: db} }

// List returns every location with its cinemas.
func (r *LocationRepo) List(ctx context.Context) ([]model.Location, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT l.id, l.address, c.id, c.friendly_name
		 FROM locations l
		 LEFT JOIN cinemas c ON c.location_id = l.id
		 ORDER BY l.id, c.id`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()
	out := []model.Location{}
	for rows.Next() {
		var (
			l        model.Location
			cinemaID sql.NullInt64
			name     sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.Address, &cinemaID, &name); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		if n := len(out); n == 0 || out[n-1].ID != l.ID {
			l.Cinemas = []model.Cinema{}
			out = append(out, l)
		}
		if cinemaID.Valid {
			last := &out[len(out)-1]
			last.Cinemas = append(last.Cinemas, model.Cinema{
				ID: uint64(cinemaID.Int64), LocationID: l.ID, FriendlyName: name.String,
			})
		}
	}
	return out, rows.Err()
}

// CinemaExists returns ErrCinemaNotFound unless the cinema belongs to the location.
func (r *LocationRepo) CinemaExists(ctx context.Context, q database.Querier, locationID, cinemaID uint64) error {
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM cinemas WHERE location_id = ? AND id = ?`, locationID, cinemaID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCinemaNotFound
	}
	if err != nil {
		return fmt.Errorf("cinema %d/%d: %w", locationID, cinemaID, err)
	}
	return nil
}
