package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/cinema-reservation/internal/model"
)

// MovieRepo reads and writes movies and their genres.
type MovieRepo struct {
	db *sql.DB
}

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// MovieLock is the part of a movie row the scheduling code needs while the
// row is locked.
type MovieLock struct {
	ID          uint64
	DurationMin uint32
	Available   bool
}

// LockTx locks the movie row until the transaction ends. Schedule writes
// for the same movie serialise on this lock.
func (r *MovieRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (MovieLock, error) {
	var m MovieLock
	err := tx.QueryRowContext(ctx,
		`SELECT id, duration, available FROM movies WHERE id = ? FOR UPDATE`, id,
	).Scan(&m.ID, &m.DurationMin, &m.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return MovieLock{}, ErrMovieNotFound
	}
	if err != nil {
		return MovieLock{}, fmt.Errorf("lock movie %d: %w", id, err)
	}
	return m, nil
}

// CreateTx inserts the movie and its genres and returns the new id.
func (r *MovieRepo) CreateTx(ctx context.Context, tx *sql.Tx, m model.Movie) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO movies (title, description, duration, available) VALUES (?, ?, ?, TRUE)`,
		m.Title, m.Description, m.DurationMin)
	if err != nil {
		return 0, fmt.Errorf("insert movie: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert movie: %w", err)
	}
	if err := r.insertGenresTx(ctx, tx, uint64(id), m.Genres); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// UpdateTx replaces the movie's fields and genre set. The row must already
// be locked by the caller.
func (r *MovieRepo) UpdateTx(ctx context.Context, tx *sql.Tx, m model.Movie) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE movies SET title = ?, description = ?, duration = ? WHERE id = ?`,
		m.Title, m.Description, m.DurationMin, m.ID); err != nil {
		return fmt.Errorf("update movie %d: %w", m.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM movie_genres WHERE movie_id = ?`, m.ID); err != nil {
		return fmt.Errorf("clear genres of movie %d: %w", m.ID, err)
	}
	return r.insertGenresTx(ctx, tx, m.ID, m.Genres)
}

func (r *MovieRepo) insertGenresTx(ctx context.Context, tx *sql.Tx, movieID uint64, genres []string) error {
	if len(genres) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO movie_genres (movie_id, genre_name) VALUES `)
	args := make([]any, 0, len(genres)*2)
	for i, g := range genres {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?)")
		args = append(args, movieID, g)
	}
	if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert genres of movie %d: %w", movieID, err)
	}
	return nil
}

// SetAvailableTx flips the soft-delete flag of a locked movie row.
func (r *MovieRepo) SetAvailableTx(ctx context.Context, tx *sql.Tx, id uint64, available bool) error {
	if _, err := tx.ExecContext(ctx, `UPDATE movies SET available = ? WHERE id = ?`, available, id); err != nil {
		return fmt.Errorf("set movie %d available=%t: %w", id, available, err)
	}
	return nil
}

// Reactivate marks a movie available again.
func (r *MovieRepo) Reactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE movies SET available = TRUE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("reactivate movie %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 affected rows when the value is unchanged, so
		// tell "already available" apart from "missing".
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM movies WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMovieNotFound
		}
		if err != nil {
			return fmt.Errorf("reactivate movie %d: %w", id, err)
		}
	}
	return nil
}

// GetByID returns an available movie with its genres.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (model.Movie, error) {
	movies, err := r.list(ctx, `WHERE m.id = ? AND m.available`, id)
	if err != nil {
		return model.Movie{}, err
	}
	if len(movies) == 0 {
		return model.Movie{}, ErrMovieNotFound
	}
	return movies[0], nil
}

// List returns available movies, restricted to one genre when genre is
// not empty. The matched movies still carry all of their genres.
func (r *MovieRepo) List(ctx context.Context, genre string) ([]model.Movie, error) {
	if genre == "" {
		return r.list(ctx, `WHERE m.available`)
	}
	return r.list(ctx,
		`WHERE m.available AND m.id IN (SELECT movie_id FROM movie_genres WHERE genre_name = ?)`, genre)
}

func (r *MovieRepo) list(ctx context.Context, where string, args ...any) ([]model.Movie, error) {
	q := `SELECT m.id, m.title, m.description, m.duration, m.available, mg.genre_name
	      FROM movies m
	      LEFT JOIN movie_genres mg ON mg.movie_id = m.id ` + where + `
	      ORDER BY m.id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	var out []model.Movie
	for rows.Next() {
		var (
			m     model.Movie
			genre sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.DurationMin, &m.Available, &genre); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		if n := len(out); n == 0 || out[n-1].ID != m.ID {
			m.Genres = []string{}
			out = append(out, m)
		}
		if genre.Valid {
			last := &out[len(out)-1]
			last.Genres = append(last.Genres, genre.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	for i := range out {
		sort.Strings(out[i].Genres)
	}
	return out, nil
}
