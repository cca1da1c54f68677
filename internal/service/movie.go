package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"

	"github.com/iliyamo/cinema-reservation/internal/database"
	"github.com/iliyamo/cinema-reservation/internal/model"
	"github.com/iliyamo/cinema-reservation/internal/repository"
)

const maxTitleLen = 255

// MovieManager maintains the movie catalogue.
type MovieManager struct {
	store        *database.Store
	movies       *repository.MovieRepo
	deactivation *DeactivationManager
	logger       hclog.Logger
}

func NewMovieManager(store *database.Store, repos Repos, deactivation *DeactivationManager, logger hclog.Logger) *MovieManager {
	return &MovieManager{
		store:        store,
		movies:       repos.Movies,
		deactivation: deactivation,
		logger:       logger.Named("movies"),
	}
}

// NewMovie carries the editable fields of a movie.
type NewMovie struct {
	Title       string
	Description string
	DurationMin uint32
	Genres      []string
}

func (in NewMovie) normalize(op string) (model.Movie, error) {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return model.Movie{}, invalid(op, "title is required")
	case utf8.RuneCountInString(title) > maxTitleLen:
		return model.Movie{}, invalid(op, "title longer than %d characters", maxTitleLen)
	case in.DurationMin == 0:
		return model.Movie{}, invalid(op, "duration must be a positive number of minutes")
	}
	return model.Movie{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		DurationMin: in.DurationMin,
		Available:   true,
		Genres:      NormalizeGenres(in.Genres),
	}, nil
}

// NormalizeGenres lower-cases and trims genre names, drops blanks and
// duplicates and sorts the result.
func NormalizeGenres(genres []string) []string {
	seen := make(map[string]struct{}, len(genres))
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Create inserts an available movie with its genres.
func (m *MovieManager) Create(ctx context.Context, in NewMovie) (uint64, error) {
	const op = "create movie"
	movie, err := in.normalize(op)
	if err != nil {
		return 0, err
	}
	var id uint64
	err = m.store.InTx(ctx, func(tx *sql.Tx) (err error) {
		id, err = m.movies.CreateTx(ctx, tx, movie)
		return err
	})
	if err != nil {
		m.logger.Error("create movie failed", "title", movie.Title, "error", err)
		return 0, newError(KindFailed, op, err)
	}
	m.logger.Info("movie created", "movie_id", id, "title", movie.Title)
	return id, nil
}

// Update replaces the movie's fields and genre set. Existing schedules keep
// their start times when the duration changes.
func (m *MovieManager) Update(ctx context.Context, movieID uint64, in NewMovie) error {
	const op = "update movie"
	movie, err := in.normalize(op)
	if err != nil {
		return err
	}
	movie.ID = movieID
	err = m.store.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := m.movies.LockTx(ctx, tx, movieID); err != nil {
			if errors.Is(err, repository.ErrMovieNotFound) {
				return newError(KindNotFound, op, err)
			}
			return err
		}
		return m.movies.UpdateTx(ctx, tx, movie)
	})
	if err != nil {
		if KindOf(err) == KindFailed {
			m.logger.Error("update movie failed", "movie_id", movieID, "error", err)
		}
		return asFailure(op, err)
	}
	m.logger.Info("movie updated", "movie_id", movieID)
	return nil
}

// Reactivate makes a withdrawn movie available again. Its retired schedules
// stay withdrawn.
func (m *MovieManager) Reactivate(ctx context.Context, movieID uint64) error {
	const op = "reactivate movie"
	err := m.movies.Reactivate(ctx, movieID)
	if errors.Is(err, repository.ErrMovieNotFound) {
		return newError(KindNotFound, op, err)
	}
	if err != nil {
		m.logger.Error("reactivate movie failed", "movie_id", movieID, "error", err)
		return newError(KindFailed, op, err)
	}
	m.logger.Info("movie reactivated", "movie_id", movieID)
	return nil
}

// Delete withdraws the movie; see DeactivationManager.DeactivateMovie.
func (m *MovieManager) Delete(ctx context.Context, movieID uint64, force bool) error {
	return m.deactivation.DeactivateMovie(ctx, movieID, force)
}

// Get returns an available movie.
func (m *MovieManager) Get(ctx context.Context, movieID uint64) (model.Movie, error) {
	movie, err := m.movies.GetByID(ctx, movieID)
	if errors.Is(err, repository.ErrMovieNotFound) {
		return movie, newError(KindNotFound, "get movie", err)
	}
	if err != nil {
		return movie, newError(KindFailed, "get movie", err)
	}
	return movie, nil
}

// List returns available movies, optionally of one genre.
func (m *MovieManager) List(ctx context.Context, genre string) ([]model.Movie, error) {
	movies, err := m.movies.List(ctx, strings.ToLower(strings.TrimSpace(genre)))
	if err != nil {
		return nil, newError(KindFailed, "list movies", err)
	}
	if movies == nil {
		movies = []model.Movie{}
	}
	return movies, nil
}
