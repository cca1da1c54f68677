package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMovieManager(f fixture) *MovieManager {
	return NewMovieManager(f.store, f.repos, newDeactivationManager(f, nil), quiet())
}

func TestCreateMovieValidates(t *testing.T) {
	f := newFixture(t)
	m := newMovieManager(f)

	_, err := m.Create(context.Background(), NewMovie{Title: "  ", DurationMin: 90})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = m.Create(context.Background(), NewMovie{Title: "Heat"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateMovieWritesGenresInSameTransaction(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`INSERT INTO movies`).
		WithArgs("Heat", "", 170).
		WillReturnResult(sqlmock.NewResult(12, 1))
	f.mock.ExpectExec(`INSERT INTO movie_genres \(movie_id, genre_name\) VALUES \(\?, \?\),\(\?, \?\)`).
		WithArgs(12, "crime", 12, "thriller").
		WillReturnResult(sqlmock.NewResult(0, 2))
	f.mock.ExpectCommit()

	id, err := newMovieManager(f).Create(context.Background(), NewMovie{
		Title: " Heat ", DurationMin: 170, Genres: []string{"Thriller", "crime", "CRIME"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)
}

func TestUpdateUnknownMovie(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM movies WHERE id = \? FOR UPDATE`).WillReturnError(sql.ErrNoRows)
	f.mock.ExpectRollback()

	err := newMovieManager(f).Update(context.Background(), 4, NewMovie{Title: "Heat", DurationMin: 170})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReactivateUnknownMovie(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectExec(`UPDATE movies SET available = TRUE`).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectQuery(`SELECT 1 FROM movies`).WillReturnError(sql.ErrNoRows)

	err := newMovieManager(f).Reactivate(context.Background(), 4)
	assert.ErrorIs(t, err, ErrNotFound)
}
