package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-reservation/internal/database"
	"github.com/iliyamo/cinema-reservation/internal/queue"
)

var now = time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

type recordingPublisher struct {
	events []queue.ReservationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

type fixture struct {
	db    *sql.DB
	mock  sqlmock.Sqlmock
	store *database.Store
	repos Repos
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return fixture{db: db, mock: mock, store: database.NewStore(db), repos: NewRepos(db)}
}

var scheduleColumns = []string{"id", "movie_id", "location_id", "cinema_id", "start_time", "available"}

func (f fixture) expectScheduleLock(id uint64, start time.Time, available bool) {
	f.mock.ExpectQuery(`FROM schedules WHERE id = \? FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(scheduleColumns).AddRow(id, 3, 1, 2, start, available))
}

func (f fixture) expectMovieLock(id uint64, duration uint32, available bool) {
	f.mock.ExpectQuery(`FROM movies WHERE id = \? FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "duration", "available"}).AddRow(id, duration, available))
}

func (f fixture) expectConfirmedCount(n int) {
	f.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reservations WHERE kind = 'confirmed'`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(n))
}

func quiet() hclog.Logger { return hclog.NewNullLogger() }

func TestOverlaps(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2030, 1, 1, h, m, 0, 0, time.UTC) }
	cases := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		want           bool
	}{
		{"identical", at(10, 0), at(12, 0), at(10, 0), at(12, 0), true},
		{"partial", at(10, 0), at(12, 0), at(11, 0), at(13, 0), true},
		{"contained", at(10, 0), at(14, 0), at(11, 0), at(12, 0), true},
		{"touching", at(10, 0), at(12, 0), at(12, 0), at(14, 0), false},
		{"disjoint", at(10, 0), at(11, 0), at(13, 0), at(14, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.s1, tc.e1, tc.s2, tc.e2))
			assert.Equal(t, tc.want, Overlaps(tc.s2, tc.e2, tc.s1, tc.e1), "not symmetric")
		})
	}
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("boom")
	err := newError(KindClash, "create schedule", cause)

	assert.ErrorIs(t, err, ErrClash)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "create schedule: schedule clash: boom", err.Error())

	assert.Equal(t, KindFailed, KindOf(cause))
	assert.Equal(t, KindClash, KindOf(err))

	wrapped := asFailure("op", cause)
	assert.Equal(t, KindFailed, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Same(t, err, asFailure("op", err))
	assert.NoError(t, asFailure("op", nil))
}

func TestNormalizeLabels(t *testing.T) {
	got, err := NormalizeLabels([]string{" a1", "B12 "})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B12"}, got)

	for _, in := range [][]string{nil, {""}, {"A1", "a1"}} {
		_, err := NormalizeLabels(in)
		assert.Error(t, err, "%v", in)
	}
}

func TestNormalizeGenres(t *testing.T) {
	assert.Equal(t, []string{"drama", "thriller"}, NormalizeGenres([]string{"Thriller", " drama", "", "DRAMA"}))
	assert.Empty(t, NormalizeGenres(nil))
}
