package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduleManager(f fixture) *ScheduleManager {
	d := newDeactivationManager(f, nil)
	m := NewScheduleManager(f.store, f.repos, NewConflictDetector(f.repos), d, quiet())
	m.now = fixedClock
	return m
}

func (f fixture) expectCinema(found bool) {
	q := f.mock.ExpectQuery(`SELECT 1 FROM cinemas WHERE location_id = \? AND id = \?`).WithArgs(1, 2)
	if found {
		q.WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		return
	}
	q.WillReturnError(sql.ErrNoRows)
}

func (f fixture) expectNeighbours(exclude uint64, starts ...time.Time) {
	rows := sqlmock.NewRows([]string{"start_time"})
	for _, s := range starts {
		rows.AddRow(s)
	}
	f.mock.ExpectQuery(`DATE_SUB\(\?, INTERVAL 1 DAY\)`).
		WithArgs(3, 1, 2, sqlmock.AnyArg(), sqlmock.AnyArg(), exclude).
		WillReturnRows(rows)
}

func TestCreateSchedule(t *testing.T) {
	start := now.Add(72 * time.Hour)
	in := NewSchedule{MovieID: 3, LocationID: 1, CinemaID: 2, StartTime: start}

	t.Run("back to back is allowed", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.expectCinema(true)
		f.expectMovieLock(3, 120, true)
		f.expectNeighbours(0, start.Add(-2*time.Hour), start.Add(2*time.Hour))
		f.mock.ExpectExec(`INSERT INTO schedules`).
			WithArgs(3, 1, 2, start).
			WillReturnResult(sqlmock.NewResult(40, 1))
		f.mock.ExpectCommit()

		id, err := newScheduleManager(f).Create(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, uint64(40), id)
	})
	t.Run("overlap clashes", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.expectCinema(true)
		f.expectMovieLock(3, 120, true)
		f.expectNeighbours(0, start.Add(90*time.Minute))
		f.mock.ExpectRollback()

		_, err := newScheduleManager(f).Create(context.Background(), in)
		assert.ErrorIs(t, err, ErrClash)
	})
	t.Run("withdrawn movie", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.expectCinema(true)
		f.expectMovieLock(3, 120, false)
		f.mock.ExpectRollback()

		_, err := newScheduleManager(f).Create(context.Background(), in)
		assert.ErrorIs(t, err, ErrMovieNotFound)
	})
	t.Run("unknown movie", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.expectCinema(true)
		f.mock.ExpectQuery(`FROM movies WHERE id = \? FOR UPDATE`).WillReturnError(sql.ErrNoRows)
		f.mock.ExpectRollback()

		_, err := newScheduleManager(f).Create(context.Background(), in)
		assert.ErrorIs(t, err, ErrMovieNotFound)
	})
	t.Run("cinema not at location", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.expectCinema(false)
		f.mock.ExpectRollback()

		_, err := newScheduleManager(f).Create(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
	t.Run("past start", func(t *testing.T) {
		f := newFixture(t)
		past := in
		past.StartTime = now.Add(-time.Minute)

		_, err := newScheduleManager(f).Create(context.Background(), past)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestUpdateScheduleExcludesItselfFromClashCheck(t *testing.T) {
	f := newFixture(t)
	old := now.Add(24 * time.Hour)
	moved := old.Add(30 * time.Minute)

	f.mock.ExpectBegin()
	f.expectScheduleLock(7, old, true)
	f.expectConfirmedCount(0)
	f.mock.ExpectQuery(`SELECT id, user_id, schedule_id FROM reservations`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "schedule_id"}))
	f.expectMovieLock(3, 120, true)
	f.expectNeighbours(7)
	f.mock.ExpectExec(`UPDATE schedules SET movie_id = \?, location_id = \?, cinema_id = \?, start_time = \? WHERE id = \?`).
		WithArgs(3, 1, 2, moved, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	err := newScheduleManager(f).Update(context.Background(), 7, ScheduleChanges{StartTime: &moved}, false)
	assert.NoError(t, err)
}

func TestUpdateScheduleBlockedUnlessForced(t *testing.T) {
	f := newFixture(t)
	old := now.Add(24 * time.Hour)
	moved := old.Add(time.Hour)

	f.mock.ExpectBegin()
	f.expectScheduleLock(7, old, true)
	f.expectConfirmedCount(1)
	f.mock.ExpectRollback()

	err := newScheduleManager(f).Update(context.Background(), 7, ScheduleChanges{StartTime: &moved}, false)
	assert.ErrorIs(t, err, ErrBlockedByReservation)
}

func TestUpdateScheduleWithoutChangesIsNoop(t *testing.T) {
	f := newFixture(t)
	start := now.Add(24 * time.Hour)
	movie := uint64(3)

	f.mock.ExpectBegin()
	f.expectScheduleLock(7, start, true)
	f.mock.ExpectCommit()

	err := newScheduleManager(f).Update(context.Background(), 7, ScheduleChanges{MovieID: &movie}, false)
	assert.NoError(t, err)
}

func TestUpdatePastScheduleWithUnchangedStartIsNoop(t *testing.T) {
	f := newFixture(t)
	start := now.Add(-time.Hour)

	f.mock.ExpectBegin()
	f.expectScheduleLock(7, start, true)
	f.mock.ExpectCommit()

	err := newScheduleManager(f).Update(context.Background(), 7, ScheduleChanges{StartTime: &start}, false)
	assert.NoError(t, err)
}

func TestUpdateScheduleIntoThePastIsRejected(t *testing.T) {
	f := newFixture(t)
	moved := now.Add(-time.Minute)

	f.mock.ExpectBegin()
	f.expectScheduleLock(7, now.Add(24*time.Hour), true)
	f.mock.ExpectRollback()

	err := newScheduleManager(f).Update(context.Background(), 7, ScheduleChanges{StartTime: &moved}, false)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMovingPastScheduleForwardIsBlockedUnlessForced(t *testing.T) {
	past := now.Add(-time.Hour)
	moved := now.Add(24 * time.Hour)

	t.Run("blocked", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.expectScheduleLock(7, past, true)
		f.expectConfirmedCount(1)
		f.mock.ExpectRollback()

		err := newScheduleManager(f).Update(context.Background(), 7, ScheduleChanges{StartTime: &moved}, false)
		assert.ErrorIs(t, err, ErrBlockedByReservation)
	})
	t.Run("forced", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.expectScheduleLock(7, past, true)
		f.expectConfirmedCount(1)
		f.mock.ExpectQuery(`SELECT id, user_id, schedule_id FROM reservations`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "schedule_id"}).AddRow(40, 8, 7))
		f.mock.ExpectExec(`UPDATE reservations SET kind = 'cancelled'`).
			WithArgs(now, 40).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectExec(`UPDATE reservation_seats SET active = NULL`).
			WithArgs(40).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.expectMovieLock(3, 120, true)
		f.expectNeighbours(7)
		f.mock.ExpectExec(`UPDATE schedules SET movie_id = \?, location_id = \?, cinema_id = \?, start_time = \? WHERE id = \?`).
			WithArgs(3, 1, 2, moved, 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectCommit()

		err := newScheduleManager(f).Update(context.Background(), 7, ScheduleChanges{StartTime: &moved}, true)
		assert.NoError(t, err)
	})
}

func TestUpdateWithdrawnScheduleIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.expectScheduleLock(7, now.Add(time.Hour), false)
	f.mock.ExpectRollback()

	err := newScheduleManager(f).Update(context.Background(), 7, ScheduleChanges{}, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCinemaDayUnknownCinema(t *testing.T) {
	f := newFixture(t)
	f.expectCinema(false)

	_, err := newScheduleManager(f).CinemaDay(context.Background(), 1, 2, now)
	assert.ErrorIs(t, err, ErrNotFound)
}
