package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-reservation/internal/queue"
)

func newReservationManager(f fixture, pub EventPublisher) *ReservationManager {
	resolver := NewAvailabilityResolver(f.store, f.repos, quiet())
	m := NewReservationManager(f.store, f.repos, resolver, pub, quiet())
	m.now = fixedClock
	return m
}

func (f fixture) expectReserved(labels ...[2]any) {
	rows := sqlmock.NewRows([]string{"seat_row", "seat_number"})
	for _, l := range labels {
		rows.AddRow(l[0], l[1])
	}
	f.mock.ExpectQuery(`r\.schedule_id = \? AND r\.kind <> 'cancelled'`).WithArgs(5).WillReturnRows(rows)
}

func TestReserveCreatesTentativeReservation(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.expectScheduleLock(5, now.Add(24*time.Hour), true)
	f.expectReserved([2]any{"A", 1})
	f.mock.ExpectQuery(`CONCAT\(seat_row, seat_number\) IN \(\?,\?\)`).
		WithArgs(1, 2, "A2", "B1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "seat_row", "seat_number"}).
			AddRow(11, "A", 2).
			AddRow(12, "B", 1))
	f.mock.ExpectExec(`INSERT INTO reservations`).
		WithArgs(7, 5, now).
		WillReturnResult(sqlmock.NewResult(77, 1))
	f.mock.ExpectExec(`INSERT INTO reservation_seats`).
		WithArgs(77, 5, 11, 77, 5, 12).
		WillReturnResult(sqlmock.NewResult(0, 2))
	f.mock.ExpectCommit()

	id, err := newReservationManager(f, nil).Reserve(context.Background(), 7, 5, []string{"a2", "B1"})
	require.NoError(t, err)
	assert.Equal(t, uint64(77), id)
}

func TestReservePublishesCreatedEventAfterCommit(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{}
	f.mock.ExpectBegin()
	f.expectScheduleLock(5, now.Add(24*time.Hour), true)
	f.expectReserved()
	f.mock.ExpectQuery(`CONCAT\(seat_row, seat_number\) IN \(\?\)`).
		WithArgs(1, 2, "A3").
		WillReturnRows(sqlmock.NewRows([]string{"id", "seat_row", "seat_number"}).AddRow(13, "A", 3))
	f.mock.ExpectExec(`INSERT INTO reservations`).WillReturnResult(sqlmock.NewResult(78, 1))
	f.mock.ExpectExec(`INSERT INTO reservation_seats`).
		WithArgs(78, 5, 13).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()
	f.mock.ExpectQuery(`WHERE r\.id = \?`).WithArgs(78).WillReturnError(sql.ErrConnDone)

	id, err := newReservationManager(f, pub).Reserve(context.Background(), 7, 5, []string{"A3"})
	require.NoError(t, err)
	assert.Equal(t, uint64(78), id)
	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, queue.ReservationCreated, ev.Type)
	assert.Equal(t, uint64(78), ev.ReservationID)
	assert.Equal(t, uint64(5), ev.ScheduleID)
	require.NotNil(t, ev.UserID)
	assert.Equal(t, uint64(7), *ev.UserID)
}

func TestReserveMatchesLowerCaseStoredRows(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.expectScheduleLock(5, now.Add(24*time.Hour), true)
	f.expectReserved()
	f.mock.ExpectQuery(`CONCAT\(seat_row, seat_number\) IN \(\?\)`).
		WithArgs(1, 2, "A1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "seat_row", "seat_number"}).AddRow(21, "a", 1))
	f.mock.ExpectExec(`INSERT INTO reservations`).WillReturnResult(sqlmock.NewResult(79, 1))
	f.mock.ExpectExec(`INSERT INTO reservation_seats`).
		WithArgs(79, 5, 21).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	id, err := newReservationManager(f, nil).Reserve(context.Background(), 7, 5, []string{"a1"})
	require.NoError(t, err)
	assert.Equal(t, uint64(79), id)
}

func TestReserveSeesLowerCaseRowAsTaken(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.expectScheduleLock(5, now.Add(24*time.Hour), true)
	f.expectReserved([2]any{"a", 1})
	f.mock.ExpectRollback()

	_, err := newReservationManager(f, nil).Reserve(context.Background(), 7, 5, []string{"A1"})
	assert.ErrorIs(t, err, ErrSeatAlreadyReserved)
}

func TestReserveRejectsInvalidInputWithoutTouchingTheStore(t *testing.T) {
	f := newFixture(t)
	_, err := newReservationManager(f, nil).Reserve(context.Background(), 7, 5, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReserveUnknownOrWithdrawnSchedule(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(`FROM schedules WHERE id = \? FOR UPDATE`).WillReturnError(sql.ErrNoRows)
		f.mock.ExpectRollback()

		_, err := newReservationManager(f, nil).Reserve(context.Background(), 7, 5, []string{"A1"})
		assert.ErrorIs(t, err, ErrInvalidSchedule)
	})
	t.Run("withdrawn", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.expectScheduleLock(5, now.Add(time.Hour), false)
		f.mock.ExpectRollback()

		_, err := newReservationManager(f, nil).Reserve(context.Background(), 7, 5, []string{"A1"})
		assert.ErrorIs(t, err, ErrInvalidSchedule)
	})
}

func TestReserveSeatAlreadyReserved(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.expectScheduleLock(5, now.Add(time.Hour), true)
	f.expectReserved([2]any{"A", 1}, [2]any{"C", 3})
	f.mock.ExpectRollback()

	_, err := newReservationManager(f, nil).Reserve(context.Background(), 7, 5, []string{"A1", "A2"})
	require.ErrorIs(t, err, ErrSeatAlreadyReserved)
	var taken *SeatsTakenError
	require.ErrorAs(t, err, &taken)
	assert.Equal(t, []string{"A1"}, taken.Labels)
}

func TestReserveUnknownSeatFails(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.expectScheduleLock(5, now.Add(time.Hour), true)
	f.expectReserved()
	f.mock.ExpectQuery(`FROM cinema_seats`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "seat_row", "seat_number"}).AddRow(11, "A", 2))
	f.mock.ExpectRollback()

	_, err := newReservationManager(f, nil).Reserve(context.Background(), 7, 5, []string{"A2", "Z9"})
	require.Error(t, err)
	assert.Equal(t, KindFailed, KindOf(err))
}

func TestReserveLosesRaceOnUniqueIndex(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.expectScheduleLock(5, now.Add(time.Hour), true)
	f.expectReserved()
	f.mock.ExpectQuery(`FROM cinema_seats`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "seat_row", "seat_number"}).AddRow(11, "A", 2))
	f.mock.ExpectExec(`INSERT INTO reservations`).WillReturnResult(sqlmock.NewResult(78, 1))
	f.mock.ExpectExec(`INSERT INTO reservation_seats`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	f.mock.ExpectRollback()

	_, err := newReservationManager(f, nil).Reserve(context.Background(), 7, 5, []string{"A2"})
	assert.ErrorIs(t, err, ErrSeatAlreadyReserved)
}

func TestReserveStoreFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FROM schedules WHERE id = \? FOR UPDATE`).WillReturnError(sql.ErrConnDone)
	f.mock.ExpectRollback()

	_, err := newReservationManager(f, nil).Reserve(context.Background(), 7, 5, []string{"A1"})
	require.ErrorIs(t, err, ErrFailed)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestConfirm(t *testing.T) {
	t.Run("no effect", func(t *testing.T) {
		f := newFixture(t)
		pub := &recordingPublisher{}
		f.mock.ExpectExec(`SET r\.kind = 'confirmed'`).
			WithArgs(now, 9, 7).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := newReservationManager(f, pub).Confirm(context.Background(), 7, 9)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, pub.events)
	})
	t.Run("confirmed", func(t *testing.T) {
		f := newFixture(t)
		pub := &recordingPublisher{}
		f.mock.ExpectExec(`SET r\.kind = 'confirmed'`).WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectQuery(`WHERE r\.id = \?`).WithArgs(9).WillReturnError(sql.ErrConnDone)

		ok, err := newReservationManager(f, pub).Confirm(context.Background(), 7, 9)
		require.NoError(t, err)
		assert.True(t, ok)
		require.Len(t, pub.events, 1)
		ev := pub.events[0]
		assert.Equal(t, queue.ReservationConfirmed, ev.Type)
		assert.Equal(t, uint64(9), ev.ReservationID)
		require.NotNil(t, ev.UserID)
		assert.Equal(t, uint64(7), *ev.UserID)
	})
	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectExec(`SET r\.kind = 'confirmed'`).WillReturnError(sql.ErrConnDone)

		ok, err := newReservationManager(f, nil).Confirm(context.Background(), 7, 9)
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrFailed)
	})
}

func TestCancel(t *testing.T) {
	t.Run("cancelled", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectExec(`UPDATE reservations SET kind = 'cancelled'`).
			WithArgs(now, 9, 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectExec(`UPDATE reservation_seats SET active = NULL`).
			WithArgs(9).
			WillReturnResult(sqlmock.NewResult(0, 2))
		f.mock.ExpectCommit()

		ok, err := newReservationManager(f, nil).Cancel(context.Background(), 7, 9)
		require.NoError(t, err)
		assert.True(t, ok)
	})
	t.Run("already cancelled or foreign", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectExec(`UPDATE reservations SET kind = 'cancelled'`).WillReturnResult(sqlmock.NewResult(0, 0))
		f.mock.ExpectCommit()

		ok, err := newReservationManager(f, nil).Cancel(context.Background(), 7, 9)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestAvailabilityEmptyIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(`FROM schedules s\s+JOIN cinema_seats cs`).
		WithArgs(5, 5).
		WillReturnRows(sqlmock.NewRows([]string{"seat_row", "seat_number", "kind", "available"}))

	_, err := NewAvailabilityResolver(f.store, f.repos, quiet()).Availability(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAvailabilityStoreFailureIsNotNotFound(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(`JOIN cinema_seats cs`).WithArgs(5, 5).WillReturnError(sql.ErrConnDone)

	_, err := NewAvailabilityResolver(f.store, f.repos, quiet()).Availability(context.Background(), 5)
	assert.ErrorIs(t, err, ErrFailed)
	assert.NotErrorIs(t, err, ErrNotFound)
}
