// Package repository holds the SQL for every table. Repositories return the
// sentinel errors below so the service layer can tell a missing row from a
// store failure without inspecting driver messages.
package repository

import "errors"

var (
	// ErrMovieNotFound is returned when no movie row matches.
	ErrMovieNotFound = errors.New("movie not found")
	// ErrScheduleNotFound is returned when no schedule row matches.
	ErrScheduleNotFound = errors.New("schedule not found")
	// ErrCinemaNotFound is returned when a cinema is not part of the given location.
	ErrCinemaNotFound = errors.New("cinema not found at location")
	// ErrUserNotFound is returned when no account matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is returned by UserRepo.Create on a duplicate address.
	ErrEmailExists = errors.New("email already exists")
	// ErrSeatTaken is returned when inserting a reservation seat collides with
	// a live reservation of the same seat for the same schedule.
	ErrSeatTaken = errors.New("seat already reserved")
	// ErrTokenInvalid is returned for unknown, expired or revoked refresh tokens.
	ErrTokenInvalid = errors.New("refresh token invalid")
)
