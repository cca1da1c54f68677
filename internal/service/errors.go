// Package service implements the reservation and scheduling core: seat
// availability, the reservation lifecycle, schedule clash detection and
// cascading soft deletes. Every operation runs inside one store transaction
// and reports failures as *Error values tagged with a Kind.
package service

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a core failure. Handlers switch on it to pick a response.
type Kind uint8

const (
	// KindFailed is a store or unexpected failure. The unit of work was rolled back.
	KindFailed Kind = iota
	KindInvalidInput
	KindNotFound
	KindInvalidSchedule
	KindMovieNotFound
	KindSeatAlreadyReserved
	KindClash
	KindBlockedByReservation
)

var kindNames = [...]string{
	KindFailed:               "failed",
	KindInvalidInput:         "invalid input",
	KindNotFound:             "not found",
	KindInvalidSchedule:      "invalid schedule",
	KindMovieNotFound:        "movie not found",
	KindSeatAlreadyReserved:  "seat already reserved",
	KindClash:                "schedule clash",
	KindBlockedByReservation: "blocked by reservation",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is the only error type returned across the core boundary.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrClash) works
// whatever the op or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrFailed               = &Error{Kind: KindFailed}
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInvalidSchedule      = &Error{Kind: KindInvalidSchedule}
	ErrMovieNotFound        = &Error{Kind: KindMovieNotFound}
	ErrSeatAlreadyReserved  = &Error{Kind: KindSeatAlreadyReserved}
	ErrClash                = &Error{Kind: KindClash}
	ErrBlockedByReservation = &Error{Kind: KindBlockedByReservation}
)

// KindOf returns the Kind of err. Errors that did not come from this
// package count as KindFailed.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFailed
}

func newError(k Kind, op string, err error) *Error { return &Error{Kind: k, Op: op, Err: err} }

func invalid(op, format string, args ...any) *Error {
	return newError(KindInvalidInput, op, fmt.Errorf(format, args...))
}

// asFailure passes *Error values through untouched and wraps anything else
// as KindFailed.
func asFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return newError(KindFailed, op, err)
}

// SeatsTakenError lists the requested labels that already belong to a live
// reservation. It is the cause of a KindSeatAlreadyReserved error.
type SeatsTakenError struct {
	Labels []string
}

func (e *SeatsTakenError) Error() string {
	if len(e.Labels) == 0 {
		return "requested seats are taken"
	}
	return "taken: " + strings.Join(e.Labels, ",")
}
