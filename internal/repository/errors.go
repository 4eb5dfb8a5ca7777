// Package repository defines error types that are reused across
// multiple repositories.  These sentinel values allow higher layers
// such as the reservation manager, the booking worker and handlers
// to distinguish between failure scenarios with errors.Is instead of
// string matching.
package repository

import "errors"

// ErrSeatNotFound is returned when a seat id does not exist.
var ErrSeatNotFound = errors.New("seat not found")

// ErrMovieNotFound is returned when a movie id does not exist.
var ErrMovieNotFound = errors.New("movie not found")

// ErrShowtimeNotFound is returned when a showtime id does not exist.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken is returned when registering with an email address
// that already has an account.
var ErrEmailTaken = errors.New("email already registered")

// ErrPartialAvailability is returned by the booking transaction when
// the authoritative re-check matched fewer seats than requested:
// some seat was booked, reassigned or moved out of the showtime
// between enqueue and commit.  The transaction is rolled back and no
// seat is left half-updated.
var ErrPartialAvailability = errors.New("one or more seats are no longer available")
