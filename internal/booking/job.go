// Package booking implements the asynchronous half of the booking
// engine: a durable queue of booking jobs and the worker that turns
// held seats into permanently booked ones under a repository
// transaction, with bounded retry.
package booking

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// MaxAttempts is the total attempt budget per job, including the
// first one.
const MaxAttempts = 3

// ErrSeatNotInShowtime is returned by Enqueue when a requested seat
// does not belong to the given showtime.
var ErrSeatNotInShowtime = errors.New("seat does not belong to the selected showtime")

// ErrLockNotHeld is returned by Enqueue when the caller does not
// hold a live lock on every requested seat.  The caller must
// re-acquire and try again.
var ErrLockNotHeld = errors.New("seat is no longer held by the caller")

// Job is the message carried through the booking queue.  It is
// created at enqueue time and is terminal on success or on
// attempts-exhausted; the enqueuing caller never blocks on it and
// learns the outcome only through the observer channel.
type Job struct {
	ID         string   `json:"job_id"`
	UserID     uint64   `json:"user_id"`
	ShowtimeID uint64   `json:"showtime_id"`
	SeatIDs    []uint64 `json:"seat_ids"`
}

// newJobID generates a random hexadecimal job identifier.
func newJobID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
