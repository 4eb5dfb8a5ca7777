package reservation

import "errors"

// ErrAlreadyLocked is returned by Acquire when a live lock entry
// exists for the seat, regardless of who holds it.  The caller may
// retry after the current hold is released or expires.
var ErrAlreadyLocked = errors.New("seat is already locked")

// ErrAlreadyBooked is returned by Acquire when the seat has been
// permanently booked.  No hold can ever be taken on it again.
var ErrAlreadyBooked = errors.New("seat is already booked")

// ErrNotOwner is returned by Release when a live lock entry for the
// seat is held by a different owner.
var ErrNotOwner = errors.New("seat is locked by another user")
