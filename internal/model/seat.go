package model

import "time"

// Seat describes a single bookable seat for a showtime.  A seat is
// either free, temporarily held by a pending owner, or permanently
// booked.  Booked and pending are mutually exclusive: IsBooked true
// implies PendingOwner is nil, and at most one of BookedBy and
// PendingOwner is non-nil at any instant.
//
// The pending fields mirror the short-lived lock entry kept in the
// lock store; the seats table is the durable system of record and is
// re-validated inside the booking transaction before any commit.
//
// Fields:
//  ID               – primary key identifier.
//  ShowtimeID       – showtime this seat belongs to.
//  Label            – human-facing seat label (e.g. "S12").
//  IsBooked         – whether the seat has been permanently booked.
//  BookedBy         – user the seat is booked for (nil when free).
//  PendingOwner     – user currently holding the seat (nil when none).
//  PendingExpiresAt – when the current hold lapses (nil when none).
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Seat struct {
	ID               uint64     // seats.id
	ShowtimeID       uint64     // seats.showtime_id
	Label            string     // seats.label
	IsBooked         bool       // seats.is_booked
	BookedBy         *uint64    // seats.booked_by (nullable)
	PendingOwner     *uint64    // seats.pending_owner (nullable)
	PendingExpiresAt *time.Time // seats.pending_expires_at (nullable)
	CreatedAt        time.Time  // seats.created_at
	UpdatedAt        time.Time  // seats.updated_at
}
