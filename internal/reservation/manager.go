// Package reservation implements the synchronous half of the
// booking engine: acquiring, releasing and expiring short-lived seat
// holds.  A hold is a lock entry in the lock store (authoritative
// for the TTL window) mirrored onto the seat row's pending fields in
// the durable repository.  The asynchronous commit lives in the
// booking package.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/iliyamo/movie-seat-booking/internal/lockstore"
	"github.com/iliyamo/movie-seat-booking/internal/model"
)

// DefaultLockTTL is how long a seat hold lives when the holder
// neither releases nor confirms it.
const DefaultLockTTL = 60 * time.Second

// LockKey returns the lock store key for a seat id.
func LockKey(seatID uint64) string {
	return fmt.Sprintf("lock:seat:%d", seatID)
}

// OwnerValue encodes an owner id as the lock entry value.
func OwnerValue(ownerID uint64) string {
	return strconv.FormatUint(ownerID, 10)
}

// SeatStore is the slice of the seat repository the manager needs.
// It is satisfied by *repository.SeatRepo.
type SeatStore interface {
	GetByID(ctx context.Context, seatID uint64) (*model.Seat, error)
	SetPending(ctx context.Context, seatID, ownerID uint64, expiresAt time.Time) error
	ClearPending(ctx context.Context, seatID, ownerID uint64) (bool, error)
}

// Manager enforces single-owner-at-a-time semantics on seat holds.
// It is the sole writer of the seats table's pending fields.
type Manager struct {
	seats SeatStore
	locks lockstore.Store
	ttl   time.Duration
}

// NewManager constructs a Manager.  A non-positive ttl falls back to
// DefaultLockTTL.
func NewManager(seats SeatStore, locks lockstore.Store, ttl time.Duration) *Manager {
	if seats == nil || locks == nil {
		panic("nil dependency passed to reservation.NewManager")
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Manager{seats: seats, locks: locks, ttl: ttl}
}

// TTL returns the hold duration the manager applies on acquire.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Acquire takes a temporary hold on a seat for ownerID.  It fails
// with ErrAlreadyBooked when the seat is permanently booked and with
// ErrAlreadyLocked when any live lock entry exists.  The atomic
// store write is the sole arbiter between racing callers: whoever
// wins SetNX owns the hold.  After winning, the owner and expiry are
// mirrored onto the seat row; if that mirror write fails the lock is
// rolled back so the call has no observable effect.
func (m *Manager) Acquire(ctx context.Context, seatID, ownerID uint64) error {
	seat, err := m.seats.GetByID(ctx, seatID)
	if err != nil {
		return err
	}
	if seat.IsBooked {
		return ErrAlreadyBooked
	}

	key := LockKey(seatID)
	ok, err := m.locks.SetNX(ctx, key, OwnerValue(ownerID), m.ttl)
	if err != nil {
		return fmt.Errorf("lock seat %d: %w", seatID, err)
	}
	if !ok {
		return ErrAlreadyLocked
	}

	expiresAt := time.Now().UTC().Add(m.ttl)
	if err := m.seats.SetPending(ctx, seatID, ownerID, expiresAt); err != nil {
		// Undo the lock so the caller is not left holding a claim
		// the call reported as failed.
		_, _ = m.locks.Del(ctx, key)
		return fmt.Errorf("record pending hold for seat %d: %w", seatID, err)
	}
	return nil
}

// Release gives up ownerID's hold on a seat.  A live lock entry held
// by someone else yields ErrNotOwner.  Releasing a seat with no live
// lock is an idempotent success: the entry may have expired or been
// consumed by a successful booking, and in both cases there is
// nothing left to undo.  The pending mirror is cleared guarded by
// owner so a newer holder's fields are never touched.
func (m *Manager) Release(ctx context.Context, seatID, ownerID uint64) error {
	key := LockKey(seatID)
	val, err := m.locks.Get(ctx, key)
	switch {
	case errors.Is(err, lockstore.ErrNotFound):
		// fall through to clear any stale pending mirror
	case err != nil:
		return fmt.Errorf("inspect lock for seat %d: %w", seatID, err)
	case val != OwnerValue(ownerID):
		return ErrNotOwner
	default:
		if _, err := m.locks.Del(ctx, key); err != nil {
			return fmt.Errorf("unlock seat %d: %w", seatID, err)
		}
	}

	if _, err := m.seats.ClearPending(ctx, seatID, ownerID); err != nil {
		return fmt.Errorf("clear pending hold for seat %d: %w", seatID, err)
	}
	return nil
}

// HeldBy reports whether a live lock entry for the seat exists and
// is owned by ownerID.  Store failures propagate; absence of a lock
// is not an error.
func (m *Manager) HeldBy(ctx context.Context, seatID, ownerID uint64) (bool, error) {
	val, err := m.locks.Get(ctx, LockKey(seatID))
	if errors.Is(err, lockstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == OwnerValue(ownerID), nil
}
