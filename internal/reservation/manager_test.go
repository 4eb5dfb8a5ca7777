package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/movie-seat-booking/internal/lockstore"
	"github.com/iliyamo/movie-seat-booking/internal/model"
	"github.com/iliyamo/movie-seat-booking/internal/repository"
)

// fakeSeatStore is an in-memory SeatStore for exercising the manager
// without a database.
type fakeSeatStore struct {
	mu         sync.Mutex
	seats      map[uint64]*model.Seat
	pendingErr error // forced SetPending failure
}

func newFakeSeatStore(seats ...*model.Seat) *fakeSeatStore {
	m := make(map[uint64]*model.Seat, len(seats))
	for _, s := range seats {
		m[s.ID] = s
	}
	return &fakeSeatStore{seats: m}
}

func (f *fakeSeatStore) GetByID(_ context.Context, seatID uint64) (*model.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[seatID]
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSeatStore) SetPending(_ context.Context, seatID, ownerID uint64, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pendingErr != nil {
		return f.pendingErr
	}
	s, ok := f.seats[seatID]
	if !ok {
		return repository.ErrSeatNotFound
	}
	owner := ownerID
	exp := expiresAt
	s.PendingOwner = &owner
	s.PendingExpiresAt = &exp
	return nil
}

func (f *fakeSeatStore) ClearPending(_ context.Context, seatID, ownerID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[seatID]
	if !ok || s.PendingOwner == nil || *s.PendingOwner != ownerID {
		return false, nil
	}
	s.PendingOwner = nil
	s.PendingExpiresAt = nil
	return true, nil
}

func (f *fakeSeatStore) pendingOwner(seatID uint64) *uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seats[seatID].PendingOwner
}

func seat(id, showtimeID uint64) *model.Seat {
	return &model.Seat{ID: id, ShowtimeID: showtimeID, Label: "S1"}
}

func TestAcquireReleaseLifecycle(t *testing.T) {
	ctx := context.Background()
	seats := newFakeSeatStore(seat(1, 10))
	m := NewManager(seats, lockstore.NewMemoryStore(), time.Minute)

	if err := m.Acquire(ctx, 1, 100); err != nil {
		t.Fatalf("Acquire by u100: %v", err)
	}
	if po := seats.pendingOwner(1); po == nil || *po != 100 {
		t.Fatalf("pending owner after acquire = %v, want 100", po)
	}

	// A second owner cannot take the same seat while the hold lives.
	if err := m.Acquire(ctx, 1, 200); !errors.Is(err, ErrAlreadyLocked) {
		t.Fatalf("Acquire by u200 = %v, want ErrAlreadyLocked", err)
	}

	// Nor can they release someone else's hold.
	if err := m.Release(ctx, 1, 200); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("Release by u200 = %v, want ErrNotOwner", err)
	}

	if err := m.Release(ctx, 1, 100); err != nil {
		t.Fatalf("Release by u100: %v", err)
	}
	if po := seats.pendingOwner(1); po != nil {
		t.Fatalf("pending owner after release = %d, want nil", *po)
	}

	// The seat is free for the next owner.
	if err := m.Acquire(ctx, 1, 200); err != nil {
		t.Fatalf("Acquire by u200 after release: %v", err)
	}
}

func TestAcquireBookedSeat(t *testing.T) {
	ctx := context.Background()
	s := seat(1, 10)
	s.IsBooked = true
	owner := uint64(42)
	s.BookedBy = &owner
	m := NewManager(newFakeSeatStore(s), lockstore.NewMemoryStore(), time.Minute)

	if err := m.Acquire(ctx, 1, 100); !errors.Is(err, ErrAlreadyBooked) {
		t.Fatalf("Acquire on booked seat = %v, want ErrAlreadyBooked", err)
	}
}

func TestAcquireUnknownSeat(t *testing.T) {
	m := NewManager(newFakeSeatStore(), lockstore.NewMemoryStore(), time.Minute)
	if err := m.Acquire(context.Background(), 9, 100); !errors.Is(err, repository.ErrSeatNotFound) {
		t.Fatalf("Acquire on unknown seat = %v, want ErrSeatNotFound", err)
	}
}

func TestReleaseWithoutLockIsNoop(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFakeSeatStore(seat(1, 10)), lockstore.NewMemoryStore(), time.Minute)

	if err := m.Release(ctx, 1, 100); err != nil {
		t.Fatalf("Release without a lock = %v, want nil", err)
	}
	// Releasing twice is equally fine.
	if err := m.Release(ctx, 1, 100); err != nil {
		t.Fatalf("second Release = %v, want nil", err)
	}
}

func TestAcquireAfterExpiry(t *testing.T) {
	ctx := context.Background()
	seats := newFakeSeatStore(seat(1, 10))
	m := NewManager(seats, lockstore.NewMemoryStore(), 20*time.Millisecond)

	if err := m.Acquire(ctx, 1, 100); err != nil {
		t.Fatalf("Acquire by u100: %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	// The lease lapsed, so a new owner wins without any release.
	if err := m.Acquire(ctx, 1, 200); err != nil {
		t.Fatalf("Acquire by u200 after expiry = %v, want success", err)
	}
	if po := seats.pendingOwner(1); po == nil || *po != 200 {
		t.Fatalf("pending owner after takeover = %v, want 200", po)
	}
}

func TestAcquireRollsBackLockWhenMirrorFails(t *testing.T) {
	ctx := context.Background()
	seats := newFakeSeatStore(seat(1, 10))
	seats.pendingErr = errors.New("db down")
	locks := lockstore.NewMemoryStore()
	m := NewManager(seats, locks, time.Minute)

	if err := m.Acquire(ctx, 1, 100); err == nil {
		t.Fatal("Acquire should fail when the pending mirror write fails")
	}
	// The failed call must leave no lock behind.
	if _, err := locks.Get(ctx, LockKey(1)); !errors.Is(err, lockstore.ErrNotFound) {
		t.Fatalf("lock entry after failed acquire = %v, want ErrNotFound", err)
	}

	seats.pendingErr = nil
	if err := m.Acquire(ctx, 1, 200); err != nil {
		t.Fatalf("Acquire after recovery: %v", err)
	}
}

func TestHeldBy(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFakeSeatStore(seat(1, 10)), lockstore.NewMemoryStore(), time.Minute)

	held, err := m.HeldBy(ctx, 1, 100)
	if err != nil || held {
		t.Fatalf("HeldBy before acquire = (%v, %v), want (false, nil)", held, err)
	}
	if err := m.Acquire(ctx, 1, 100); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if held, _ := m.HeldBy(ctx, 1, 100); !held {
		t.Fatal("HeldBy for the holder should be true")
	}
	if held, _ := m.HeldBy(ctx, 1, 200); held {
		t.Fatal("HeldBy for another owner should be false")
	}
}
