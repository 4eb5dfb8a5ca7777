package reservation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/movie-seat-booking/internal/lockstore"
	"github.com/iliyamo/movie-seat-booking/internal/repository"
)

// fakeSweepStore returns a canned set of expired holds once.
type fakeSweepStore struct {
	expired []repository.ExpiredHold
	err     error
}

func (f *fakeSweepStore) ExpirePending(context.Context) ([]repository.ExpiredHold, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.expired
	f.expired = nil
	return out, nil
}

func TestSweepDeletesStaleLocks(t *testing.T) {
	ctx := context.Background()
	locks := lockstore.NewMemoryStore()

	// Seat 1: stale entry left by the expired owner (crash scenario).
	// Seat 2: a newer owner re-acquired after the old hold lapsed.
	if _, err := locks.SetNX(ctx, LockKey(1), OwnerValue(100), time.Minute); err != nil {
		t.Fatalf("SetNX: %v", err)
	}
	if _, err := locks.SetNX(ctx, LockKey(2), OwnerValue(999), time.Minute); err != nil {
		t.Fatalf("SetNX: %v", err)
	}

	store := &fakeSweepStore{expired: []repository.ExpiredHold{
		{SeatID: 1, OwnerID: 100},
		{SeatID: 2, OwnerID: 100},
		{SeatID: 3, OwnerID: 100}, // no lock entry at all
	}}
	s := NewSweeper(store, locks, time.Minute)

	if err := s.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if _, err := locks.Get(ctx, LockKey(1)); !errors.Is(err, lockstore.ErrNotFound) {
		t.Fatalf("stale lock for seat 1 = %v, want deleted", err)
	}
	got, err := locks.Get(ctx, LockKey(2))
	if err != nil || got != OwnerValue(999) {
		t.Fatalf("lock for seat 2 = (%q, %v), want untouched entry of owner 999", got, err)
	}
}

func TestSweepPropagatesStoreError(t *testing.T) {
	store := &fakeSweepStore{err: errors.New("db down")}
	s := NewSweeper(store, lockstore.NewMemoryStore(), time.Minute)
	if err := s.Sweep(context.Background()); err == nil {
		t.Fatal("Sweep should surface repository errors")
	}
}
