package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/iliyamo/movie-seat-booking/internal/lockstore"
	"github.com/iliyamo/movie-seat-booking/internal/reservation"
)

// fakeCatalog maps seat ids to their showtime.
type fakeCatalog struct {
	showtimeBySeat map[uint64]uint64
}

func (f *fakeCatalog) CountInShowtime(_ context.Context, showtimeID uint64, seatIDs []uint64) (int, error) {
	n := 0
	for _, id := range seatIDs {
		if f.showtimeBySeat[id] == showtimeID {
			n++
		}
	}
	return n, nil
}

// fakePublisher records published jobs.
type fakePublisher struct {
	jobs []Job
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, job Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

// brokenLocks fails every operation, standing in for an unreachable
// store.
type brokenLocks struct{}

func (brokenLocks) SetNX(context.Context, string, string, time.Duration) (bool, error) {
	return false, errors.New("store unavailable")
}
func (brokenLocks) Get(context.Context, string) (string, error) {
	return "", errors.New("store unavailable")
}
func (brokenLocks) Del(context.Context, string) (bool, error) {
	return false, errors.New("store unavailable")
}

func lockSeats(t *testing.T, locks lockstore.Store, ownerID uint64, seatIDs ...uint64) {
	t.Helper()
	for _, id := range seatIDs {
		ok, err := locks.SetNX(context.Background(), reservation.LockKey(id), reservation.OwnerValue(ownerID), time.Minute)
		if err != nil || !ok {
			t.Fatalf("lock seat %d: ok=%v err=%v", id, ok, err)
		}
	}
}

func TestEnqueuePublishesJob(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{showtimeBySeat: map[uint64]uint64{1: 10, 2: 10}}
	locks := lockstore.NewMemoryStore()
	pub := &fakePublisher{}
	p := NewPipeline(catalog, locks, pub)

	lockSeats(t, locks, 100, 1, 2)

	id, err := p.Enqueue(ctx, 100, 10, []uint64{1, 2})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if id == "" {
		t.Fatal("Enqueue returned an empty job id")
	}
	if len(pub.jobs) != 1 {
		t.Fatalf("published %d jobs, want 1", len(pub.jobs))
	}
	want := Job{ID: id, UserID: 100, ShowtimeID: 10, SeatIDs: []uint64{1, 2}}
	if diff := cmp.Diff(want, pub.jobs[0], cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("published job mismatch (-want +got):\n%s", diff)
	}
}

func TestEnqueueRejectsForeignSeat(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{showtimeBySeat: map[uint64]uint64{1: 10, 2: 99}}
	locks := lockstore.NewMemoryStore()
	pub := &fakePublisher{}
	p := NewPipeline(catalog, locks, pub)

	lockSeats(t, locks, 100, 1, 2)

	if _, err := p.Enqueue(ctx, 100, 10, []uint64{1, 2}); !errors.Is(err, ErrSeatNotInShowtime) {
		t.Fatalf("Enqueue = %v, want ErrSeatNotInShowtime", err)
	}
	if len(pub.jobs) != 0 {
		t.Fatal("rejected request must not be published")
	}
}

func TestEnqueueRequiresLiveLocks(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{showtimeBySeat: map[uint64]uint64{1: 10, 2: 10}}
	locks := lockstore.NewMemoryStore()
	pub := &fakePublisher{}
	p := NewPipeline(catalog, locks, pub)

	// Seat 1 is held by the caller, seat 2 not at all.
	lockSeats(t, locks, 100, 1)
	if _, err := p.Enqueue(ctx, 100, 10, []uint64{1, 2}); !errors.Is(err, ErrLockNotHeld) {
		t.Fatalf("Enqueue with missing lock = %v, want ErrLockNotHeld", err)
	}

	// Seat 2 held by someone else is just as invalid.
	lockSeats(t, locks, 200, 2)
	if _, err := p.Enqueue(ctx, 100, 10, []uint64{1, 2}); !errors.Is(err, ErrLockNotHeld) {
		t.Fatalf("Enqueue with foreign lock = %v, want ErrLockNotHeld", err)
	}
	if len(pub.jobs) != 0 {
		t.Fatal("rejected request must not be published")
	}
}

func TestEnqueuePropagatesStoreFailure(t *testing.T) {
	catalog := &fakeCatalog{showtimeBySeat: map[uint64]uint64{1: 10}}
	p := NewPipeline(catalog, brokenLocks{}, &fakePublisher{})

	_, err := p.Enqueue(context.Background(), 100, 10, []uint64{1})
	if err == nil {
		t.Fatal("Enqueue should fail visibly when the lock store is unreachable")
	}
	if errors.Is(err, ErrLockNotHeld) {
		t.Fatalf("store failure must not be reported as ErrLockNotHeld: %v", err)
	}
}
