package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/movie-seat-booking/internal/lockstore"
	"github.com/iliyamo/movie-seat-booking/internal/repository"
	"github.com/iliyamo/movie-seat-booking/internal/reservation"
)

// fakeBooker mimics the repository's transactional Book: all seats
// must belong to the showtime and be unbooked, or nothing changes
// and ErrPartialAvailability is returned.  The mutex serializes
// overlapping bookings the way row locks do.
type fakeBooker struct {
	mu             sync.Mutex
	showtimeBySeat map[uint64]uint64
	bookedBy       map[uint64]uint64
	failures       []error // scripted errors consumed before real logic
}

func newFakeBooker(showtimeBySeat map[uint64]uint64) *fakeBooker {
	return &fakeBooker{showtimeBySeat: showtimeBySeat, bookedBy: make(map[uint64]uint64)}
}

func (f *fakeBooker) Book(_ context.Context, ownerID, showtimeID uint64, seatIDs []uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return err
	}
	for _, id := range seatIDs {
		if f.showtimeBySeat[id] != showtimeID {
			return repository.ErrPartialAvailability
		}
		if _, booked := f.bookedBy[id]; booked {
			return repository.ErrPartialAvailability
		}
	}
	for _, id := range seatIDs {
		f.bookedBy[id] = ownerID
	}
	return nil
}

// recordingObserver captures terminal outcomes.
type recordingObserver struct {
	mu        sync.Mutex
	completed []Job
	failed    []Job
	attempts  int
	lastErr   error
}

func (r *recordingObserver) JobCompleted(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, job)
}

func (r *recordingObserver) JobFailed(job Job, attempts int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, job)
	r.attempts = attempts
	r.lastErr = err
}

func TestHandleCommitsAndCleansUp(t *testing.T) {
	ctx := context.Background()
	booker := newFakeBooker(map[uint64]uint64{1: 10})
	locks := lockstore.NewMemoryStore()
	lockSeats(t, locks, 100, 1)

	w := NewWorker(booker, locks, 3, time.Millisecond)
	obs := &recordingObserver{}
	w.Subscribe(obs)

	job := Job{ID: "j1", UserID: 100, ShowtimeID: 10, SeatIDs: []uint64{1}}
	if err := w.Handle(ctx, job); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if got, want := booker.bookedBy[1], uint64(100); got != want {
		t.Fatalf("seat 1 booked by %d, want %d", got, want)
	}
	// The lock entry is cleaned up after commit.
	if _, err := locks.Get(ctx, reservation.LockKey(1)); !errors.Is(err, lockstore.ErrNotFound) {
		t.Fatalf("lock entry after commit = %v, want deleted", err)
	}
	if len(obs.completed) != 1 || obs.completed[0].ID != "j1" {
		t.Fatalf("completed observer calls = %v, want exactly job j1", obs.completed)
	}
	if len(obs.failed) != 0 {
		t.Fatal("failure observer must not fire on success")
	}
}

func TestHandleRetriesTransientFailure(t *testing.T) {
	booker := newFakeBooker(map[uint64]uint64{1: 10})
	booker.failures = []error{errors.New("deadlock"), errors.New("deadlock")}

	w := NewWorker(booker, lockstore.NewMemoryStore(), 3, time.Millisecond)
	obs := &recordingObserver{}
	w.Subscribe(obs)

	job := Job{ID: "j2", UserID: 100, ShowtimeID: 10, SeatIDs: []uint64{1}}
	if err := w.Handle(context.Background(), job); err != nil {
		t.Fatalf("Handle should succeed on the third attempt: %v", err)
	}
	if len(obs.completed) != 1 {
		t.Fatalf("completed observer calls = %d, want 1", len(obs.completed))
	}
	if got, want := booker.bookedBy[1], uint64(100); got != want {
		t.Fatalf("seat 1 booked by %d, want %d", got, want)
	}
}

func TestHandleExhaustsAttemptBudget(t *testing.T) {
	booker := newFakeBooker(map[uint64]uint64{1: 10})
	wantErr := errors.New("db down")
	booker.failures = []error{wantErr, wantErr, wantErr}

	locks := lockstore.NewMemoryStore()
	lockSeats(t, locks, 100, 1)

	w := NewWorker(booker, locks, 3, time.Millisecond)
	obs := &recordingObserver{}
	w.Subscribe(obs)

	job := Job{ID: "j3", UserID: 100, ShowtimeID: 10, SeatIDs: []uint64{1}}
	if err := w.Handle(context.Background(), job); !errors.Is(err, wantErr) {
		t.Fatalf("Handle = %v, want terminal %v", err, wantErr)
	}

	if len(obs.failed) != 1 || obs.failed[0].ID != "j3" {
		t.Fatalf("failed observer calls = %v, want exactly job j3", obs.failed)
	}
	if obs.attempts != 3 {
		t.Fatalf("reported attempts = %d, want 3", obs.attempts)
	}
	if !errors.Is(obs.lastErr, wantErr) {
		t.Fatalf("reported error = %v, want %v", obs.lastErr, wantErr)
	}
	// No seat was committed and the caller's lock is untouched.
	if len(booker.bookedBy) != 0 {
		t.Fatalf("booked seats after terminal failure = %v, want none", booker.bookedBy)
	}
	if _, err := locks.Get(context.Background(), reservation.LockKey(1)); err != nil {
		t.Fatalf("lock entry after terminal failure = %v, want still present", err)
	}
}

func TestOverlappingJobsCommitAtMostOnce(t *testing.T) {
	booker := newFakeBooker(map[uint64]uint64{1: 10, 2: 10, 3: 10})
	w := NewWorker(booker, lockstore.NewMemoryStore(), 1, time.Millisecond)
	obs := &recordingObserver{}
	w.Subscribe(obs)

	// Two jobs race for seat 2.
	jobA := Job{ID: "a", UserID: 100, ShowtimeID: 10, SeatIDs: []uint64{1, 2}}
	jobB := Job{ID: "b", UserID: 200, ShowtimeID: 10, SeatIDs: []uint64{2, 3}}

	var wg sync.WaitGroup
	errs := make(map[string]error)
	var mu sync.Mutex
	for _, job := range []Job{jobA, jobB} {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			err := w.Handle(context.Background(), job)
			mu.Lock()
			errs[job.ID] = err
			mu.Unlock()
		}(job)
	}
	wg.Wait()

	if len(obs.completed) != 1 {
		t.Fatalf("completed jobs = %d, want exactly 1", len(obs.completed))
	}
	if len(obs.failed) != 1 {
		t.Fatalf("failed jobs = %d, want exactly 1", len(obs.failed))
	}
	winner := obs.completed[0].ID
	loser := obs.failed[0].ID
	if winner == loser {
		t.Fatalf("winner and loser are both %q", winner)
	}
	if !errors.Is(errs[loser], repository.ErrPartialAvailability) {
		t.Fatalf("loser error = %v, want ErrPartialAvailability", errs[loser])
	}
	// The overlapping seat belongs to the winner, never to both.
	winnerUser := obs.completed[0].UserID
	if got := booker.bookedBy[2]; got != winnerUser {
		t.Fatalf("seat 2 booked by %d, want winner %d", got, winnerUser)
	}
}
