package booking

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/iliyamo/movie-seat-booking/internal/lockstore"
	"github.com/iliyamo/movie-seat-booking/internal/reservation"
)

// DefaultBackoff is the fixed delay between attempts of the same
// job.
const DefaultBackoff = 5 * time.Second

// SeatBooker is the slice of the seat repository the worker needs.
// Book must be a single all-or-nothing transaction that re-checks
// the targeted seats and returns repository.ErrPartialAvailability
// when the match count is reduced.  It is satisfied by
// *repository.SeatRepo.
type SeatBooker interface {
	Book(ctx context.Context, ownerID, showtimeID uint64, seatIDs []uint64) error
}

// Observer receives terminal job outcomes.  This is the sole
// feedback channel: enqueue is fire-and-forget.
type Observer interface {
	// JobCompleted fires once when a job's transaction committed.
	JobCompleted(job Job)
	// JobFailed fires once after the attempt budget is exhausted,
	// with the number of attempts made and the last error.
	JobFailed(job Job, attempts int, err error)
}

// Worker processes booking jobs.  Jobs for disjoint seat sets may
// run concurrently; overlapping sets are serialized by the
// repository transaction's row locks, not by the worker.
type Worker struct {
	seats       SeatBooker
	locks       lockstore.Store
	maxAttempts int
	backoff     time.Duration

	mu        sync.Mutex
	observers []Observer
}

// NewWorker constructs a Worker with the given attempt budget and
// fixed backoff.  Non-positive values fall back to MaxAttempts and
// DefaultBackoff.
func NewWorker(seats SeatBooker, locks lockstore.Store, maxAttempts int, backoff time.Duration) *Worker {
	if seats == nil || locks == nil {
		panic("nil dependency passed to booking.NewWorker")
	}
	if maxAttempts <= 0 {
		maxAttempts = MaxAttempts
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Worker{seats: seats, locks: locks, maxAttempts: maxAttempts, backoff: backoff}
}

// Subscribe registers an observer for terminal job outcomes.  It
// must be called during wiring, before jobs start flowing.
func (w *Worker) Subscribe(o Observer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, o)
}

// Handle runs one job to a terminal outcome: up to the attempt
// budget of transactional attempts with a fixed delay in between.
// Every failed attempt rolls back fully inside Book, so a retry
// always starts from clean state.  On success the job's lock entries
// are deleted afterwards; that cleanup is outside the transaction
// and best-effort, because the committed flag is authoritative from
// the moment the transaction commits and a leftover entry simply
// expires.  The returned error is the terminal failure, or nil.
func (w *Worker) Handle(ctx context.Context, job Job) error {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err := w.seats.Book(ctx, job.UserID, job.ShowtimeID, job.SeatIDs)
		if err == nil {
			w.releaseLocks(ctx, job)
			log.Printf("booking-worker: job %s completed (attempt %d)", job.ID, attempt)
			w.notifyCompleted(job)
			return nil
		}
		lastErr = err
		log.Printf("booking-worker: job %s attempt %d/%d failed: %v", job.ID, attempt, w.maxAttempts, err)
		if attempt == w.maxAttempts {
			break
		}
		select {
		case <-time.After(w.backoff):
		case <-ctx.Done():
			lastErr = ctx.Err()
			log.Printf("booking-worker: job %s aborted: %v", job.ID, lastErr)
			w.notifyFailed(job, attempt, lastErr)
			return lastErr
		}
	}
	log.Printf("booking-worker: job %s failed after %d attempts", job.ID, w.maxAttempts)
	w.notifyFailed(job, w.maxAttempts, lastErr)
	return lastErr
}

// releaseLocks deletes the lock entries of a committed job.  Errors
// are logged only; the entries expire on their own if the store is
// briefly unreachable.
func (w *Worker) releaseLocks(ctx context.Context, job Job) {
	for _, seatID := range job.SeatIDs {
		if _, err := w.locks.Del(ctx, reservation.LockKey(seatID)); err != nil {
			log.Printf("booking-worker: job %s: delete lock for seat %d: %v", job.ID, seatID, err)
		}
	}
}

func (w *Worker) notifyCompleted(job Job) {
	w.mu.Lock()
	obs := make([]Observer, len(w.observers))
	copy(obs, w.observers)
	w.mu.Unlock()
	for _, o := range obs {
		o.JobCompleted(job)
	}
}

func (w *Worker) notifyFailed(job Job, attempts int, err error) {
	w.mu.Lock()
	obs := make([]Observer, len(w.observers))
	copy(obs, w.observers)
	w.mu.Unlock()
	for _, o := range obs {
		o.JobFailed(job, attempts, err)
	}
}

// LogObserver writes terminal job outcomes to the process log, the
// counterpart of the queue's completed/failed event listeners.
type LogObserver struct{}

// JobCompleted implements Observer.
func (LogObserver) JobCompleted(job Job) {
	log.Printf("booking: job %s completed: user %d booked %d seat(s) for showtime %d",
		job.ID, job.UserID, len(job.SeatIDs), job.ShowtimeID)
}

// JobFailed implements Observer.
func (LogObserver) JobFailed(job Job, attempts int, err error) {
	log.Printf("booking: job %s failed after %d attempts: %v", job.ID, attempts, err)
}
