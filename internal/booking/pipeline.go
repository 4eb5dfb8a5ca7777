package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/movie-seat-booking/internal/lockstore"
	"github.com/iliyamo/movie-seat-booking/internal/reservation"
)

// CatalogStore is the slice of the seat repository Enqueue needs to
// scope seats to a showtime.  It is satisfied by
// *repository.SeatRepo.
type CatalogStore interface {
	CountInShowtime(ctx context.Context, showtimeID uint64, seatIDs []uint64) (int, error)
}

// Publisher delivers a job to the durable queue.
type Publisher interface {
	Publish(ctx context.Context, job Job) error
}

// Pipeline accepts booking requests and hands them to the queue.
// The checks performed here are advisory: they reject obviously
// doomed requests early, but the authoritative re-check happens
// inside the worker's transaction at process time.
type Pipeline struct {
	seats CatalogStore
	locks lockstore.Store
	pub   Publisher
}

// NewPipeline constructs a Pipeline.  All dependencies must be
// non-nil.
func NewPipeline(seats CatalogStore, locks lockstore.Store, pub Publisher) *Pipeline {
	if seats == nil || locks == nil || pub == nil {
		panic("nil dependency passed to booking.NewPipeline")
	}
	return &Pipeline{seats: seats, locks: locks, pub: pub}
}

// Enqueue validates and queues a booking request for ownerID.  Every
// seat must belong to the showtime (ErrSeatNotInShowtime) and must
// carry a live lock entry owned by the caller (ErrLockNotHeld).  On
// success it returns the job id; the commit itself happens
// asynchronously and its outcome reaches the caller only via the
// worker's observers.
func (p *Pipeline) Enqueue(ctx context.Context, ownerID, showtimeID uint64, seatIDs []uint64) (string, error) {
	if len(seatIDs) == 0 {
		return "", fmt.Errorf("no seats requested")
	}

	n, err := p.seats.CountInShowtime(ctx, showtimeID, seatIDs)
	if err != nil {
		return "", fmt.Errorf("validate seats: %w", err)
	}
	if n != len(seatIDs) {
		return "", ErrSeatNotInShowtime
	}

	want := reservation.OwnerValue(ownerID)
	for _, seatID := range seatIDs {
		val, err := p.locks.Get(ctx, reservation.LockKey(seatID))
		if errors.Is(err, lockstore.ErrNotFound) {
			return "", fmt.Errorf("seat %d: %w", seatID, ErrLockNotHeld)
		}
		if err != nil {
			return "", fmt.Errorf("inspect lock for seat %d: %w", seatID, err)
		}
		if val != want {
			return "", fmt.Errorf("seat %d: %w", seatID, ErrLockNotHeld)
		}
	}

	id, err := newJobID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	job := Job{ID: id, UserID: ownerID, ShowtimeID: showtimeID, SeatIDs: seatIDs}
	if err := p.pub.Publish(ctx, job); err != nil {
		return "", fmt.Errorf("queue booking job: %w", err)
	}
	return id, nil
}
