package reservation

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/movie-seat-booking/internal/lockstore"
	"github.com/iliyamo/movie-seat-booking/internal/repository"
)

// SweepStore is the slice of the seat repository the sweeper needs.
// It is satisfied by *repository.SeatRepo.
type SweepStore interface {
	ExpirePending(ctx context.Context) ([]repository.ExpiredHold, error)
}

// Sweeper is the reconciliation pass for lapsed holds.  Lock entries
// expire natively in the store, but the pending mirror on the seat
// row survives a crash of the process that wrote it.  The sweeper
// periodically clears expired pending fields and deletes any lock
// entry still present for the expired owner, guarded by owner match
// so it never disturbs a hold taken in the meantime.
type Sweeper struct {
	seats    SweepStore
	locks    lockstore.Store
	interval time.Duration
}

// NewSweeper constructs a Sweeper.  A non-positive interval falls
// back to the lock TTL.
func NewSweeper(seats SweepStore, locks lockstore.Store, interval time.Duration) *Sweeper {
	if seats == nil || locks == nil {
		panic("nil dependency passed to reservation.NewSweeper")
	}
	if interval <= 0 {
		interval = DefaultLockTTL
	}
	return &Sweeper{seats: seats, locks: locks, interval: interval}
}

// Run sweeps on a fixed interval until ctx is cancelled.  Errors are
// logged and the loop continues; a failed pass is retried on the
// next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				log.Printf("sweeper: pass failed: %v", err)
			}
		}
	}
}

// Sweep runs a single reconciliation pass.  It clears every expired
// pending mirror in one transaction, then deletes the matching lock
// entries best-effort: with a live store those entries have already
// expired on their own, so a leftover one is stale state from a
// crash and only removed when its value still names the expired
// owner.
func (s *Sweeper) Sweep(ctx context.Context) error {
	expired, err := s.seats.ExpirePending(ctx)
	if err != nil {
		return err
	}
	for _, h := range expired {
		key := LockKey(h.SeatID)
		val, err := s.locks.Get(ctx, key)
		if errors.Is(err, lockstore.ErrNotFound) {
			continue
		}
		if err != nil {
			log.Printf("sweeper: inspect %s: %v", key, err)
			continue
		}
		if val != OwnerValue(h.OwnerID) {
			// A newer holder owns the entry now; leave it alone.
			continue
		}
		if _, err := s.locks.Del(ctx, key); err != nil {
			log.Printf("sweeper: delete %s: %v", key, err)
		}
	}
	if len(expired) > 0 {
		log.Printf("sweeper: expired %d seat hold(s)", len(expired))
	}
	return nil
}
