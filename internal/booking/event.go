package booking

import (
	"context"
	"log"
	"time"
)

// ConfirmedEvent is published when a booking job commits.  It
// carries enough for downstream consumers to log, notify or trigger
// analytics without querying the primary database.
type ConfirmedEvent struct {
	JobID       string   `json:"job_id"`
	UserID      uint64   `json:"user_id"`
	ShowtimeID  uint64   `json:"showtime_id"`
	SeatIDs     []uint64 `json:"seat_ids"`
	ConfirmedAt string   `json:"confirmed_at"`
}

// EventPublisher delivers a confirmed-booking event to the message
// broker.
type EventPublisher interface {
	PublishConfirmed(ctx context.Context, ev ConfirmedEvent) error
}

// ConfirmedNotifier is an Observer that forwards successful jobs to
// the booking.confirmed queue.  Publish failures are logged and
// dropped; the durable state already committed and the event is a
// courtesy signal.
type ConfirmedNotifier struct {
	Events EventPublisher
}

// JobCompleted implements Observer.
func (n ConfirmedNotifier) JobCompleted(job Job) {
	ev := ConfirmedEvent{
		JobID:       job.ID,
		UserID:      job.UserID,
		ShowtimeID:  job.ShowtimeID,
		SeatIDs:     job.SeatIDs,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.Events.PublishConfirmed(ctx, ev); err != nil {
		log.Printf("booking: publish confirmed event for job %s failed: %v", job.ID, err)
	}
}

// JobFailed implements Observer.  Failures produce no event; the
// failure observer channel is the log.
func (n ConfirmedNotifier) JobFailed(Job, int, error) {}
