package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/movie-seat-booking/internal/model"
)

// SeatRepo provides data access to the seats table.  Seats carry
// both the durable booking state (is_booked, booked_by) and the
// mirror of a live hold (pending_owner, pending_expires_at).  The
// reservation manager is the only writer of the pending fields and
// the booking worker is the only writer of the booked fields; no
// other component mutates either pair.  All timestamps are UTC.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a new SeatRepo bound to the provided database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// GetByID fetches a single seat.  It returns ErrSeatNotFound when no
// row exists for the id.
func (r *SeatRepo) GetByID(ctx context.Context, seatID uint64) (*model.Seat, error) {
	const q = `SELECT id, showtime_id, label, is_booked, booked_by, pending_owner, pending_expires_at, created_at, updated_at
	           FROM seats WHERE id = ?`
	var s model.Seat
	var bookedBy, pendingOwner sql.NullInt64
	var pendingExp sql.NullTime
	err := r.db.QueryRowContext(ctx, q, seatID).Scan(
		&s.ID, &s.ShowtimeID, &s.Label, &s.IsBooked,
		&bookedBy, &pendingOwner, &pendingExp,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeatNotFound
	}
	if err != nil {
		return nil, err
	}
	if bookedBy.Valid {
		v := uint64(bookedBy.Int64)
		s.BookedBy = &v
	}
	if pendingOwner.Valid {
		v := uint64(pendingOwner.Int64)
		s.PendingOwner = &v
	}
	if pendingExp.Valid {
		t := pendingExp.Time
		s.PendingExpiresAt = &t
	}
	return &s, nil
}

// ListByShowtime returns all seats belonging to a showtime ordered
// by label.  An empty slice is returned when the showtime has no
// seats.
func (r *SeatRepo) ListByShowtime(ctx context.Context, showtimeID uint64) ([]model.Seat, error) {
	const q = `SELECT id, showtime_id, label, is_booked, booked_by, pending_owner, pending_expires_at, created_at, updated_at
	           FROM seats WHERE showtime_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]model.Seat, 0)
	for rows.Next() {
		var s model.Seat
		var bookedBy, pendingOwner sql.NullInt64
		var pendingExp sql.NullTime
		if err := rows.Scan(
			&s.ID, &s.ShowtimeID, &s.Label, &s.IsBooked,
			&bookedBy, &pendingOwner, &pendingExp,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if bookedBy.Valid {
			v := uint64(bookedBy.Int64)
			s.BookedBy = &v
		}
		if pendingOwner.Valid {
			v := uint64(pendingOwner.Int64)
			s.PendingOwner = &v
		}
		if pendingExp.Valid {
			t := pendingExp.Time
			s.PendingExpiresAt = &t
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// CreateBulk inserts seats for a showtime in one statement.  It is
// used at catalog-setup time by the admin surface.  Passing an empty
// label slice has no effect and returns nil.
func (r *SeatRepo) CreateBulk(ctx context.Context, showtimeID uint64, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	query := `INSERT INTO seats (showtime_id, label) VALUES `
	args := make([]interface{}, 0, len(labels)*2)
	for i, label := range labels {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, showtimeID, label)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// CountInShowtime returns how many of the given seat ids belong to
// the showtime.  Callers compare the count to len(seatIDs) to detect
// seats from a different showtime.
func (r *SeatRepo) CountInShowtime(ctx context.Context, showtimeID uint64, seatIDs []uint64) (int, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	query := `SELECT COUNT(*) FROM seats WHERE showtime_id = ? AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, showtimeID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SetPending records the hold mirror on the seat row: the owner and
// the expiry of the lock entry just created in the lock store.  The
// write is unconditional; the caller has already won the atomic lock
// write and is the sole pending writer for this seat until release
// or expiry.
func (r *SeatRepo) SetPending(ctx context.Context, seatID, ownerID uint64, expiresAt time.Time) error {
	const q = `UPDATE seats SET pending_owner = ?, pending_expires_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, ownerID, expiresAt.UTC().Format("2006-01-02 15:04:05"), seatID)
	return err
}

// ClearPending clears the seat's pending fields only when the
// current pending owner matches ownerID.  The guard makes a release
// or expiry that races a newer holder a safe no-op.  It reports
// whether a row was cleared.
func (r *SeatRepo) ClearPending(ctx context.Context, seatID, ownerID uint64) (bool, error) {
	const q = `UPDATE seats SET pending_owner = NULL, pending_expires_at = NULL
	           WHERE id = ? AND pending_owner = ?`
	res, err := r.db.ExecContext(ctx, q, seatID, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Book performs the durable commit for a booking job inside a single
// transaction.  It re-fetches the targeted seats restricted to the
// showtime and to unbooked rows, locking them with FOR UPDATE so
// that concurrent bookings for overlapping seat sets serialize on
// the row locks.  A reduced match count aborts the transaction with
// ErrPartialAvailability.  Otherwise every seat transitions to
// booked and its pending fields are cleared atomically.
func (r *SeatRepo) Book(ctx context.Context, ownerID, showtimeID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return ErrPartialAvailability
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	idArgs := make([]interface{}, 0, len(seatIDs)+1)
	idArgs = append(idArgs, showtimeID)
	for _, id := range seatIDs {
		idArgs = append(idArgs, id)
	}
	selQ := `SELECT id FROM seats
	         WHERE showtime_id = ? AND is_booked = 0 AND id IN (` + placeholders(len(seatIDs)) + `)
	         FOR UPDATE`
	rows, err := tx.QueryContext(ctx, selQ, idArgs...)
	if err != nil {
		return err
	}
	matched := 0
	for rows.Next() {
		var id uint64
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			return scanErr
		}
		matched++
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if matched != len(seatIDs) {
		return ErrPartialAvailability
	}

	updArgs := make([]interface{}, 0, len(seatIDs)+1)
	updArgs = append(updArgs, ownerID)
	for _, id := range seatIDs {
		updArgs = append(updArgs, id)
	}
	updQ := `UPDATE seats
	         SET is_booked = 1, booked_by = ?, pending_owner = NULL, pending_expires_at = NULL
	         WHERE id IN (` + placeholders(len(seatIDs)) + `)`
	if _, err := tx.ExecContext(ctx, updQ, updArgs...); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ExpiredHold identifies a lapsed hold cleared by the sweep so the
// caller can also delete the matching lock entry.
type ExpiredHold struct {
	SeatID  uint64
	OwnerID uint64
}

// ExpirePending clears the pending fields of every seat whose hold
// expiry has passed and returns the cleared holds.  Selection and
// clearing run in one transaction so a hold acquired between the two
// statements cannot be wiped: the UPDATE repeats the expiry
// predicate and the owner match.  When nothing has lapsed it returns
// an empty slice and nil error.
func (r *SeatRepo) ExpirePending(ctx context.Context) ([]ExpiredHold, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const selQ = `SELECT id, pending_owner FROM seats
	              WHERE pending_owner IS NOT NULL AND pending_expires_at <= UTC_TIMESTAMP()
	              FOR UPDATE`
	rows, err := tx.QueryContext(ctx, selQ)
	if err != nil {
		return nil, err
	}
	var expired []ExpiredHold
	for rows.Next() {
		var h ExpiredHold
		if scanErr := rows.Scan(&h.SeatID, &h.OwnerID); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		expired = append(expired, h)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return []ExpiredHold{}, nil
	}

	const updQ = `UPDATE seats SET pending_owner = NULL, pending_expires_at = NULL
	              WHERE pending_owner IS NOT NULL AND pending_expires_at <= UTC_TIMESTAMP()`
	if _, err := tx.ExecContext(ctx, updQ); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return expired, nil
}

// placeholders builds "?,?,...,?" for n parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
