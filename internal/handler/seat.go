package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-seat-booking/internal/booking"
	"github.com/iliyamo/movie-seat-booking/internal/repository"
	"github.com/iliyamo/movie-seat-booking/internal/reservation"
)

// SeatHandler exposes the reservation engine over HTTP: listing seat
// availability, taking and releasing holds, and submitting a held
// seat set for asynchronous booking.  Lock conflicts are rejected
// immediately; a confirmed booking only ever returns "queued" and
// resolves through the pipeline's observers.
type SeatHandler struct {
	Seats        *repository.SeatRepo
	Movies       *repository.MovieRepo
	Reservations *reservation.Manager
	Pipeline     *booking.Pipeline
}

// NewSeatHandler constructs a SeatHandler.  All dependencies must be
// non-nil.
func NewSeatHandler(seats *repository.SeatRepo, movies *repository.MovieRepo, reservations *reservation.Manager, pipeline *booking.Pipeline) *SeatHandler {
	if seats == nil || movies == nil || reservations == nil || pipeline == nil {
		panic("nil dependency passed to NewSeatHandler")
	}
	return &SeatHandler{Seats: seats, Movies: movies, Reservations: reservations, Pipeline: pipeline}
}

// GetSeats handles GET /v1/showtimes/:id/seats.  Each seat reports
// whether it is booked and whether a hold is currently pending; the
// pending view may lag a racing acquire by at most the lock TTL.
func (h *SeatHandler) GetSeats(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Movies.GetShowtime(ctx, showtimeID); err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	seats, err := h.Seats.ListByShowtime(ctx, showtimeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	now := time.Now().UTC()
	out := make([]echo.Map, 0, len(seats))
	for _, s := range seats {
		held := s.PendingOwner != nil && s.PendingExpiresAt != nil && s.PendingExpiresAt.After(now)
		out = append(out, echo.Map{
			"id":        s.ID,
			"label":     s.Label,
			"is_booked": s.IsBooked,
			"is_held":   held,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": out})
}

// LockSeat handles POST /v1/seats/lock.  It takes a temporary hold
// on a single seat for the authenticated user.
func (h *SeatHandler) LockSeat(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		SeatID uint64 `json:"seat_id"`
	}
	if err := c.Bind(&body); err != nil || body.SeatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_id is required"})
	}
	err = h.Reservations.Acquire(c.Request().Context(), body.SeatID, userID)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{
			"message":    "seat locked successfully",
			"expires_in": int(h.Reservations.TTL() / time.Second),
		})
	case errors.Is(err, repository.ErrSeatNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
	case errors.Is(err, reservation.ErrAlreadyLocked):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat is already locked"})
	case errors.Is(err, reservation.ErrAlreadyBooked):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat is already booked"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error locking seat"})
	}
}

// UnlockSeat handles POST /v1/seats/unlock.  Releasing a seat that
// is not locked succeeds; only a hold owned by someone else is
// rejected.
func (h *SeatHandler) UnlockSeat(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		SeatID uint64 `json:"seat_id"`
	}
	if err := c.Bind(&body); err != nil || body.SeatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_id is required"})
	}
	err = h.Reservations.Release(c.Request().Context(), body.SeatID, userID)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "seat unlocked successfully"})
	case errors.Is(err, reservation.ErrNotOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you cannot unlock this seat"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error unlocking seat"})
	}
}

// ConfirmBooking handles POST /v1/bookings.  The caller must hold a
// live lock on every requested seat.  On success the request is
// queued and the handler returns 202 with the job id; the durable
// commit happens asynchronously in the booking worker.
func (h *SeatHandler) ConfirmBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ShowtimeID uint64   `json:"showtime_id"`
		SeatIDs    []uint64 `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ShowtimeID == 0 || len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "showtime_id and seat_ids are required"})
	}
	// Deduplicate seat ids to avoid double-counting in validation.
	unique := make([]uint64, 0, len(body.SeatIDs))
	seen := make(map[uint64]struct{})
	for _, id := range body.SeatIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no valid seat IDs provided"})
	}
	ctx := c.Request().Context()
	if _, err := h.Movies.GetShowtime(ctx, body.ShowtimeID); err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	jobID, err := h.Pipeline.Enqueue(ctx, userID, body.ShowtimeID, unique)
	switch {
	case err == nil:
		return c.JSON(http.StatusAccepted, echo.Map{
			"message": "booking request received and queued",
			"job_id":  jobID,
		})
	case errors.Is(err, booking.ErrSeatNotInShowtime):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "some seats do not belong to the selected showtime"})
	case errors.Is(err, booking.ErrLockNotHeld):
		return c.JSON(http.StatusConflict, echo.Map{"error": "some seats are no longer held; lock them again"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error queuing booking"})
	}
}
