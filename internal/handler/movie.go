package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-seat-booking/internal/model"
	"github.com/iliyamo/movie-seat-booking/internal/repository"
)

// MovieHandler exposes the catalog surface: browsing movies and
// showtimes, and the admin operations that create them.  Catalog
// setup is an external collaborator of the reservation engine; seats
// created here are only ever mutated by the reservation manager and
// the booking worker afterwards.
type MovieHandler struct {
	Movies *repository.MovieRepo
	Seats  *repository.SeatRepo
}

// NewMovieHandler constructs a MovieHandler.
func NewMovieHandler(movies *repository.MovieRepo, seats *repository.SeatRepo) *MovieHandler {
	if movies == nil || seats == nil {
		panic("nil repository passed to NewMovieHandler")
	}
	return &MovieHandler{Movies: movies, Seats: seats}
}

// ListMovies handles GET /v1/movies.
func (h *MovieHandler) ListMovies(c echo.Context) error {
	movies, err := h.Movies.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"movies": movies})
}

// GetMovie handles GET /v1/movies/:id and returns the movie with its
// showtimes.
func (h *MovieHandler) GetMovie(c echo.Context) error {
	movieID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	ctx := c.Request().Context()
	m, err := h.Movies.GetByID(ctx, movieID)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	showtimes, err := h.Movies.ListShowtimes(ctx, movieID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	sts := make([]echo.Map, 0, len(showtimes))
	for _, st := range showtimes {
		sts = append(sts, echo.Map{"id": st.ID, "starts_at": st.StartsAt.Format(time.RFC3339)})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":           m.ID,
		"title":        m.Title,
		"poster":       m.Poster,
		"image_url":    m.ImageURL,
		"description":  m.Description,
		"duration_min": m.DurationMin,
		"showtimes":    sts,
	})
}

// AddMovie handles POST /v1/movies (ADMIN).  Showtimes may be
// supplied inline as RFC3339 timestamps.
func (h *MovieHandler) AddMovie(c echo.Context) error {
	var body struct {
		Title       string   `json:"title"`
		Poster      string   `json:"poster"`
		ImageURL    string   `json:"image_url"`
		Description string   `json:"description"`
		DurationMin uint32   `json:"duration_min"`
		Showtimes   []string `json:"showtimes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Title == "" || body.Poster == "" || body.ImageURL == "" || body.DurationMin == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title, poster, image_url and duration_min are required"})
	}
	starts := make([]time.Time, 0, len(body.Showtimes))
	for _, raw := range body.Showtimes {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("invalid showtime %q", raw)})
		}
		starts = append(starts, t.UTC())
	}

	ctx := c.Request().Context()
	m := &model.Movie{
		Title:       body.Title,
		Poster:      body.Poster,
		ImageURL:    body.ImageURL,
		Description: body.Description,
		DurationMin: body.DurationMin,
	}
	if err := h.Movies.Create(ctx, m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	showtimeIDs := make([]uint64, 0, len(starts))
	for _, at := range starts {
		st := &model.Showtime{MovieID: m.ID, StartsAt: at}
		if err := h.Movies.CreateShowtime(ctx, st); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		showtimeIDs = append(showtimeIDs, st.ID)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "movie added successfully",
		"id":           m.ID,
		"showtime_ids": showtimeIDs,
	})
}

// AddSeats handles POST /v1/showtimes/:id/seats (ADMIN).  It creates
// seat_count seats labeled S1..Sn for the showtime.
func (h *MovieHandler) AddSeats(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	var body struct {
		SeatCount int `json:"seat_count"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.SeatCount < 1 || body.SeatCount > 1000 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_count must be between 1 and 1000"})
	}
	ctx := c.Request().Context()
	if _, err := h.Movies.GetShowtime(ctx, showtimeID); err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	labels := make([]string, 0, body.SeatCount)
	for i := 0; i < body.SeatCount; i++ {
		labels = append(labels, fmt.Sprintf("S%d", i+1))
	}
	if err := h.Seats.CreateBulk(ctx, showtimeID, labels); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create seats"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "seats added successfully",
		"seat_count": body.SeatCount,
	})
}
