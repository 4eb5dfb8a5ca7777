package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-seat-booking/internal/model"
)

// MovieRepo provides data access to the movies and showtimes tables.
// Movies and showtimes are catalog data created by admins; the
// reservation engine only reads them to scope validity checks.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo returns a new MovieRepo bound to the given database.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// Create inserts a new movie and populates the generated ID on the
// provided record.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	const q = `INSERT INTO movies (title, poster, image_url, description, duration_min) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, m.Title, m.Poster, m.ImageURL, m.Description, m.DurationMin)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// GetByID fetches a movie by id.  It returns ErrMovieNotFound when
// no row exists.
func (r *MovieRepo) GetByID(ctx context.Context, movieID uint64) (*model.Movie, error) {
	const q = `SELECT id, title, poster, image_url, description, duration_min, created_at, updated_at
	           FROM movies WHERE id = ?`
	var m model.Movie
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx, q, movieID).Scan(
		&m.ID, &m.Title, &m.Poster, &m.ImageURL, &desc, &m.DurationMin, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		m.Description = desc.String
	}
	return &m, nil
}

// MovieSummary is the trimmed projection returned by List for the
// browse surface.
type MovieSummary struct {
	ID     uint64 `json:"id"`
	Title  string `json:"title"`
	Poster string `json:"poster"`
}

// List returns id, title and poster for every movie, newest first.
func (r *MovieRepo) List(ctx context.Context) ([]MovieSummary, error) {
	const q = `SELECT id, title, poster FROM movies ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movies := make([]MovieSummary, 0)
	for rows.Next() {
		var m MovieSummary
		if err := rows.Scan(&m.ID, &m.Title, &m.Poster); err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movies, nil
}

// CreateShowtime inserts a showtime for a movie and populates the
// generated ID.  The starts_at timestamp is stored in UTC.
func (r *MovieRepo) CreateShowtime(ctx context.Context, st *model.Showtime) error {
	const q = `INSERT INTO showtimes (movie_id, starts_at) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, q, st.MovieID, st.StartsAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	st.ID = uint64(id)
	return nil
}

// GetShowtime fetches a showtime by id.  It returns
// ErrShowtimeNotFound when no row exists.
func (r *MovieRepo) GetShowtime(ctx context.Context, showtimeID uint64) (*model.Showtime, error) {
	const q = `SELECT id, movie_id, starts_at FROM showtimes WHERE id = ?`
	var st model.Showtime
	err := r.db.QueryRowContext(ctx, q, showtimeID).Scan(&st.ID, &st.MovieID, &st.StartsAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShowtimeNotFound
	}
	if err != nil {
		return nil, err
	}
	st.StartsAt = st.StartsAt.UTC()
	return &st, nil
}

// ListShowtimes returns all showtimes for a movie ordered by start
// time ascending.
func (r *MovieRepo) ListShowtimes(ctx context.Context, movieID uint64) ([]model.Showtime, error) {
	const q = `SELECT id, movie_id, starts_at FROM showtimes WHERE movie_id = ? ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, q, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sts := make([]model.Showtime, 0)
	for rows.Next() {
		var st model.Showtime
		if err := rows.Scan(&st.ID, &st.MovieID, &st.StartsAt); err != nil {
			return nil, err
		}
		st.StartsAt = st.StartsAt.UTC()
		sts = append(sts, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sts, nil
}
