package model

import "time"

// Movie represents a film in the catalog.  Movies are created by
// admins at catalog-setup time and carry one or more showtimes.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – movie title.
//  Poster      – URL of the poster image.
//  ImageURL    – URL of the banner image.
//  Description – optional synopsis.
//  DurationMin – running time in minutes.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Movie struct {
	ID          uint64    // movies.id
	Title       string    // movies.title
	Poster      string    // movies.poster
	ImageURL    string    // movies.image_url
	Description string    // movies.description
	DurationMin uint32    // movies.duration_min
	CreatedAt   time.Time // movies.created_at
	UpdatedAt   time.Time // movies.updated_at
}

// Showtime represents a scheduled screening of a movie.  Seats are
// scoped to a showtime: every seat row references exactly one
// showtime, and booking validity checks are performed against the
// showtime the seats were created under.
//
// Fields:
//  ID       – primary key identifier.
//  MovieID  – movie being screened.
//  StartsAt – when the screening begins (UTC).
type Showtime struct {
	ID       uint64    // showtimes.id
	MovieID  uint64    // showtimes.movie_id
	StartsAt time.Time // showtimes.starts_at
}
