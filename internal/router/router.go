package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework handles routing

	"github.com/iliyamo/movie-seat-booking/internal/handler"
	"github.com/iliyamo/movie-seat-booking/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance.  Currently it exposes only a health
// check used by load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints under
// /v1/auth plus the authenticated /v1/me route.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterCatalog registers the movie browse endpoints (public) and
// the admin-only catalog setup endpoints.
func RegisterCatalog(e *echo.Echo, m *handler.MovieHandler, jwtSecret string) {
	// Public browse surface.
	e.GET("/v1/movies", m.ListMovies)
	e.GET("/v1/movies/:id", m.GetMovie)

	// Catalog mutation requires an authenticated admin.
	admin := e.Group("/v1")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("/movies", m.AddMovie)
	admin.POST("/showtimes/:id/seats", m.AddSeats)
}

// RegisterReservations registers the seat reservation endpoints.
// Seat listing is public; locking, unlocking and confirming a
// booking require an authenticated customer or admin.
func RegisterReservations(e *echo.Echo, s *handler.SeatHandler, jwtSecret string) {
	e.GET("/v1/showtimes/:id/seats", s.GetSeats)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("CUSTOMER", "ADMIN"))
	auth.POST("/seats/lock", s.LockSeat)
	auth.POST("/seats/unlock", s.UnlockSeat)
	auth.POST("/bookings", s.ConfirmBooking)
}
