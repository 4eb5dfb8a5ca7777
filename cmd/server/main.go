package main // Entry point package

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-seat-booking/internal/booking"
	"github.com/iliyamo/movie-seat-booking/internal/config"
	"github.com/iliyamo/movie-seat-booking/internal/database"
	"github.com/iliyamo/movie-seat-booking/internal/handler"
	"github.com/iliyamo/movie-seat-booking/internal/lockstore"
	"github.com/iliyamo/movie-seat-booking/internal/middleware"
	"github.com/iliyamo/movie-seat-booking/internal/repository"
	"github.com/iliyamo/movie-seat-booking/internal/reservation"
	"github.com/iliyamo/movie-seat-booking/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	defer db.Close()

	rdb, err := config.NewRedisClient()
	if err != nil {
		// The lock store is the arbiter against double-booking;
		// running without it is not an option.
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()
	locks := lockstore.NewRedisStore(rdb)

	seatRepo := repository.NewSeatRepo(db)
	movieRepo := repository.NewMovieRepo(db)
	userRepo := repository.NewUserRepo(db)

	reservations := reservation.NewManager(seatRepo, locks, cfg.SeatLockTTL)
	brokerURL := booking.BrokerURL()
	publisher := booking.NewQueuePublisher(brokerURL)
	pipeline := booking.NewPipeline(seatRepo, locks, publisher)

	worker := booking.NewWorker(seatRepo, locks, booking.MaxAttempts, booking.DefaultBackoff)
	worker.Subscribe(booking.LogObserver{})
	worker.Subscribe(booking.ConfirmedNotifier{Events: publisher})

	// Background execution contexts: the consumer drains booking
	// jobs, the sweeper reconciles lapsed holds.  Both stop on
	// shutdown.
	bgCtx, stopBg := context.WithCancel(context.Background())
	defer stopBg()
	go func() {
		if err := booking.StartConsumer(bgCtx, brokerURL, worker, cfg.WorkerConcurrency); err != nil && bgCtx.Err() == nil {
			log.Printf("booking-consumer: stopped: %v", err)
		}
	}()
	go reservation.NewSweeper(seatRepo, locks, cfg.SweepInterval).Run(bgCtx)

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost), cfg.JWTSecret)
	router.RegisterCatalog(e, handler.NewMovieHandler(movieRepo, seatRepo), cfg.JWTSecret)
	router.RegisterReservations(e, handler.NewSeatHandler(seatRepo, movieRepo, reservations, pipeline), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	// Teardown: stop accepting requests, then stop the background
	// loops.  In-flight booking jobs finish their current attempt.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Print("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	stopBg()
}
