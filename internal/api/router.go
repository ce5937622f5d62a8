package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dfarias/barber-agenda/internal/booking"
)

type RouterConfig struct {
	Scheduler   *booking.Scheduler
	PgPool      *pgxpool.Pool
	Redis       *redis.Client
	Env         string
	Version     string
	HorizonDays int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability
	r.Get("/providers/{providerID}/slots", availableSlotsHandler(cfg.Scheduler, cfg.HorizonDays))

	// Bookings
	r.Post("/bookings", createBookingHandler(cfg.Scheduler))
	r.Get("/bookings/{id}", getBookingHandler(cfg.Scheduler))
	r.Post("/bookings/{id}/status", transitionBookingHandler(cfg.Scheduler))
	r.Post("/bookings/{id}/cancel", cancelBookingHandler(cfg.Scheduler))
	r.Delete("/bookings/{id}", deleteBookingHandler(cfg.Scheduler))

	r.Get("/clients/{clientID}/bookings", listClientBookingsHandler(cfg.Scheduler))

	return r
}
