package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/medibook/scheduling-service/internal/prescription"
	"github.com/medibook/scheduling-service/internal/scheduling"
)

type RouterConfig struct {
	Scheduler     *scheduling.Service
	Prescriptions *prescription.Service
	Directory     scheduling.Directory
	PgPool        *pgxpool.Pool
	Redis         *redis.Client // nil when running with in-process locking
	Log           *zap.Logger
	Timezone      *time.Location
	Env           string
	Version       string
	RateLimit     int // requests per minute per IP, 0 disables
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	if cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
	}

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	h := NewHandlers(cfg.Scheduler, cfg.Prescriptions, cfg.Directory, cfg.Timezone, cfg.Log)

	r.Get("/doctors", h.ListDoctors)
	r.Get("/doctors/{id}/slots", h.DoctorSlots)

	r.Post("/appointments", h.BookAppointment)
	r.Get("/appointments", h.ListAppointments)
	r.Get("/appointments/{id}", h.GetAppointment)
	r.Post("/appointments/{id}/confirm", h.ConfirmAppointment)
	r.Post("/appointments/{id}/cancel", h.CancelAppointment)
	r.Post("/appointments/{id}/complete", h.CompleteAppointment)
	r.Post("/appointments/{id}/reschedule", h.RescheduleAppointment)

	r.Post("/prescriptions", h.CreatePrescription)
	r.Get("/prescriptions", h.ListPrescriptions)
	r.Post("/medical-records", h.CreateMedicalRecord)
	r.Get("/patients/{id}/medical-history", h.MedicalHistory)

	return r
}
