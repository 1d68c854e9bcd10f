// Package handler implements the HTTP handlers for the itinerary API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, plan.go, detail.go) but share the same Server struct so
// they can access its dependencies. Handlers stay thin: they decode and
// validate payloads, check the caller may act on the plan, call one service
// method and render the result.
package handler

import (
	"context"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/pkordes/plan-itinerary/internal/domain"
	"github.com/pkordes/plan-itinerary/internal/service"
)

// PlanServicer defines the plan operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type PlanServicer interface {
	Create(ctx context.Context, in service.PlanInput) (domain.PlanView, error)
	Get(ctx context.Context, id uuid.UUID) (domain.PlanView, error)
	Update(ctx context.Context, in service.PlanInput) (domain.PlanView, error)
	Delete(ctx context.Context, id uuid.UUID) error
	IsOwner(ctx context.Context, planID, accountID uuid.UUID) (bool, error)
	IsAccessible(ctx context.Context, planID, accountID uuid.UUID) (bool, error)
}

// ItineraryServicer defines the detail operations the handlers depend on.
type ItineraryServicer interface {
	CreateDetail(ctx context.Context, d domain.Detail) (domain.Detail, error)
	GetDetail(ctx context.Context, planID, detailID uuid.UUID) (domain.Detail, error)
	ListDetails(ctx context.Context, planID uuid.UUID) ([]domain.Detail, error)
	UpdateDetail(ctx context.Context, d domain.Detail) (domain.Detail, error)
	DeleteDetail(ctx context.Context, planID, detailID uuid.UUID) error
}

// Pinger reports whether a backing store is reachable. *pgxpool.Pool
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies shared by every handler.
type Server struct {
	plans    PlanServicer
	details  ItineraryServicer
	db       Pinger
	log      *slog.Logger
	validate *validator.Validate
}

// NewServer constructs the Server. db may be nil, in which case the health
// check does not ping the database.
func NewServer(plans PlanServicer, details ItineraryServicer, db Pinger, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	v := validator.New()
	// Report JSON field names in validation messages.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &Server{plans: plans, details: details, db: db, log: log, validate: v}
}

// Routes returns the API router. Cross-cutting middleware is applied by the
// caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)

	r.Route("/plans", func(r chi.Router) {
		r.Post("/", s.CreatePlan)
		r.Route("/{planID}", func(r chi.Router) {
			r.Get("/", s.GetPlan)
			r.Put("/", s.UpdatePlan)
			r.Delete("/", s.DeletePlan)

			r.Route("/details", func(r chi.Router) {
				r.Get("/", s.ListDetails)
				r.Post("/", s.CreateDetail)
				r.Get("/{detailID}", s.GetDetail)
				r.Put("/{detailID}", s.UpdateDetail)
				r.Delete("/{detailID}", s.DeleteDetail)
			})
		})
	})
	return r
}
