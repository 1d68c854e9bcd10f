package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/plan-itinerary/internal/currency"
	"github.com/pkordes/plan-itinerary/internal/domain"
	"github.com/pkordes/plan-itinerary/internal/service"
)

// PlanRequest is the body of POST /plans and PUT /plans/{planID}.
// Tags and destinations are complete target sets; omitting them clears them.
type PlanRequest struct {
	Title        string             `json:"title" validate:"required,max=100"`
	Visibility   string             `json:"visibility" validate:"required,oneof=PUBLIC PRIVATE"`
	StartDate    openapi_types.Date `json:"start_date"`
	EndDate      openapi_types.Date `json:"end_date"`
	Tags         []string           `json:"tags" validate:"omitempty,dive,required,max=50"`
	Destinations []string           `json:"destinations" validate:"omitempty,dive,required,max=100"`
}

// PlanResponse is the JSON shape of a plan.
type PlanResponse struct {
	ID           uuid.UUID          `json:"id"`
	OwnerID      uuid.UUID          `json:"owner_id"`
	Title        string             `json:"title"`
	Visibility   domain.Visibility  `json:"visibility"`
	StartDate    openapi_types.Date `json:"start_date"`
	EndDate      openapi_types.Date `json:"end_date"`
	TotalCost    string             `json:"total_cost"`
	Currency     domain.Currency    `json:"currency"`
	TotalDisplay string             `json:"total_display"`
	LikeCount    int                `json:"like_count"`
	Tags         []string           `json:"tags"`
	Destinations []string           `json:"destinations"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// CreatePlan handles POST /plans. The caller becomes the owner.
func (s *Server) CreatePlan(w http.ResponseWriter, r *http.Request) {
	account, err := accountID(r)
	if err != nil {
		writeJSON(w, r, http.StatusUnauthorized, errorBody("unauthenticated", err.Error()))
		return
	}
	req, ok := s.decodePlan(w, r)
	if !ok {
		return
	}

	in := planInput(req)
	in.Plan.OwnerID = account
	view, err := s.plans.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, "plan not found")
		return
	}
	writeJSON(w, r, http.StatusCreated, planToResponse(view))
}

// GetPlan handles GET /plans/{planID}.
func (s *Server) GetPlan(w http.ResponseWriter, r *http.Request) {
	planID, _, ok := s.planScope(w, r, canRead)
	if !ok {
		return
	}
	view, err := s.plans.Get(r.Context(), planID)
	if err != nil {
		s.writeError(w, r, err, "plan not found")
		return
	}
	render.JSON(w, r, planToResponse(view))
}

// UpdatePlan handles PUT /plans/{planID}. Owner only.
func (s *Server) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	planID, _, ok := s.planScope(w, r, canWrite)
	if !ok {
		return
	}
	req, ok := s.decodePlan(w, r)
	if !ok {
		return
	}

	in := planInput(req)
	in.Plan.ID = planID
	view, err := s.plans.Update(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, "plan not found")
		return
	}
	render.JSON(w, r, planToResponse(view))
}

// DeletePlan handles DELETE /plans/{planID}. Owner only.
func (s *Server) DeletePlan(w http.ResponseWriter, r *http.Request) {
	planID, _, ok := s.planScope(w, r, canWrite)
	if !ok {
		return
	}
	if err := s.plans.Delete(r.Context(), planID); err != nil {
		s.writeError(w, r, err, "plan not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodePlan(w http.ResponseWriter, r *http.Request) (PlanRequest, bool) {
	var req PlanRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, requestBody("request body must be a JSON plan"))
		return PlanRequest{}, false
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, r, http.StatusUnprocessableEntity, requestBody(describeValidation(err)))
		return PlanRequest{}, false
	}
	return req, true
}

func planInput(req PlanRequest) service.PlanInput {
	return service.PlanInput{
		Plan: domain.Plan{
			Title:      req.Title,
			Visibility: domain.Visibility(req.Visibility),
			StartDate:  req.StartDate.Time,
			EndDate:    req.EndDate.Time,
		},
		Tags:         req.Tags,
		Destinations: req.Destinations,
	}
}

func planToResponse(v domain.PlanView) PlanResponse {
	tags, dests := v.Tags, v.Destinations
	if tags == nil {
		tags = []string{}
	}
	if dests == nil {
		dests = []string{}
	}
	return PlanResponse{
		ID:           v.Plan.ID,
		OwnerID:      v.Plan.OwnerID,
		Title:        v.Plan.Title,
		Visibility:   v.Plan.Visibility,
		StartDate:    openapi_types.Date{Time: v.Plan.StartDate},
		EndDate:      openapi_types.Date{Time: v.Plan.EndDate},
		TotalCost:    v.Plan.TotalCost.StringFixed(2),
		Currency:     domain.CanonicalCurrency,
		TotalDisplay: currency.Format(v.Plan.TotalCost, domain.CanonicalCurrency),
		LikeCount:    v.Plan.LikeCount,
		Tags:         tags,
		Destinations: dests,
		CreatedAt:    v.Plan.CreatedAt,
		UpdatedAt:    v.Plan.UpdatedAt,
	}
}
