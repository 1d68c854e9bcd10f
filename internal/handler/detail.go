package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pkordes/plan-itinerary/internal/domain"
)

// DetailRequest is the body of detail create and update. Times are
// YYYYMMDDHHMM strings in UTC. Currency defaults to the configured default
// when omitted. Price is a decimal string with at most 2 decimal places.
type DetailRequest struct {
	Title      string           `json:"title" validate:"required,max=100"`
	StartsAt   string           `json:"starts_at" validate:"required,len=12,numeric"`
	EndsAt     string           `json:"ends_at" validate:"required,len=12,numeric"`
	Price      *decimal.Decimal `json:"price"`
	Currency   string           `json:"currency" validate:"omitempty,oneof=KRW USD EUR JPY"`
	Notes      string           `json:"notes" validate:"max=1000"`
	LocationID *uuid.UUID       `json:"location_id"`
}

// DetailResponse is the JSON shape of a detail.
type DetailResponse struct {
	ID         uuid.UUID        `json:"id"`
	PlanID     uuid.UUID        `json:"plan_id"`
	Title      string           `json:"title"`
	StartsAt   domain.Minute    `json:"starts_at"`
	EndsAt     domain.Minute    `json:"ends_at"`
	Price      *decimal.Decimal `json:"price"`
	Currency   domain.Currency  `json:"currency"`
	Notes      string           `json:"notes"`
	LocationID *uuid.UUID       `json:"location_id,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// ListDetails handles GET /plans/{planID}/details.
func (s *Server) ListDetails(w http.ResponseWriter, r *http.Request) {
	planID, _, ok := s.planScope(w, r, canRead)
	if !ok {
		return
	}
	details, err := s.details.ListDetails(r.Context(), planID)
	if err != nil {
		s.writeError(w, r, err, "plan not found")
		return
	}
	out := make([]DetailResponse, len(details))
	for i, d := range details {
		out[i] = detailToResponse(d)
	}
	render.JSON(w, r, out)
}

// GetDetail handles GET /plans/{planID}/details/{detailID}.
func (s *Server) GetDetail(w http.ResponseWriter, r *http.Request) {
	planID, _, ok := s.planScope(w, r, canRead)
	if !ok {
		return
	}
	detailID, ok := s.detailID(w, r)
	if !ok {
		return
	}
	d, err := s.details.GetDetail(r.Context(), planID, detailID)
	if err != nil {
		s.writeError(w, r, err, "detail not found")
		return
	}
	render.JSON(w, r, detailToResponse(d))
}

// CreateDetail handles POST /plans/{planID}/details. Owner only.
// Any active detail whose interval overlaps the new one is retired.
func (s *Server) CreateDetail(w http.ResponseWriter, r *http.Request) {
	planID, _, ok := s.planScope(w, r, canWrite)
	if !ok {
		return
	}
	d, ok := s.decodeDetail(w, r)
	if !ok {
		return
	}
	d.PlanID = planID

	created, err := s.details.CreateDetail(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err, "plan not found")
		return
	}
	writeJSON(w, r, http.StatusCreated, detailToResponse(created))
}

// UpdateDetail handles PUT /plans/{planID}/details/{detailID}. Owner only.
func (s *Server) UpdateDetail(w http.ResponseWriter, r *http.Request) {
	planID, _, ok := s.planScope(w, r, canWrite)
	if !ok {
		return
	}
	detailID, ok := s.detailID(w, r)
	if !ok {
		return
	}
	d, ok := s.decodeDetail(w, r)
	if !ok {
		return
	}
	d.ID, d.PlanID = detailID, planID

	updated, err := s.details.UpdateDetail(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err, "detail not found")
		return
	}
	render.JSON(w, r, detailToResponse(updated))
}

// DeleteDetail handles DELETE /plans/{planID}/details/{detailID}. Owner only.
func (s *Server) DeleteDetail(w http.ResponseWriter, r *http.Request) {
	planID, _, ok := s.planScope(w, r, canWrite)
	if !ok {
		return
	}
	detailID, ok := s.detailID(w, r)
	if !ok {
		return
	}
	if err := s.details.DeleteDetail(r.Context(), planID, detailID); err != nil {
		s.writeError(w, r, err, "detail not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) detailID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := pathID(r, "detailID")
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, validationBody(err))
		return uuid.Nil, false
	}
	return id, true
}

// decodeDetail reads and validates a DetailRequest and converts it to a
// domain.Detail. Interval ordering is left to the service.
func (s *Server) decodeDetail(w http.ResponseWriter, r *http.Request) (domain.Detail, bool) {
	var req DetailRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, requestBody("request body must be a JSON detail"))
		return domain.Detail{}, false
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, r, http.StatusUnprocessableEntity, requestBody(describeValidation(err)))
		return domain.Detail{}, false
	}
	start, err := domain.ParseMinute(req.StartsAt)
	if err != nil {
		writeJSON(w, r, http.StatusUnprocessableEntity, requestBody("starts_at: "+unwrapMessage(err)))
		return domain.Detail{}, false
	}
	end, err := domain.ParseMinute(req.EndsAt)
	if err != nil {
		writeJSON(w, r, http.StatusUnprocessableEntity, requestBody("ends_at: "+unwrapMessage(err)))
		return domain.Detail{}, false
	}
	return domain.Detail{
		Title:      req.Title,
		Start:      start,
		End:        end,
		Price:      req.Price,
		Currency:   domain.Currency(req.Currency),
		Notes:      req.Notes,
		LocationID: req.LocationID,
	}, true
}

func detailToResponse(d domain.Detail) DetailResponse {
	return DetailResponse{
		ID:         d.ID,
		PlanID:     d.PlanID,
		Title:      d.Title,
		StartsAt:   d.Start,
		EndsAt:     d.End,
		Price:      d.Price,
		Currency:   d.Currency,
		Notes:      d.Notes,
		LocationID: d.LocationID,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}
