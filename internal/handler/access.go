package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/plan-itinerary/internal/domain"
	"github.com/pkordes/plan-itinerary/internal/middleware"
)

// errUnauthenticated marks a request without a usable account id.
var errUnauthenticated = errors.New("missing or malformed " + middleware.AccountIDHeader + " header")

// accountID reads the caller's account id from the request header.
func accountID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(middleware.AccountIDHeader)
	if raw == "" {
		return uuid.Nil, errUnauthenticated
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errUnauthenticated
	}
	return id, nil
}

// pathID parses a UUID path parameter.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", domain.ErrValidation, name)
	}
	return id, nil
}

type access int

const (
	canRead access = iota
	canWrite
)

// authorize returns nil when account may act on the plan at the given level,
// domain.ErrNotFound when the plan does not exist and domain.ErrForbidden
// otherwise.
func (s *Server) authorize(ctx context.Context, planID, account uuid.UUID, level access) error {
	check := s.plans.IsAccessible
	if level == canWrite {
		check = s.plans.IsOwner
	}
	ok, err := check(ctx, planID, account)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	// Both checks answer false for a missing plan; tell the two apart.
	if _, err := s.plans.Get(ctx, planID); err != nil {
		return err
	}
	return domain.ErrForbidden
}

// planScope resolves the caller and the {planID} path parameter and checks
// access. It writes the error response itself and reports whether the
// handler should continue.
func (s *Server) planScope(w http.ResponseWriter, r *http.Request, level access) (planID, account uuid.UUID, ok bool) {
	account, err := accountID(r)
	if err != nil {
		writeJSON(w, r, http.StatusUnauthorized, errorBody("unauthenticated", err.Error()))
		return uuid.Nil, uuid.Nil, false
	}
	planID, err = pathID(r, "planID")
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, validationBody(err))
		return uuid.Nil, uuid.Nil, false
	}
	if err := s.authorize(r.Context(), planID, account, level); err != nil {
		s.writeError(w, r, err, "plan not found")
		return uuid.Nil, uuid.Nil, false
	}
	return planID, account, true
}
