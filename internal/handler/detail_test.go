package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/plan-itinerary/internal/domain"
	"github.com/pkordes/plan-itinerary/internal/handler"
)

func detailPayload() map[string]any {
	return map[string]any{
		"title":     "Gwangjang market",
		"starts_at": "202501011030",
		"ends_at":   "202501011130",
		"price":     "500",
		"currency":  "USD",
	}
}

func detailsURL(planID uuid.UUID) string {
	return "/plans/" + planID.String() + "/details"
}

// ---- POST /plans/{planID}/details ------------------------------------------

func TestCreateDetail_201(t *testing.T) {
	planID := uuid.New()
	fixture := detailFixture(planID)
	var got domain.Detail
	details := &mockItineraryServicer{
		createDetail: func(_ context.Context, d domain.Detail) (domain.Detail, error) {
			got = d
			return fixture, nil
		},
	}

	rec := do(t, newHTTPHandler(&mockPlanServicer{}, details), http.MethodPost, detailsURL(planID), uuid.New(), detailPayload())

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, planID, got.PlanID)
	assert.Equal(t, domain.MustParseMinute("202501011030"), got.Start)
	assert.Equal(t, domain.USD, got.Currency)
	require.NotNil(t, got.Price)
	assert.Equal(t, "500", got.Price.String())

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "202501011030", resp["starts_at"])
	assert.Equal(t, "202501011130", resp["ends_at"])
	assert.Equal(t, "500", resp["price"])
}

func TestCreateDetail_NoPriceNoCurrency(t *testing.T) {
	planID := uuid.New()
	var got domain.Detail
	details := &mockItineraryServicer{
		createDetail: func(_ context.Context, d domain.Detail) (domain.Detail, error) {
			got = d
			return d, nil
		},
	}
	payload := detailPayload()
	delete(payload, "price")
	delete(payload, "currency")

	rec := do(t, newHTTPHandler(&mockPlanServicer{}, details), http.MethodPost, detailsURL(planID), uuid.New(), payload)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, got.Price)
	assert.Empty(t, got.Currency)
}

func TestCreateDetail_422_MalformedTime(t *testing.T) {
	cases := map[string]string{
		"too short":     "2025010110",
		"not a number":  "2025010110ab",
		"invalid month": "202513011030",
	}
	for name, start := range cases {
		t.Run(name, func(t *testing.T) {
			payload := detailPayload()
			payload["starts_at"] = start

			rec := do(t, newHTTPHandler(&mockPlanServicer{}, &mockItineraryServicer{}), http.MethodPost, detailsURL(uuid.New()), uuid.New(), payload)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, decodeError(t, rec).Message, "starts_at")
		})
	}
}

func TestCreateDetail_422_InvertedInterval(t *testing.T) {
	details := &mockItineraryServicer{
		createDetail: func(context.Context, domain.Detail) (domain.Detail, error) {
			return domain.Detail{}, fmt.Errorf("service.ItineraryService.CreateDetail: %w: end must be after start", domain.ErrValidation)
		},
	}
	payload := detailPayload()
	payload["ends_at"] = payload["starts_at"]

	rec := do(t, newHTTPHandler(&mockPlanServicer{}, details), http.MethodPost, detailsURL(uuid.New()), uuid.New(), payload)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "end must be after start", decodeError(t, rec).Message)
}

func TestCreateDetail_409_RejectPolicy(t *testing.T) {
	details := &mockItineraryServicer{
		createDetail: func(context.Context, domain.Detail) (domain.Detail, error) {
			return domain.Detail{}, fmt.Errorf("service.ItineraryService.CreateDetail: %w: interval overlaps 1 existing detail(s)", domain.ErrConflict)
		},
	}

	rec := do(t, newHTTPHandler(&mockPlanServicer{}, details), http.MethodPost, detailsURL(uuid.New()), uuid.New(), detailPayload())

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "interval overlaps 1 existing detail(s)", decodeError(t, rec).Message)
}

func TestCreateDetail_403_NotOwner(t *testing.T) {
	plans := &mockPlanServicer{
		isOwner: func(context.Context, uuid.UUID, uuid.UUID) (bool, error) { return false, nil },
		get: func(_ context.Context, id uuid.UUID) (domain.PlanView, error) {
			return domain.PlanView{Plan: domain.Plan{ID: id}}, nil
		},
	}

	rec := do(t, newHTTPHandler(plans, &mockItineraryServicer{}), http.MethodPost, detailsURL(uuid.New()), uuid.New(), detailPayload())

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// ---- GET /plans/{planID}/details -------------------------------------------

func TestListDetails_200(t *testing.T) {
	planID := uuid.New()
	a, b := detailFixture(planID), detailFixture(planID)
	details := &mockItineraryServicer{
		listDetails: func(context.Context, uuid.UUID) ([]domain.Detail, error) {
			return []domain.Detail{a, b}, nil
		},
	}

	rec := do(t, newHTTPHandler(&mockPlanServicer{}, details), http.MethodGet, detailsURL(planID), uuid.New(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []handler.DetailResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 2)
	assert.Equal(t, a.ID, resp[0].ID)
	assert.Equal(t, a.Start, resp[0].StartsAt)
}

func TestListDetails_EmptyIsArray(t *testing.T) {
	details := &mockItineraryServicer{
		listDetails: func(context.Context, uuid.UUID) ([]domain.Detail, error) { return []domain.Detail{}, nil },
	}

	rec := do(t, newHTTPHandler(&mockPlanServicer{}, details), http.MethodGet, detailsURL(uuid.New()), uuid.New(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

// ---- GET / PUT / DELETE /plans/{planID}/details/{detailID} -----------------

func TestGetDetail_404(t *testing.T) {
	details := &mockItineraryServicer{
		getDetail: func(context.Context, uuid.UUID, uuid.UUID) (domain.Detail, error) {
			return domain.Detail{}, domain.ErrNotFound
		},
	}

	rec := do(t, newHTTPHandler(&mockPlanServicer{}, details), http.MethodGet, detailsURL(uuid.New())+"/"+uuid.NewString(), uuid.New(), nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "detail not found", decodeError(t, rec).Message)
}

func TestUpdateDetail_200(t *testing.T) {
	planID := uuid.New()
	fixture := detailFixture(planID)
	var got domain.Detail
	details := &mockItineraryServicer{
		updateDetail: func(_ context.Context, d domain.Detail) (domain.Detail, error) {
			got = d
			return fixture, nil
		},
	}

	rec := do(t, newHTTPHandler(&mockPlanServicer{}, details), http.MethodPut,
		detailsURL(planID)+"/"+fixture.ID.String(), uuid.New(), detailPayload())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fixture.ID, got.ID)
	assert.Equal(t, planID, got.PlanID)
}

func TestDeleteDetail_204(t *testing.T) {
	planID, detailID := uuid.New(), uuid.New()
	details := &mockItineraryServicer{
		deleteDetail: func(_ context.Context, p, d uuid.UUID) error {
			assert.Equal(t, planID, p)
			assert.Equal(t, detailID, d)
			return nil
		},
	}

	rec := do(t, newHTTPHandler(&mockPlanServicer{}, details), http.MethodDelete,
		detailsURL(planID)+"/"+detailID.String(), uuid.New(), nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDeleteDetail_400_BadDetailID(t *testing.T) {
	rec := do(t, newHTTPHandler(&mockPlanServicer{}, &mockItineraryServicer{}), http.MethodDelete,
		detailsURL(uuid.New())+"/nope", uuid.New(), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
