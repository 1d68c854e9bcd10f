package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/plan-itinerary/internal/domain"
	"github.com/pkordes/plan-itinerary/internal/handler"
	"github.com/pkordes/plan-itinerary/internal/middleware"
	"github.com/pkordes/plan-itinerary/internal/service"
)

// mockPlanServicer is a test double for handler.PlanServicer.
// Set only the method fields your test needs. The access checks default to
// allowing everything.
type mockPlanServicer struct {
	create       func(ctx context.Context, in service.PlanInput) (domain.PlanView, error)
	get          func(ctx context.Context, id uuid.UUID) (domain.PlanView, error)
	update       func(ctx context.Context, in service.PlanInput) (domain.PlanView, error)
	delete       func(ctx context.Context, id uuid.UUID) error
	isOwner      func(ctx context.Context, planID, accountID uuid.UUID) (bool, error)
	isAccessible func(ctx context.Context, planID, accountID uuid.UUID) (bool, error)
}

func (m *mockPlanServicer) Create(ctx context.Context, in service.PlanInput) (domain.PlanView, error) {
	return m.create(ctx, in)
}
func (m *mockPlanServicer) Get(ctx context.Context, id uuid.UUID) (domain.PlanView, error) {
	return m.get(ctx, id)
}
func (m *mockPlanServicer) Update(ctx context.Context, in service.PlanInput) (domain.PlanView, error) {
	return m.update(ctx, in)
}
func (m *mockPlanServicer) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}
func (m *mockPlanServicer) IsOwner(ctx context.Context, planID, accountID uuid.UUID) (bool, error) {
	if m.isOwner == nil {
		return true, nil
	}
	return m.isOwner(ctx, planID, accountID)
}
func (m *mockPlanServicer) IsAccessible(ctx context.Context, planID, accountID uuid.UUID) (bool, error) {
	if m.isAccessible == nil {
		return true, nil
	}
	return m.isAccessible(ctx, planID, accountID)
}

// compile-time check: mockPlanServicer must satisfy handler.PlanServicer.
var _ handler.PlanServicer = (*mockPlanServicer)(nil)

// mockItineraryServicer is a test double for handler.ItineraryServicer.
type mockItineraryServicer struct {
	createDetail func(ctx context.Context, d domain.Detail) (domain.Detail, error)
	getDetail    func(ctx context.Context, planID, detailID uuid.UUID) (domain.Detail, error)
	listDetails  func(ctx context.Context, planID uuid.UUID) ([]domain.Detail, error)
	updateDetail func(ctx context.Context, d domain.Detail) (domain.Detail, error)
	deleteDetail func(ctx context.Context, planID, detailID uuid.UUID) error
}

func (m *mockItineraryServicer) CreateDetail(ctx context.Context, d domain.Detail) (domain.Detail, error) {
	return m.createDetail(ctx, d)
}
func (m *mockItineraryServicer) GetDetail(ctx context.Context, planID, detailID uuid.UUID) (domain.Detail, error) {
	return m.getDetail(ctx, planID, detailID)
}
func (m *mockItineraryServicer) ListDetails(ctx context.Context, planID uuid.UUID) ([]domain.Detail, error) {
	return m.listDetails(ctx, planID)
}
func (m *mockItineraryServicer) UpdateDetail(ctx context.Context, d domain.Detail) (domain.Detail, error) {
	return m.updateDetail(ctx, d)
}
func (m *mockItineraryServicer) DeleteDetail(ctx context.Context, planID, detailID uuid.UUID) error {
	return m.deleteDetail(ctx, planID, detailID)
}

var _ handler.ItineraryServicer = (*mockItineraryServicer)(nil)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given mocks into its chi router,
// the same way main.go mounts it.
func newHTTPHandler(plans handler.PlanServicer, details handler.ItineraryServicer) http.Handler {
	return handler.NewServer(plans, details, nil, nil).Routes()
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

// do sends a request as account and returns the recorder.
func do(t *testing.T, h http.Handler, method, target string, account uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, jsonBody(t, body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if account != uuid.Nil {
		req.Header.Set(middleware.AccountIDHeader, account.String())
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func planViewFixture() domain.PlanView {
	return domain.PlanView{
		Plan: domain.Plan{
			ID:         uuid.New(),
			OwnerID:    uuid.New(),
			Title:      "Seoul food tour",
			Visibility: domain.Public,
			StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:    time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
			TotalCost:  decimal.NewFromInt(725000),
			CreatedAt:  time.Now().UTC(),
			UpdatedAt:  time.Now().UTC(),
		},
		Tags:         []string{"food"},
		Destinations: []string{"Seoul"},
	}
}

func detailFixture(planID uuid.UUID) domain.Detail {
	p := decimal.NewFromInt(500)
	return domain.Detail{
		ID:       uuid.New(),
		PlanID:   planID,
		Title:    "Gwangjang market",
		Start:    domain.MustParseMinute("202501011030"),
		End:      domain.MustParseMinute("202501011130"),
		Price:    &p,
		Currency: domain.USD,
	}
}
