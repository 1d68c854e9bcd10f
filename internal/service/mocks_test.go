package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pkordes/plan-itinerary/internal/currency"
	"github.com/pkordes/plan-itinerary/internal/domain"
	"github.com/pkordes/plan-itinerary/internal/repo"
	"github.com/pkordes/plan-itinerary/internal/service"
)

// ---- mock repos ------------------------------------------------------------

// mockDetailRepo is a hand-written test double for repo.DetailRepo.
type mockDetailRepo struct {
	create             func(ctx context.Context, d domain.Detail) (domain.Detail, error)
	getByID            func(ctx context.Context, planID, id uuid.UUID) (domain.Detail, error)
	listActiveByPlan   func(ctx context.Context, planID uuid.UUID) ([]domain.Detail, error)
	findOverlapping    func(ctx context.Context, planID uuid.UUID, span domain.Interval, exclude *uuid.UUID) ([]domain.Detail, error)
	update             func(ctx context.Context, d domain.Detail) (domain.Detail, error)
	retire             func(ctx context.Context, planID, id uuid.UUID, at time.Time) error
	retireAllByPlan    func(ctx context.Context, planID uuid.UUID, at time.Time) (int64, error)
	purgeRetiredBefore func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *mockDetailRepo) Create(ctx context.Context, d domain.Detail) (domain.Detail, error) {
	return m.create(ctx, d)
}
func (m *mockDetailRepo) GetByID(ctx context.Context, planID, id uuid.UUID) (domain.Detail, error) {
	return m.getByID(ctx, planID, id)
}
func (m *mockDetailRepo) ListActiveByPlan(ctx context.Context, planID uuid.UUID) ([]domain.Detail, error) {
	return m.listActiveByPlan(ctx, planID)
}
func (m *mockDetailRepo) FindOverlapping(ctx context.Context, planID uuid.UUID, span domain.Interval, exclude *uuid.UUID) ([]domain.Detail, error) {
	return m.findOverlapping(ctx, planID, span, exclude)
}
func (m *mockDetailRepo) Update(ctx context.Context, d domain.Detail) (domain.Detail, error) {
	return m.update(ctx, d)
}
func (m *mockDetailRepo) Retire(ctx context.Context, planID, id uuid.UUID, at time.Time) error {
	return m.retire(ctx, planID, id, at)
}
func (m *mockDetailRepo) RetireAllByPlan(ctx context.Context, planID uuid.UUID, at time.Time) (int64, error) {
	return m.retireAllByPlan(ctx, planID, at)
}
func (m *mockDetailRepo) PurgeRetiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.purgeRetiredBefore(ctx, cutoff)
}

// compile-time check: mockDetailRepo must satisfy repo.DetailRepo.
var _ repo.DetailRepo = (*mockDetailRepo)(nil)

// mockPlanRepo is a hand-written test double for repo.PlanRepo. Only the
// methods the cost aggregator touches are configurable.
type mockPlanRepo struct {
	repo.PlanRepo
	updateTotalCost func(ctx context.Context, id uuid.UUID, total decimal.Decimal) error
}

func (m *mockPlanRepo) UpdateTotalCost(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	return m.updateTotalCost(ctx, id, total)
}

var _ repo.PlanRepo = (*mockPlanRepo)(nil)

// mockTagRepo is a hand-written test double for repo.TagRepo.
type mockTagRepo struct {
	findByName        func(ctx context.Context, name string) (domain.Tag, error)
	create            func(ctx context.Context, name string) (domain.Tag, error)
	listMappings      func(ctx context.Context, planID uuid.UUID) ([]domain.TagMapping, error)
	addMapping        func(ctx context.Context, planID, tagID uuid.UUID) error
	removeMapping     func(ctx context.Context, planID, tagID uuid.UUID) error
	removeAllMappings func(ctx context.Context, planID uuid.UUID) (int64, error)
}

func (m *mockTagRepo) FindByName(ctx context.Context, name string) (domain.Tag, error) {
	return m.findByName(ctx, name)
}
func (m *mockTagRepo) Create(ctx context.Context, name string) (domain.Tag, error) {
	return m.create(ctx, name)
}
func (m *mockTagRepo) ListMappings(ctx context.Context, planID uuid.UUID) ([]domain.TagMapping, error) {
	return m.listMappings(ctx, planID)
}
func (m *mockTagRepo) AddMapping(ctx context.Context, planID, tagID uuid.UUID) error {
	return m.addMapping(ctx, planID, tagID)
}
func (m *mockTagRepo) RemoveMapping(ctx context.Context, planID, tagID uuid.UUID) error {
	return m.removeMapping(ctx, planID, tagID)
}
func (m *mockTagRepo) RemoveAllMappings(ctx context.Context, planID uuid.UUID) (int64, error) {
	return m.removeAllMappings(ctx, planID)
}

var _ repo.TagRepo = (*mockTagRepo)(nil)

// ---- recorder --------------------------------------------------------------

// countingRecorder tallies the events a service reports.
type countingRecorder struct {
	retired    int
	purged     int64
	failures   int
	recomputes int
}

func (r *countingRecorder) DetailsRetired(n int)             { r.retired += n }
func (r *countingRecorder) DetailsPurged(n int64)            { r.purged += n }
func (r *countingRecorder) PurgeFailed()                     { r.failures++ }
func (r *countingRecorder) ObserveRecompute(_ time.Duration) { r.recomputes++ }

var _ service.Recorder = (*countingRecorder)(nil)

// ---- helpers ---------------------------------------------------------------

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) service.Clock {
	return service.ClockFunc(func() time.Time { return t })
}

func newConverter() *currency.Converter {
	conv, err := currency.NewConverter(currency.DefaultRates())
	if err != nil {
		panic(err)
	}
	return conv
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// detailAt builds a valid detail for planID spanning [start, end) given as
// YYYYMMDDHHMM strings.
func detailAt(planID uuid.UUID, start, end string, amount string, cur domain.Currency) domain.Detail {
	d := domain.Detail{
		PlanID:   planID,
		Title:    "Gyeongbokgung",
		Start:    domain.MustParseMinute(start),
		End:      domain.MustParseMinute(end),
		Currency: cur,
	}
	if amount != "" {
		d.Price = price(amount)
	}
	return d
}

// newItinerary wires an ItineraryService to store for both reads and writes.
func newItinerary(store *memStore, opts service.Options) *service.ItineraryService {
	if opts.Clock == nil {
		opts.Clock = fixedClock(testNow)
	}
	return service.NewItineraryService(store.repos(), store, newConverter(), opts)
}

// noOverlap reports whether no two of details intersect.
func noOverlap(details []domain.Detail) bool {
	for i := range details {
		for j := i + 1; j < len(details); j++ {
			if details[i].Interval().Overlaps(details[j].Interval()) {
				return false
			}
		}
	}
	return true
}
