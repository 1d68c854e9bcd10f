package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pkordes/plan-itinerary/internal/domain"
	"github.com/pkordes/plan-itinerary/internal/repo"
)

// CostAggregator derives a plan's total cost from its active details.
type CostAggregator struct {
	details  repo.DetailRepo
	plans    repo.PlanRepo
	conv     Converter
	fallback domain.Currency
	metrics  Recorder
}

// NewCostAggregator binds an aggregator to transaction-scoped repos.
// fallback is the currency assumed for a detail that carries none.
func NewCostAggregator(details repo.DetailRepo, plans repo.PlanRepo, conv Converter, fallback domain.Currency, metrics Recorder) *CostAggregator {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &CostAggregator{details: details, plans: plans, conv: conv, fallback: fallback, metrics: metrics}
}

// Total sums the prices of details converted into the canonical currency and
// rounds the sum to 2 decimal places. A nil price counts as zero. The result
// does not depend on the order of details.
func Total(conv Converter, details []domain.Detail, fallback domain.Currency) decimal.Decimal {
	sum := decimal.Zero
	for _, d := range details {
		if d.Price == nil {
			continue
		}
		from := d.Currency
		if from == "" {
			from = fallback
		}
		sum = sum.Add(conv.Convert(*d.Price, from, domain.CanonicalCurrency))
	}
	return sum.Round(2)
}

// Recompute reloads every active detail of the plan, recomputes the total from
// scratch and persists it. A failed write is returned and nothing is stored.
func (a *CostAggregator) Recompute(ctx context.Context, planID uuid.UUID) (decimal.Decimal, error) {
	start := time.Now()
	defer func() { a.metrics.ObserveRecompute(time.Since(start)) }()

	details, err := a.details.ListActiveByPlan(ctx, planID)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("service.CostAggregator.Recompute: %w", err)
	}
	total := Total(a.conv, details, a.fallback)
	if err := a.plans.UpdateTotalCost(ctx, planID, total); err != nil {
		return decimal.Decimal{}, fmt.Errorf("service.CostAggregator.Recompute: %w", err)
	}
	return total, nil
}
