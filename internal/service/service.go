// Package service contains the business logic of the itinerary engine.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pkordes/plan-itinerary/internal/domain"
)

// Clock supplies the current time for soft-delete stamps and purge cutoffs.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// Converter converts an amount between currencies. *currency.Converter
// satisfies it.
type Converter interface {
	Convert(amount decimal.Decimal, from, to domain.Currency) decimal.Decimal
}

// Recorder receives engine events for metrics. The zero Options use a no-op.
type Recorder interface {
	DetailsRetired(n int)
	DetailsPurged(n int64)
	PurgeFailed()
	ObserveRecompute(d time.Duration)
}

// PlanCache stores plan snapshots between reads. Every committed mutation of
// a plan's details, total, tags or destinations invalidates its entry.
//
// A miss reports the plan's invalidation generation. Set stores the snapshot
// only while that generation is current, so a view loaded before a concurrent
// commit is dropped instead of outliving the commit's invalidation.
type PlanCache interface {
	Get(ctx context.Context, planID uuid.UUID) (view domain.PlanView, gen int64, ok bool, err error)
	Set(ctx context.Context, view domain.PlanView, gen int64) (stored bool, err error)
	Invalidate(ctx context.Context, planID uuid.UUID) error
}

// Options carries the collaborators shared by the services. Zero fields fall
// back to working defaults.
type Options struct {
	Clock           Clock
	Logger          *slog.Logger
	Metrics         Recorder
	Cache           PlanCache
	DefaultCurrency domain.Currency
	OverlapPolicy   OverlapPolicy
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = SystemClock
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = nopRecorder{}
	}
	if o.Cache == nil {
		o.Cache = nopCache{}
	}
	if o.DefaultCurrency == "" {
		o.DefaultCurrency = domain.CanonicalCurrency
	}
	return o
}

type nopRecorder struct{}

func (nopRecorder) DetailsRetired(int)             {}
func (nopRecorder) DetailsPurged(int64)            {}
func (nopRecorder) PurgeFailed()                   {}
func (nopRecorder) ObserveRecompute(time.Duration) {}

type nopCache struct{}

func (nopCache) Get(context.Context, uuid.UUID) (domain.PlanView, int64, bool, error) {
	return domain.PlanView{}, 0, false, nil
}
func (nopCache) Set(context.Context, domain.PlanView, int64) (bool, error) { return false, nil }
func (nopCache) Invalidate(context.Context, uuid.UUID) error               { return nil }

// invalidate drops a plan's cached snapshot, logging any failure. The entry
// still expires on its own TTL.
func invalidate(ctx context.Context, o Options, planID uuid.UUID) {
	if err := o.Cache.Invalidate(ctx, planID); err != nil {
		o.Logger.WarnContext(ctx, "plan cache invalidation failed", "plan_id", planID, "error", err)
	}
}
