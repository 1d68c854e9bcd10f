package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/plan-itinerary/internal/domain"
	"github.com/pkordes/plan-itinerary/internal/repo"
)

// OverlapPolicy names how a detail write that intersects existing active
// details of the same plan is settled.
type OverlapPolicy int

const (
	// LastWriterWins retires every active detail the written interval
	// intersects. The displaced details are not reported to the caller.
	LastWriterWins OverlapPolicy = iota

	// RejectOverlap refuses the write with domain.ErrConflict and leaves the
	// existing details untouched.
	RejectOverlap
)

func (p OverlapPolicy) String() string {
	if p == RejectOverlap {
		return "reject"
	}
	return "last-writer-wins"
}

// ParseOverlapPolicy accepts the names produced by String.
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch s {
	case "", LastWriterWins.String():
		return LastWriterWins, nil
	case RejectOverlap.String():
		return RejectOverlap, nil
	}
	return 0, fmt.Errorf("unknown overlap policy %q", s)
}

// OverlapResolver finds and settles interval conflicts within one plan.
// Build one per transaction so its reads and retirements share that
// transaction's view of the plan.
type OverlapResolver struct {
	details repo.DetailRepo
	clock   Clock
	policy  OverlapPolicy
}

// NewOverlapResolver binds a resolver to a detail repo.
func NewOverlapResolver(details repo.DetailRepo, clock Clock, policy OverlapPolicy) *OverlapResolver {
	return &OverlapResolver{details: details, clock: clock, policy: policy}
}

// FindOverlapping returns every active detail of the plan that intersects
// span, leaving out exclude when it is non-nil so an edited detail never
// conflicts with itself.
func (o *OverlapResolver) FindOverlapping(ctx context.Context, planID uuid.UUID, span domain.Interval, exclude *uuid.UUID) ([]domain.Detail, error) {
	found, err := o.details.FindOverlapping(ctx, planID, span, exclude)
	if err != nil {
		return nil, fmt.Errorf("service.OverlapResolver.FindOverlapping: %w", err)
	}
	return found, nil
}

// Retire soft-deletes each detail with its own statement so every retirement
// is individually recorded. All details share one timestamp.
func (o *OverlapResolver) Retire(ctx context.Context, details []domain.Detail) error {
	at := o.clock.Now()
	for _, d := range details {
		if err := o.details.Retire(ctx, d.PlanID, d.ID, at); err != nil {
			return fmt.Errorf("service.OverlapResolver.Retire: detail %s: %w", d.ID, err)
		}
	}
	return nil
}

// Resolve applies the policy to the candidate interval and returns the
// details it retired.
func (o *OverlapResolver) Resolve(ctx context.Context, planID uuid.UUID, span domain.Interval, exclude *uuid.UUID) ([]domain.Detail, error) {
	found, err := o.FindOverlapping(ctx, planID, span, exclude)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	if o.policy == RejectOverlap {
		return nil, fmt.Errorf("%w: interval %s overlaps %d existing detail(s)", domain.ErrConflict, span, len(found))
	}
	if err := o.Retire(ctx, found); err != nil {
		return nil, err
	}
	return found, nil
}
