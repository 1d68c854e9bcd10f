package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/plan-itinerary/internal/domain"
	"github.com/pkordes/plan-itinerary/internal/repo"
)

// ItineraryService orchestrates detail mutations. Each mutation locks the
// owning plan row, settles interval conflicts, writes the detail and
// recomputes the plan total inside one transaction, so concurrent mutations
// of the same plan run one after another and the total never reflects a
// half-applied change. Mutations of different plans do not contend.
type ItineraryService struct {
	reads repo.Repos
	tx    repo.Transactor
	conv  Converter
	opts  Options
}

// NewItineraryService constructs an ItineraryService. reads serves the
// read-only operations; tx runs every mutation.
func NewItineraryService(reads repo.Repos, tx repo.Transactor, conv Converter, opts Options) *ItineraryService {
	return &ItineraryService{reads: reads, tx: tx, conv: conv, opts: opts.withDefaults()}
}

// CreateDetail validates d, retires whatever it displaces, persists it and
// recomputes the plan total.
// Returns domain.ErrValidation for invalid input and domain.ErrNotFound if the
// plan does not exist or is retired.
func (s *ItineraryService) CreateDetail(ctx context.Context, d domain.Detail) (domain.Detail, error) {
	d = s.withDefaultCurrency(d)
	if err := validateDetail(d); err != nil {
		return domain.Detail{}, fmt.Errorf("service.ItineraryService.CreateDetail: %w", err)
	}

	var (
		out     domain.Detail
		retired []domain.Detail
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r repo.Repos) error {
		if _, err := r.Plans.LockForUpdate(ctx, d.PlanID); err != nil {
			return err
		}
		var err error
		retired, err = s.resolver(r).Resolve(ctx, d.PlanID, d.Interval(), nil)
		if err != nil {
			return err
		}
		if out, err = r.Details.Create(ctx, d); err != nil {
			return err
		}
		_, err = s.aggregator(r).Recompute(ctx, d.PlanID)
		return err
	})
	if err != nil {
		return domain.Detail{}, fmt.Errorf("service.ItineraryService.CreateDetail: %w", err)
	}

	s.committed(ctx, d.PlanID, retired)
	return out, nil
}

// UpdateDetail overwrites an active detail. The detail is left out of its own
// overlap search, so moving it within its current slot retires nothing.
// Returns domain.ErrNotFound if the plan or the detail does not exist.
func (s *ItineraryService) UpdateDetail(ctx context.Context, d domain.Detail) (domain.Detail, error) {
	d = s.withDefaultCurrency(d)
	if err := validateDetail(d); err != nil {
		return domain.Detail{}, fmt.Errorf("service.ItineraryService.UpdateDetail: %w", err)
	}

	var (
		out     domain.Detail
		retired []domain.Detail
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r repo.Repos) error {
		if _, err := r.Plans.LockForUpdate(ctx, d.PlanID); err != nil {
			return err
		}
		if _, err := r.Details.GetByID(ctx, d.PlanID, d.ID); err != nil {
			return err
		}
		var err error
		self := d.ID
		retired, err = s.resolver(r).Resolve(ctx, d.PlanID, d.Interval(), &self)
		if err != nil {
			return err
		}
		if out, err = r.Details.Update(ctx, d); err != nil {
			return err
		}
		_, err = s.aggregator(r).Recompute(ctx, d.PlanID)
		return err
	})
	if err != nil {
		return domain.Detail{}, fmt.Errorf("service.ItineraryService.UpdateDetail: %w", err)
	}

	s.committed(ctx, d.PlanID, retired)
	return out, nil
}

// DeleteDetail retires one detail and recomputes the plan total.
// Returns domain.ErrNotFound if the plan or the detail does not exist.
func (s *ItineraryService) DeleteDetail(ctx context.Context, planID, detailID uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r repo.Repos) error {
		if _, err := r.Plans.LockForUpdate(ctx, planID); err != nil {
			return err
		}
		if err := r.Details.Retire(ctx, planID, detailID, s.opts.Clock.Now()); err != nil {
			return err
		}
		_, err := s.aggregator(r).Recompute(ctx, planID)
		return err
	})
	if err != nil {
		return fmt.Errorf("service.ItineraryService.DeleteDetail: %w", err)
	}

	s.committed(ctx, planID, nil)
	return nil
}

// GetDetail returns one active detail of a plan.
func (s *ItineraryService) GetDetail(ctx context.Context, planID, detailID uuid.UUID) (domain.Detail, error) {
	d, err := s.reads.Details.GetByID(ctx, planID, detailID)
	if err != nil {
		return domain.Detail{}, fmt.Errorf("service.ItineraryService.GetDetail: %w", err)
	}
	return d, nil
}

// ListDetails returns the active details of an active plan ordered by start.
// Always returns a non-nil slice so callers can safely range over it.
func (s *ItineraryService) ListDetails(ctx context.Context, planID uuid.UUID) ([]domain.Detail, error) {
	if _, err := s.reads.Plans.GetByID(ctx, planID); err != nil {
		return nil, fmt.Errorf("service.ItineraryService.ListDetails: %w", err)
	}
	details, err := s.reads.Details.ListActiveByPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("service.ItineraryService.ListDetails: %w", err)
	}
	if details == nil {
		return []domain.Detail{}, nil
	}
	return details, nil
}

func (s *ItineraryService) resolver(r repo.Repos) *OverlapResolver {
	return NewOverlapResolver(r.Details, s.opts.Clock, s.opts.OverlapPolicy)
}

func (s *ItineraryService) aggregator(r repo.Repos) *CostAggregator {
	return NewCostAggregator(r.Details, r.Plans, s.conv, s.opts.DefaultCurrency, s.opts.Metrics)
}

func (s *ItineraryService) withDefaultCurrency(d domain.Detail) domain.Detail {
	if d.Currency == "" {
		d.Currency = s.opts.DefaultCurrency
	}
	return d
}

// committed runs the side effects that only make sense once a mutation's
// transaction has committed.
func (s *ItineraryService) committed(ctx context.Context, planID uuid.UUID, retired []domain.Detail) {
	for _, d := range retired {
		s.opts.Logger.InfoContext(ctx, "detail retired by overlap",
			"plan_id", planID,
			"detail_id", d.ID,
			"interval", d.Interval().String(),
			"policy", s.opts.OverlapPolicy.String(),
		)
	}
	if len(retired) > 0 {
		s.opts.Metrics.DetailsRetired(len(retired))
	}
	invalidate(ctx, s.opts, planID)
}
