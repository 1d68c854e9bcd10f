package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/plan-itinerary/internal/domain"
	"github.com/pkordes/plan-itinerary/internal/repo"
)

// PlanInput carries the caller-supplied fields of a plan write. Tags and
// Destinations are the complete target sets: a nil or empty list clears them.
type PlanInput struct {
	Plan         domain.Plan
	Tags         []string
	Destinations []string
}

// PlanService owns the plan lifecycle and the plan's label sets.
type PlanService struct {
	reads repo.Repos
	tx    repo.Transactor
	opts  Options
}

// NewPlanService constructs a PlanService.
func NewPlanService(reads repo.Repos, tx repo.Transactor, opts Options) *PlanService {
	return &PlanService{reads: reads, tx: tx, opts: opts.withDefaults()}
}

// Create persists a new plan with its tags and destinations.
func (s *PlanService) Create(ctx context.Context, in PlanInput) (domain.PlanView, error) {
	if err := validatePlanInput(in); err != nil {
		return domain.PlanView{}, fmt.Errorf("service.PlanService.Create: %w", err)
	}

	var view domain.PlanView
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r repo.Repos) error {
		p, err := r.Plans.Create(ctx, in.Plan)
		if err != nil {
			return err
		}
		view.Plan = p
		view.Tags, view.Destinations, err = reconcileLabels(ctx, r, p.ID, in)
		return err
	})
	if err != nil {
		return domain.PlanView{}, fmt.Errorf("service.PlanService.Create: %w", err)
	}
	return view, nil
}

// Get returns an active plan with its label names, served from the cache
// when a snapshot is present.
func (s *PlanService) Get(ctx context.Context, id uuid.UUID) (domain.PlanView, error) {
	cached, gen, ok, cacheErr := s.opts.Cache.Get(ctx, id)
	if cacheErr != nil {
		s.opts.Logger.WarnContext(ctx, "plan cache read failed", "plan_id", id, "error", cacheErr)
	} else if ok {
		return cached, nil
	}

	view, err := s.load(ctx, s.reads, id)
	if err != nil {
		return domain.PlanView{}, fmt.Errorf("service.PlanService.Get: %w", err)
	}
	if cacheErr != nil {
		return view, nil
	}
	stored, err := s.opts.Cache.Set(ctx, view, gen)
	switch {
	case err != nil:
		s.opts.Logger.WarnContext(ctx, "plan cache write failed", "plan_id", id, "error", err)
	case !stored:
		s.opts.Logger.DebugContext(ctx, "plan cache write skipped, invalidated during read", "plan_id", id)
	}
	return view, nil
}

// Update overwrites the plan's own fields and reconciles both label sets in
// the same transaction.
func (s *PlanService) Update(ctx context.Context, in PlanInput) (domain.PlanView, error) {
	if err := validatePlanInput(in); err != nil {
		return domain.PlanView{}, fmt.Errorf("service.PlanService.Update: %w", err)
	}

	var view domain.PlanView
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r repo.Repos) error {
		if _, err := r.Plans.LockForUpdate(ctx, in.Plan.ID); err != nil {
			return err
		}
		p, err := r.Plans.Update(ctx, in.Plan)
		if err != nil {
			return err
		}
		view.Plan = p
		view.Tags, view.Destinations, err = reconcileLabels(ctx, r, p.ID, in)
		return err
	})
	if err != nil {
		return domain.PlanView{}, fmt.Errorf("service.PlanService.Update: %w", err)
	}

	invalidate(ctx, s.opts, in.Plan.ID)
	return view, nil
}

// Delete retires the plan together with its active details and drops its
// tag and destination mappings.
func (s *PlanService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, r repo.Repos) error {
		if _, err := r.Plans.LockForUpdate(ctx, id); err != nil {
			return err
		}
		at := s.opts.Clock.Now()
		n, err := r.Details.RetireAllByPlan(ctx, id, at)
		if err != nil {
			return err
		}
		for _, kind := range []domain.TagKind{domain.KindTag, domain.KindDestination} {
			if _, err := r.Labels(kind).RemoveAllMappings(ctx, id); err != nil {
				return fmt.Errorf("clear %ss: %w", kind, err)
			}
		}
		if err := r.Plans.Retire(ctx, id, at); err != nil {
			return err
		}
		s.opts.Logger.InfoContext(ctx, "plan retired", "plan_id", id, "details_retired", n)
		return nil
	})
	if err != nil {
		return fmt.Errorf("service.PlanService.Delete: %w", err)
	}

	invalidate(ctx, s.opts, id)
	return nil
}

// IsOwner reports whether accountID owns the active plan.
func (s *PlanService) IsOwner(ctx context.Context, planID, accountID uuid.UUID) (bool, error) {
	ok, err := s.reads.Plans.IsOwner(ctx, planID, accountID)
	if err != nil {
		return false, fmt.Errorf("service.PlanService.IsOwner: %w", err)
	}
	return ok, nil
}

// IsAccessible reports whether accountID may read the active plan.
func (s *PlanService) IsAccessible(ctx context.Context, planID, accountID uuid.UUID) (bool, error) {
	ok, err := s.reads.Plans.IsAccessible(ctx, planID, accountID)
	if err != nil {
		return false, fmt.Errorf("service.PlanService.IsAccessible: %w", err)
	}
	return ok, nil
}

func (s *PlanService) load(ctx context.Context, r repo.Repos, id uuid.UUID) (domain.PlanView, error) {
	p, err := r.Plans.GetByID(ctx, id)
	if err != nil {
		return domain.PlanView{}, err
	}
	view := domain.PlanView{Plan: p}
	tags, err := r.Tags.ListMappings(ctx, id)
	if err != nil {
		return domain.PlanView{}, err
	}
	dests, err := r.Destinations.ListMappings(ctx, id)
	if err != nil {
		return domain.PlanView{}, err
	}
	view.Tags = Names(tags)
	view.Destinations = Names(dests)
	return view, nil
}

// reconcileLabels converges both label families of a plan and returns the
// resulting sorted name sets.
func reconcileLabels(ctx context.Context, r repo.Repos, planID uuid.UUID, in PlanInput) (tags, dests []string, err error) {
	targets := map[domain.TagKind][]string{
		domain.KindTag:         in.Tags,
		domain.KindDestination: in.Destinations,
	}
	result := make(map[domain.TagKind][]string, len(targets))
	for _, kind := range []domain.TagKind{domain.KindTag, domain.KindDestination} {
		labels := r.Labels(kind)
		existing, err := labels.ListMappings(ctx, planID)
		if err != nil {
			return nil, nil, fmt.Errorf("list %ss: %w", kind, err)
		}
		if _, err := NewTagReconciler(labels).Reconcile(ctx, planID, existing, targets[kind]); err != nil {
			return nil, nil, fmt.Errorf("reconcile %ss: %w", kind, err)
		}
		result[kind] = dedupeSorted(targets[kind])
	}
	return result[domain.KindTag], result[domain.KindDestination], nil
}

func validatePlanInput(in PlanInput) error {
	if err := validatePlan(in.Plan); err != nil {
		return err
	}
	if err := validateNames(domain.KindTag, in.Tags); err != nil {
		return err
	}
	return validateNames(domain.KindDestination, in.Destinations)
}
