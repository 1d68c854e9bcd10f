package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/pkordes/plan-itinerary/internal/domain"
	"github.com/pkordes/plan-itinerary/internal/repo"
)

// ReconcileResult reports what a reconciliation changed. Names are sorted.
type ReconcileResult struct {
	Added   []string // mappings created
	Removed []string // mappings deleted
	Created []string // labels that did not exist before
}

// Changed reports whether anything was written.
func (r ReconcileResult) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// TagReconciler converges a plan's mappings of one label family to a target
// name list. Names match exactly, case included.
type TagReconciler struct {
	labels repo.TagRepo
}

// NewTagReconciler binds a reconciler to a transaction-scoped label repo.
func NewTagReconciler(labels repo.TagRepo) *TagReconciler {
	return &TagReconciler{labels: labels}
}

// Reconcile makes the names mapped to planID equal exactly the set of
// newNames. An empty or nil list clears every mapping. Removals are applied
// before additions. Running it again with the same names writes nothing.
func (t *TagReconciler) Reconcile(ctx context.Context, planID uuid.UUID, existing []domain.TagMapping, newNames []string) (ReconcileResult, error) {
	var res ReconcileResult

	target := make(map[string]struct{}, len(newNames))
	for _, n := range newNames {
		target[n] = struct{}{}
	}

	if len(target) == 0 {
		if len(existing) == 0 {
			return res, nil
		}
		if _, err := t.labels.RemoveAllMappings(ctx, planID); err != nil {
			return res, fmt.Errorf("service.TagReconciler.Reconcile: clear: %w", err)
		}
		for _, m := range existing {
			res.Removed = append(res.Removed, m.Tag.Name)
		}
		sort.Strings(res.Removed)
		return res, nil
	}

	have := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		have[m.Tag.Name] = struct{}{}
		if _, keep := target[m.Tag.Name]; keep {
			continue
		}
		if err := t.labels.RemoveMapping(ctx, planID, m.Tag.ID); err != nil {
			return res, fmt.Errorf("service.TagReconciler.Reconcile: remove %q: %w", m.Tag.Name, err)
		}
		res.Removed = append(res.Removed, m.Tag.Name)
	}

	toAdd := make([]string, 0, len(target))
	for n := range target {
		if _, ok := have[n]; !ok {
			toAdd = append(toAdd, n)
		}
	}
	sort.Strings(toAdd)

	for _, name := range toAdd {
		tag, created, err := t.findOrCreate(ctx, name)
		if err != nil {
			return res, fmt.Errorf("service.TagReconciler.Reconcile: %w", err)
		}
		if err := t.labels.AddMapping(ctx, planID, tag.ID); err != nil {
			return res, fmt.Errorf("service.TagReconciler.Reconcile: add %q: %w", name, err)
		}
		res.Added = append(res.Added, name)
		if created {
			res.Created = append(res.Created, name)
		}
	}

	sort.Strings(res.Removed)
	return res, nil
}

// findOrCreate returns the label named name, creating it when absent. When a
// concurrent writer creates the same name first, the winner's row is read back.
func (t *TagReconciler) findOrCreate(ctx context.Context, name string) (domain.Tag, bool, error) {
	tag, err := t.labels.FindByName(ctx, name)
	if err == nil {
		return tag, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Tag{}, false, fmt.Errorf("find %q: %w", name, err)
	}

	tag, err = t.labels.Create(ctx, name)
	if err == nil {
		return tag, true, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return domain.Tag{}, false, fmt.Errorf("create %q: %w", name, err)
	}

	tag, err = t.labels.FindByName(ctx, name)
	if err != nil {
		return domain.Tag{}, false, fmt.Errorf("re-read %q after conflict: %w", name, err)
	}
	return tag, false, nil
}

// Names projects mappings onto their label names, sorted.
func Names(mappings []domain.TagMapping) []string {
	out := make([]string, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, m.Tag.Name)
	}
	sort.Strings(out)
	return out
}

// dedupeSorted returns the distinct names in ascending order. Never nil.
func dedupeSorted(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
