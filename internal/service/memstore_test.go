package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pkordes/plan-itinerary/internal/domain"
	"github.com/pkordes/plan-itinerary/internal/repo"
)

// ---- in-memory store -------------------------------------------------------

// memStore is a transactional in-memory stand-in for Postgres. WithinTx
// snapshots the state and restores it when fn fails, so tests can assert
// that a failed mutation left nothing behind. A single mutex serializes
// transactions the way the plan row lock does.
type memStore struct {
	txMu  sync.Mutex
	state memState

	// failures injected by tests
	failTotalWrite   error
	failDetailCreate error
}

type memState struct {
	plans    map[uuid.UUID]domain.Plan
	details  map[uuid.UUID]domain.Detail
	labels   map[domain.TagKind]map[string]domain.Tag
	mappings map[domain.TagKind]map[uuid.UUID]map[uuid.UUID]struct{}
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		plans:   map[uuid.UUID]domain.Plan{},
		details: map[uuid.UUID]domain.Detail{},
		labels: map[domain.TagKind]map[string]domain.Tag{
			domain.KindTag:         {},
			domain.KindDestination: {},
		},
		mappings: map[domain.TagKind]map[uuid.UUID]map[uuid.UUID]struct{}{
			domain.KindTag:         {},
			domain.KindDestination: {},
		},
	}}
}

func (s memState) clone() memState {
	c := memState{
		plans:    make(map[uuid.UUID]domain.Plan, len(s.plans)),
		details:  make(map[uuid.UUID]domain.Detail, len(s.details)),
		labels:   map[domain.TagKind]map[string]domain.Tag{},
		mappings: map[domain.TagKind]map[uuid.UUID]map[uuid.UUID]struct{}{},
	}
	for k, v := range s.plans {
		c.plans[k] = v
	}
	for k, v := range s.details {
		c.details[k] = v
	}
	for kind, byName := range s.labels {
		c.labels[kind] = make(map[string]domain.Tag, len(byName))
		for k, v := range byName {
			c.labels[kind][k] = v
		}
	}
	for kind, byPlan := range s.mappings {
		c.mappings[kind] = make(map[uuid.UUID]map[uuid.UUID]struct{}, len(byPlan))
		for planID, set := range byPlan {
			cs := make(map[uuid.UUID]struct{}, len(set))
			for id := range set {
				cs[id] = struct{}{}
			}
			c.mappings[kind][planID] = cs
		}
	}
	return c
}

func (s *memStore) repos() repo.Repos {
	return repo.Repos{
		Plans:        &memPlans{s},
		Details:      &memDetails{s},
		Tags:         &memLabels{s, domain.KindTag},
		Destinations: &memLabels{s, domain.KindDestination},
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r repo.Repos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	saved := s.state.clone()
	if err := fn(ctx, s.repos()); err != nil {
		s.state = saved
		return err
	}
	return nil
}

var _ repo.Transactor = (*memStore)(nil)

// addPlan seeds an active plan.
func (s *memStore) addPlan(owner uuid.UUID) domain.Plan {
	p := domain.Plan{
		ID:         uuid.New(),
		OwnerID:    owner,
		Title:      "Seoul in spring",
		Visibility: domain.Private,
		StartDate:  time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC),
		TotalCost:  decimal.Zero,
	}
	s.state.plans[p.ID] = p
	return p
}

func (s *memStore) plan(id uuid.UUID) domain.Plan { return s.state.plans[id] }

// active returns the plan's active details ordered by start.
func (s *memStore) active(planID uuid.UUID) []domain.Detail {
	out := []domain.Detail{}
	for _, d := range s.state.details {
		if d.PlanID == planID && d.DeletedAt == nil {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// mapped returns the sorted label names of kind mapped to planID.
func (s *memStore) mapped(kind domain.TagKind, planID uuid.UUID) []string {
	out := []string{}
	for name, tag := range s.state.labels[kind] {
		if _, ok := s.state.mappings[kind][planID][tag.ID]; ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ---- plans -----------------------------------------------------------------

type memPlans struct{ s *memStore }

func (m *memPlans) Create(_ context.Context, p domain.Plan) (domain.Plan, error) {
	p.ID = uuid.New()
	p.TotalCost = decimal.Zero
	m.s.state.plans[p.ID] = p
	return p, nil
}

func (m *memPlans) GetByID(_ context.Context, id uuid.UUID) (domain.Plan, error) {
	p, ok := m.s.state.plans[id]
	if !ok || p.DeletedAt != nil {
		return domain.Plan{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memPlans) LockForUpdate(ctx context.Context, id uuid.UUID) (domain.Plan, error) {
	return m.GetByID(ctx, id)
}

func (m *memPlans) Update(ctx context.Context, p domain.Plan) (domain.Plan, error) {
	cur, err := m.GetByID(ctx, p.ID)
	if err != nil {
		return domain.Plan{}, err
	}
	cur.Title, cur.Visibility, cur.StartDate, cur.EndDate = p.Title, p.Visibility, p.StartDate, p.EndDate
	m.s.state.plans[p.ID] = cur
	return cur, nil
}

func (m *memPlans) UpdateTotalCost(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	if m.s.failTotalWrite != nil {
		return m.s.failTotalWrite
	}
	cur, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}
	cur.TotalCost = total
	m.s.state.plans[id] = cur
	return nil
}

func (m *memPlans) Retire(ctx context.Context, id uuid.UUID, at time.Time) error {
	cur, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}
	cur.DeletedAt = &at
	m.s.state.plans[id] = cur
	return nil
}

func (m *memPlans) IsOwner(ctx context.Context, planID, accountID uuid.UUID) (bool, error) {
	p, err := m.GetByID(ctx, planID)
	if err != nil {
		return false, nil
	}
	return p.OwnerID == accountID, nil
}

func (m *memPlans) IsAccessible(ctx context.Context, planID, accountID uuid.UUID) (bool, error) {
	p, err := m.GetByID(ctx, planID)
	if err != nil {
		return false, nil
	}
	return p.Visibility == domain.Public || p.OwnerID == accountID, nil
}

// ---- details ---------------------------------------------------------------

type memDetails struct{ s *memStore }

func (m *memDetails) Create(_ context.Context, d domain.Detail) (domain.Detail, error) {
	if m.s.failDetailCreate != nil {
		return domain.Detail{}, m.s.failDetailCreate
	}
	d.ID = uuid.New()
	m.s.state.details[d.ID] = d
	return d, nil
}

func (m *memDetails) GetByID(_ context.Context, planID, id uuid.UUID) (domain.Detail, error) {
	d, ok := m.s.state.details[id]
	if !ok || d.PlanID != planID || d.DeletedAt != nil {
		return domain.Detail{}, domain.ErrNotFound
	}
	return d, nil
}

func (m *memDetails) ListActiveByPlan(_ context.Context, planID uuid.UUID) ([]domain.Detail, error) {
	return m.s.active(planID), nil
}

func (m *memDetails) FindOverlapping(_ context.Context, planID uuid.UUID, span domain.Interval, exclude *uuid.UUID) ([]domain.Detail, error) {
	var out []domain.Detail
	for _, d := range m.s.active(planID) {
		if exclude != nil && d.ID == *exclude {
			continue
		}
		if d.Interval().Overlaps(span) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDetails) Update(ctx context.Context, d domain.Detail) (domain.Detail, error) {
	if _, err := m.GetByID(ctx, d.PlanID, d.ID); err != nil {
		return domain.Detail{}, err
	}
	m.s.state.details[d.ID] = d
	return d, nil
}

func (m *memDetails) Retire(ctx context.Context, planID, id uuid.UUID, at time.Time) error {
	d, err := m.GetByID(ctx, planID, id)
	if err != nil {
		return err
	}
	d.DeletedAt = &at
	m.s.state.details[id] = d
	return nil
}

func (m *memDetails) RetireAllByPlan(_ context.Context, planID uuid.UUID, at time.Time) (int64, error) {
	var n int64
	for _, d := range m.s.active(planID) {
		d.DeletedAt = &at
		m.s.state.details[d.ID] = d
		n++
	}
	return n, nil
}

func (m *memDetails) PurgeRetiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, d := range m.s.state.details {
		if d.DeletedAt != nil && d.DeletedAt.Before(cutoff) {
			delete(m.s.state.details, id)
			n++
		}
	}
	return n, nil
}

// ---- labels ----------------------------------------------------------------

type memLabels struct {
	s    *memStore
	kind domain.TagKind
}

func (m *memLabels) FindByName(_ context.Context, name string) (domain.Tag, error) {
	t, ok := m.s.state.labels[m.kind][name]
	if !ok {
		return domain.Tag{}, domain.ErrNotFound
	}
	return t, nil
}

func (m *memLabels) Create(_ context.Context, name string) (domain.Tag, error) {
	if _, ok := m.s.state.labels[m.kind][name]; ok {
		return domain.Tag{}, fmt.Errorf("%w: %s %q exists", domain.ErrConflict, m.kind, name)
	}
	t := domain.Tag{ID: uuid.New(), Name: name}
	m.s.state.labels[m.kind][name] = t
	return t, nil
}

func (m *memLabels) ListMappings(_ context.Context, planID uuid.UUID) ([]domain.TagMapping, error) {
	var out []domain.TagMapping
	for _, name := range m.s.mapped(m.kind, planID) {
		out = append(out, domain.TagMapping{PlanID: planID, Tag: m.s.state.labels[m.kind][name]})
	}
	return out, nil
}

func (m *memLabels) AddMapping(_ context.Context, planID, tagID uuid.UUID) error {
	set, ok := m.s.state.mappings[m.kind][planID]
	if !ok {
		set = map[uuid.UUID]struct{}{}
		m.s.state.mappings[m.kind][planID] = set
	}
	set[tagID] = struct{}{}
	return nil
}

func (m *memLabels) RemoveMapping(_ context.Context, planID, tagID uuid.UUID) error {
	set := m.s.state.mappings[m.kind][planID]
	if _, ok := set[tagID]; !ok {
		return domain.ErrNotFound
	}
	delete(set, tagID)
	return nil
}

func (m *memLabels) RemoveAllMappings(_ context.Context, planID uuid.UUID) (int64, error) {
	n := int64(len(m.s.state.mappings[m.kind][planID]))
	delete(m.s.state.mappings[m.kind], planID)
	return n, nil
}
