package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/pkordes/plan-itinerary/internal/domain"
)

// PlanRepo defines the persistence operations for Plans.
// Every read treats a retired plan as missing.
type PlanRepo interface {
	// Create inserts a new plan and returns the persisted record with the
	// DB-generated id and timestamps populated. TotalCost starts at zero.
	Create(ctx context.Context, plan domain.Plan) (domain.Plan, error)

	// GetByID retrieves an active plan. Returns domain.ErrNotFound otherwise.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Plan, error)

	// LockForUpdate reads an active plan and holds its row lock until the
	// surrounding transaction ends. Concurrent mutations of the same plan
	// queue behind each other here.
	LockForUpdate(ctx context.Context, id uuid.UUID) (domain.Plan, error)

	// Update overwrites title, visibility and travel dates.
	Update(ctx context.Context, plan domain.Plan) (domain.Plan, error)

	// UpdateTotalCost stores a freshly computed total.
	UpdateTotalCost(ctx context.Context, id uuid.UUID, total decimal.Decimal) error

	// Retire soft-deletes an active plan.
	Retire(ctx context.Context, id uuid.UUID, at time.Time) error

	// IsOwner reports whether accountID owns the active plan.
	IsOwner(ctx context.Context, planID, accountID uuid.UUID) (bool, error)

	// IsAccessible reports whether the active plan is public or owned by accountID.
	IsAccessible(ctx context.Context, planID, accountID uuid.UUID) (bool, error)
}

type pgPlanRepo struct {
	db db
}

// NewPlanRepo constructs a PlanRepo backed by the provided db connection.
func NewPlanRepo(db db) PlanRepo {
	return &pgPlanRepo{db: db}
}

const planColumns = `id, owner_id, title, visibility, start_date, end_date, total_cost, like_count, deleted_at, created_at, updated_at`

func (r *pgPlanRepo) Create(ctx context.Context, plan domain.Plan) (domain.Plan, error) {
	const q = `
		INSERT INTO plans (owner_id, title, visibility, start_date, end_date)
		VALUES (@owner_id, @title, @visibility, @start_date, @end_date)
		RETURNING ` + planColumns

	args := pgx.NamedArgs{
		"owner_id":   plan.OwnerID,
		"title":      plan.Title,
		"visibility": string(plan.Visibility),
		"start_date": plan.StartDate,
		"end_date":   plan.EndDate,
	}

	result, err := scanPlan(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Plan{}, fmt.Errorf("repo.PlanRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgPlanRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Plan, error) {
	const q = `
		SELECT ` + planColumns + `
		FROM plans
		WHERE id = @id AND deleted_at IS NULL`

	result, err := scanPlan(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Plan{}, fmt.Errorf("repo.PlanRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgPlanRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (domain.Plan, error) {
	const q = `
		SELECT ` + planColumns + `
		FROM plans
		WHERE id = @id AND deleted_at IS NULL
		FOR UPDATE`

	result, err := scanPlan(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Plan{}, fmt.Errorf("repo.PlanRepo.LockForUpdate: %w", err)
	}
	return result, nil
}

func (r *pgPlanRepo) Update(ctx context.Context, plan domain.Plan) (domain.Plan, error) {
	const q = `
		UPDATE plans
		SET title      = @title,
		    visibility = @visibility,
		    start_date = @start_date,
		    end_date   = @end_date,
		    updated_at = now()
		WHERE id = @id AND deleted_at IS NULL
		RETURNING ` + planColumns

	args := pgx.NamedArgs{
		"id":         plan.ID,
		"title":      plan.Title,
		"visibility": string(plan.Visibility),
		"start_date": plan.StartDate,
		"end_date":   plan.EndDate,
	}

	result, err := scanPlan(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Plan{}, fmt.Errorf("repo.PlanRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgPlanRepo) UpdateTotalCost(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	const q = `
		UPDATE plans
		SET total_cost = @total_cost,
		    updated_at = now()
		WHERE id = @id AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "total_cost": total})
	if err != nil {
		return fmt.Errorf("repo.PlanRepo.UpdateTotalCost: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.PlanRepo.UpdateTotalCost: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgPlanRepo) Retire(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `
		UPDATE plans
		SET deleted_at = @deleted_at,
		    updated_at = now()
		WHERE id = @id AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "deleted_at": at})
	if err != nil {
		return fmt.Errorf("repo.PlanRepo.Retire: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.PlanRepo.Retire: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgPlanRepo) IsOwner(ctx context.Context, planID, accountID uuid.UUID) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM plans
			WHERE id = @id AND owner_id = @account_id AND deleted_at IS NULL
		)`

	var ok bool
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": planID, "account_id": accountID}).Scan(&ok); err != nil {
		return false, fmt.Errorf("repo.PlanRepo.IsOwner: %w", err)
	}
	return ok, nil
}

func (r *pgPlanRepo) IsAccessible(ctx context.Context, planID, accountID uuid.UUID) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM plans
			WHERE id = @id AND deleted_at IS NULL
			  AND (visibility = 'PUBLIC' OR owner_id = @account_id)
		)`

	var ok bool
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": planID, "account_id": accountID}).Scan(&ok); err != nil {
		return false, fmt.Errorf("repo.PlanRepo.IsAccessible: %w", err)
	}
	return ok, nil
}

// scanPlan maps a single database row into a domain.Plan.
func scanPlan(s scanner) (domain.Plan, error) {
	var (
		p          domain.Plan
		id, owner  pgtype.UUID
		start, end pgtype.Date
		visibility string
	)

	err := s.Scan(&id, &owner, &p.Title, &visibility, &start, &end,
		&p.TotalCost, &p.LikeCount, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Plan{}, mapErr(err)
	}

	p.ID = uuid.UUID(id.Bytes)
	p.OwnerID = uuid.UUID(owner.Bytes)
	p.Visibility = domain.Visibility(visibility)
	p.StartDate = start.Time
	p.EndDate = end.Time
	return p, nil
}
