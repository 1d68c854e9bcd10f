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

// DetailRepo defines the persistence operations for plan details.
// Reads only ever return active details.
type DetailRepo interface {
	// Create inserts a detail and returns the persisted record.
	Create(ctx context.Context, d domain.Detail) (domain.Detail, error)

	// GetByID retrieves an active detail scoped to its plan.
	// Returns domain.ErrNotFound if it does not exist, is retired, or belongs
	// to another plan.
	GetByID(ctx context.Context, planID, id uuid.UUID) (domain.Detail, error)

	// ListActiveByPlan returns the plan's active details ordered by start time.
	ListActiveByPlan(ctx context.Context, planID uuid.UUID) ([]domain.Detail, error)

	// FindOverlapping returns the plan's active details whose interval
	// intersects span, leaving out exclude when it is non-nil.
	FindOverlapping(ctx context.Context, planID uuid.UUID, span domain.Interval, exclude *uuid.UUID) ([]domain.Detail, error)

	// Update overwrites the mutable fields of an active detail.
	Update(ctx context.Context, d domain.Detail) (domain.Detail, error)

	// Retire soft-deletes one active detail.
	Retire(ctx context.Context, planID, id uuid.UUID, at time.Time) error

	// RetireAllByPlan soft-deletes every active detail of a plan.
	RetireAllByPlan(ctx context.Context, planID uuid.UUID, at time.Time) (int64, error)

	// PurgeRetiredBefore hard-deletes details retired strictly before cutoff.
	PurgeRetiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type pgDetailRepo struct {
	db db
}

// NewDetailRepo constructs a DetailRepo backed by the provided db connection.
func NewDetailRepo(db db) DetailRepo {
	return &pgDetailRepo{db: db}
}

const detailColumns = `id, plan_id, title, starts_at, ends_at, price, currency, notes, location_id, deleted_at, created_at, updated_at`

func (r *pgDetailRepo) Create(ctx context.Context, d domain.Detail) (domain.Detail, error) {
	const q = `
		INSERT INTO plan_details (plan_id, title, starts_at, ends_at, price, currency, notes, location_id)
		VALUES (@plan_id, @title, @starts_at, @ends_at, @price, @currency, @notes, @location_id)
		RETURNING ` + detailColumns

	result, err := scanDetail(r.db.QueryRow(ctx, q, detailArgs(d)))
	if err != nil {
		return domain.Detail{}, fmt.Errorf("repo.DetailRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgDetailRepo) GetByID(ctx context.Context, planID, id uuid.UUID) (domain.Detail, error) {
	const q = `
		SELECT ` + detailColumns + `
		FROM plan_details
		WHERE id = @id AND plan_id = @plan_id AND deleted_at IS NULL`

	result, err := scanDetail(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "plan_id": planID}))
	if err != nil {
		return domain.Detail{}, fmt.Errorf("repo.DetailRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgDetailRepo) ListActiveByPlan(ctx context.Context, planID uuid.UUID) ([]domain.Detail, error) {
	const q = `
		SELECT ` + detailColumns + `
		FROM plan_details
		WHERE plan_id = @plan_id AND deleted_at IS NULL
		ORDER BY starts_at, id`

	details, err := r.list(ctx, q, pgx.NamedArgs{"plan_id": planID})
	if err != nil {
		return nil, fmt.Errorf("repo.DetailRepo.ListActiveByPlan: %w", err)
	}
	return details, nil
}

// FindOverlapping uses the strict test a.start < b.end AND a.end > b.start,
// so intervals that only share a boundary minute are not returned.
func (r *pgDetailRepo) FindOverlapping(ctx context.Context, planID uuid.UUID, span domain.Interval, exclude *uuid.UUID) ([]domain.Detail, error) {
	const q = `
		SELECT ` + detailColumns + `
		FROM plan_details
		WHERE plan_id = @plan_id
		  AND deleted_at IS NULL
		  AND starts_at < @ends_at
		  AND ends_at > @starts_at
		  AND (@exclude_id::uuid IS NULL OR id <> @exclude_id::uuid)
		ORDER BY starts_at, id`

	args := pgx.NamedArgs{
		"plan_id":    planID,
		"starts_at":  span.Start.Time(),
		"ends_at":    span.End.Time(),
		"exclude_id": exclude, // nil becomes NULL
	}

	details, err := r.list(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.DetailRepo.FindOverlapping: %w", err)
	}
	return details, nil
}

func (r *pgDetailRepo) Update(ctx context.Context, d domain.Detail) (domain.Detail, error) {
	const q = `
		UPDATE plan_details
		SET title       = @title,
		    starts_at   = @starts_at,
		    ends_at     = @ends_at,
		    price       = @price,
		    currency    = @currency,
		    notes       = @notes,
		    location_id = @location_id,
		    updated_at  = now()
		WHERE id = @id AND plan_id = @plan_id AND deleted_at IS NULL
		RETURNING ` + detailColumns

	args := detailArgs(d)
	args["id"] = d.ID

	result, err := scanDetail(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Detail{}, fmt.Errorf("repo.DetailRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgDetailRepo) Retire(ctx context.Context, planID, id uuid.UUID, at time.Time) error {
	const q = `
		UPDATE plan_details
		SET deleted_at = @deleted_at,
		    updated_at = now()
		WHERE id = @id AND plan_id = @plan_id AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "plan_id": planID, "deleted_at": at})
	if err != nil {
		return fmt.Errorf("repo.DetailRepo.Retire: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.DetailRepo.Retire: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgDetailRepo) RetireAllByPlan(ctx context.Context, planID uuid.UUID, at time.Time) (int64, error) {
	const q = `
		UPDATE plan_details
		SET deleted_at = @deleted_at,
		    updated_at = now()
		WHERE plan_id = @plan_id AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"plan_id": planID, "deleted_at": at})
	if err != nil {
		return 0, fmt.Errorf("repo.DetailRepo.RetireAllByPlan: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgDetailRepo) PurgeRetiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
		DELETE FROM plan_details
		WHERE deleted_at IS NOT NULL AND deleted_at < @cutoff`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"cutoff": cutoff})
	if err != nil {
		return 0, fmt.Errorf("repo.DetailRepo.PurgeRetiredBefore: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgDetailRepo) list(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Detail, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := []domain.Detail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return details, nil
}

func detailArgs(d domain.Detail) pgx.NamedArgs {
	price := decimal.NullDecimal{}
	if d.Price != nil {
		price = decimal.NewNullDecimal(*d.Price)
	}
	return pgx.NamedArgs{
		"plan_id":     d.PlanID,
		"title":       d.Title,
		"starts_at":   d.Start.Time(),
		"ends_at":     d.End.Time(),
		"price":       price,
		"currency":    string(d.Currency),
		"notes":       d.Notes,
		"location_id": d.LocationID, // nil becomes NULL
	}
}

// scanDetail maps a single database row into a domain.Detail.
// It handles the nullable price and location_id conversions.
func scanDetail(s scanner) (domain.Detail, error) {
	var (
		d            domain.Detail
		id, planID   pgtype.UUID
		location     pgtype.UUID
		start, end   time.Time
		price        decimal.NullDecimal
		currencyCode string
	)

	err := s.Scan(&id, &planID, &d.Title, &start, &end, &price, &currencyCode,
		&d.Notes, &location, &d.DeletedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return domain.Detail{}, mapErr(err)
	}

	d.ID = uuid.UUID(id.Bytes)
	d.PlanID = uuid.UUID(planID.Bytes)
	d.Start = domain.MinuteOf(start)
	d.End = domain.MinuteOf(end)
	d.Currency = domain.Currency(currencyCode)
	if price.Valid {
		p := price.Decimal
		d.Price = &p
	}
	if location.Valid {
		loc := uuid.UUID(location.Bytes)
		d.LocationID = &loc
	}
	return d, nil
}
