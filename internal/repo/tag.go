package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/plan-itinerary/internal/domain"
)

// TagRepo defines the persistence operations for one label family (tags or
// destinations) and its plan mapping table. Both families share this shape.
type TagRepo interface {
	// FindByName looks a label up by exact, case-sensitive name.
	// Returns domain.ErrNotFound if no label has that name.
	FindByName(ctx context.Context, name string) (domain.Tag, error)

	// Create inserts a new label. If another writer created the same name
	// first it returns domain.ErrConflict without aborting the transaction;
	// the caller should FindByName to pick up the winner's row.
	Create(ctx context.Context, name string) (domain.Tag, error)

	// ListMappings returns the plan's current mappings ordered by label name.
	ListMappings(ctx context.Context, planID uuid.UUID) ([]domain.TagMapping, error)

	// AddMapping links a label to a plan. Idempotent.
	AddMapping(ctx context.Context, planID, tagID uuid.UUID) error

	// RemoveMapping unlinks a label from a plan.
	// Returns domain.ErrNotFound if the pair was not linked.
	RemoveMapping(ctx context.Context, planID, tagID uuid.UUID) error

	// RemoveAllMappings unlinks every label of this family from the plan.
	RemoveAllMappings(ctx context.Context, planID uuid.UUID) (int64, error)
}

// labelTables names the entity and join tables of one label family.
type labelTables struct {
	name     string // used in error prefixes
	entity   string
	mapping  string
	fkColumn string
}

var (
	tagTables = labelTables{
		name: "TagRepo", entity: "tags", mapping: "plan_tag_mapping", fkColumn: "tag_id",
	}
	destinationTables = labelTables{
		name: "DestinationRepo", entity: "destinations", mapping: "plan_destination_mapping", fkColumn: "destination_id",
	}
)

// pgTagRepo is the Postgres implementation of TagRepo. Its statements are
// rendered once at construction from fixed table names.
type pgTagRepo struct {
	db db
	t  labelTables

	qFind, qCreate, qList, qAdd, qRemove, qRemoveAll string
}

// NewTagRepo constructs the TagRepo for plan tags.
func NewTagRepo(db db) TagRepo {
	return newLabelRepo(db, tagTables)
}

// NewDestinationRepo constructs the TagRepo for plan destinations.
func NewDestinationRepo(db db) TagRepo {
	return newLabelRepo(db, destinationTables)
}

func newLabelRepo(db db, t labelTables) *pgTagRepo {
	return &pgTagRepo{
		db: db,
		t:  t,
		qFind: fmt.Sprintf(`
		SELECT id, name, created_at
		FROM %s
		WHERE name = @name`, t.entity),
		// DO NOTHING keeps the transaction usable when a concurrent writer
		// wins the race; RETURNING then yields no row.
		qCreate: fmt.Sprintf(`
		INSERT INTO %s (name)
		VALUES (@name)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, created_at`, t.entity),
		qList: fmt.Sprintf(`
		SELECT t.id, t.name, t.created_at
		FROM %s t
		JOIN %s m ON m.%s = t.id
		WHERE m.plan_id = @plan_id
		ORDER BY t.name`, t.entity, t.mapping, t.fkColumn),
		qAdd: fmt.Sprintf(`
		INSERT INTO %s (plan_id, %s)
		VALUES (@plan_id, @tag_id)
		ON CONFLICT (plan_id, %s) DO NOTHING`, t.mapping, t.fkColumn, t.fkColumn),
		qRemove: fmt.Sprintf(`
		DELETE FROM %s
		WHERE plan_id = @plan_id AND %s = @tag_id`, t.mapping, t.fkColumn),
		qRemoveAll: fmt.Sprintf(`
		DELETE FROM %s
		WHERE plan_id = @plan_id`, t.mapping),
	}
}

func (r *pgTagRepo) FindByName(ctx context.Context, name string) (domain.Tag, error) {
	result, err := scanTag(r.db.QueryRow(ctx, r.qFind, pgx.NamedArgs{"name": name}))
	if err != nil {
		return domain.Tag{}, fmt.Errorf("repo.%s.FindByName: %w", r.t.name, err)
	}
	return result, nil
}

func (r *pgTagRepo) Create(ctx context.Context, name string) (domain.Tag, error) {
	result, err := scanTag(r.db.QueryRow(ctx, r.qCreate, pgx.NamedArgs{"name": name}))
	if errors.Is(err, domain.ErrNotFound) {
		err = fmt.Errorf("%w: %s %q already exists", domain.ErrConflict, r.t.entity, name)
	}
	if err != nil {
		return domain.Tag{}, fmt.Errorf("repo.%s.Create: %w", r.t.name, err)
	}
	return result, nil
}

func (r *pgTagRepo) ListMappings(ctx context.Context, planID uuid.UUID) ([]domain.TagMapping, error) {
	rows, err := r.db.Query(ctx, r.qList, pgx.NamedArgs{"plan_id": planID})
	if err != nil {
		return nil, fmt.Errorf("repo.%s.ListMappings: %w", r.t.name, err)
	}
	defer rows.Close()

	mappings := []domain.TagMapping{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.%s.ListMappings: scan: %w", r.t.name, err)
		}
		mappings = append(mappings, domain.TagMapping{PlanID: planID, Tag: tag})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.%s.ListMappings: rows: %w", r.t.name, err)
	}
	return mappings, nil
}

func (r *pgTagRepo) AddMapping(ctx context.Context, planID, tagID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, r.qAdd, pgx.NamedArgs{"plan_id": planID, "tag_id": tagID}); err != nil {
		return fmt.Errorf("repo.%s.AddMapping: %w", r.t.name, mapErr(err))
	}
	return nil
}

func (r *pgTagRepo) RemoveMapping(ctx context.Context, planID, tagID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, r.qRemove, pgx.NamedArgs{"plan_id": planID, "tag_id": tagID})
	if err != nil {
		return fmt.Errorf("repo.%s.RemoveMapping: %w", r.t.name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.%s.RemoveMapping: %w", r.t.name, domain.ErrNotFound)
	}
	return nil
}

func (r *pgTagRepo) RemoveAllMappings(ctx context.Context, planID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, r.qRemoveAll, pgx.NamedArgs{"plan_id": planID})
	if err != nil {
		return 0, fmt.Errorf("repo.%s.RemoveAllMappings: %w", r.t.name, err)
	}
	return tag.RowsAffected(), nil
}

// scanTag maps a single database row into a domain.Tag.
func scanTag(s scanner) (domain.Tag, error) {
	var (
		t  domain.Tag
		id pgtype.UUID
	)
	if err := s.Scan(&id, &t.Name, &t.CreatedAt); err != nil {
		return domain.Tag{}, mapErr(err)
	}
	t.ID = uuid.UUID(id.Bytes)
	return t, nil
}
