package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a shared, deduplicated label. Identity is the exact, case-sensitive
// Name. Tags are created lazily the first time any plan references a name and
// are never deleted by the engine, even once no plan maps to them.
// Destinations use the same shape and are told apart by TagKind.
type Tag struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// TagKind selects one of the two label families a plan can carry.
type TagKind int

const (
	KindTag TagKind = iota
	KindDestination
)

func (k TagKind) String() string {
	if k == KindDestination {
		return "destination"
	}
	return "tag"
}

// TagMapping links a plan to a tag. The pair (PlanID, Tag.ID) is unique.
type TagMapping struct {
	PlanID uuid.UUID
	Tag    Tag
}
