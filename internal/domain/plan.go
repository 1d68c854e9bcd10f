// Package domain contains the core data types for the plan itinerary engine.
// It is imported by every other internal package (repo, service, handler) and
// depends only on small value-type libraries (uuid, decimal).
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Visibility controls who may read a plan.
type Visibility string

const (
	Public  Visibility = "PUBLIC"
	Private Visibility = "PRIVATE"
)

// ParseVisibility accepts PUBLIC or PRIVATE.
func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(s) {
	case Public, Private:
		return Visibility(s), nil
	}
	return "", fmt.Errorf("%w: unsupported visibility %q", ErrValidation, s)
}

// Plan is a travel itinerary owned by one account. It owns its details and
// shares tags and destinations with other plans through mapping rows.
// TotalCost is always expressed in CanonicalCurrency.
type Plan struct {
	ID         uuid.UUID       `json:"id"`
	OwnerID    uuid.UUID       `json:"owner_id"`
	Title      string          `json:"title"`
	Visibility Visibility      `json:"visibility"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	LikeCount  int             `json:"like_count"`
	DeletedAt  *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Lifecycle reports whether the plan is active or retired.
func (p Plan) Lifecycle() Lifecycle {
	return LifecycleOf(p.DeletedAt)
}

// PlanView is a plan together with the names of its tags and destinations,
// the shape returned to callers and cached between reads.
type PlanView struct {
	Plan         Plan     `json:"plan"`
	Tags         []string `json:"tags"`
	Destinations []string `json:"destinations"`
}
