package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Detail is one time-boxed itinerary entry of a plan. Among the active
// details of a plan no two intervals overlap.
// Price is nil when the entry carries no cost.
type Detail struct {
	ID         uuid.UUID
	PlanID     uuid.UUID
	Title      string
	Start      Minute
	End        Minute
	Price      *decimal.Decimal
	Currency   Currency
	Notes      string
	LocationID *uuid.UUID
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Interval returns the detail's [Start, End) span.
func (d Detail) Interval() Interval {
	return Interval{Start: d.Start, End: d.End}
}

func (d Detail) Lifecycle() Lifecycle {
	return LifecycleOf(d.DeletedAt)
}
