package domain

import "time"

// Lifecycle is the persistence state of a plan or detail.
//
//	Active  -> Retired   explicit delete, or displaced by an overlapping write
//	Retired -> Purged    retention sweep, once retired longer than the window
//
// Purged rows no longer exist; the state only appears in logs and metrics.
type Lifecycle int

const (
	Active Lifecycle = iota
	Retired
	Purged
)

func (l Lifecycle) String() string {
	switch l {
	case Active:
		return "active"
	case Retired:
		return "retired"
	case Purged:
		return "purged"
	default:
		return "unknown"
	}
}

// MarshalText lets the state travel as a string in JSON bodies and log lines.
func (l Lifecycle) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// LifecycleOf derives the state of a stored row from its deleted_at column.
func LifecycleOf(deletedAt *time.Time) Lifecycle {
	if deletedAt == nil {
		return Active
	}
	return Retired
}
