package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkordes/plan-itinerary/internal/repo"
)

// DefaultRetentionWindow is how long a retired detail is kept before it is
// purged.
const DefaultRetentionWindow = 30 * 24 * time.Hour

// RetentionPurge hard-deletes details that have been retired for longer than
// the retention window. Active details are never touched. A failed run is
// logged and counted; the next scheduled run tries again.
type RetentionPurge struct {
	details repo.DetailRepo
	window  time.Duration
	opts    Options
}

// NewRetentionPurge constructs a RetentionPurge. A non-positive window falls
// back to DefaultRetentionWindow.
func NewRetentionPurge(details repo.DetailRepo, window time.Duration, opts Options) *RetentionPurge {
	if window <= 0 {
		window = DefaultRetentionWindow
	}
	return &RetentionPurge{details: details, window: window, opts: opts.withDefaults()}
}

// Run purges once and returns the number of rows removed.
func (p *RetentionPurge) Run(ctx context.Context) (int64, error) {
	cutoff := p.opts.Clock.Now().Add(-p.window)
	n, err := p.details.PurgeRetiredBefore(ctx, cutoff)
	if err != nil {
		p.opts.Metrics.PurgeFailed()
		p.opts.Logger.ErrorContext(ctx, "retention purge failed", "cutoff", cutoff, "error", err)
		return 0, fmt.Errorf("service.RetentionPurge.Run: %w", err)
	}
	p.opts.Metrics.DetailsPurged(n)
	level := slog.LevelDebug
	if n > 0 {
		level = slog.LevelInfo
	}
	p.opts.Logger.Log(ctx, level, "retention purge complete", "cutoff", cutoff, "purged", n)
	return n, nil
}
