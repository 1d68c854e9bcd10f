// Package cache keeps plan snapshots in Redis between reads.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/plan-itinerary/internal/domain"
)

// DefaultTTL bounds how long a snapshot can outlive a missed invalidation.
const DefaultTTL = 5 * time.Minute

// generationTTL keeps a plan's invalidation counter well past any read that
// could still be holding its value.
const generationTTL = 24 * time.Hour

// setIfCurrent writes the snapshot only when the plan's generation still
// matches the one observed on the miss. A missing counter reads as 0.
var setIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// PlanCache stores domain.PlanView values as JSON under "plan:<id>", next to
// an invalidation counter under "plan:<id>:gen".
type PlanCache struct {
	db  *redis.Client
	ttl time.Duration
}

// Connect parses a redis:// URL, pings the server and returns a cache.
func Connect(ctx context.Context, url string, ttl time.Duration) (*PlanCache, error) {
	const op = "cache.Connect"
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	db := redis.NewClient(opts)
	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return New(db, ttl), nil
}

// New wraps an existing client. A non-positive ttl uses DefaultTTL.
func New(db *redis.Client, ttl time.Duration) *PlanCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PlanCache{db: db, ttl: ttl}
}

func key(planID uuid.UUID) string {
	return "plan:" + planID.String()
}

func genKey(planID uuid.UUID) string {
	return key(planID) + ":gen"
}

// Get returns the cached view and true. On a miss it returns false and the
// plan's current generation, which the caller passes back to Set.
func (c *PlanCache) Get(ctx context.Context, planID uuid.UUID) (domain.PlanView, int64, bool, error) {
	const op = "cache.PlanCache.Get"
	vals, err := c.db.MGet(ctx, key(planID), genKey(planID)).Result()
	if err != nil {
		return domain.PlanView{}, 0, false, fmt.Errorf("%s: %w", op, err)
	}

	var gen int64
	if s, ok := vals[1].(string); ok {
		if gen, err = strconv.ParseInt(s, 10, 64); err != nil {
			return domain.PlanView{}, 0, false, fmt.Errorf("%s: generation: %w", op, err)
		}
	}

	data, ok := vals[0].(string)
	if !ok {
		return domain.PlanView{}, gen, false, nil
	}
	var view domain.PlanView
	if err := json.Unmarshal([]byte(data), &view); err != nil {
		return domain.PlanView{}, 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return view, gen, true, nil
}

// Set stores view with the cache TTL unless the plan was invalidated after
// the miss that observed gen. It reports whether the snapshot was written.
func (c *PlanCache) Set(ctx context.Context, view domain.PlanView, gen int64) (bool, error) {
	const op = "cache.PlanCache.Set"
	data, err := json.Marshal(view)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	keys := []string{key(view.Plan.ID), genKey(view.Plan.ID)}
	n, err := setIfCurrent.Run(ctx, c.db, keys, strconv.FormatInt(gen, 10), string(data), c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

// Invalidate bumps the plan's generation and drops its snapshot. Missing
// keys are not an error.
func (c *PlanCache) Invalidate(ctx context.Context, planID uuid.UUID) error {
	_, err := c.db.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey(planID))
		p.Expire(ctx, genKey(planID), generationTTL)
		p.Del(ctx, key(planID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache.PlanCache.Invalidate: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *PlanCache) Close() error {
	return c.db.Close()
}
