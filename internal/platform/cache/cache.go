package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not found in cache.
var ErrCacheMiss = errors.New("cache miss")

// Cache holds derived read views (priority queue, calendar projections) so
// display reads never block on a scheduling run. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context, pattern string) error
	Close() error
}

// QueueKey builds the cache key for a hospital's priority-queue view.
func QueueKey(hospitalID string) string {
	return "queue:" + hospitalID
}

// CalendarKey builds the cache key for a hospital's calendar projection.
func CalendarKey(hospitalID, granularity, date string) string {
	return "calendar:" + hospitalID + ":" + granularity + ":" + date
}

// HospitalPattern matches every cached view for a hospital, used for
// invalidation after a scheduling commit.
func HospitalPattern(hospitalID string) string {
	return "*:" + hospitalID + "*"
}
