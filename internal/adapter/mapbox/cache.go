package mapbox

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/couchcryptid/futureroot-service/internal/domain"
	"github.com/couchcryptid/futureroot-service/internal/observability"
)

// CachedResolver wraps a ZIPResolver with an in-memory LRU cache whose entries
// expire after ttl. A ttl of zero keeps entries until evicted by size.
type CachedResolver struct {
	inner   domain.ZIPResolver
	cache   *expirable.LRU[string, domain.ZIPPlace]
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner domain.ZIPResolver, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedResolver {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &CachedResolver{
		inner:   inner,
		cache:   expirable.NewLRU[string, domain.ZIPPlace](maxEntries, nil, ttl),
		metrics: metrics,
	}
}

func (c *CachedResolver) ResolveZIP(ctx context.Context, zip string) (domain.ZIPPlace, error) {
	if place, ok := c.cache.Get(zip); ok {
		c.metrics.ResolveCache.WithLabelValues("hit").Inc()
		return place, nil
	}
	c.metrics.ResolveCache.WithLabelValues("miss").Inc()

	place, err := c.inner.ResolveZIP(ctx, zip)
	if err != nil {
		return place, err
	}
	c.cache.Add(zip, place)
	return place, nil
}

// Len reports how many lookups are cached.
func (c *CachedResolver) Len() int {
	return c.cache.Len()
}
