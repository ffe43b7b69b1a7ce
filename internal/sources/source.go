package sources

import (
	"context"

	"go.uber.org/zap"

	"github.com/curalink/backend/internal/cache"
	"github.com/curalink/backend/internal/metrics"
)

// Source labels used in metrics and logs.
const (
	SourceTrials       = "clinicaltrials"
	SourcePublications = "pubmed"
	SourceExperts      = "orcid"
)

// cachedSearch serves key from c, or runs fetch and caches its result. Only
// successful fetches are cached, so an outage is never remembered as an empty
// result. Failures are logged and reported as an empty list.
func cachedSearch[T any](ctx context.Context, source string, c cache.Cache[[]T], key string, log *zap.Logger,
	fetch func(context.Context) ([]T, error)) []T {
	m := metrics.Get()
	if items, ok := c.Get(key); ok {
		m.CacheHitsTotal.WithLabelValues(source).Inc()
		return items
	}
	m.CacheMissesTotal.WithLabelValues(source).Inc()

	items, err := fetch(ctx)
	if err != nil {
		m.UpstreamErrorsTotal.WithLabelValues(source).Inc()
		log.Warn("upstream search failed",
			zap.String("source", source),
			zap.String("key", key),
			zap.Error(err))
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	c.Set(key, items)
	return items
}
