package datasource

import (
	"context"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/yourusername/stock-screener/internal/metrics"
	"github.com/yourusername/stock-screener/internal/models"
)

// CachedProvider memoises bar series per symbol, interval and period
type CachedProvider struct {
	next      PriceProvider
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewCachedProvider wraps next with an in-memory TTL cache
func NewCachedProvider(next PriceProvider, ttl time.Duration, maxSize int) *CachedProvider {
	return &CachedProvider{
		next:    next,
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// CacheKey is the cache key for one request
func CacheKey(symbol string, tf models.Timeframe) string {
	return symbol + "_" + tf.Interval + "_" + tf.Period
}

// Name returns the wrapped provider's name
func (p *CachedProvider) Name() string {
	return p.next.Name()
}

// FetchBars returns cached bars or fetches and stores them. Callers get a
// copy so cached series cannot be mutated.
func (p *CachedProvider) FetchBars(ctx context.Context, symbol string, tf models.Timeframe) ([]models.Bar, error) {
	key := CacheKey(symbol, tf)
	if cached, found := p.cache.Get(key); found {
		if bars, ok := cached.([]models.Bar); ok {
			p.hitCount.Add(1)
			metrics.RecordCacheLookup(p.next.Name(), true)
			return append([]models.Bar(nil), bars...), nil
		}
	}
	p.missCount.Add(1)
	metrics.RecordCacheLookup(p.next.Name(), false)

	bars, err := p.next.FetchBars(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}

	if p.maxSize > 0 && p.cache.ItemCount() >= p.maxSize {
		p.cache.DeleteExpired()
	}
	if p.maxSize <= 0 || p.cache.ItemCount() < p.maxSize {
		p.cache.Set(key, append([]models.Bar(nil), bars...), p.ttl)
	}
	return bars, nil
}

// Invalidate drops every cached series for symbol
func (p *CachedProvider) Invalidate(symbol string) {
	prefix := symbol + "_"
	for k := range p.cache.Items() {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			p.cache.Delete(k)
		}
	}
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Items   int     `json:"items"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns current cache statistics
func (p *CachedProvider) Stats() CacheStats {
	hits := p.hitCount.Load()
	misses := p.missCount.Load()
	stats := CacheStats{Hits: hits, Misses: misses, Items: p.cache.ItemCount()}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}
