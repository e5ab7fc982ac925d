package advisor

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/ggonzalez94/yieldscout/internal/chain"
	"github.com/ggonzalez94/yieldscout/internal/logger"
	"github.com/ggonzalez94/yieldscout/internal/model"
)

// PoolSource returns the active pools listed for a chain.
type PoolSource interface {
	FetchPools(ctx context.Context, target chain.Chain) ([]model.Pool, error)
	Source() string
}

// CachedSource keeps catalog snapshots in memory for ttl. It serves long lived
// hosts that answer many queries against the same chain.
type CachedSource struct {
	next  PoolSource
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewCachedSource(next PoolSource, ttl time.Duration) (*CachedSource, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedSource{next: next, cache: cache, ttl: ttl}, nil
}

func (c *CachedSource) Source() string { return c.next.Source() }

func (c *CachedSource) FetchPools(ctx context.Context, target chain.Chain) ([]model.Pool, error) {
	key := target.Slug + "|" + target.Name
	if v, ok := c.cache.Get(key); ok {
		if pools, ok := v.([]model.Pool); ok {
			return clonePools(pools), nil
		}
	}
	pools, err := c.next.FetchPools(ctx, target)
	if err != nil {
		return nil, err
	}
	// cost is one unit per pool plus the entry itself
	if c.cache.SetWithTTL(key, clonePools(pools), int64(len(pools))+1, c.ttl) {
		c.cache.Wait()
	} else {
		log := logger.GetForComponent("catalog_cache")
		log.Debug().Str("chain", target.Slug).Msg("catalog snapshot not admitted")
	}
	return pools, nil
}

func (c *CachedSource) Close() {
	c.cache.Close()
}

func clonePools(in []model.Pool) []model.Pool {
	out := make([]model.Pool, len(in))
	copy(out, in)
	return out
}
