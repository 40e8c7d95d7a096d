package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cohort-hub/admissions/internal/domain/ranking"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOP RATED CACHE
// Страницы рейтинга кешируются под ключом, содержащим номер поколения.
// Invalidate увеличивает поколение, и все старые ключи перестают читаться;
// они истекают сами по TTL.
// ══════════════════════════════════════════════════════════════════════════════

const generationKey = PrefixRanking + "generation"

// pageStore is the subset of Cache the ranking cache needs.
type pageStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetInt64(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// TopRatedCache implements ranking.Cache on top of Cache.
type TopRatedCache struct {
	cache pageStore
}

var _ ranking.Cache = (*TopRatedCache)(nil)

// NewTopRatedCache creates a ranking cache.
func NewTopRatedCache(cache *Cache) *TopRatedCache {
	return &TopRatedCache{cache: cache}
}

// Get returns a cached page and the slot (generation-qualified key) it was
// looked up in.
func (c *TopRatedCache) Get(ctx context.Context, q ranking.Query) ([]*ranking.Entry, ranking.CacheSlot, bool, error) {
	key, err := c.key(ctx, q)
	if err != nil {
		return nil, "", false, err
	}
	slot := ranking.CacheSlot(key)

	var entries []*ranking.Entry
	if err := c.cache.Get(ctx, key, &entries); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, slot, false, nil
		}
		return nil, slot, false, err
	}
	return entries, slot, true, nil
}

// Set stores a page in slot. A slot from an older generation is never read again.
func (c *TopRatedCache) Set(ctx context.Context, slot ranking.CacheSlot, entries []*ranking.Entry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = TTLTopRated
	}
	return c.cache.Set(ctx, string(slot), entries, ttl)
}

// Invalidate starts a new generation.
func (c *TopRatedCache) Invalidate(ctx context.Context) error {
	_, err := c.cache.Incr(ctx, generationKey)
	return err
}

func (c *TopRatedCache) key(ctx context.Context, q ranking.Query) (string, error) {
	gen, err := c.cache.GetInt64(ctx, generationKey)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%sv%d:%s", PrefixRanking, gen, QueryKey(q)), nil
}

// QueryKey renders a query as a stable key fragment. Absent values render as "-".
func QueryKey(q ranking.Query) string {
	skip, take, track := "-", "-", "-"
	if v, ok := q.Page.Skip.Get(); ok {
		skip = fmt.Sprint(v)
	}
	if v, ok := q.Page.Take.Get(); ok {
		take = fmt.Sprint(v)
	}
	if v, ok := q.Track.Get(); ok {
		track = string(v)
	}
	return fmt.Sprintf("skip=%s:take=%s:track=%s", skip, take, track)
}
