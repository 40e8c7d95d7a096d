package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohort-hub/admissions/internal/domain/ranking"
	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
)

func TestQueryKey(t *testing.T) {
	assert.Equal(t, "skip=-:take=-:track=-", QueryKey(ranking.Query{}))

	q := ranking.Query{
		Page:  shared.Page{Skip: shared.Some(0), Take: shared.Some(25)},
		Track: shared.Some(student.TrackAdvanced),
	}
	assert.Equal(t, "skip=0:take=25:track=ADVANCED", QueryKey(q))

	// Skip=0 and absent skip are distinct pages in the cache.
	assert.NotEqual(t,
		QueryKey(ranking.Query{Page: shared.Page{Skip: shared.Some(0)}}),
		QueryKey(ranking.Query{}),
	)
}

func TestConfigOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"
	cfg.DB = 3

	opts, err := cfg.options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)

	cfg.URL = "redis://:pw@cache.internal:6380/2"
	opts, err = cfg.options()
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)

	cfg.URL = "http://not-redis"
	_, err = cfg.options()
	assert.ErrorIs(t, err, ErrCacheConnection)
}

func TestCache_KeyValidation(t *testing.T) {
	c := &Cache{}
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "", 1, time.Second), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.Set(ctx, "k", 1, -time.Second), ErrCacheInvalidTTL)
	_, err := c.Incr(ctx, "")
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)
}

// memStore mimics the Cache key/value contract without a server.
type memStore struct {
	values   map[string][]byte
	counters map[string]int64
}

func newMemStore() *memStore {
	return &memStore{values: map[string][]byte{}, counters: map[string]int64{}}
}

func (m *memStore) Get(_ context.Context, key string, dest interface{}) error {
	data, ok := m.values[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *memStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = data
	return nil
}

func (m *memStore) GetInt64(_ context.Context, key string) (int64, error) {
	return m.counters[key], nil
}

func (m *memStore) Incr(_ context.Context, key string) (int64, error) {
	m.counters[key]++
	return m.counters[key], nil
}

func TestTopRatedCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := &TopRatedCache{cache: newMemStore()}
	q := ranking.Query{Page: shared.Page{Take: shared.Some(10)}}

	_, slot, ok, err := c.Get(ctx, q)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, ranking.CacheSlot("admissions:ranking:v0:skip=-:take=10:track=-"), slot)

	page := []*ranking.Entry{{Rank: 1, Student: &student.Student{ID: "s1"}, AverageAdmissionRating: 8, RatingCount: 1}}
	require.NoError(t, c.Set(ctx, slot, page, time.Minute))

	got, _, ok, err := c.Get(ctx, q)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].Student.ID)

	require.NoError(t, c.Invalidate(ctx))
	_, _, ok, err = c.Get(ctx, q)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTopRatedCache_InvalidationDuringReadIsNotUndone(t *testing.T) {
	ctx := context.Background()
	c := &TopRatedCache{cache: newMemStore()}
	q := ranking.Query{}

	_, slot, ok, err := c.Get(ctx, q)
	require.NoError(t, err)
	require.False(t, ok)

	// A rating lands while the page is being computed.
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, slot, []*ranking.Entry{{Rank: 1}}, time.Minute))

	_, fresh, ok, err := c.Get(ctx, q)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEqual(t, slot, fresh)
}
