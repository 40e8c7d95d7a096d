package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohort-hub/admissions/internal/domain/access"
	"github.com/cohort-hub/admissions/internal/domain/ranking"
	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
)

var admin = access.Caller{Username: "dean", Roles: []access.Role{access.RoleAdmin}}

type stubRepo struct {
	calls  int
	last   ranking.Query
	means  []ranking.Mean
	studs  []*student.Student
	err    error
	onRead func()
}

func (r *stubRepo) TopRated(_ context.Context, q ranking.Query) ([]ranking.Mean, []*student.Student, error) {
	r.calls++
	r.last = q
	if r.onRead != nil {
		r.onRead()
	}
	return r.means, r.studs, r.err
}

// mapCache keys pages by generation, like the Redis cache.
type mapCache struct {
	gen    int
	pages  map[ranking.CacheSlot][]*ranking.Entry
	getErr error
	sets   int
}

func newMapCache() *mapCache {
	return &mapCache{pages: make(map[ranking.CacheSlot][]*ranking.Entry)}
}

func (c *mapCache) Get(_ context.Context, q ranking.Query) ([]*ranking.Entry, ranking.CacheSlot, bool, error) {
	if c.getErr != nil {
		return nil, "", false, c.getErr
	}
	slot := ranking.CacheSlot(fmt.Sprintf("v%d:%+v", c.gen, q))
	e, ok := c.pages[slot]
	return e, slot, ok, nil
}

func (c *mapCache) Set(_ context.Context, slot ranking.CacheSlot, entries []*ranking.Entry, _ time.Duration) error {
	c.sets++
	c.pages[slot] = entries
	return nil
}

func (c *mapCache) Invalidate(context.Context) error {
	c.gen++
	return nil
}

func oneStudentRepo() *stubRepo {
	return &stubRepo{
		means: []ranking.Mean{{StudentID: "a", Sum: 8, Count: 1}},
		studs: []*student.Student{{ID: "a", Username: "alice"}},
	}
}

func TestTopRatedHandler_Cache(t *testing.T) {
	ctx := context.Background()
	repo := oneStudentRepo()
	cache := newMapCache()
	h := NewTopRatedHandler(repo, TopRatedOptions{Cache: cache, CacheTTL: time.Minute})

	first, err := h.Handle(ctx, admin, TopRatedQuery{})
	require.NoError(t, err)
	second, err := h.Handle(ctx, admin, TopRatedQuery{})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, first, second)

	require.NoError(t, cache.Invalidate(ctx))
	_, err = h.Handle(ctx, admin, TopRatedQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestTopRatedHandler_InvalidationDuringRead(t *testing.T) {
	ctx := context.Background()
	repo := oneStudentRepo()
	cache := newMapCache()
	h := NewTopRatedHandler(repo, TopRatedOptions{Cache: cache, CacheTTL: time.Minute})

	// A rating is committed while the first page is being aggregated.
	repo.onRead = func() {
		repo.onRead = nil
		repo.means = []ranking.Mean{{StudentID: "a", Sum: 13, Count: 2}}
		require.NoError(t, cache.Invalidate(ctx))
	}

	_, err := h.Handle(ctx, admin, TopRatedQuery{})
	require.NoError(t, err)

	entries, err := h.Handle(ctx, admin, TopRatedQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls, "page computed before the invalidation must not be served")
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].RatingCount)
}

func TestTopRatedHandler_CacheErrorFallsThrough(t *testing.T) {
	repo := oneStudentRepo()
	cache := newMapCache()
	cache.getErr = errors.New("redis down")
	h := NewTopRatedHandler(repo, TopRatedOptions{Cache: cache, CacheTTL: time.Minute})

	entries, err := h.Handle(context.Background(), admin, TopRatedQuery{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, repo.calls)
}

func TestTopRatedHandler_MaxTake(t *testing.T) {
	repo := oneStudentRepo()
	h := NewTopRatedHandler(repo, TopRatedOptions{MaxTake: 50})

	_, err := h.Handle(context.Background(), admin, TopRatedQuery{Take: shared.Some(1000)})
	require.NoError(t, err)
	assert.Equal(t, shared.Some(50), repo.last.Page.Take)

	_, err = h.Handle(context.Background(), admin, TopRatedQuery{})
	require.NoError(t, err)
	assert.False(t, repo.last.Page.Take.IsSet(), "absent take stays unbounded")
}

func TestTopRatedHandler_UnauthorizedNeverReads(t *testing.T) {
	repo := oneStudentRepo()
	h := NewTopRatedHandler(repo, TopRatedOptions{})

	reviewer := access.Caller{Username: "rev", Roles: []access.Role{access.RoleReviewer}}
	_, err := h.Handle(context.Background(), reviewer, TopRatedQuery{})
	assert.ErrorIs(t, err, shared.ErrNotAuthorized)
	_, err = h.Export(context.Background(), reviewer, TopRatedQuery{})
	assert.ErrorIs(t, err, shared.ErrNotAuthorized)
	assert.Zero(t, repo.calls)
}

func TestTopRatedHandler_RepoError(t *testing.T) {
	repo := &stubRepo{err: errors.New("boom")}
	h := NewTopRatedHandler(repo, TopRatedOptions{})

	_, err := h.Export(context.Background(), admin, TopRatedQuery{})
	assert.EqualError(t, err, "boom")
}

func TestNextUnratedStudentHandler_InvalidTrack(t *testing.T) {
	h := NewNextUnratedStudentHandler(nil, nil)
	reviewer := access.Caller{Username: "rev", Roles: []access.Role{access.RoleReviewer}}

	_, err := h.Handle(context.Background(), reviewer, NextUnratedStudentQuery{Track: shared.Some(student.Track("X"))})
	assert.ErrorIs(t, err, shared.ErrInvalidTrack)

	_, err = h.Handle(context.Background(), access.Caller{Username: "alice", Roles: []access.Role{access.RoleStudent}}, NextUnratedStudentQuery{})
	assert.ErrorIs(t, err, shared.ErrNotAuthorized)
}
