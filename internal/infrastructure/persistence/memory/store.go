// Package memory is an in-process implementation of the student, rating and
// ranking repositories. It keeps the same uniqueness and
// compare-and-transition guarantees as the PostgreSQL store and backs the
// workflow tests and local runs without a database.
package memory

import (
	"context"
	"sync"

	"github.com/cohort-hub/admissions/internal/domain/rating"
	"github.com/cohort-hub/admissions/internal/domain/ranking"
	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
)

// Store holds students and ratings behind a single lock. Every operation is
// atomic with respect to every other.
type Store struct {
	mu         sync.RWMutex
	students   map[string]*student.Student
	byUsername map[string]string
	ratings    []*rating.Rating
	rated      map[ratingKey]struct{}
}

type ratingKey struct {
	studentID string
	ratedBy   string
}

var (
	_ student.Repository = (*Store)(nil)
	_ rating.Repository  = (*Store)(nil)
	_ ranking.Repository = (*Store)(nil)
)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		students:   make(map[string]*student.Student),
		byUsername: make(map[string]string),
		rated:      make(map[ratingKey]struct{}),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Students
// ═══════════════════════════════════════════════════════════════════════════

// Create implements student.Repository.
func (s *Store) Create(_ context.Context, st *student.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.students[st.ID]; ok {
		return shared.NewDomainError("student", "Create", shared.ErrAlreadyExists, "student id already exists")
	}
	if _, ok := s.byUsername[st.Username]; ok {
		return shared.NewDomainError("student", "Create", shared.ErrAlreadyExists, "username already exists")
	}
	s.students[st.ID] = st.Clone()
	s.byUsername[st.Username] = st.ID
	return nil
}

// Get implements student.Repository.
func (s *Store) Get(_ context.Context, ref student.Ref) (*student.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

// FindNextUnrated implements student.Repository.
func (s *Store) FindNextUnrated(_ context.Context, reviewer string, track shared.Optional[student.Track]) (*student.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var next *student.Student
	for _, st := range s.students {
		if t, ok := track.Get(); ok && st.Track != t {
			continue
		}
		if _, done := s.rated[ratingKey{st.ID, reviewer}]; done {
			continue
		}
		if next == nil || queueBefore(st, next) {
			next = st
		}
	}
	if next == nil {
		return nil, nil
	}
	return next.Clone(), nil
}

func queueBefore(a, b *student.Student) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// UpdateStatus implements student.Repository. The mutation runs on a copy
// under the write lock and is stored only if it succeeds.
func (s *Store) UpdateStatus(_ context.Context, ref student.Ref, mutate student.MutateFunc) (*student.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	s.students[next.ID] = next
	return next.Clone(), nil
}

// resolve must be called with the lock held.
func (s *Store) resolve(ref student.Ref) (*student.Student, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	ref = ref.Normalize()
	id := ref.ID
	if id == "" {
		var ok bool
		if id, ok = s.byUsername[ref.Username]; !ok {
			return nil, shared.ErrStudentNotFound
		}
	}
	st, ok := s.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return st, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Ratings
// ═══════════════════════════════════════════════════════════════════════════

// Insert implements rating.Repository.
func (s *Store) Insert(_ context.Context, d rating.Draft) (*rating.Rating, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.resolve(d.Student)
	if err != nil {
		return nil, err
	}
	key := ratingKey{st.ID, d.RatedBy}
	if _, dup := s.rated[key]; dup {
		return nil, shared.ErrAlreadyRated
	}

	r := &rating.Rating{
		ID:        d.ID,
		StudentID: st.ID,
		RatedBy:   d.RatedBy,
		Value:     d.Value,
		CreatedAt: d.CreatedAt.UTC(),
	}
	s.ratings = append(s.ratings, r)
	s.rated[key] = struct{}{}

	c := *r
	return &c, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Ranking
// ═══════════════════════════════════════════════════════════════════════════

// TopRated implements ranking.Repository. Aggregation and the student fetch
// happen under one read lock, so they observe the same state.
func (s *Store) TopRated(_ context.Context, q ranking.Query) ([]ranking.Mean, []*student.Student, error) {
	if err := q.Validate(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := make(map[string]*ranking.Mean)
	for _, r := range s.ratings {
		st := s.students[r.StudentID]
		if t, ok := q.Track.Get(); ok && st.Track != t {
			continue
		}
		m, ok := agg[r.StudentID]
		if !ok {
			m = &ranking.Mean{StudentID: r.StudentID}
			agg[r.StudentID] = m
		}
		m.Sum += int(r.Value)
		m.Count++
	}

	means := make([]ranking.Mean, 0, len(agg))
	for _, m := range agg {
		means = append(means, *m)
	}
	ranking.SortMeans(means)

	start, end := q.Page.Window(len(means))
	page := means[start:end]

	// Map order; callers join by id.
	students := make([]*student.Student, 0, len(page))
	for id := range agg {
		for _, m := range page {
			if m.StudentID == id {
				students = append(students, s.students[id].Clone())
				break
			}
		}
	}
	return page, students, nil
}

// Len returns the number of stored students.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.students)
}
