package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
)

func TestSortMeans(t *testing.T) {
	means := []Mean{
		{StudentID: "c", Sum: 10, Count: 2}, // 5
		{StudentID: "b", Sum: 16, Count: 2}, // 8
		{StudentID: "a", Sum: 5, Count: 1},  // 5
		{StudentID: "d", Sum: 25, Count: 3}, // 8.33
	}

	SortMeans(means)

	ids := make([]string, len(means))
	for i, m := range means {
		ids[i] = m.StudentID
	}
	assert.Equal(t, []string{"d", "b", "a", "c"}, ids)
}

func TestSortMeans_ExactComparison(t *testing.T) {
	// 2/3 and 4/6 are equal; the id decides.
	means := []Mean{
		{StudentID: "y", Sum: 4, Count: 6},
		{StudentID: "x", Sum: 2, Count: 3},
	}
	SortMeans(means)
	assert.Equal(t, "x", means[0].StudentID)
}

func TestMean_Average(t *testing.T) {
	assert.Equal(t, 7.5, Mean{Sum: 15, Count: 2}.Average())
	assert.Equal(t, 0.0, Mean{}.Average())
}

func TestAssemble(t *testing.T) {
	students := []*student.Student{
		{ID: "b", Username: "bob"},
		{ID: "a", Username: "alice"},
	}
	means := []Mean{
		{StudentID: "a", Sum: 9, Count: 1},
		{StudentID: "b", Sum: 7, Count: 1},
	}

	entries, err := Assemble(means, students, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, Rank(11), entries[0].Rank)
	assert.Equal(t, "alice", entries[0].Student.Username)
	assert.Equal(t, 9.0, entries[0].AverageAdmissionRating)
	assert.Equal(t, Rank(12), entries[1].Rank)
	assert.Equal(t, 1, entries[1].RatingCount)
}

func TestAssemble_MissingStudent(t *testing.T) {
	_, err := Assemble([]Mean{{StudentID: "ghost", Sum: 1, Count: 1}}, nil, 0)
	assert.True(t, shared.IsNotFound(err))
}

func TestQuery_Validate(t *testing.T) {
	assert.NoError(t, Query{}.Validate())
	assert.ErrorIs(t, Query{Page: shared.Page{Skip: shared.Some(-1)}}.Validate(), shared.ErrInvalidPage)
	assert.ErrorIs(t, Query{Page: shared.Page{Take: shared.Some(-1)}}.Validate(), shared.ErrInvalidPage)
	assert.ErrorIs(t, Query{Track: shared.Some(student.Track("X"))}.Validate(), shared.ErrInvalidTrack)
}
