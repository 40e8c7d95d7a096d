package shared

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptional(t *testing.T) {
	none := None[int]()
	assert.False(t, none.IsSet())
	assert.Equal(t, 3, none.OrElse(3))
	assert.Nil(t, none.Ptr())

	zero := Some(0)
	assert.True(t, zero.IsSet())
	assert.Equal(t, 0, zero.OrElse(3))

	v := 5
	assert.Equal(t, Some(5), FromPtr(&v))
	assert.False(t, FromPtr[int](nil).IsSet())
}

func TestPage_Window(t *testing.T) {
	tests := []struct {
		name       string
		page       Page
		n          int
		start, end int
	}{
		{"unbounded", Page{}, 5, 0, 5},
		{"skip only", Page{Skip: Some(2)}, 5, 2, 5},
		{"take only", Page{Take: Some(2)}, 5, 0, 2},
		{"take zero", Page{Take: Some(0)}, 5, 0, 0},
		{"skip past end", Page{Skip: Some(9), Take: Some(2)}, 5, 5, 5},
		{"take past end", Page{Skip: Some(4), Take: Some(10)}, 5, 4, 5},
		{"max take", Page{Skip: Some(1), Take: Some(math.MaxInt)}, 2, 1, 2},
		{"max skip and take", Page{Skip: Some(math.MaxInt), Take: Some(math.MaxInt)}, 2, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.page.Window(tt.n)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err := WrapError("x", "Op", ErrNotFound, "missing", ErrInvalidID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.Equal(t, "x.Op: missing: invalid ID", err.Error())
}
