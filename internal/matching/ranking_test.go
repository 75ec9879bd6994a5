package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmartin/matcha-server/internal/matching"
)

func suggestion(id int64, distance int, fame float64, age, commonTags int) *matching.Suggestion {
	return &matching.Suggestion{
		ID:         id,
		Distance:   distance,
		FameRating: fame,
		Age:        age,
		CommonTags: commonTags,
	}
}

func ids(suggestions []*matching.Suggestion) []int64 {
	out := make([]int64, len(suggestions))
	for i, s := range suggestions {
		out[i] = s.ID
	}
	return out
}

// TestParseSortKey verifies the request parameter mapping and the fallback
// for unknown values.
func TestParseSortKey(t *testing.T) {
	assert.Equal(t, matching.SortByFame, matching.ParseSortKey("fame"))
	assert.Equal(t, matching.SortByAge, matching.ParseSortKey("age"))
	assert.Equal(t, matching.SortByTags, matching.ParseSortKey("tags"))
	assert.Equal(t, matching.SortByDistance, matching.ParseSortKey("distance"))
	assert.Equal(t, matching.SortByDistance, matching.ParseSortKey(""))
	assert.Equal(t, matching.SortByDistance, matching.ParseSortKey("popularity"))
}

// TestRankByDistance checks the default ordering: distance ascending with
// fame descending as the tie-break.
func TestRankByDistance(t *testing.T) {
	s := []*matching.Suggestion{
		suggestion(1, 50, 1.0, 25, 0),
		suggestion(2, 10, 1.0, 25, 0),
		suggestion(3, 50, 3.0, 25, 0),
	}

	matching.Rank(s, matching.SortByDistance)

	assert.Equal(t, []int64{2, 3, 1}, ids(s))
}

// TestRankByFame checks fame descending with distance ascending as the
// tie-break.
func TestRankByFame(t *testing.T) {
	s := []*matching.Suggestion{
		suggestion(1, 20, 2.0, 25, 0),
		suggestion(2, 5, 2.0, 25, 0),
		suggestion(3, 40, 4.5, 25, 0),
	}

	matching.Rank(s, matching.SortByFame)

	assert.Equal(t, []int64{3, 2, 1}, ids(s))
}

// TestRankByAge checks age ascending with distance ascending as the
// tie-break.
func TestRankByAge(t *testing.T) {
	s := []*matching.Suggestion{
		suggestion(1, 30, 1.0, 30, 0),
		suggestion(2, 10, 1.0, 22, 0),
		suggestion(3, 5, 1.0, 30, 0),
	}

	matching.Rank(s, matching.SortByAge)

	assert.Equal(t, []int64{2, 3, 1}, ids(s))
}

// TestRankByTags checks shared tag count descending with distance ascending
// as the tie-break.
func TestRankByTags(t *testing.T) {
	s := []*matching.Suggestion{
		suggestion(1, 10, 1.0, 25, 1),
		suggestion(2, 40, 1.0, 25, 4),
		suggestion(3, 5, 1.0, 25, 1),
	}

	matching.Rank(s, matching.SortByTags)

	assert.Equal(t, []int64{2, 3, 1}, ids(s))
}

// TestRankStability verifies that exact ties keep their incoming order, so
// the same input always produces the same output.
func TestRankStability(t *testing.T) {
	s := []*matching.Suggestion{
		suggestion(7, 10, 2.0, 25, 1),
		suggestion(8, 10, 2.0, 25, 1),
		suggestion(9, 10, 2.0, 25, 1),
	}

	matching.Rank(s, matching.SortByDistance)
	assert.Equal(t, []int64{7, 8, 9}, ids(s))

	matching.Rank(s, matching.SortByFame)
	assert.Equal(t, []int64{7, 8, 9}, ids(s))
}

// TestPaginate covers in-range pages, a short final page, and an offset past
// the end.
func TestPaginate(t *testing.T) {
	s := []*matching.Suggestion{
		suggestion(1, 0, 0, 0, 0),
		suggestion(2, 0, 0, 0, 0),
		suggestion(3, 0, 0, 0, 0),
		suggestion(4, 0, 0, 0, 0),
		suggestion(5, 0, 0, 0, 0),
	}

	page := matching.Paginate(s, 2, 0)
	require.Len(t, page, 2)
	assert.Equal(t, []int64{1, 2}, ids(page))

	page = matching.Paginate(s, 2, 4)
	require.Len(t, page, 1)
	assert.Equal(t, []int64{5}, ids(page))

	page = matching.Paginate(s, 2, 10)
	assert.Empty(t, page)
	assert.NotNil(t, page)
}
