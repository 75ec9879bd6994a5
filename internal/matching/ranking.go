// internal/matching/ranking.go
// Ordering of filtered candidates. Each sort key is a tagged variant mapped
// to a fixed comparator with a declared secondary tie-break, so the ordering
// is fully deterministic for identical inputs.

package matching

import "sort"

// SortKey selects the ranking order for suggestions
type SortKey int

const (
	SortByDistance SortKey = iota
	SortByFame
	SortByAge
	SortByTags
)

// ParseSortKey maps the request parameter to a sort key. Unknown values fall
// back to distance ordering.
func ParseSortKey(s string) SortKey {
	switch s {
	case "fame":
		return SortByFame
	case "age":
		return SortByAge
	case "tags":
		return SortByTags
	default:
		return SortByDistance
	}
}

func (k SortKey) String() string {
	switch k {
	case SortByFame:
		return "fame"
	case SortByAge:
		return "age"
	case SortByTags:
		return "tags"
	default:
		return "distance"
	}
}

// Rank orders suggestions in place. sort.SliceStable keeps exact ties in
// their incoming order so repeated calls with identical input agree.
func Rank(suggestions []*Suggestion, key SortKey) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		return less(suggestions[i], suggestions[j], key)
	})
}

func less(a, b *Suggestion, key SortKey) bool {
	switch key {
	case SortByFame:
		// Fame descending, ties broken by distance ascending
		if a.FameRating != b.FameRating {
			return a.FameRating > b.FameRating
		}
		return a.Distance < b.Distance

	case SortByAge:
		// Age ascending, ties broken by distance ascending
		if a.Age != b.Age {
			return a.Age < b.Age
		}
		return a.Distance < b.Distance

	case SortByTags:
		// Shared tags descending, ties broken by distance ascending
		if a.CommonTags != b.CommonTags {
			return a.CommonTags > b.CommonTags
		}
		return a.Distance < b.Distance

	default:
		// Distance ascending, ties broken by fame descending
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		return a.FameRating > b.FameRating
	}
}

// Paginate applies offset/limit after ordering
func Paginate(suggestions []*Suggestion, limit, offset int) []*Suggestion {
	if offset >= len(suggestions) {
		return []*Suggestion{}
	}

	end := offset + limit
	if end > len(suggestions) {
		end = len(suggestions)
	}

	return suggestions[offset:end]
}
