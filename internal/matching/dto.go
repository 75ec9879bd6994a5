// internal/matching/dto.go
package matching

// SuggestionParams carries the suggestion request body. Field names mirror
// the public API. MaxDistance has no default on purpose: a request without a
// distance cap is rejected rather than silently unbounded. The limit and age
// bounds come from configuration, so the handler enforces them; the tags
// only cover shape.
type SuggestionParams struct {
	Limit       int    `json:"limit" validate:"gte=0"`
	Offset      int    `json:"offset" validate:"gte=0"`
	SortBy      string `json:"sortBy" validate:"omitempty,max=32"`
	MaxDistance int    `json:"maxDistance" validate:"required,gt=0"`

	MinAge  *int     `json:"minAge,omitempty" validate:"omitempty,gte=0"`
	MaxAge  *int     `json:"maxAge,omitempty" validate:"omitempty,gte=0"`
	MinFame *float64 `json:"minFame,omitempty" validate:"omitempty,gte=0"`
	MaxFame *float64 `json:"maxFame,omitempty" validate:"omitempty,gte=0"`
}

// SuggestionsResponse is the paginated suggestion payload
type SuggestionsResponse struct {
	Suggestions []*Suggestion `json:"suggestions"`
	Count       int           `json:"count"`
	Limit       int           `json:"limit"`
	Offset      int           `json:"offset"`
}

// LikeResponse wraps a like outcome for the API
type LikeResponse struct {
	Message   string       `json:"message"`
	IsMatch   bool         `json:"is_match"`
	LikedUser *UserSummary `json:"liked_user"`
}
