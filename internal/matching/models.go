package matching

import "time"

// Profile is the requester's profile row as the engine needs it. Nullable
// columns stay pointers; a profile may exist before the user completes it.
type Profile struct {
	UserID           int64      `db:"user_id"`
	Gender           *string    `db:"gender"`
	SexualPreference *string    `db:"sexual_preference"`
	Biography        *string    `db:"biography"`
	BirthDate        *time.Time `db:"birth_date"`
	Latitude         *float64   `db:"latitude"`
	Longitude        *float64   `db:"longitude"`
	FameRating       float64    `db:"fame_rating"`
}

// Candidate is one eligible row out of the candidate query, before distance
// and age/fame window filtering.
type Candidate struct {
	ID          int64      `db:"id"`
	Username    string     `db:"username"`
	FirstName   string     `db:"first_name"`
	LastName    string     `db:"last_name"`
	Gender      string     `db:"gender"`
	Biography   string     `db:"biography"`
	BirthDate   time.Time  `db:"birth_date"`
	Latitude    *float64   `db:"latitude"`
	Longitude   *float64   `db:"longitude"`
	City        *string    `db:"city"`
	Country     *string    `db:"country"`
	FameRating  float64    `db:"fame_rating"`
	IsOnline    bool       `db:"is_online"`
	LastSeen    *time.Time `db:"last_seen"`
	CommonTags  int        `db:"common_tags"`
	TheyLikedUs bool       `db:"they_liked_us"`
}

// Suggestion is one ranked candidate record returned to the client
type Suggestion struct {
	ID         int64      `json:"id"`
	Username   string     `json:"username"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Gender     string     `json:"gender"`
	Biography  string     `json:"biography"`
	FameRating float64    `json:"fame_rating"`
	City       *string    `json:"city,omitempty"`
	Country    *string    `json:"country,omitempty"`
	IsOnline   bool       `json:"is_online"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
	Age        int        `json:"age"`
	Distance   int        `json:"distance"`
	CommonTags int        `json:"common_tags"`
	Tags       []string   `json:"tags"`
	Photos     []Photo    `json:"photos"`

	// AlreadyLiked is always false for fresh suggestions since liked users
	// are filtered out; it exists so profile lookups can reuse the shape.
	AlreadyLiked bool `json:"already_liked"`
	TheyLikedUs  bool `json:"they_liked_us"`
}

// Photo belongs to a user; at most one per user carries the profile flag
type Photo struct {
	ID               int64  `json:"id" db:"id"`
	UserID           int64  `json:"-" db:"user_id"`
	URL              string `json:"url" db:"url"`
	IsProfilePicture bool   `json:"is_profile_picture" db:"is_profile_picture"`
}

// UserSummary identifies the liked user in a like response
type UserSummary struct {
	ID       int64  `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
}

// LikeResult is the outcome of a successful like
type LikeResult struct {
	IsMatch   bool         `json:"is_match"`
	LikedUser *UserSummary `json:"liked_user"`
}
