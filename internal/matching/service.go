// internal/matching/service.go

package matching

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/lmartin/matcha-server/internal/notify"
)

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrSelfLike         = errors.New("cannot like yourself")
	ErrNoProfilePicture = errors.New("a profile picture is required before liking")
	ErrUserUnavailable  = errors.New("user not found or unavailable")
	ErrDuplicateLike    = errors.New("user already liked")
	ErrLikeNotFound     = errors.New("like not found")
)

type Service interface {
	// Suggestions runs filter → score → rank → paginate for the requester
	Suggestions(ctx context.Context, userID int64, params *SuggestionParams) (*SuggestionsResponse, error)

	// Like records a directed like and resolves the match outcome
	Like(ctx context.Context, likerID, likedID int64) (*LikeResult, error)

	// Unlike removes a previously recorded like
	Unlike(ctx context.Context, likerID, likedID int64) error

	// RecordView appends a profile view for fame accounting
	RecordView(ctx context.Context, viewerID, viewedID int64) error

	// RecomputeFame refreshes a user's stored fame rating
	RecomputeFame(ctx context.Context, userID int64) (float64, error)
}

type service struct {
	repo       Repository
	dispatcher notify.Dispatcher
	now        func() time.Time
}

func NewService(repo Repository, dispatcher notify.Dispatcher) Service {
	return &service{
		repo:       repo,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

func (s *service) Suggestions(ctx context.Context, userID int64, params *SuggestionParams) (*SuggestionsResponse, error) {
	start := s.now()

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	// A distance cap is mandatory, so the requester must be locatable
	if profile.Latitude == nil || profile.Longitude == nil {
		return nil, ErrMissingLocation
	}

	candidates, err := s.repo.FindCandidates(ctx, userID, preferredGender(profile), stringValue(profile.Gender))
	if err != nil {
		return nil, err
	}

	suggestions := make([]*Suggestion, 0, len(candidates))
	for _, c := range candidates {
		distance, err := Distance(profile.Latitude, profile.Longitude, c.Latitude, c.Longitude)
		if err != nil {
			// Candidate without coordinates cannot be distance-filtered
			continue
		}
		if distance > params.MaxDistance {
			continue
		}

		age := ageAt(c.BirthDate, s.now())
		if params.MinAge != nil && age < *params.MinAge {
			continue
		}
		if params.MaxAge != nil && age > *params.MaxAge {
			continue
		}
		if params.MinFame != nil && c.FameRating < *params.MinFame {
			continue
		}
		if params.MaxFame != nil && c.FameRating > *params.MaxFame {
			continue
		}

		suggestions = append(suggestions, &Suggestion{
			ID:          c.ID,
			Username:    c.Username,
			FirstName:   c.FirstName,
			LastName:    c.LastName,
			Gender:      c.Gender,
			Biography:   c.Biography,
			FameRating:  c.FameRating,
			City:        c.City,
			Country:     c.Country,
			IsOnline:    c.IsOnline,
			LastSeen:    c.LastSeen,
			Age:         age,
			Distance:    distance,
			CommonTags:  c.CommonTags,
			TheyLikedUs: c.TheyLikedUs,
		})
	}

	Rank(suggestions, ParseSortKey(params.SortBy))
	page := Paginate(suggestions, params.Limit, params.Offset)

	if err := s.hydrate(ctx, page); err != nil {
		return nil, err
	}

	ObserveSuggestionQuery(s.now().Sub(start), len(page))

	return &SuggestionsResponse{
		Suggestions: page,
		Count:       len(page),
		Limit:       params.Limit,
		Offset:      params.Offset,
	}, nil
}

// hydrate attaches tag names and photo lists to the returned page only
func (s *service) hydrate(ctx context.Context, page []*Suggestion) error {
	if len(page) == 0 {
		return nil
	}

	ids := make([]int64, len(page))
	for i, sg := range page {
		ids[i] = sg.ID
	}

	tags, err := s.repo.GetTagsForUsers(ctx, ids)
	if err != nil {
		return err
	}

	photos, err := s.repo.GetPhotosForUsers(ctx, ids)
	if err != nil {
		return err
	}

	for _, sg := range page {
		sg.Tags = tags[sg.ID]
		if sg.Tags == nil {
			sg.Tags = []string{}
		}
		sg.Photos = photos[sg.ID]
		if sg.Photos == nil {
			sg.Photos = []Photo{}
		}
	}

	return nil
}

// Like checks every precondition before mutating anything, then delegates to
// the repository's atomic transaction. Realtime delivery happens after the
// commit and never fails the request.
func (s *service) Like(ctx context.Context, likerID, likedID int64) (*LikeResult, error) {
	if likerID == likedID {
		return nil, ErrSelfLike
	}

	hasPicture, err := s.repo.HasProfilePicture(ctx, likerID)
	if err != nil {
		return nil, err
	}
	if !hasPicture {
		return nil, ErrNoProfilePicture
	}

	exists, err := s.repo.UserExists(ctx, likedID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserUnavailable
	}

	blocked, err := s.repo.IsBlockedEither(ctx, likerID, likedID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrUserUnavailable
	}

	alreadyLiked, err := s.repo.HasLike(ctx, likerID, likedID)
	if err != nil {
		return nil, err
	}
	if alreadyLiked {
		return nil, ErrDuplicateLike
	}

	result, err := s.repo.CreateLike(ctx, likerID, likedID)
	if err != nil {
		return nil, err
	}

	RecordLike()
	if result.IsMatch {
		RecordMatch()
	}

	likedUser, err := s.repo.GetUserSummary(ctx, likedID)
	if err != nil {
		return nil, err
	}

	s.dispatch(result.Notifications)

	return &LikeResult{
		IsMatch:   result.IsMatch,
		LikedUser: likedUser,
	}, nil
}

func (s *service) Unlike(ctx context.Context, likerID, likedID int64) error {
	if likerID == likedID {
		return ErrSelfLike
	}

	notification, err := s.repo.DeleteLike(ctx, likerID, likedID)
	if err != nil {
		return err
	}

	s.dispatch([]*notify.Notification{notification})
	return nil
}

// RecordView is a no-op for self-views and blocked pairs
func (s *service) RecordView(ctx context.Context, viewerID, viewedID int64) error {
	if viewerID == viewedID {
		return nil
	}

	exists, err := s.repo.UserExists(ctx, viewedID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserUnavailable
	}

	blocked, err := s.repo.IsBlockedEither(ctx, viewerID, viewedID)
	if err != nil {
		return err
	}
	if blocked {
		return nil
	}

	notification, err := s.repo.RecordProfileView(ctx, viewerID, viewedID)
	if err != nil {
		return err
	}

	s.dispatch([]*notify.Notification{notification})
	return nil
}

func (s *service) RecomputeFame(ctx context.Context, userID int64) (float64, error) {
	return s.repo.RecomputeFame(ctx, userID)
}

// dispatch attempts realtime delivery for each persisted notification.
// Failure means the recipient has no session; the row stays for polling.
func (s *service) dispatch(notifications []*notify.Notification) {
	if s.dispatcher == nil {
		return
	}

	for _, n := range notifications {
		if !s.dispatcher.Deliver(n.UserID, n) {
			log.Printf("User %d offline, %s notification queued for polling", n.UserID, n.Type)
		}
	}
}

// preferredGender maps the requester's sexual preference to the candidate
// gender filter. Bisexual or unset preference means no gender restriction.
func preferredGender(p *Profile) string {
	if p.SexualPreference == nil {
		return ""
	}
	switch *p.SexualPreference {
	case "male", "female":
		return *p.SexualPreference
	default:
		return ""
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ageAt derives completed years from a birth date
func ageAt(birth time.Time, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}
