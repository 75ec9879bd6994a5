package matching_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmartin/matcha-server/internal/matching"
	"github.com/lmartin/matcha-server/internal/notify"
)

//
// Test fakes
//

type pair struct {
	a, b int64
}

// fakeRepo is an in-memory Repository that mirrors the transactional
// semantics of the real store: CreateLike detects reciprocity, persists the
// notification rows, and recomputes fame in one step.
type fakeRepo struct {
	profiles   map[int64]*matching.Profile
	users      map[int64]bool
	pictures   map[int64]bool
	blocked    map[pair]bool
	likes      map[pair]bool
	candidates []*matching.Candidate
	tags       map[int64][]string
	photos     map[int64][]matching.Photo

	// views[viewed] is the set of distinct viewers
	views map[int64]map[int64]bool

	// persisted notification rows, in insertion order
	notifications []*notify.Notification

	// recorded FindCandidates arguments
	lastPreferredGender string
	lastOwnGender       string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		profiles: make(map[int64]*matching.Profile),
		users:    make(map[int64]bool),
		pictures: make(map[int64]bool),
		blocked:  make(map[pair]bool),
		likes:    make(map[pair]bool),
		tags:     make(map[int64][]string),
		photos:   make(map[int64][]matching.Photo),
		views:    make(map[int64]map[int64]bool),
	}
}

func (r *fakeRepo) addUser(id int64, hasPicture bool) {
	r.users[id] = true
	r.pictures[id] = hasPicture
}

func (r *fakeRepo) GetProfile(ctx context.Context, userID int64) (*matching.Profile, error) {
	p, ok := r.profiles[userID]
	if !ok {
		return nil, matching.ErrProfileNotFound
	}
	return p, nil
}

func (r *fakeRepo) GetUserSummary(ctx context.Context, userID int64) (*matching.UserSummary, error) {
	if !r.users[userID] {
		return nil, matching.ErrUserUnavailable
	}
	return &matching.UserSummary{ID: userID, Username: "user"}, nil
}

func (r *fakeRepo) UserExists(ctx context.Context, userID int64) (bool, error) {
	return r.users[userID], nil
}

func (r *fakeRepo) HasProfilePicture(ctx context.Context, userID int64) (bool, error) {
	return r.pictures[userID], nil
}

func (r *fakeRepo) IsBlockedEither(ctx context.Context, userID, otherID int64) (bool, error) {
	return r.blocked[pair{userID, otherID}] || r.blocked[pair{otherID, userID}], nil
}

func (r *fakeRepo) HasLike(ctx context.Context, likerID, likedID int64) (bool, error) {
	return r.likes[pair{likerID, likedID}], nil
}

func (r *fakeRepo) FindCandidates(ctx context.Context, userID int64, preferredGender, ownGender string) ([]*matching.Candidate, error) {
	r.lastPreferredGender = preferredGender
	r.lastOwnGender = ownGender
	return r.candidates, nil
}

func (r *fakeRepo) GetTagsForUsers(ctx context.Context, userIDs []int64) (map[int64][]string, error) {
	return r.tags, nil
}

func (r *fakeRepo) GetPhotosForUsers(ctx context.Context, userIDs []int64) (map[int64][]matching.Photo, error) {
	return r.photos, nil
}

func (r *fakeRepo) CreateLike(ctx context.Context, likerID, likedID int64) (*matching.LikeTxResult, error) {
	if r.likes[pair{likerID, likedID}] {
		return nil, matching.ErrDuplicateLike
	}
	r.likes[pair{likerID, likedID}] = true

	result := &matching.LikeTxResult{IsMatch: r.likes[pair{likedID, likerID}]}

	if result.IsMatch {
		matchForLiker := &notify.Notification{UserID: likerID, Type: notify.TypeMatch, ActorID: likedID}
		matchForLiked := &notify.Notification{UserID: likedID, Type: notify.TypeMatch, ActorID: likerID}
		r.notifications = append(r.notifications, matchForLiker, matchForLiked)
		result.Notifications = []*notify.Notification{matchForLiker, matchForLiked}
	} else {
		likeNotif := &notify.Notification{UserID: likedID, Type: notify.TypeLike, ActorID: likerID}
		r.notifications = append(r.notifications, likeNotif)
		result.Notifications = []*notify.Notification{likeNotif}
	}

	return result, nil
}

func (r *fakeRepo) DeleteLike(ctx context.Context, likerID, likedID int64) (*notify.Notification, error) {
	if !r.likes[pair{likerID, likedID}] {
		return nil, matching.ErrLikeNotFound
	}
	delete(r.likes, pair{likerID, likedID})

	n := &notify.Notification{UserID: likedID, Type: notify.TypeUnlike, ActorID: likerID}
	r.notifications = append(r.notifications, n)
	return n, nil
}

func (r *fakeRepo) RecordProfileView(ctx context.Context, viewerID, viewedID int64) (*notify.Notification, error) {
	if r.views[viewedID] == nil {
		r.views[viewedID] = make(map[int64]bool)
	}
	r.views[viewedID][viewerID] = true

	n := &notify.Notification{UserID: viewedID, Type: notify.TypeView, ActorID: viewerID}
	r.notifications = append(r.notifications, n)
	return n, nil
}

func (r *fakeRepo) RecomputeFame(ctx context.Context, userID int64) (float64, error) {
	if !r.users[userID] {
		return 0, matching.ErrProfileNotFound
	}

	incoming := 0
	for p := range r.likes {
		if p.b == userID {
			incoming++
		}
	}
	return float64(incoming)*0.5 + float64(len(r.views[userID]))*0.1, nil
}

// fakeDispatcher records delivery attempts and simulates per-user presence.
type fakeDispatcher struct {
	online    map[int64]bool
	delivered []*notify.Notification
}

func (d *fakeDispatcher) Deliver(userID int64, n *notify.Notification) bool {
	if !d.online[userID] {
		return false
	}
	d.delivered = append(d.delivered, n)
	return true
}

func setupService(t *testing.T) (matching.Service, *fakeRepo, *fakeDispatcher) {
	t.Helper()

	repo := newFakeRepo()
	dispatcher := &fakeDispatcher{online: make(map[int64]bool)}
	return matching.NewService(repo, dispatcher), repo, dispatcher
}

func strPtr(s string) *string     { return &s }
func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// seedRequester installs a complete profile located in Paris.
func seedRequester(repo *fakeRepo, id int64, preference string) {
	repo.addUser(id, true)
	repo.profiles[id] = &matching.Profile{
		UserID:           id,
		Gender:           strPtr("male"),
		SexualPreference: strPtr(preference),
		Latitude:         coord(48.8566),
		Longitude:        coord(2.3522),
	}
}

func candidateAt(id int64, lat, lon float64, fame float64, yearsOld int) *matching.Candidate {
	return &matching.Candidate{
		ID:         id,
		Username:   "user",
		Gender:     "female",
		BirthDate:  time.Now().AddDate(-yearsOld, 0, -1),
		Latitude:   coord(lat),
		Longitude:  coord(lon),
		FameRating: fame,
	}
}

//
// Like / match tests
//

// TestLikeThenReciprocalLikeCreatesMatch walks the full mutual-like flow:
// the first like yields a single like notification, the reciprocal like
// yields a match with two match notifications, and across both calls exactly
// three notification rows are persisted.
func TestLikeThenReciprocalLikeCreatesMatch(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setupService(t)
	repo.addUser(1, true)
	repo.addUser(2, true)

	result, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, result.IsMatch)

	require.Len(t, repo.notifications, 1)
	assert.Equal(t, notify.TypeLike, repo.notifications[0].Type)
	assert.Equal(t, int64(2), repo.notifications[0].UserID)

	result, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, result.IsMatch)
	require.NotNil(t, result.LikedUser)
	assert.Equal(t, int64(1), result.LikedUser.ID)

	// One like notification plus two match notifications, nothing else
	require.Len(t, repo.notifications, 3)
	assert.Equal(t, notify.TypeMatch, repo.notifications[1].Type)
	assert.Equal(t, notify.TypeMatch, repo.notifications[2].Type)
	assert.Equal(t, int64(2), repo.notifications[1].UserID)
	assert.Equal(t, int64(1), repo.notifications[2].UserID)
}

// TestLikeSelf rejects liking your own profile before touching the store.
func TestLikeSelf(t *testing.T) {
	svc, repo, _ := setupService(t)
	repo.addUser(1, true)

	_, err := svc.Like(context.Background(), 1, 1)
	assert.ErrorIs(t, err, matching.ErrSelfLike)
	assert.Empty(t, repo.notifications)
}

// TestLikeWithoutProfilePicture requires the liker to have a profile picture.
func TestLikeWithoutProfilePicture(t *testing.T) {
	svc, repo, _ := setupService(t)
	repo.addUser(1, false)
	repo.addUser(2, true)

	_, err := svc.Like(context.Background(), 1, 2)
	assert.ErrorIs(t, err, matching.ErrNoProfilePicture)
}

// TestLikeUnknownUser rejects likes toward users that do not exist.
func TestLikeUnknownUser(t *testing.T) {
	svc, repo, _ := setupService(t)
	repo.addUser(1, true)

	_, err := svc.Like(context.Background(), 1, 99)
	assert.ErrorIs(t, err, matching.ErrUserUnavailable)
}

// TestLikeBlockedPair treats a blocked pair as unavailable regardless of the
// block direction.
func TestLikeBlockedPair(t *testing.T) {
	svc, repo, _ := setupService(t)
	repo.addUser(1, true)
	repo.addUser(2, true)
	repo.blocked[pair{2, 1}] = true

	_, err := svc.Like(context.Background(), 1, 2)
	assert.ErrorIs(t, err, matching.ErrUserUnavailable)
}

// TestLikeDuplicate rejects a second like for the same pair.
func TestLikeDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setupService(t)
	repo.addUser(1, true)
	repo.addUser(2, true)

	_, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)

	_, err = svc.Like(ctx, 1, 2)
	assert.ErrorIs(t, err, matching.ErrDuplicateLike)
	assert.Len(t, repo.notifications, 1)
}

// TestLikeSucceedsWhenRecipientOffline verifies failed realtime delivery
// never fails the request; the row stays persisted for polling.
func TestLikeSucceedsWhenRecipientOffline(t *testing.T) {
	svc, repo, dispatcher := setupService(t)
	repo.addUser(1, true)
	repo.addUser(2, true)
	// user 2 has no session

	result, err := svc.Like(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, result.IsMatch)

	assert.Empty(t, dispatcher.delivered)
	assert.Len(t, repo.notifications, 1)
}

// TestLikeDeliversWhenRecipientOnline checks the dispatcher receives the
// persisted notification for online recipients.
func TestLikeDeliversWhenRecipientOnline(t *testing.T) {
	svc, repo, dispatcher := setupService(t)
	repo.addUser(1, true)
	repo.addUser(2, true)
	dispatcher.online[2] = true

	_, err := svc.Like(context.Background(), 1, 2)
	require.NoError(t, err)

	require.Len(t, dispatcher.delivered, 1)
	assert.Equal(t, notify.TypeLike, dispatcher.delivered[0].Type)
	assert.Equal(t, int64(2), dispatcher.delivered[0].UserID)
}

//
// Unlike tests
//

// TestUnlike removes an existing like and notifies the unliked user.
func TestUnlike(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setupService(t)
	repo.addUser(1, true)
	repo.addUser(2, true)

	_, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)

	err = svc.Unlike(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, repo.likes[pair{1, 2}])

	last := repo.notifications[len(repo.notifications)-1]
	assert.Equal(t, notify.TypeUnlike, last.Type)
	assert.Equal(t, int64(2), last.UserID)
}

// TestUnlikeWithoutLike fails when no like exists for the pair.
func TestUnlikeWithoutLike(t *testing.T) {
	svc, repo, _ := setupService(t)
	repo.addUser(1, true)
	repo.addUser(2, true)

	err := svc.Unlike(context.Background(), 1, 2)
	assert.ErrorIs(t, err, matching.ErrLikeNotFound)
}

// TestUnlikeSelf rejects the degenerate pair.
func TestUnlikeSelf(t *testing.T) {
	svc, _, _ := setupService(t)

	err := svc.Unlike(context.Background(), 1, 1)
	assert.ErrorIs(t, err, matching.ErrSelfLike)
}

//
// Profile view tests
//

// TestRecordView persists the view and notifies the viewed user.
func TestRecordView(t *testing.T) {
	svc, repo, _ := setupService(t)
	repo.addUser(1, true)
	repo.addUser(2, true)

	err := svc.RecordView(context.Background(), 1, 2)
	require.NoError(t, err)

	assert.True(t, repo.views[2][1])
	require.Len(t, repo.notifications, 1)
	assert.Equal(t, notify.TypeView, repo.notifications[0].Type)
}

// TestRecordViewSelf is a silent no-op.
func TestRecordViewSelf(t *testing.T) {
	svc, repo, _ := setupService(t)
	repo.addUser(1, true)

	err := svc.RecordView(context.Background(), 1, 1)
	require.NoError(t, err)

	assert.Empty(t, repo.views)
	assert.Empty(t, repo.notifications)
}

// TestRecordViewBlockedPair is a silent no-op for blocked pairs.
func TestRecordViewBlockedPair(t *testing.T) {
	svc, repo, _ := setupService(t)
	repo.addUser(1, true)
	repo.addUser(2, true)
	repo.blocked[pair{1, 2}] = true

	err := svc.RecordView(context.Background(), 1, 2)
	require.NoError(t, err)

	assert.Empty(t, repo.views)
	assert.Empty(t, repo.notifications)
}

// TestRecordViewUnknownUser fails for missing users.
func TestRecordViewUnknownUser(t *testing.T) {
	svc, repo, _ := setupService(t)
	repo.addUser(1, true)

	err := svc.RecordView(context.Background(), 1, 99)
	assert.ErrorIs(t, err, matching.ErrUserUnavailable)
}

//
// Fame tests
//

// TestRecomputeFameIdempotent verifies the fame formula and that repeated
// recomputation with unchanged inputs returns the same value.
func TestRecomputeFameIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setupService(t)
	repo.addUser(1, true)
	repo.addUser(2, true)
	repo.addUser(3, true)

	// Two incoming likes and one distinct viewer for user 1
	_, err := svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	_, err = svc.Like(ctx, 3, 1)
	require.NoError(t, err)
	require.NoError(t, svc.RecordView(ctx, 2, 1))

	fame, err := svc.RecomputeFame(ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 2*0.5+1*0.1, fame, 1e-9)

	again, err := svc.RecomputeFame(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, fame, again)
}

//
// Suggestion tests
//

// TestSuggestionsProfileRequired fails when the requester has no profile.
func TestSuggestionsProfileRequired(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.Suggestions(context.Background(), 1, &matching.SuggestionParams{Limit: 10, MaxDistance: 100})
	assert.ErrorIs(t, err, matching.ErrProfileNotFound)
}

// TestSuggestionsLocationRequired fails when the requester has a profile but
// no coordinates, since the distance cap cannot be applied.
func TestSuggestionsLocationRequired(t *testing.T) {
	svc, repo, _ := setupService(t)
	repo.addUser(1, true)
	repo.profiles[1] = &matching.Profile{UserID: 1, Gender: strPtr("male")}

	_, err := svc.Suggestions(context.Background(), 1, &matching.SuggestionParams{Limit: 10, MaxDistance: 100})
	assert.ErrorIs(t, err, matching.ErrMissingLocation)
}

// TestSuggestionsDistanceCap keeps only candidates within the requested
// radius: the requester sits in Paris, so the London candidate (about 344
// km away) must be dropped under a 100 km cap.
func TestSuggestionsDistanceCap(t *testing.T) {
	svc, repo, _ := setupService(t)
	seedRequester(repo, 1, "female")
	repo.candidates = []*matching.Candidate{
		candidateAt(2, 48.85, 2.35, 1.0, 25),    // Paris, ~1 km
		candidateAt(3, 51.5074, -0.1278, 5.0, 25), // London
	}

	resp, err := svc.Suggestions(context.Background(), 1, &matching.SuggestionParams{Limit: 10, MaxDistance: 100})
	require.NoError(t, err)

	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, int64(2), resp.Suggestions[0].ID)
	assert.Equal(t, 1, resp.Count)
}

// TestSuggestionsSkipsCandidatesWithoutCoordinates drops unlocatable
// candidates instead of failing the whole request.
func TestSuggestionsSkipsCandidatesWithoutCoordinates(t *testing.T) {
	svc, repo, _ := setupService(t)
	seedRequester(repo, 1, "female")

	noLocation := candidateAt(3, 0, 0, 1.0, 25)
	noLocation.Latitude = nil
	noLocation.Longitude = nil

	repo.candidates = []*matching.Candidate{
		candidateAt(2, 48.85, 2.35, 1.0, 25),
		noLocation,
	}

	resp, err := svc.Suggestions(context.Background(), 1, &matching.SuggestionParams{Limit: 10, MaxDistance: 100})
	require.NoError(t, err)

	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, int64(2), resp.Suggestions[0].ID)
}

// TestSuggestionsAgeWindow applies the optional min/max age bounds.
func TestSuggestionsAgeWindow(t *testing.T) {
	svc, repo, _ := setupService(t)
	seedRequester(repo, 1, "female")
	repo.candidates = []*matching.Candidate{
		candidateAt(2, 48.85, 2.35, 1.0, 19),
		candidateAt(3, 48.85, 2.35, 1.0, 25),
		candidateAt(4, 48.85, 2.35, 1.0, 40),
	}

	resp, err := svc.Suggestions(context.Background(), 1, &matching.SuggestionParams{
		Limit:       10,
		MaxDistance: 100,
		MinAge:      intPtr(21),
		MaxAge:      intPtr(30),
	})
	require.NoError(t, err)

	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, int64(3), resp.Suggestions[0].ID)
}

// TestSuggestionsFameWindow applies the optional fame bounds.
func TestSuggestionsFameWindow(t *testing.T) {
	svc, repo, _ := setupService(t)
	seedRequester(repo, 1, "female")
	repo.candidates = []*matching.Candidate{
		candidateAt(2, 48.85, 2.35, 0.2, 25),
		candidateAt(3, 48.85, 2.35, 2.0, 25),
		candidateAt(4, 48.85, 2.35, 9.5, 25),
	}

	resp, err := svc.Suggestions(context.Background(), 1, &matching.SuggestionParams{
		Limit:       10,
		MaxDistance: 100,
		MinFame:     floatPtr(1.0),
		MaxFame:     floatPtr(5.0),
	})
	require.NoError(t, err)

	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, int64(3), resp.Suggestions[0].ID)
}

// TestSuggestionsGenderPreference verifies the candidate query receives the
// requester's preference as the gender filter, and no filter when the
// preference is bisexual or unset.
func TestSuggestionsGenderPreference(t *testing.T) {
	svc, repo, _ := setupService(t)
	seedRequester(repo, 1, "female")

	_, err := svc.Suggestions(context.Background(), 1, &matching.SuggestionParams{Limit: 10, MaxDistance: 100})
	require.NoError(t, err)
	assert.Equal(t, "female", repo.lastPreferredGender)
	assert.Equal(t, "male", repo.lastOwnGender)

	repo.profiles[1].SexualPreference = strPtr("bisexual")
	_, err = svc.Suggestions(context.Background(), 1, &matching.SuggestionParams{Limit: 10, MaxDistance: 100})
	require.NoError(t, err)
	assert.Equal(t, "", repo.lastPreferredGender)

	repo.profiles[1].SexualPreference = nil
	_, err = svc.Suggestions(context.Background(), 1, &matching.SuggestionParams{Limit: 10, MaxDistance: 100})
	require.NoError(t, err)
	assert.Equal(t, "", repo.lastPreferredGender)
}

// TestSuggestionsOrderingAndPagination ranks the filtered set before
// slicing the page, so an offset page continues the same global order.
func TestSuggestionsOrderingAndPagination(t *testing.T) {
	svc, repo, _ := setupService(t)
	seedRequester(repo, 1, "female")
	repo.candidates = []*matching.Candidate{
		candidateAt(2, 48.85, 2.35, 3.0, 25),      // ~1 km
		candidateAt(3, 48.8566, 2.3522, 1.0, 25), // 0 km
		candidateAt(4, 49.25, 2.35, 2.0, 25),      // ~44 km
	}

	resp, err := svc.Suggestions(context.Background(), 1, &matching.SuggestionParams{Limit: 2, MaxDistance: 100})
	require.NoError(t, err)

	require.Len(t, resp.Suggestions, 2)
	assert.Equal(t, int64(3), resp.Suggestions[0].ID)
	assert.Equal(t, int64(2), resp.Suggestions[1].ID)

	resp, err = svc.Suggestions(context.Background(), 1, &matching.SuggestionParams{Limit: 2, Offset: 2, MaxDistance: 100})
	require.NoError(t, err)

	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, int64(4), resp.Suggestions[0].ID)
}

// TestSuggestionsHydration attaches tags and photos to the returned page and
// never returns nil slices.
func TestSuggestionsHydration(t *testing.T) {
	svc, repo, _ := setupService(t)
	seedRequester(repo, 1, "female")
	repo.candidates = []*matching.Candidate{
		candidateAt(2, 48.85, 2.35, 1.0, 25),
		candidateAt(3, 48.85, 2.35, 1.0, 25),
	}
	repo.tags[2] = []string{"vegan", "climbing"}
	repo.photos[2] = []matching.Photo{{ID: 10, UserID: 2, URL: "https://cdn/p.jpg", IsProfilePicture: true}}

	resp, err := svc.Suggestions(context.Background(), 1, &matching.SuggestionParams{Limit: 10, MaxDistance: 100})
	require.NoError(t, err)
	require.Len(t, resp.Suggestions, 2)

	withData := resp.Suggestions[0]
	assert.Equal(t, []string{"vegan", "climbing"}, withData.Tags)
	require.Len(t, withData.Photos, 1)
	assert.Equal(t, "https://cdn/p.jpg", withData.Photos[0].URL)

	empty := resp.Suggestions[1]
	assert.NotNil(t, empty.Tags)
	assert.NotNil(t, empty.Photos)
	assert.Empty(t, empty.Tags)
	assert.Empty(t, empty.Photos)
}
