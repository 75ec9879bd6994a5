// internal/matching/repository.go

package matching

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lmartin/matcha-server/internal/notify"
)

// LikeTxResult carries everything the service needs after the atomic like:
// the match outcome and the notification rows to hand to the dispatcher.
type LikeTxResult struct {
	IsMatch       bool
	Notifications []*notify.Notification
}

type Repository interface {
	// Profile store reads
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	GetUserSummary(ctx context.Context, userID int64) (*UserSummary, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
	HasProfilePicture(ctx context.Context, userID int64) (bool, error)
	IsBlockedEither(ctx context.Context, userID, otherID int64) (bool, error)
	HasLike(ctx context.Context, likerID, likedID int64) (bool, error)

	// Candidate filtering
	FindCandidates(ctx context.Context, userID int64, preferredGender, ownGender string) ([]*Candidate, error)
	GetTagsForUsers(ctx context.Context, userIDs []int64) (map[int64][]string, error)
	GetPhotosForUsers(ctx context.Context, userIDs []int64) (map[int64][]Photo, error)

	// Mutations (each runs its own transaction)
	CreateLike(ctx context.Context, likerID, likedID int64) (*LikeTxResult, error)
	DeleteLike(ctx context.Context, likerID, likedID int64) (*notify.Notification, error)
	RecordProfileView(ctx context.Context, viewerID, viewedID int64) (*notify.Notification, error)

	// Fame
	RecomputeFame(ctx context.Context, userID int64) (float64, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	var profile Profile
	query := `
        SELECT user_id, gender, sexual_preference, biography, birth_date,
               latitude, longitude, fame_rating
        FROM profiles
        WHERE user_id = $1`

	err := r.db.GetContext(ctx, &profile, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *postgresRepository) GetUserSummary(ctx context.Context, userID int64) (*UserSummary, error) {
	var summary UserSummary
	query := `SELECT id, username FROM users WHERE id = $1`

	err := r.db.GetContext(ctx, &summary, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrUserUnavailable
	}
	if err != nil {
		return nil, err
	}

	return &summary, nil
}

func (r *postgresRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	err := r.db.GetContext(ctx, &exists, query, userID)
	return exists, err
}

func (r *postgresRepository) HasProfilePicture(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS(
            SELECT 1 FROM photos
            WHERE user_id = $1 AND is_profile_picture = TRUE
        )`

	err := r.db.GetContext(ctx, &exists, query, userID)
	return exists, err
}

func (r *postgresRepository) IsBlockedEither(ctx context.Context, userID, otherID int64) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS(
            SELECT 1 FROM blocks
            WHERE (blocker_id = $1 AND blocked_id = $2)
               OR (blocker_id = $2 AND blocked_id = $1)
        )`

	err := r.db.GetContext(ctx, &exists, query, userID, otherID)
	return exists, err
}

func (r *postgresRepository) HasLike(ctx context.Context, likerID, likedID int64) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS(
            SELECT 1 FROM likes
            WHERE liker_id = $1 AND liked_id = $2
        )`

	err := r.db.GetContext(ctx, &exists, query, likerID, likedID)
	return exists, err
}

// FindCandidates runs the fixed eligibility query. Every predicate is a
// parameter; no clause is assembled from request input. preferredGender is
// empty when the requester's preference does not name a single gender.
// Distance and the age/fame windows are applied by the service afterwards.
func (r *postgresRepository) FindCandidates(ctx context.Context, userID int64, preferredGender, ownGender string) ([]*Candidate, error) {
	query := `
        SELECT u.id, u.username, u.first_name, u.last_name,
               p.gender, p.biography, p.birth_date,
               p.latitude, p.longitude, p.city, p.country, p.fame_rating,
               p.is_online, p.last_seen,
               COALESCE(ct.common_tags, 0) AS common_tags,
               EXISTS(
                   SELECT 1 FROM likes lb
                   WHERE lb.liker_id = u.id AND lb.liked_id = $1
               ) AS they_liked_us
        FROM users u
        JOIN profiles p ON p.user_id = u.id
        LEFT JOIN (
            SELECT ut.user_id, COUNT(*) AS common_tags
            FROM user_tags ut
            JOIN user_tags mine ON mine.tag_id = ut.tag_id AND mine.user_id = $1
            GROUP BY ut.user_id
        ) ct ON ct.user_id = u.id
        WHERE u.id <> $1
          AND u.is_verified = TRUE
          AND p.gender IS NOT NULL
          AND p.sexual_preference IS NOT NULL
          AND p.biography IS NOT NULL
          AND p.birth_date IS NOT NULL
          AND EXISTS(
              SELECT 1 FROM photos ph
              WHERE ph.user_id = u.id AND ph.is_profile_picture = TRUE
          )
          AND NOT EXISTS(
              SELECT 1 FROM blocks b
              WHERE (b.blocker_id = $1 AND b.blocked_id = u.id)
                 OR (b.blocker_id = u.id AND b.blocked_id = $1)
          )
          AND NOT EXISTS(
              SELECT 1 FROM likes l
              WHERE l.liker_id = $1 AND l.liked_id = u.id
          )
          AND ($2 = '' OR p.gender = $2)
          AND (p.sexual_preference = 'bisexual' OR p.sexual_preference = $3)`

	rows, err := r.db.QueryxContext(ctx, query, userID, preferredGender, ownGender)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := []*Candidate{}
	for rows.Next() {
		var c Candidate
		err := rows.Scan(
			&c.ID, &c.Username, &c.FirstName, &c.LastName,
			&c.Gender, &c.Biography, &c.BirthDate,
			&c.Latitude, &c.Longitude, &c.City, &c.Country, &c.FameRating,
			&c.IsOnline, &c.LastSeen,
			&c.CommonTags, &c.TheyLikedUs,
		)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, &c)
	}

	return candidates, rows.Err()
}

func (r *postgresRepository) GetTagsForUsers(ctx context.Context, userIDs []int64) (map[int64][]string, error) {
	tags := make(map[int64][]string, len(userIDs))
	if len(userIDs) == 0 {
		return tags, nil
	}

	query := `
        SELECT ut.user_id, t.name
        FROM user_tags ut
        JOIN tags t ON t.id = ut.tag_id
        WHERE ut.user_id = ANY($1)
        ORDER BY t.name`

	rows, err := r.db.QueryxContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		var name string
		if err := rows.Scan(&userID, &name); err != nil {
			return nil, err
		}
		tags[userID] = append(tags[userID], name)
	}

	return tags, rows.Err()
}

func (r *postgresRepository) GetPhotosForUsers(ctx context.Context, userIDs []int64) (map[int64][]Photo, error) {
	photos := make(map[int64][]Photo, len(userIDs))
	if len(userIDs) == 0 {
		return photos, nil
	}

	query := `
        SELECT id, user_id, url, is_profile_picture
        FROM photos
        WHERE user_id = ANY($1)
        ORDER BY is_profile_picture DESC, id`

	rows, err := r.db.QueryxContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p Photo
		if err := rows.Scan(&p.ID, &p.UserID, &p.URL, &p.IsProfilePicture); err != nil {
			return nil, err
		}
		photos[p.UserID] = append(photos[p.UserID], p)
	}

	return photos, rows.Err()
}

// CreateLike runs the atomic like/match transaction: insert the like, detect
// reciprocity with a read-after-write in the same transaction, persist the
// notification rows, and recompute the liked user's fame. Any failure after
// the insert begins rolls everything back. The unique (liker_id, liked_id)
// constraint turns a concurrent duplicate into ErrDuplicateLike for the
// losing request instead of a double insert.
func (r *postgresRepository) CreateLike(ctx context.Context, likerID, likedID int64) (*LikeTxResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin like transaction: %w", err)
	}
	defer tx.Rollback()

	// Serialize concurrent likes on the same unordered pair. Without this,
	// two exactly interleaved mutual likes could each miss the other's
	// uncommitted insert and both commit with isMatch false. The lock is
	// released at commit/rollback.
	_, err = tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(least($1, $2)::int, greatest($1, $2)::int)`,
		likerID, likedID,
	)
	if err != nil {
		return nil, fmt.Errorf("lock like pair: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO likes (liker_id, liked_id) VALUES ($1, $2)`,
		likerID, likedID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateLike
		}
		return nil, fmt.Errorf("insert like: %w", err)
	}

	var isMatch bool
	err = tx.GetContext(ctx, &isMatch,
		`SELECT EXISTS(SELECT 1 FROM likes WHERE liker_id = $1 AND liked_id = $2)`,
		likedID, likerID,
	)
	if err != nil {
		return nil, fmt.Errorf("check reciprocal like: %w", err)
	}

	result := &LikeTxResult{IsMatch: isMatch}

	if isMatch {
		// Both sides are informed symmetrically; the match notifications
		// replace the plain like notification for this request.
		matchForLiker := &notify.Notification{UserID: likerID, Type: notify.TypeMatch, ActorID: likedID}
		matchForLiked := &notify.Notification{UserID: likedID, Type: notify.TypeMatch, ActorID: likerID}

		if err := notify.Insert(ctx, tx, matchForLiker); err != nil {
			return nil, fmt.Errorf("insert match notification: %w", err)
		}
		if err := notify.Insert(ctx, tx, matchForLiked); err != nil {
			return nil, fmt.Errorf("insert match notification: %w", err)
		}

		result.Notifications = append(result.Notifications, matchForLiker, matchForLiked)
	} else {
		likeNotif := &notify.Notification{UserID: likedID, Type: notify.TypeLike, ActorID: likerID}
		if err := notify.Insert(ctx, tx, likeNotif); err != nil {
			return nil, fmt.Errorf("insert like notification: %w", err)
		}
		result.Notifications = append(result.Notifications, likeNotif)
	}

	if _, err := recomputeFame(ctx, tx, likedID); err != nil {
		return nil, fmt.Errorf("recompute fame: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit like transaction: %w", err)
	}

	return result, nil
}

// DeleteLike removes the like edge and mirrors the like path: an unlike
// notification to the unliked user and a fame recompute.
func (r *postgresRepository) DeleteLike(ctx context.Context, likerID, likedID int64) (*notify.Notification, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin unlike transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM likes WHERE liker_id = $1 AND liked_id = $2`,
		likerID, likedID,
	)
	if err != nil {
		return nil, fmt.Errorf("delete like: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrLikeNotFound
	}

	notification := &notify.Notification{UserID: likedID, Type: notify.TypeUnlike, ActorID: likerID}
	if err := notify.Insert(ctx, tx, notification); err != nil {
		return nil, fmt.Errorf("insert unlike notification: %w", err)
	}

	if _, err := recomputeFame(ctx, tx, likedID); err != nil {
		return nil, fmt.Errorf("recompute fame: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit unlike transaction: %w", err)
	}

	return notification, nil
}

// RecordProfileView appends a view edge, notifies the viewed user, and
// recomputes their fame (distinct viewers feed the formula).
func (r *postgresRepository) RecordProfileView(ctx context.Context, viewerID, viewedID int64) (*notify.Notification, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin view transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO profile_views (viewer_id, viewed_id) VALUES ($1, $2)`,
		viewerID, viewedID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile view: %w", err)
	}

	notification := &notify.Notification{UserID: viewedID, Type: notify.TypeView, ActorID: viewerID}
	if err := notify.Insert(ctx, tx, notification); err != nil {
		return nil, fmt.Errorf("insert view notification: %w", err)
	}

	if _, err := recomputeFame(ctx, tx, viewedID); err != nil {
		return nil, fmt.Errorf("recompute fame: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit view transaction: %w", err)
	}

	return notification, nil
}

func (r *postgresRepository) RecomputeFame(ctx context.Context, userID int64) (float64, error) {
	return recomputeFame(ctx, r.db, userID)
}

// recomputeFame overwrites the stored fame rating from current like and view
// counts. A single UPDATE with subselects, so repeated calls with unchanged
// inputs yield the same value.
func recomputeFame(ctx context.Context, ext sqlx.ExtContext, userID int64) (float64, error) {
	query := `
        UPDATE profiles
        SET fame_rating =
            (SELECT COUNT(*) FROM likes WHERE liked_id = $1) * 0.5 +
            (SELECT COUNT(DISTINCT viewer_id) FROM profile_views WHERE viewed_id = $1) * 0.1
        WHERE user_id = $1
        RETURNING fame_rating`

	var fame float64
	if err := sqlx.GetContext(ctx, ext, &fame, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrProfileNotFound
		}
		return 0, err
	}

	return fame, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505)
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
