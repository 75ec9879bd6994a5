// internal/notify/presence.go
// Online status maintenance. The database row is the source of truth for
// suggestion output; Redis carries a TTL key so stale "online" flags expire
// even if a disconnect is never observed.

package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
)

type PresenceTracker struct {
	db    *sqlx.DB
	redis *redis.Client
	ttl   time.Duration
}

// NewPresenceTracker creates a presence tracker. The Redis client may be nil;
// presence then degrades to database writes only.
func NewPresenceTracker(db *sqlx.DB, redisClient *redis.Client, ttl time.Duration) *PresenceTracker {
	return &PresenceTracker{
		db:    db,
		redis: redisClient,
		ttl:   ttl,
	}
}

func (p *PresenceTracker) SetOnline(ctx context.Context, userID int64) error {
	query := `UPDATE profiles SET is_online = TRUE, last_seen = NOW() WHERE user_id = $1`
	if _, err := p.db.ExecContext(ctx, query, userID); err != nil {
		return err
	}

	if p.redis != nil {
		if err := p.redis.Set(ctx, presenceKey(userID), "1", p.ttl).Err(); err != nil {
			return err
		}
	}

	return nil
}

func (p *PresenceTracker) SetOffline(ctx context.Context, userID int64) error {
	query := `UPDATE profiles SET is_online = FALSE, last_seen = NOW() WHERE user_id = $1`
	if _, err := p.db.ExecContext(ctx, query, userID); err != nil {
		return err
	}

	if p.redis != nil {
		if err := p.redis.Del(ctx, presenceKey(userID)).Err(); err != nil {
			return err
		}
	}

	return nil
}

// Refresh extends the online TTL for a connected user
func (p *PresenceTracker) Refresh(ctx context.Context, userID int64) error {
	if p.redis == nil {
		return nil
	}
	return p.redis.Expire(ctx, presenceKey(userID), p.ttl).Err()
}

// IsOnline consults the Redis TTL key when available
func (p *PresenceTracker) IsOnline(ctx context.Context, userID int64) (bool, error) {
	if p.redis == nil {
		var online bool
		err := p.db.GetContext(ctx, &online, `SELECT is_online FROM profiles WHERE user_id = $1`, userID)
		return online, err
	}

	n, err := p.redis.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func presenceKey(userID int64) string {
	return fmt.Sprintf("online:%d", userID)
}
