// internal/notify/repository.go

package notify

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetUserNotifications(ctx context.Context, userID int64, limit, offset int) ([]*Notification, error)
	GetUnreadCount(ctx context.Context, userID int64) (int, error)
	MarkAsRead(ctx context.Context, notificationID, userID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) error
	DeleteOldNotifications(ctx context.Context, before time.Time) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// Insert persists a notification using the given executor. Callers that need
// the write to be part of a larger transaction pass their *sqlx.Tx here; the
// like/match transaction depends on this to roll notifications back with the
// like itself.
func Insert(ctx context.Context, ext sqlx.ExtContext, n *Notification) error {
	query := `
        INSERT INTO notifications (user_id, type, actor_id, is_read)
        VALUES ($1, $2, $3, FALSE)
        RETURNING id, is_read, created_at`

	return sqlx.GetContext(ctx, ext, n, query, n.UserID, n.Type, n.ActorID)
}

func (r *postgresRepository) Create(ctx context.Context, n *Notification) error {
	return Insert(ctx, r.db, n)
}

// GetUserNotifications returns the user's notifications newest-first
func (r *postgresRepository) GetUserNotifications(ctx context.Context, userID int64, limit, offset int) ([]*Notification, error) {
	query := `
        SELECT n.id, n.user_id, n.type, n.actor_id, n.is_read, n.read_at, n.created_at,
               u.id AS "actor.id", u.username AS "actor.username"
        FROM notifications n
        JOIN users u ON u.id = n.actor_id
        WHERE n.user_id = $1
        ORDER BY n.created_at DESC, n.id DESC
        LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryxContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []*Notification{}
	for rows.Next() {
		var n Notification
		var actor Actor

		err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.ActorID, &n.IsRead, &n.ReadAt, &n.CreatedAt,
			&actor.ID, &actor.Username,
		)
		if err != nil {
			return nil, err
		}

		n.Actor = &actor
		notifications = append(notifications, &n)
	}

	return notifications, rows.Err()
}

func (r *postgresRepository) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`

	err := r.db.GetContext(ctx, &count, query, userID)
	return count, err
}

// MarkAsRead marks one notification read. Ownership is part of the WHERE
// clause so a user cannot touch someone else's inbox.
func (r *postgresRepository) MarkAsRead(ctx context.Context, notificationID, userID int64) error {
	query := `
        UPDATE notifications
        SET is_read = TRUE, read_at = NOW()
        WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

func (r *postgresRepository) MarkAllAsRead(ctx context.Context, userID int64) error {
	query := `
        UPDATE notifications
        SET is_read = TRUE, read_at = NOW()
        WHERE user_id = $1 AND is_read = FALSE`

	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

func (r *postgresRepository) DeleteOldNotifications(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE created_at < $1`, before)
	return err
}
