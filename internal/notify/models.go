// internal/notify/models.go

package notify

import "time"

// NotificationType represents different notification types
type NotificationType string

const (
	TypeLike    NotificationType = "like"
	TypeMatch   NotificationType = "match"
	TypeUnlike  NotificationType = "unlike"
	TypeView    NotificationType = "view"
	TypeMessage NotificationType = "message"
)

// Notification represents a persisted notification row. ActorID references
// the user whose action triggered the notification.
type Notification struct {
	ID        int64            `json:"id" db:"id"`
	UserID    int64            `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	ActorID   int64            `json:"actor_id" db:"actor_id"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	ReadAt    *time.Time       `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`

	// Joined field
	Actor *Actor `json:"actor,omitempty"`
}

// Actor is the user who triggered the notification
type Actor struct {
	ID       int64  `json:"id" db:"actor.id"`
	Username string `json:"username" db:"actor.username"`
}

// Frame is the wire format pushed over the realtime channel
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// InboxResponse represents the paginated inbox payload
type InboxResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
	Limit         int             `json:"limit"`
	Offset        int             `json:"offset"`
}
