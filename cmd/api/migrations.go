// cmd/api/migrations.go
// Database schema migrations for the matching service

package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
)

// runMigrations executes database migrations
func runMigrations(db *sqlx.DB) error {
	log.Println("   - Checking existing tables...")

	var userTableExists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT FROM information_schema.tables
            WHERE table_schema = 'public'
            AND table_name = 'users'
        )
    `).Scan(&userTableExists)

	if err != nil {
		return fmt.Errorf("failed to check tables: %w", err)
	}

	if userTableExists {
		log.Println("   ✅ Tables already exist, running additional migrations if needed...")
	}

	log.Println("   - Creating/updating tables...")

	migrations := []string{
		// Users table
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            email VARCHAR(255) UNIQUE,
            username VARCHAR(100) UNIQUE NOT NULL,
            password_hash VARCHAR(255),
            first_name VARCHAR(100),
            last_name VARCHAR(100),
            is_verified BOOLEAN DEFAULT FALSE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

		// Profiles table
		`CREATE TABLE IF NOT EXISTS profiles (
            user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
            gender VARCHAR(20),
            sexual_preference VARCHAR(20),
            biography TEXT,
            birth_date DATE,
            latitude DOUBLE PRECISION,
            longitude DOUBLE PRECISION,
            city VARCHAR(100),
            country VARCHAR(100),
            fame_rating DOUBLE PRECISION DEFAULT 0,
            is_online BOOLEAN DEFAULT FALSE,
            last_seen TIMESTAMP WITH TIME ZONE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

		// Tags
		`CREATE TABLE IF NOT EXISTS tags (
            id SERIAL PRIMARY KEY,
            name VARCHAR(50) UNIQUE NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS user_tags (
            user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
            PRIMARY KEY (user_id, tag_id)
        )`,

		// Photos
		`CREATE TABLE IF NOT EXISTS photos (
            id SERIAL PRIMARY KEY,
            user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            url TEXT NOT NULL,
            is_profile_picture BOOLEAN DEFAULT FALSE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

		// A user has at most one profile picture
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_photos_profile_picture
            ON photos(user_id) WHERE is_profile_picture = TRUE`,

		// Likes
		`CREATE TABLE IF NOT EXISTS likes (
            id SERIAL PRIMARY KEY,
            liker_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            liked_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT unique_like UNIQUE(liker_id, liked_id),
            CONSTRAINT no_self_like CHECK (liker_id <> liked_id)
        )`,

		// Blocks
		`CREATE TABLE IF NOT EXISTS blocks (
            id SERIAL PRIMARY KEY,
            blocker_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            blocked_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT unique_block UNIQUE(blocker_id, blocked_id)
        )`,

		// Profile views
		`CREATE TABLE IF NOT EXISTS profile_views (
            id SERIAL PRIMARY KEY,
            viewer_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            viewed_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

		// Notifications
		`CREATE TABLE IF NOT EXISTS notifications (
            id SERIAL PRIMARY KEY,
            user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            type VARCHAR(20) NOT NULL,
            actor_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            is_read BOOLEAN DEFAULT FALSE,
            read_at TIMESTAMP WITH TIME ZONE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_gender ON profiles(gender)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_location ON profiles(latitude, longitude)`,
		`CREATE INDEX IF NOT EXISTS idx_user_tags_user ON user_tags(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_photos_user ON photos(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_likes_liker ON likes(liker_id)`,
		`CREATE INDEX IF NOT EXISTS idx_likes_liked ON likes(liked_id)`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_blocker ON blocks(blocker_id)`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_blocked ON blocks(blocked_id)`,
		`CREATE INDEX IF NOT EXISTS idx_profile_views_viewed ON profile_views(viewed_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(user_id) WHERE is_read = FALSE`,
	}

	for i, migration := range migrations {
		log.Printf("   - Running migration %d/%d...", i+1, len(migrations))
		if _, err := db.Exec(migration); err != nil {
			// Don't fail on duplicate key errors (indexes already exist)
			if !strings.Contains(err.Error(), "already exists") {
				return fmt.Errorf("migration %d failed: %w", i+1, err)
			}
			log.Printf("   - Migration %d skipped (already exists)", i+1)
		}
	}

	log.Println("   ✅ All migrations executed successfully")
	return nil
}
