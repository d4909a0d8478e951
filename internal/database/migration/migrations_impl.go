package migration

import (
	"gorm.io/gorm"

	"github.com/chynybekuuludastan/story_generator/internal/database/seed"
	"github.com/chynybekuuludastan/story_generator/internal/models"
)

// CreateRolesTable creates the roles table
func CreateRolesTable(tx *gorm.DB) error {
	return tx.Exec(`
		CREATE TABLE IF NOT EXISTS roles (
			id SERIAL PRIMARY KEY,
			name VARCHAR(50) NOT NULL UNIQUE,
			description TEXT
		)
	`).Error
}

// DropRolesTable drops the roles table
func DropRolesTable(tx *gorm.DB) error {
	return tx.Exec("DROP TABLE IF EXISTS roles CASCADE").Error
}

// CreateUsersTable creates the users table
func CreateUsersTable(tx *gorm.DB) error {
	return tx.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username VARCHAR(100) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			role_id INTEGER NOT NULL REFERENCES roles(id),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted_at TIMESTAMP WITH TIME ZONE
		)
	`).Error
}

// DropUsersTable drops the users table
func DropUsersTable(tx *gorm.DB) error {
	return tx.Exec("DROP TABLE IF EXISTS users CASCADE").Error
}

// CreateStoriesTable creates the stories table
func CreateStoriesTable(tx *gorm.DB) error {
	return tx.Exec(`
		CREATE TABLE IF NOT EXISTS stories (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			child_name VARCHAR(100) NOT NULL,
			age INTEGER NOT NULL CHECK (age BETWEEN 3 AND 14),
			theme VARCHAR(50) NOT NULL,
			length VARCHAR(20) NOT NULL,
			elements JSONB,
			title VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			word_count INTEGER NOT NULL,
			language VARCHAR(10) NOT NULL DEFAULT 'tr',
			favorite BOOLEAN NOT NULL DEFAULT FALSE,
			metadata JSONB,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted_at TIMESTAMP WITH TIME ZONE
		)
	`).Error
}

// DropStoriesTable drops the stories table
func DropStoriesTable(tx *gorm.DB) error {
	return tx.Exec("DROP TABLE IF EXISTS stories CASCADE").Error
}

// CreateGenerationLogsTable creates the generation_logs table
func CreateGenerationLogsTable(tx *gorm.DB) error {
	return tx.Exec(`
		CREATE TABLE IF NOT EXISTS generation_logs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			story_id UUID REFERENCES stories(id) ON DELETE SET NULL,
			success BOOLEAN NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			error_codes JSONB,
			error_text TEXT,
			model VARCHAR(100),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`).Error
}

// DropGenerationLogsTable drops the generation_logs table
func DropGenerationLogsTable(tx *gorm.DB) error {
	return tx.Exec("DROP TABLE IF EXISTS generation_logs CASCADE").Error
}

var indexes = []struct{ name, definition string }{
	{"idx_users_role_id", "users(role_id)"},
	{"idx_users_created_at", "users(created_at)"},
	{"idx_users_deleted_at", "users(deleted_at)"},
	{"idx_stories_user_id", "stories(user_id)"},
	{"idx_stories_theme", "stories(theme)"},
	{"idx_stories_favorite", "stories(favorite)"},
	{"idx_stories_created_at", "stories(created_at)"},
	{"idx_stories_deleted_at", "stories(deleted_at)"},
	{"idx_stories_user_created", "stories(user_id, created_at DESC)"},
	{"idx_generation_logs_user_id", "generation_logs(user_id)"},
	{"idx_generation_logs_story_id", "generation_logs(story_id)"},
	{"idx_generation_logs_success", "generation_logs(success)"},
	{"idx_generation_logs_created_at", "generation_logs(created_at)"},
}

// AddIndexes adds indexes to improve query performance
func AddIndexes(tx *gorm.DB) error {
	for _, idx := range indexes {
		if err := tx.Exec("CREATE INDEX IF NOT EXISTS " + idx.name + " ON " + idx.definition).Error; err != nil {
			return err
		}
	}
	return nil
}

// RemoveIndexes removes the indexes created by AddIndexes
func RemoveIndexes(tx *gorm.DB) error {
	for i := len(indexes) - 1; i >= 0; i-- {
		if err := tx.Exec("DROP INDEX IF EXISTS " + indexes[i].name).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedRoles inserts the admin and parent roles
func SeedRoles(tx *gorm.DB) error {
	for _, role := range seed.DefaultRoles() {
		if err := tx.Exec(
			"INSERT INTO roles (name, description) VALUES (?, ?) ON CONFLICT (name) DO NOTHING",
			role.Name, role.Description,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

// RemoveSeededRoles deletes the seeded roles that no user holds
func RemoveSeededRoles(tx *gorm.DB) error {
	return tx.Exec(
		"DELETE FROM roles WHERE name IN (?) AND id NOT IN (SELECT role_id FROM users)",
		[]string{models.RoleAdmin, models.RoleParent},
	).Error
}
