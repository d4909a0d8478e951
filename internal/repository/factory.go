package repository

import (
	"gorm.io/gorm"
)

// Factory manages all repositories
type Factory struct {
	UserRepository  UserRepository
	StoryRepository StoryRepository
}

// NewRepositoryFactory creates a repository factory with all repositories
func NewRepositoryFactory(db *gorm.DB) *Factory {
	return &Factory{
		UserRepository:  NewUserRepository(db),
		StoryRepository: NewStoryRepository(db),
	}
}
