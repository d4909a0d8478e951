package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chynybekuuludastan/story_generator/internal/models"
)

// UserRepository defines operations for User model
type UserRepository interface {
	Repository
	FindByEmail(email string) (*models.User, error)
	FindByUsername(username string) (*models.User, error)
	FindWithRole(userID uuid.UUID) (*models.User, error)
	FindRoleByName(name string) (*models.Role, error)
	UpdatePassword(userID uuid.UUID, passwordHash string) error
	ExistsByEmail(email string) (bool, error)
	ExistsByUsername(username string) (bool, error)
}

// userRepository implements UserRepository
type userRepository struct {
	*BaseRepository
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// FindByEmail finds a user by email
func (r *userRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.DB.Where("email = ?", email).Preload("Role").First(&user).Error; err != nil {
		return nil, wrap(err)
	}
	return &user, nil
}

// FindByUsername finds a user by username
func (r *userRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.DB.Where("username = ?", username).Preload("Role").First(&user).Error; err != nil {
		return nil, wrap(err)
	}
	return &user, nil
}

// FindWithRole finds a user by ID with the role loaded
func (r *userRepository) FindWithRole(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.Preload("Role").First(&user, "id = ?", userID).Error; err != nil {
		return nil, wrap(err)
	}
	return &user, nil
}

// FindRoleByName finds a role by name
func (r *userRepository) FindRoleByName(name string) (*models.Role, error) {
	var role models.Role
	if err := r.DB.Where("name = ?", name).First(&role).Error; err != nil {
		return nil, wrap(err)
	}
	return &role, nil
}

// UpdatePassword updates a user's password
func (r *userRepository) UpdatePassword(userID uuid.UUID, passwordHash string) error {
	return wrap(r.DB.Model(&models.User{}).Where("id = ?", userID).Update("password_hash", passwordHash).Error)
}

// ExistsByEmail checks if a user with the given email exists
func (r *userRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, wrap(err)
}

// ExistsByUsername checks if a user with the given username exists
func (r *userRepository) ExistsByUsername(username string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, wrap(err)
}
