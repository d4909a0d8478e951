package seed

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/chynybekuuludastan/story_generator/internal/models"
	"github.com/chynybekuuludastan/story_generator/internal/utils/password"
)

// DefaultRoles are created on an empty roles table
func DefaultRoles() []models.Role {
	return []models.Role{
		{Name: models.RoleAdmin, Description: "Administrator with access to usage statistics"},
		{Name: models.RoleParent, Description: "Parent who generates and keeps stories"},
	}
}

// SeedDefaultRoles seeds default roles if they don't exist
func SeedDefaultRoles(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Role{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	log.Println("Seeding default roles...")
	roles := DefaultRoles()
	return db.Create(&roles).Error
}

// SeedAdminUser creates an admin account when no user holds the admin role
func SeedAdminUser(db *gorm.DB, username, email, plainPassword string) error {
	if username == "" || email == "" || plainPassword == "" {
		return errors.New("admin username, email and password are required")
	}

	var adminRole models.Role
	if err := db.Where("name = ?", models.RoleAdmin).First(&adminRole).Error; err != nil {
		return err
	}

	var count int64
	if err := db.Model(&models.User{}).Where("role_id = ?", adminRole.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Admin user already seeded, skipping...")
		return nil
	}

	hash, err := password.Hash(plainPassword)
	if err != nil {
		return err
	}

	log.Println("Seeding admin user...")
	return db.Create(&models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		RoleID:       adminRole.ID,
	}).Error
}
