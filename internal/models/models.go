// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Role names seeded on migration
const (
	RoleAdmin  = "admin"
	RoleParent = "parent"
)

// Role represents a user role in the system
type Role struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"type:varchar(50);unique;not null;index"`
	Description string `gorm:"type:text"`
	// Relationships
	Users []User `gorm:"foreignKey:RoleID"`
}

// User represents a parent account
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string         `gorm:"type:varchar(100);unique;not null;index"`
	Email        string         `gorm:"type:varchar(255);unique;not null;index"`
	PasswordHash string         `gorm:"type:varchar(255);not null"`
	RoleID       uint           `gorm:"not null;index"`
	Role         Role           `gorm:"foreignKey:RoleID"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
	// Relationships
	Stories []Story `gorm:"foreignKey:UserID"`
}

// Story is an accepted, persisted story
type Story struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	ChildName string         `gorm:"type:varchar(100);not null" json:"child_name"`
	Age       int            `gorm:"not null" json:"age"`
	Theme     string         `gorm:"type:varchar(50);not null;index" json:"theme"`
	Length    string         `gorm:"type:varchar(20);not null" json:"length"`
	Elements  datatypes.JSON `gorm:"type:jsonb" json:"elements,omitempty"`
	Title     string         `gorm:"type:varchar(255);not null" json:"title"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	WordCount int            `gorm:"not null" json:"word_count"`
	Language  string         `gorm:"type:varchar(10);not null;default:'tr'" json:"language"`
	Favorite  bool           `gorm:"default:false;index" json:"favorite"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// GenerationLog records every generation request, accepted or not
type GenerationLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	StoryID    *uuid.UUID     `gorm:"type:uuid;index" json:"story_id,omitempty"`
	Success    bool           `gorm:"not null;index" json:"success"`
	Attempts   int            `gorm:"not null;default:0" json:"attempts"`
	ErrorCodes datatypes.JSON `gorm:"type:jsonb" json:"error_codes,omitempty"`
	ErrorText  string         `gorm:"type:text" json:"error_text,omitempty"`
	Model      string         `gorm:"type:varchar(100)" json:"model,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}
