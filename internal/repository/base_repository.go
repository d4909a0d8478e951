package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a record does not exist or is not visible to the caller
	ErrNotFound = errors.New("record not found")
	// ErrDatabase wraps every other storage failure
	ErrDatabase = errors.New("database error")
)

// Repository defines common repository operations
type Repository interface {
	Create(entity interface{}) error
	FindByID(id interface{}, entity interface{}) error
	Update(entity interface{}) error
	Delete(entity interface{}) error
	Transaction(fn func(tx *gorm.DB) error) error
}

// BaseRepository implements basic repository operations
type BaseRepository struct {
	DB *gorm.DB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *gorm.DB) *BaseRepository {
	return &BaseRepository{DB: db}
}

// Create creates a new entity
func (r *BaseRepository) Create(entity interface{}) error {
	return wrap(r.DB.Create(entity).Error)
}

// FindByID finds an entity by its primary key
func (r *BaseRepository) FindByID(id interface{}, entity interface{}) error {
	return wrap(r.DB.First(entity, "id = ?", id).Error)
}

// Update updates an entity
func (r *BaseRepository) Update(entity interface{}) error {
	return wrap(r.DB.Save(entity).Error)
}

// Delete deletes an entity
func (r *BaseRepository) Delete(entity interface{}) error {
	return wrap(r.DB.Delete(entity).Error)
}

// Transaction runs operations in a transaction
func (r *BaseRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.DB.Transaction(fn)
}

// wrap maps GORM errors onto the package sentinels
func wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDatabase):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrDatabase, err)
	}
}
