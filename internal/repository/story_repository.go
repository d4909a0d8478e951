package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chynybekuuludastan/story_generator/internal/models"
)

// StoryFilter narrows a story listing
type StoryFilter struct {
	Theme         string
	FavoritesOnly bool
}

// GenerationSummary aggregates generation logs over a period
type GenerationSummary struct {
	Total     int64   `json:"total"`
	Succeeded int64   `json:"succeeded"`
	Failed    int64   `json:"failed"`
	Attempts  float64 `json:"average_attempts"`
}

// StoryRepository defines operations for Story and GenerationLog models
type StoryRepository interface {
	Repository
	FindByIDForUser(storyID, userID uuid.UUID) (*models.Story, error)
	ListByUser(userID uuid.UUID, filter StoryFilter, page, pageSize int) ([]*models.Story, int64, error)
	CountSince(userID uuid.UUID, since time.Time) (int64, error)
	SetFavorite(storyID, userID uuid.UUID, favorite bool) error
	DeleteForUser(storyID, userID uuid.UUID) error
	LogGeneration(entry *models.GenerationLog) error
	SummarizeGenerations(since time.Time) (*GenerationSummary, error)
}

// storyRepository implements StoryRepository
type storyRepository struct {
	*BaseRepository
}

// NewStoryRepository creates a new story repository
func NewStoryRepository(db *gorm.DB) StoryRepository {
	return &storyRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// FindByIDForUser finds a story owned by the user
func (r *storyRepository) FindByIDForUser(storyID, userID uuid.UUID) (*models.Story, error) {
	var story models.Story
	err := r.DB.Where("id = ? AND user_id = ?", storyID, userID).First(&story).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &story, nil
}

// ListByUser lists a user's stories, newest first, with pagination
func (r *storyRepository) ListByUser(userID uuid.UUID, filter StoryFilter, page, pageSize int) ([]*models.Story, int64, error) {
	var stories []*models.Story
	var count int64

	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", userID)
		if filter.Theme != "" {
			db = db.Where("theme = ?", filter.Theme)
		}
		if filter.FavoritesOnly {
			db = db.Where("favorite = ?", true)
		}
		return db
	}

	if err := r.DB.Model(&models.Story{}).Scopes(scope).Count(&count).Error; err != nil {
		return nil, 0, wrap(err)
	}

	// Calculate offset
	offset := (page - 1) * pageSize

	if err := r.DB.Scopes(scope).
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&stories).Error; err != nil {
		return nil, 0, wrap(err)
	}

	return stories, count, nil
}

// CountSince counts the stories a user created after the given time
func (r *storyRepository) CountSince(userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.DB.Model(&models.Story{}).
		Where("user_id = ? AND created_at > ?", userID, since).
		Count(&count).Error
	return count, wrap(err)
}

// SetFavorite marks or unmarks a story as favorite
func (r *storyRepository) SetFavorite(storyID, userID uuid.UUID, favorite bool) error {
	result := r.DB.Model(&models.Story{}).
		Where("id = ? AND user_id = ?", storyID, userID).
		Update("favorite", favorite)
	if result.Error != nil {
		return wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteForUser soft deletes a story owned by the user
func (r *storyRepository) DeleteForUser(storyID, userID uuid.UUID) error {
	result := r.DB.Where("id = ? AND user_id = ?", storyID, userID).Delete(&models.Story{})
	if result.Error != nil {
		return wrap(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LogGeneration records one generation request
func (r *storyRepository) LogGeneration(entry *models.GenerationLog) error {
	return wrap(r.DB.Create(entry).Error)
}

// SummarizeGenerations aggregates the generation logs created after since
func (r *storyRepository) SummarizeGenerations(since time.Time) (*GenerationSummary, error) {
	var row struct {
		Total     int64
		Succeeded int64
		Attempts  float64
	}
	err := r.DB.Model(&models.GenerationLog{}).
		Select("COUNT(*) AS total, "+
			"COUNT(*) FILTER (WHERE success) AS succeeded, "+
			"COALESCE(AVG(attempts), 0) AS attempts").
		Where("created_at > ?", since).
		Scan(&row).Error
	if err != nil {
		return nil, wrap(err)
	}

	return &GenerationSummary{
		Total:     row.Total,
		Succeeded: row.Succeeded,
		Failed:    row.Total - row.Succeeded,
		Attempts:  row.Attempts,
	}, nil
}
