package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrInvalidRating is returned for ratings outside 1-5
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// maxEntries bounds the list used for statistics
const maxEntries = 5000

// StoryFeedback is a parent's rating of a generated story
type StoryFeedback struct {
	StoryID         string    `json:"story_id"`
	UserID          string    `json:"user_id"`
	Rating          int       `json:"rating"` // 1-5 rating
	Comment         string    `json:"comment,omitempty"`
	Theme           string    `json:"theme"`
	TemplateVersion string    `json:"template_version"`
	CreatedAt       time.Time `json:"created_at"`
}

// Stats summarizes collected feedback
type Stats struct {
	Total         int                `json:"total"`
	AverageRating float64            `json:"average_rating"`
	Ratings       map[int]int        `json:"ratings"`
	ByTheme       map[string]float64 `json:"average_by_theme"`
	ByTemplate    map[string]float64 `json:"average_by_template"`
}

// Store manages storage and retrieval of story feedback
type Store struct {
	redisClient *redis.Client
	keyPrefix   string
}

// NewStore creates a new feedback store
func NewStore(client *redis.Client) *Store {
	return &Store{
		redisClient: client,
		keyPrefix:   "story_feedback:",
	}
}

// Validate checks a feedback entry before it is stored
func Validate(feedback *StoryFeedback) error {
	if feedback.Rating < 1 || feedback.Rating > 5 {
		return ErrInvalidRating
	}
	if feedback.StoryID == "" || feedback.UserID == "" {
		return errors.New("story and user are required")
	}
	return nil
}

// Submit saves a rating. A parent rating the same story again replaces the
// previous rating of that story.
func (s *Store) Submit(ctx context.Context, feedback *StoryFeedback) error {
	if err := Validate(feedback); err != nil {
		return err
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now()
	}

	data, err := json.Marshal(feedback)
	if err != nil {
		return err
	}

	storyKey := s.keyPrefix + feedback.StoryID
	allKey := s.keyPrefix + "all"

	_, err = s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, storyKey, feedback.UserID, data)
		pipe.Expire(ctx, storyKey, 90*24*time.Hour)
		pipe.LPush(ctx, allKey, data)
		pipe.LTrim(ctx, allKey, 0, maxEntries-1)
		return nil
	})
	return err
}

// ForStory returns the ratings of one story
func (s *Store) ForStory(ctx context.Context, storyID string) ([]*StoryFeedback, error) {
	values, err := s.redisClient.HGetAll(ctx, s.keyPrefix+storyID).Result()
	if err != nil {
		return nil, err
	}

	feedbacks := make([]*StoryFeedback, 0, len(values))
	for _, data := range values {
		var feedback StoryFeedback
		if err := json.Unmarshal([]byte(data), &feedback); err != nil {
			continue
		}
		feedbacks = append(feedbacks, &feedback)
	}
	return feedbacks, nil
}

// Stats aggregates the most recent feedback entries
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	values, err := s.redisClient.LRange(ctx, s.keyPrefix+"all", 0, maxEntries-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]*StoryFeedback, 0, len(values))
	for _, data := range values {
		var feedback StoryFeedback
		if err := json.Unmarshal([]byte(data), &feedback); err != nil {
			continue
		}
		entries = append(entries, &feedback)
	}
	return Summarize(entries), nil
}

// Summarize computes statistics for a set of entries
func Summarize(entries []*StoryFeedback) *Stats {
	stats := &Stats{
		Ratings:    map[int]int{},
		ByTheme:    map[string]float64{},
		ByTemplate: map[string]float64{},
	}

	type sum struct{ total, count int }
	themes := map[string]*sum{}
	templates := map[string]*sum{}
	add := func(m map[string]*sum, key string, rating int) {
		if key == "" {
			return
		}
		if m[key] == nil {
			m[key] = &sum{}
		}
		m[key].total += rating
		m[key].count++
	}

	var total int
	for _, e := range entries {
		stats.Total++
		stats.Ratings[e.Rating]++
		total += e.Rating
		add(themes, e.Theme, e.Rating)
		add(templates, e.TemplateVersion, e.Rating)
	}

	if stats.Total > 0 {
		stats.AverageRating = float64(total) / float64(stats.Total)
	}
	for k, v := range themes {
		stats.ByTheme[k] = float64(v.total) / float64(v.count)
	}
	for k, v := range templates {
		stats.ByTemplate[k] = float64(v.total) / float64(v.count)
	}

	return stats
}
