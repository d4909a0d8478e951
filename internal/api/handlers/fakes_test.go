package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chynybekuuludastan/story_generator/internal/api/middleware"
	ws "github.com/chynybekuuludastan/story_generator/internal/api/websocket"
	"github.com/chynybekuuludastan/story_generator/internal/models"
	"github.com/chynybekuuludastan/story_generator/internal/repository"
	"github.com/chynybekuuludastan/story_generator/internal/service/llm"
	"github.com/chynybekuuludastan/story_generator/internal/service/llm/feedback"
	"github.com/chynybekuuludastan/story_generator/internal/service/story"
)

// newTestApp mounts a handler behind a middleware that authenticates userID
func newTestApp(userID uuid.UUID, role string, register func(app *fiber.App)) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		if userID != uuid.Nil {
			c.Locals(middleware.LocalUserID, userID)
			c.Locals(middleware.LocalRole, role)
			c.Locals(middleware.LocalToken, "test-token")
			c.Locals(middleware.LocalTokenExpiry, time.Now().Add(time.Hour))
		}
		return c.Next()
	})
	register(app)
	return app
}

type fakeUserRepo struct {
	users   map[uuid.UUID]*models.User
	roles   map[string]*models.Role
	updated map[uuid.UUID]string
	err     error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users: map[uuid.UUID]*models.User{},
		roles: map[string]*models.Role{
			models.RoleAdmin:  {ID: 1, Name: models.RoleAdmin},
			models.RoleParent: {ID: 2, Name: models.RoleParent},
		},
		updated: map[uuid.UUID]string{},
	}
}

func (r *fakeUserRepo) add(user *models.User) *models.User {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	for _, role := range r.roles {
		if role.ID == user.RoleID {
			user.Role = *role
		}
	}
	r.users[user.ID] = user
	return user
}

func (r *fakeUserRepo) Create(entity interface{}) error {
	if r.err != nil {
		return r.err
	}
	r.add(entity.(*models.User))
	return nil
}

func (r *fakeUserRepo) FindByID(id interface{}, entity interface{}) error {
	user, ok := r.users[id.(uuid.UUID)]
	if !ok {
		return repository.ErrNotFound
	}
	*entity.(*models.User) = *user
	return nil
}

func (r *fakeUserRepo) Update(interface{}) error                  { return nil }
func (r *fakeUserRepo) Delete(interface{}) error                  { return nil }
func (r *fakeUserRepo) Transaction(func(tx *gorm.DB) error) error { return nil }

func (r *fakeUserRepo) FindByEmail(email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) FindByUsername(username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) FindWithRole(userID uuid.UUID) (*models.User, error) {
	if u, ok := r.users[userID]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) FindRoleByName(name string) (*models.Role, error) {
	if role, ok := r.roles[name]; ok {
		return role, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) UpdatePassword(userID uuid.UUID, passwordHash string) error {
	r.updated[userID] = passwordHash
	if u, ok := r.users[userID]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (r *fakeUserRepo) ExistsByEmail(email string) (bool, error) {
	_, err := r.FindByEmail(email)
	return err == nil, r.err
}

func (r *fakeUserRepo) ExistsByUsername(username string) (bool, error) {
	_, err := r.FindByUsername(username)
	return err == nil, r.err
}

type fakeStoryRepo struct {
	stories   map[uuid.UUID]*models.Story
	logs      []*models.GenerationLog
	recent    int64
	createErr error
	summary   *repository.GenerationSummary
}

func newFakeStoryRepo() *fakeStoryRepo {
	return &fakeStoryRepo{stories: map[uuid.UUID]*models.Story{}}
}

func (r *fakeStoryRepo) Create(entity interface{}) error {
	if r.createErr != nil {
		return r.createErr
	}
	s := entity.(*models.Story)
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	r.stories[s.ID] = s
	return nil
}

func (r *fakeStoryRepo) FindByID(id interface{}, entity interface{}) error {
	s, ok := r.stories[id.(uuid.UUID)]
	if !ok {
		return repository.ErrNotFound
	}
	*entity.(*models.Story) = *s
	return nil
}

func (r *fakeStoryRepo) Update(interface{}) error                  { return nil }
func (r *fakeStoryRepo) Delete(interface{}) error                  { return nil }
func (r *fakeStoryRepo) Transaction(func(tx *gorm.DB) error) error { return nil }

func (r *fakeStoryRepo) FindByIDForUser(storyID, userID uuid.UUID) (*models.Story, error) {
	s, ok := r.stories[storyID]
	if !ok || s.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (r *fakeStoryRepo) ListByUser(userID uuid.UUID, filter repository.StoryFilter, page, pageSize int) ([]*models.Story, int64, error) {
	var out []*models.Story
	for _, s := range r.stories {
		if s.UserID != userID || (filter.FavoritesOnly && !s.Favorite) ||
			(filter.Theme != "" && s.Theme != filter.Theme) {
			continue
		}
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (r *fakeStoryRepo) CountSince(uuid.UUID, time.Time) (int64, error) {
	return r.recent, nil
}

func (r *fakeStoryRepo) SetFavorite(storyID, userID uuid.UUID, favorite bool) error {
	s, err := r.FindByIDForUser(storyID, userID)
	if err != nil {
		return err
	}
	s.Favorite = favorite
	return nil
}

func (r *fakeStoryRepo) DeleteForUser(storyID, userID uuid.UUID) error {
	if _, err := r.FindByIDForUser(storyID, userID); err != nil {
		return err
	}
	delete(r.stories, storyID)
	return nil
}

func (r *fakeStoryRepo) LogGeneration(entry *models.GenerationLog) error {
	r.logs = append(r.logs, entry)
	return nil
}

func (r *fakeStoryRepo) SummarizeGenerations(time.Time) (*repository.GenerationSummary, error) {
	return r.summary, nil
}

type fakeCache struct {
	stories     map[uuid.UUID]*models.Story
	invalidated []uuid.UUID
}

func newFakeCache() *fakeCache {
	return &fakeCache{stories: map[uuid.UUID]*models.Story{}}
}

func (c *fakeCache) CacheStory(_ context.Context, s *models.Story) error {
	c.stories[s.ID] = s
	return nil
}

func (c *fakeCache) GetStory(_ context.Context, userID, storyID uuid.UUID) (*models.Story, error) {
	if s, ok := c.stories[storyID]; ok && s.UserID == userID {
		return s, nil
	}
	return nil, nil
}

func (c *fakeCache) InvalidateStory(_ context.Context, _, storyID uuid.UUID) error {
	delete(c.stories, storyID)
	c.invalidated = append(c.invalidated, storyID)
	return nil
}

type fakeGenerator struct {
	outcome  story.Outcome
	requests []*llm.GenerationRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req *llm.GenerationRequest) story.Outcome {
	g.requests = append(g.requests, req)
	return g.outcome
}

type fakeFeedback struct {
	entries []*feedback.StoryFeedback
	stats   *feedback.Stats
}

func (f *fakeFeedback) Submit(_ context.Context, entry *feedback.StoryFeedback) error {
	if err := feedback.Validate(entry); err != nil {
		return err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeFeedback) Stats(context.Context) (*feedback.Stats, error) {
	return f.stats, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) SendToUser(_ uuid.UUID, msg ws.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, msg.Type)
}

type fakeRevoker struct {
	revoked map[string]time.Duration
}

func (r *fakeRevoker) BlacklistToken(_ context.Context, token string, ttl time.Duration) error {
	r.revoked[token] = ttl
	return nil
}
