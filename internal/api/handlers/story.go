package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/chynybekuuludastan/story_generator/internal/api/middleware"
	ws "github.com/chynybekuuludastan/story_generator/internal/api/websocket"
	"github.com/chynybekuuludastan/story_generator/internal/models"
	"github.com/chynybekuuludastan/story_generator/internal/repository"
	"github.com/chynybekuuludastan/story_generator/internal/service/llm"
	"github.com/chynybekuuludastan/story_generator/internal/service/llm/feedback"
	"github.com/chynybekuuludastan/story_generator/internal/service/story"
)

// QuotaWindow is the rolling window of the per-user story quota
const QuotaWindow = 24 * time.Hour

// StoryGenerator runs the generation pipeline for one request
type StoryGenerator interface {
	Generate(ctx context.Context, request *llm.GenerationRequest) story.Outcome
}

// StoryCache caches stories by owner
type StoryCache interface {
	CacheStory(ctx context.Context, story *models.Story) error
	GetStory(ctx context.Context, userID, storyID uuid.UUID) (*models.Story, error)
	InvalidateStory(ctx context.Context, userID, storyID uuid.UUID) error
}

// FeedbackStore stores story ratings
type FeedbackStore interface {
	Submit(ctx context.Context, entry *feedback.StoryFeedback) error
	Stats(ctx context.Context) (*feedback.Stats, error)
}

// Notifier pushes events to a user's open websocket connections
type Notifier interface {
	SendToUser(userID uuid.UUID, message ws.Message)
}

// StoryOptions configures a StoryHandler
type StoryOptions struct {
	DailyLimit        int
	GenerationTimeout time.Duration
	Logger            llm.Logger
}

// StoryHandler handles story generation and the story library
type StoryHandler struct {
	Stories   repository.StoryRepository
	Cache     StoryCache
	Generator StoryGenerator
	Feedback  FeedbackStore
	Notifier  Notifier
	options   StoryOptions
	now       func() time.Time
}

// NewStoryHandler creates a new story handler
func NewStoryHandler(stories repository.StoryRepository, cache StoryCache, generator StoryGenerator,
	feedbackStore FeedbackStore, notifier Notifier, opts StoryOptions) *StoryHandler {
	if opts.DailyLimit <= 0 {
		opts.DailyLimit = 10
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 45 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = llm.NopLogger{}
	}
	return &StoryHandler{
		Stories:   stories,
		Cache:     cache,
		Generator: generator,
		Feedback:  feedbackStore,
		Notifier:  notifier,
		options:   opts,
		now:       time.Now,
	}
}

// QuotaResponse reports the rolling story quota of a user
type QuotaResponse struct {
	Limit       int `json:"limit" example:"10"`
	Used        int `json:"used" example:"3"`
	Remaining   int `json:"remaining" example:"7"`
	WindowHours int `json:"window_hours" example:"24"`
}

// GenerateStoryResponse is returned for an accepted story
type GenerateStoryResponse struct {
	Story    *models.Story   `json:"story"`
	Metadata *story.Metadata `json:"metadata"`
	Quota    QuotaResponse   `json:"quota"`
}

// GenerationFailure is returned when no story was accepted
type GenerationFailure struct {
	Success  bool                  `json:"success" example:"false"`
	Error    string                `json:"error"`
	Errors   []llm.ValidationError `json:"errors"`
	Attempts int                   `json:"attempts"`
}

// FavoriteRequest toggles the favorite flag
type FavoriteRequest struct {
	Favorite bool `json:"favorite"`
}

// FeedbackRequest rates a story
type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"min=1,max=5" example:"5"`
	Comment string `json:"comment" validate:"max=500"`
}

func (h *StoryHandler) quota(userID uuid.UUID) (QuotaResponse, error) {
	used, err := h.Stories.CountSince(userID, h.now().Add(-QuotaWindow))
	if err != nil {
		return QuotaResponse{}, err
	}
	remaining := h.options.DailyLimit - int(used)
	if remaining < 0 {
		remaining = 0
	}
	return QuotaResponse{
		Limit:       h.options.DailyLimit,
		Used:        int(used),
		Remaining:   remaining,
		WindowHours: int(QuotaWindow.Hours()),
	}, nil
}

func (h *StoryHandler) notify(userID uuid.UUID, eventType string, data interface{}) {
	if h.Notifier == nil {
		return
	}
	h.Notifier.SendToUser(userID, ws.Message{Type: eventType, Data: data})
}

// @Summary Generate a story
// @Description Validates the request, asks the model for a story, checks it and stores it
// @Tags stories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body llm.GenerationRequest true "Personalization"
// @Success 201 {object} SuccessResponse{data=GenerateStoryResponse}
// @Failure 400 {object} GenerationFailure "Invalid or unsafe request"
// @Failure 422 {object} GenerationFailure "No acceptable story was produced"
// @Failure 429 {object} ErrorResponse "Story quota exhausted"
// @Router /stories/generate [post]
func (h *StoryHandler) Generate(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	req := new(llm.GenerationRequest)
	if err := c.BodyParser(req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	req.Token, _ = c.Locals(middleware.LocalToken).(string)

	quota, err := h.quota(userID)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to check story quota")
	}
	if quota.Remaining == 0 {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success": false,
			"error":   "Daily story limit reached, please try again later",
			"quota":   quota,
		})
	}

	h.notify(userID, ws.TypeGenerationStarted, fiber.Map{"theme": req.Theme, "length": req.Length})

	ctx, cancel := context.WithTimeout(c.UserContext(), h.options.GenerationTimeout)
	defer cancel()
	outcome := h.Generator.Generate(ctx, req)

	if !outcome.Success {
		h.logGeneration(userID, nil, outcome)
		h.notify(userID, ws.TypeGenerationFailed, fiber.Map{"error": outcome.Error, "attempts": outcome.Attempts})

		status := fiber.StatusUnprocessableEntity
		if outcome.Attempts == 0 {
			// rejected before the model was called
			status = fiber.StatusBadRequest
		}
		errs := outcome.Errors
		if errs == nil {
			errs = []llm.ValidationError{}
		}
		return c.Status(status).JSON(GenerationFailure{
			Error:    outcome.Error,
			Errors:   errs,
			Attempts: outcome.Attempts,
		})
	}

	record, err := newStoryRecord(userID, req, outcome)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to encode story")
	}
	if err := h.Stories.Create(record); err != nil {
		h.options.Logger.Error("Failed to save story", "error", err, "user_id", userID)
		h.logGeneration(userID, nil, story.Outcome{
			Error:    "story could not be saved: " + err.Error(),
			Attempts: outcome.Attempts,
			Metadata: outcome.Metadata,
		})
		return fail(c, fiber.StatusInternalServerError, "Failed to save story")
	}
	h.logGeneration(userID, &record.ID, outcome)

	if err := h.Cache.CacheStory(c.UserContext(), record); err != nil {
		h.options.Logger.Debug("Failed to cache story", "error", err)
	}
	h.notify(userID, ws.TypeGenerationCompleted, fiber.Map{"story_id": record.ID, "title": record.Title})

	quota.Used++
	if quota.Remaining > 0 {
		quota.Remaining--
	}

	return respond(c, fiber.StatusCreated, GenerateStoryResponse{
		Story:    record,
		Metadata: outcome.Metadata,
		Quota:    quota,
	})
}

func newStoryRecord(userID uuid.UUID, req *llm.GenerationRequest, outcome story.Outcome) (*models.Story, error) {
	elements, err := json.Marshal(req.CustomElements())
	if err != nil {
		return nil, err
	}
	metadata, err := json.Marshal(outcome.Metadata)
	if err != nil {
		return nil, err
	}

	return &models.Story{
		UserID:    userID,
		ChildName: req.ChildName,
		Age:       req.Age,
		Theme:     string(req.Theme),
		Length:    string(req.Length),
		Elements:  datatypes.JSON(elements),
		Title:     outcome.Story.Title,
		Content:   outcome.Story.Content,
		WordCount: outcome.Story.WordCount,
		Language:  outcome.Story.Language,
		Metadata:  datatypes.JSON(metadata),
	}, nil
}

// logGeneration records the request; failures to log never fail the request
func (h *StoryHandler) logGeneration(userID uuid.UUID, storyID *uuid.UUID, outcome story.Outcome) {
	codes, _ := json.Marshal(llm.ErrorCodes(outcome.Errors))
	entry := &models.GenerationLog{
		UserID:     userID,
		StoryID:    storyID,
		Success:    outcome.Success && storyID != nil,
		Attempts:   outcome.Attempts,
		ErrorCodes: datatypes.JSON(codes),
		ErrorText:  outcome.Error,
	}
	if outcome.Metadata != nil {
		entry.Model = outcome.Metadata.Model
	}
	if err := h.Stories.LogGeneration(entry); err != nil {
		h.options.Logger.Error("Failed to log generation", "error", err, "user_id", userID)
	}
}

// @Summary List stories
// @Tags stories
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(10)
// @Param theme query string false "Theme filter"
// @Param favorites query bool false "Only favorites"
// @Success 200 {object} SuccessResponse
// @Router /stories [get]
func (h *StoryHandler) ListStories(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	page, pageSize := pageParams(c)
	filter := repository.StoryFilter{
		Theme:         c.Query("theme"),
		FavoritesOnly: c.QueryBool("favorites", false),
	}

	stories, total, err := h.Stories.ListByUser(userID, filter, page, pageSize)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list stories")
	}
	if stories == nil {
		stories = []*models.Story{}
	}

	return respond(c, fiber.StatusOK, fiber.Map{
		"stories":    stories,
		"pagination": newPagination(page, pageSize, total),
	})
}

// @Summary Get a story
// @Tags stories
// @Produce json
// @Security BearerAuth
// @Param id path string true "Story ID"
// @Success 200 {object} SuccessResponse{data=models.Story}
// @Failure 404 {object} ErrorResponse "Story not found"
// @Router /stories/{id} [get]
func (h *StoryHandler) GetStory(c *fiber.Ctx) error {
	userID, storyID, err := h.ids(c)
	if err != nil {
		return err
	}

	if cached, err := h.Cache.GetStory(c.UserContext(), userID, storyID); err == nil && cached != nil {
		return respond(c, fiber.StatusOK, cached)
	}

	found, err := h.Stories.FindByIDForUser(storyID, userID)
	if err != nil {
		return h.storyError(c, err)
	}
	if err := h.Cache.CacheStory(c.UserContext(), found); err != nil {
		h.options.Logger.Debug("Failed to cache story", "error", err)
	}

	return respond(c, fiber.StatusOK, found)
}

// @Summary Mark a story as favorite
// @Tags stories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Story ID"
// @Param body body FavoriteRequest true "Favorite flag"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse "Story not found"
// @Router /stories/{id}/favorite [patch]
func (h *StoryHandler) SetFavorite(c *fiber.Ctx) error {
	userID, storyID, err := h.ids(c)
	if err != nil {
		return err
	}

	req := new(FavoriteRequest)
	if err := c.BodyParser(req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := h.Stories.SetFavorite(storyID, userID, req.Favorite); err != nil {
		return h.storyError(c, err)
	}
	_ = h.Cache.InvalidateStory(c.UserContext(), userID, storyID)

	return respond(c, fiber.StatusOK, fiber.Map{"id": storyID, "favorite": req.Favorite})
}

// @Summary Delete a story
// @Tags stories
// @Produce json
// @Security BearerAuth
// @Param id path string true "Story ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse "Story not found"
// @Router /stories/{id} [delete]
func (h *StoryHandler) DeleteStory(c *fiber.Ctx) error {
	userID, storyID, err := h.ids(c)
	if err != nil {
		return err
	}

	if err := h.Stories.DeleteForUser(storyID, userID); err != nil {
		return h.storyError(c, err)
	}
	_ = h.Cache.InvalidateStory(c.UserContext(), userID, storyID)

	return respond(c, fiber.StatusOK, fiber.Map{"message": "Story deleted"})
}

// @Summary Rate a story
// @Tags stories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Story ID"
// @Param body body FeedbackRequest true "Rating"
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse "Invalid rating"
// @Failure 404 {object} ErrorResponse "Story not found"
// @Router /stories/{id}/feedback [post]
func (h *StoryHandler) SubmitFeedback(c *fiber.Ctx) error {
	userID, storyID, err := h.ids(c)
	if err != nil {
		return err
	}

	req := new(FeedbackRequest)
	if err := c.BodyParser(req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fail(c, fiber.StatusBadRequest, feedback.ErrInvalidRating.Error())
	}

	found, err := h.Stories.FindByIDForUser(storyID, userID)
	if err != nil {
		return h.storyError(c, err)
	}

	var metadata story.Metadata
	_ = json.Unmarshal(found.Metadata, &metadata)

	entry := &feedback.StoryFeedback{
		StoryID:         storyID.String(),
		UserID:          userID.String(),
		Rating:          req.Rating,
		Comment:         req.Comment,
		Theme:           found.Theme,
		TemplateVersion: metadata.TemplateVersion,
	}
	if err := h.Feedback.Submit(c.UserContext(), entry); err != nil {
		if errors.Is(err, feedback.ErrInvalidRating) {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}
		return fail(c, fiber.StatusInternalServerError, "Failed to store feedback")
	}

	return respond(c, fiber.StatusCreated, entry)
}

// @Summary Story quota
// @Description Stories left in the rolling 24 hour window
// @Tags stories
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse{data=QuotaResponse}
// @Router /stories/quota [get]
func (h *StoryHandler) GetQuota(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	quota, err := h.quota(userID)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to check story quota")
	}
	return respond(c, fiber.StatusOK, quota)
}

// ids reads the authenticated user and the :id parameter
func (h *StoryHandler) ids(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	storyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid story ID")
	}
	return userID, storyID, nil
}

func (h *StoryHandler) storyError(c *fiber.Ctx, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "Story not found")
	}
	h.options.Logger.Error("Story repository error", "error", err)
	return fail(c, fiber.StatusInternalServerError, "Database error")
}
