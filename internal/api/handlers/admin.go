package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/chynybekuuludastan/story_generator/internal/repository"
	"github.com/chynybekuuludastan/story_generator/internal/service/llm/feedback"
)

// UsageReporter reports the token spend of the current day
type UsageReporter interface {
	DailyUsage(ctx context.Context) float64
	GetRemainingBudget(ctx context.Context) float64
}

// FeedbackStats aggregates story ratings
type FeedbackStats interface {
	Stats(ctx context.Context) (*feedback.Stats, error)
}

// GenerationStats aggregates generation logs
type GenerationStats interface {
	SummarizeGenerations(since time.Time) (*repository.GenerationSummary, error)
}

// AdminHandler serves usage statistics to administrators
type AdminHandler struct {
	Usage       UsageReporter
	Feedback    FeedbackStats
	Generations GenerationStats
	now         func() time.Time
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(usage UsageReporter, feedbackStats FeedbackStats, generations GenerationStats) *AdminHandler {
	return &AdminHandler{
		Usage:       usage,
		Feedback:    feedbackStats,
		Generations: generations,
		now:         time.Now,
	}
}

// UsageResponse summarizes spend, generations and ratings
type UsageResponse struct {
	DailyCost       float64                       `json:"daily_cost_usd"`
	RemainingBudget float64                       `json:"remaining_budget_usd"`
	Generations     *repository.GenerationSummary `json:"generations_24h"`
	Feedback        *feedback.Stats               `json:"feedback"`
}

// @Summary Usage statistics
// @Description Token spend, generation outcomes of the last 24 hours and feedback statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse{data=UsageResponse}
// @Failure 403 {object} ErrorResponse "Admin only"
// @Router /admin/usage [get]
func (h *AdminHandler) GetUsage(c *fiber.Ctx) error {
	ctx := c.UserContext()

	generations, err := h.Generations.SummarizeGenerations(h.now().Add(-24 * time.Hour))
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to summarize generations")
	}

	stats, err := h.Feedback.Stats(ctx)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to load feedback statistics")
	}

	return respond(c, fiber.StatusOK, UsageResponse{
		DailyCost:       h.Usage.DailyUsage(ctx),
		RemainingBudget: h.Usage.GetRemainingBudget(ctx),
		Generations:     generations,
		Feedback:        stats,
	})
}
