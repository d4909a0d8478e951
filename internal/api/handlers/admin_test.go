package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chynybekuuludastan/story_generator/internal/models"
	"github.com/chynybekuuludastan/story_generator/internal/repository"
	"github.com/chynybekuuludastan/story_generator/internal/service/llm/feedback"
)

type fakeUsage struct {
	spent, remaining float64
}

func (u fakeUsage) DailyUsage(context.Context) float64         { return u.spent }
func (u fakeUsage) GetRemainingBudget(context.Context) float64 { return u.remaining }

func TestGetUsage(t *testing.T) {
	stories := newFakeStoryRepo()
	stories.summary = &repository.GenerationSummary{Total: 4, Succeeded: 3, Failed: 1, Attempts: 1.5}
	stats := feedback.Summarize([]*feedback.StoryFeedback{{Rating: 5, Theme: "space"}, {Rating: 3, Theme: "space"}})

	h := NewAdminHandler(fakeUsage{spent: 1.25, remaining: 3.75}, &fakeFeedback{stats: stats}, stories)
	app := newTestApp(uuid.New(), models.RoleAdmin, func(app *fiber.App) {
		app.Get("/admin/usage", h.GetUsage)
	})

	status, body := doJSON(t, app, http.MethodGet, "/admin/usage", nil)

	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, 1.25, data["daily_cost_usd"])
	assert.Equal(t, 3.75, data["remaining_budget_usd"])
	assert.Equal(t, float64(3), data["generations_24h"].(map[string]interface{})["succeeded"])
	assert.Equal(t, float64(4), data["feedback"].(map[string]interface{})["average_rating"])
}
