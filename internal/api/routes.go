package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/chynybekuuludastan/story_generator/internal/api/handlers"
	"github.com/chynybekuuludastan/story_generator/internal/api/middleware"
)

// Handlers groups every route handler
type Handlers struct {
	Health    *handlers.HealthHandler
	Auth      *handlers.AuthHandler
	Story     *handlers.StoryHandler
	Admin     *handlers.AdminHandler
	WebSocket *handlers.WebSocketHandler
}

// RouteConfig holds the settings the routes need
type RouteConfig struct {
	JWTSecret string
	Blacklist middleware.TokenBlacklist
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, h Handlers, cfg RouteConfig) {
	requireAuth := middleware.JWTMiddleware(cfg.JWTSecret, cfg.Blacklist)

	// API group
	api := app.Group("/api")

	// Health check route
	api.Get("/health", h.Health.Check)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", requireAuth, h.Auth.RefreshToken)
	auth.Post("/logout", requireAuth, h.Auth.Logout)
	auth.Get("/me", requireAuth, h.Auth.GetMe)
	auth.Put("/password", requireAuth, h.Auth.ChangePassword)

	// Story routes
	stories := api.Group("/stories", requireAuth)
	stories.Post("/generate", h.Story.Generate)
	stories.Get("/quota", h.Story.GetQuota)
	stories.Get("/", h.Story.ListStories)
	stories.Get("/:id", h.Story.GetStory)
	stories.Patch("/:id/favorite", h.Story.SetFavorite)
	stories.Delete("/:id", h.Story.DeleteStory)
	stories.Post("/:id/feedback", h.Story.SubmitFeedback)

	// Admin routes
	admin := api.Group("/admin", requireAuth, middleware.AdminOnly())
	admin.Get("/usage", h.Admin.GetUsage)

	// WebSocket endpoint for generation status updates
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.SendStatus(fiber.StatusUpgradeRequired)
		}
		// browsers cannot set headers on a websocket handshake
		if c.Get("Authorization") == "" && c.Query("token") != "" {
			c.Request().Header.Set("Authorization", "Bearer "+c.Query("token"))
		}
		return c.Next()
	})

	app.Get("/ws/stories", requireAuth, websocket.New(h.WebSocket.HandleStoryWebSocket))
}
