package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
	gormlogger "gorm.io/gorm/logger"

	"github.com/chynybekuuludastan/story_generator/internal/api"
	"github.com/chynybekuuludastan/story_generator/internal/api/handlers"
	ws "github.com/chynybekuuludastan/story_generator/internal/api/websocket"
	"github.com/chynybekuuludastan/story_generator/internal/config"
	"github.com/chynybekuuludastan/story_generator/internal/database"
	"github.com/chynybekuuludastan/story_generator/internal/repository"
	"github.com/chynybekuuludastan/story_generator/internal/repository/cache"
	"github.com/chynybekuuludastan/story_generator/internal/service/llm"
	"github.com/chynybekuuludastan/story_generator/internal/service/llm/feedback"
	"github.com/chynybekuuludastan/story_generator/internal/service/llm/prompts"
	"github.com/chynybekuuludastan/story_generator/internal/service/llm/providers"
	"github.com/chynybekuuludastan/story_generator/internal/service/llm/tokens"
	"github.com/chynybekuuludastan/story_generator/internal/service/llm/validation"
	"github.com/chynybekuuludastan/story_generator/internal/service/safety"
	"github.com/chynybekuuludastan/story_generator/internal/service/story"
)

// @title Story Generator API
// @version 1.0
// @description Personalized Turkish bedtime stories for children with a content safety pipeline

// @contact.name API Support
// @contact.email support@storygenerator.app

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token
func main() {
	envErr := godotenv.Load()

	cfg := config.NewConfig()

	log, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	restoreStdLog := zap.RedirectStdLog(log)
	defer restoreStdLog()

	if envErr != nil {
		log.Warn(".env file not found")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	gormLevel := gormlogger.Warn
	if cfg.LogLevel == "debug" {
		gormLevel = gormlogger.Info
	}
	db, err := database.InitPostgreSQL(cfg.PostgresURI, gormLevel)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	// Connect to Redis
	redisClient, err := database.InitRedis(ctx, cfg.RedisURI)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	llmLogger := llm.NewZapLogger(log.Named("llm"))

	// Safety rules
	var guard *safety.Guard
	if cfg.SafetyRulesFile != "" {
		rules, err := safety.LoadConfig(cfg.SafetyRulesFile)
		if err != nil {
			log.Fatal("Failed to load safety rules", zap.String("file", cfg.SafetyRulesFile), zap.Error(err))
		}
		guard = safety.NewGuard(rules)
	} else {
		guard = safety.NewGuard(safety.DefaultConfig())
	}

	// LLM provider and service
	provider, err := providers.New(providerConfig(cfg), llmLogger)
	if err != nil {
		log.Fatal("Failed to create LLM provider", zap.String("provider", cfg.LLMProvider), zap.Error(err))
	}
	budget := tokens.NewBudgetTracker(redisClient.Client, cfg.LLMDailyBudget)
	llmService := llm.NewService(llm.ServiceOptions{
		DefaultProvider: provider.GetName(),
		RateLimit:       rate.Limit(cfg.LLMRateLimit),
		Budget:          budget,
		Logger:          llmLogger,
	})
	llmService.RegisterProvider(provider)
	defer llmService.Close()

	builder := prompts.NewBuilder(nil)
	if err := builder.Check(); err != nil {
		log.Fatal("Prompt template is invalid", zap.Error(err))
	}

	orchestrator := story.NewOrchestrator(llmService, story.Options{
		Builder: builder,
		Validator: validation.New(validation.Config{
			RepetitionThreshold: cfg.RepetitionThreshold,
			AgeBounds:           validation.AgeBounds{Min: cfg.MinAge, Max: cfg.MaxAge},
			Guard:               guard,
		}),
		Guard:  guard,
		Logger: llmLogger.With("component", "orchestrator"),
	})

	// Repositories and stores
	repos := repository.NewRepositoryFactory(db.DB)
	cacheRepo := cache.NewRepository(redisClient.Client, cfg.CacheTTL)
	feedbackStore := feedback.NewStore(redisClient.Client)

	hub := ws.NewHub()
	go hub.Run(ctx)

	h := api.Handlers{
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"postgres": db,
			"redis":    redisClient,
		}),
		Auth: handlers.NewAuthHandler(repos.UserRepository, cacheRepo, handlers.AuthConfig{
			JWTSecret:     cfg.JWTSecret,
			JWTExpiration: cfg.JWTExpiration,
		}),
		Story: handlers.NewStoryHandler(repos.StoryRepository, cacheRepo, orchestrator, feedbackStore, hub,
			handlers.StoryOptions{
				DailyLimit:        cfg.DailyStoryLimit,
				GenerationTimeout: cfg.GenerationTimeout,
				Logger:            llmLogger.With("component", "stories"),
			}),
		Admin:     handlers.NewAdminHandler(budget, feedbackStore, repos.StoryRepository),
		WebSocket: handlers.NewWebSocketHandler(hub),
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "story-generator",
		ErrorHandler: handlers.ErrorHandler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, PATCH",
	}))

	api.SetupSwagger(app)
	api.SetupRoutes(app, h, api.RouteConfig{
		JWTSecret: cfg.JWTSecret,
		Blacklist: cacheRepo,
	})

	// Start server
	go func() {
		log.Info("Starting server", zap.String("port", cfg.Port), zap.String("provider", provider.GetName()))
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if !cfg.IsProduction() {
		zapCfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func providerConfig(cfg *config.Config) providers.Config {
	if cfg.LLMProvider == "openai" {
		return providers.Config{
			Name:     "openai",
			APIKey:   cfg.OpenAIAPIKey,
			Model:    cfg.OpenAIModel,
			BaseURL:  cfg.OpenAIBaseURL,
			Moderate: cfg.OpenAIModeration,
		}
	}
	return providers.Config{
		Name:   "gemini",
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	}
}
