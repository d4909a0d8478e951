package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-redis/redis/v8"
)

// Models maps model names to pricing information
var Models = map[string]ModelInfo{
	"gemini-1.5-flash": {
		TokensPerPromptDollar: 1000.0 / 0.000075, // $0.075 per 1M input tokens
		TokensPerOutputDollar: 1000.0 / 0.0003,   // $0.30 per 1M output tokens
		MaxContextTokens:      1000000,
		Name:                  "gemini-1.5-flash",
		Provider:              "gemini",
	},
	"gemini-2.0-flash": {
		TokensPerPromptDollar: 1000.0 / 0.0001, // $0.10 per 1M input tokens
		TokensPerOutputDollar: 1000.0 / 0.0004, // $0.40 per 1M output tokens
		MaxContextTokens:      1000000,
		Name:                  "gemini-2.0-flash",
		Provider:              "gemini",
	},
	"gpt-4o-mini": {
		TokensPerPromptDollar: 1000.0 / 0.00015, // $0.15 per 1M prompt tokens
		TokensPerOutputDollar: 1000.0 / 0.0006,  // $0.60 per 1M completion tokens
		MaxContextTokens:      128000,
		Name:                  "gpt-4o-mini",
		Provider:              "openai",
	},
}

const fallbackModel = "gemini-2.0-flash"

// ModelInfo contains pricing information for a model
type ModelInfo struct {
	TokensPerPromptDollar float64 // Tokens per dollar for input
	TokensPerOutputDollar float64 // Tokens per dollar for output
	MaxContextTokens      int     // Maximum context length
	Name                  string  // Model name
	Provider              string  // Provider name
}

// UsageEntry represents a token usage entry
type UsageEntry struct {
	Timestamp        time.Time `json:"timestamp"`
	Model            string    `json:"model"`
	Provider         string    `json:"provider"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	PromptCost       float64   `json:"prompt_cost"`
	CompletionCost   float64   `json:"completion_cost"`
	TotalCost        float64   `json:"total_cost"`
	ContentType      string    `json:"content_type"`
}

// BudgetTracker tracks token usage and costs per day. Without a Redis client
// the usage is kept in memory only.
type BudgetTracker struct {
	redisClient *redis.Client
	keyPrefix   string
	dailyBudget float64
	currentDay  string
	dailyUsage  float64
	mu          sync.RWMutex
	now         func() time.Time
}

// NewBudgetTracker creates a new budget tracker
func NewBudgetTracker(client *redis.Client, dailyBudget float64) *BudgetTracker {
	return &BudgetTracker{
		redisClient: client,
		keyPrefix:   "llm_tokens:",
		dailyBudget: dailyBudget,
		currentDay:  time.Now().Format("2006-01-02"),
		now:         time.Now,
	}
}

// TokensToCost converts tokens to cost for a given model
func TokensToCost(model string, promptTokens, completionTokens int) (float64, float64, float64) {
	modelInfo, ok := Models[model]
	if !ok {
		modelInfo = Models[fallbackModel]
	}

	promptCost := float64(promptTokens) / modelInfo.TokensPerPromptDollar
	completionCost := float64(completionTokens) / modelInfo.TokensPerOutputDollar
	totalCost := promptCost + completionCost

	return promptCost, completionCost, totalCost
}

// RecordUsage records token usage
func (t *BudgetTracker) RecordUsage(ctx context.Context, entry UsageEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = t.now()
	}
	if entry.TotalCost == 0 {
		entry.PromptCost, entry.CompletionCost, entry.TotalCost =
			TokensToCost(entry.Model, entry.PromptTokens, entry.CompletionTokens)
	}

	day := entry.Timestamp.Format("2006-01-02")

	t.mu.Lock()
	if day != t.currentDay {
		t.currentDay = day
		t.dailyUsage = 0
	}
	t.dailyUsage += entry.TotalCost
	t.mu.Unlock()

	if t.redisClient == nil {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	pipe := t.redisClient.TxPipeline()
	pipe.IncrByFloat(ctx, t.costKey(day), entry.TotalCost)
	pipe.Expire(ctx, t.costKey(day), 48*time.Hour)
	pipe.RPush(ctx, t.entriesKey(day), data)
	pipe.Expire(ctx, t.entriesKey(day), 7*24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store token usage: %w", err)
	}

	return nil
}

// IsBudgetExceeded checks if daily budget is exceeded. A zero budget disables the check.
func (t *BudgetTracker) IsBudgetExceeded(ctx context.Context) bool {
	if t.dailyBudget <= 0 {
		return false
	}
	return t.DailyUsage(ctx) >= t.dailyBudget
}

// GetRemainingBudget returns the remaining daily budget
func (t *BudgetTracker) GetRemainingBudget(ctx context.Context) float64 {
	usage := t.DailyUsage(ctx)
	if usage >= t.dailyBudget {
		return 0
	}
	return t.dailyBudget - usage
}

// DailyUsage returns today's spend, preferring the shared Redis counter
func (t *BudgetTracker) DailyUsage(ctx context.Context) float64 {
	t.refreshDailyUsage(ctx)

	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dailyUsage
}

// refreshDailyUsage reloads today's usage from Redis so several instances share one budget
func (t *BudgetTracker) refreshDailyUsage(ctx context.Context) {
	day := t.now().Format("2006-01-02")

	t.mu.Lock()
	defer t.mu.Unlock()

	if day != t.currentDay {
		t.currentDay = day
		t.dailyUsage = 0
	}
	if t.redisClient == nil {
		return
	}

	usage, err := t.redisClient.Get(ctx, t.costKey(day)).Float64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return
		}
		usage = 0
	}
	t.dailyUsage = usage
}

func (t *BudgetTracker) costKey(day string) string {
	return t.keyPrefix + "cost:" + day
}

func (t *BudgetTracker) entriesKey(day string) string {
	return t.keyPrefix + "entries:" + day
}

// EstimateTokens estimates the number of tokens in a string
// This is a very rough approximation; different models tokenize differently
func EstimateTokens(text string) int {
	// Roughly 4 characters per token
	return utf8.RuneCountInString(text) / 4
}

// CalculateContextSize calculates estimated token size for request/response
func CalculateContextSize(prompt, completion string) (int, int) {
	return EstimateTokens(prompt), EstimateTokens(completion)
}
