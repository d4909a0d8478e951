package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/chynybekuuludastan/story_generator/internal/service/llm/tokens"
)

// Logger interface for service logging
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Common errors
var (
	ErrAPIRequestFailed  = errors.New("LLM API request failed")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrBudgetExceeded    = errors.New("daily token budget exceeded")
	ErrInvalidProvider   = errors.New("invalid LLM provider specified")
	ErrEmptyResponse     = errors.New("empty response from LLM provider")
)

// DefaultLogger provides a basic implementation of the Logger interface
type DefaultLogger struct{}

func (l *DefaultLogger) Debug(msg string, keysAndValues ...interface{}) {
	log.Printf("[DEBUG] %s %v", msg, keysAndValues)
}

func (l *DefaultLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Printf("[INFO] %s %v", msg, keysAndValues)
}

func (l *DefaultLogger) Error(msg string, keysAndValues ...interface{}) {
	log.Printf("[ERROR] %s %v", msg, keysAndValues)
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}

// Provider interface for LLM providers
type Provider interface {
	// Generate sends a prompt to the model and returns its raw reply
	Generate(ctx context.Context, prompt string, attempt int) (*GenerationOutput, error)

	// GetName returns the name of the provider
	GetName() string

	// Close performs any necessary cleanup
	Close() error
}

// BudgetTracker is the subset of tokens.BudgetTracker used by the service
type BudgetTracker interface {
	IsBudgetExceeded(ctx context.Context) bool
	RecordUsage(ctx context.Context, entry tokens.UsageEntry) error
}

// Service routes generation calls to a registered provider with rate limiting
// and token budget accounting
type Service struct {
	providers       map[string]Provider
	defaultProvider string
	limiter         *rate.Limiter
	budget          BudgetTracker
	mutex           sync.RWMutex
	logger          Logger
}

// ServiceOptions contains configuration for the LLM service
type ServiceOptions struct {
	DefaultProvider string
	RateLimit       rate.Limit
	RateBurst       int
	Budget          BudgetTracker
	Logger          Logger
}

// NewService creates a new LLM service with the specified options
func NewService(opts ServiceOptions) *Service {
	if opts.RateLimit == 0 {
		opts.RateLimit = rate.Limit(2) // 2 requests per second by default
	}
	if opts.RateBurst == 0 {
		opts.RateBurst = 1
	}
	if opts.Logger == nil {
		opts.Logger = &DefaultLogger{}
	}

	return &Service{
		providers:       make(map[string]Provider),
		defaultProvider: opts.DefaultProvider,
		limiter:         rate.NewLimiter(opts.RateLimit, opts.RateBurst),
		budget:          opts.Budget,
		logger:          opts.Logger,
	}
}

// RegisterProvider registers an LLM provider with the service
func (s *Service) RegisterProvider(provider Provider) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	providerName := provider.GetName()
	s.providers[providerName] = provider

	if s.defaultProvider == "" {
		s.defaultProvider = providerName
	}

	s.logger.Info("Registered LLM provider", "provider", providerName)
}

// GetProvider returns a provider by name, using the default if name is empty
func (s *Service) GetProvider(name string) (Provider, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if name == "" {
		name = s.defaultProvider
	}

	provider, exists := s.providers[name]
	if !exists {
		return nil, ErrInvalidProvider
	}

	return provider, nil
}

// Generate sends a prompt to the default provider. It performs no retries;
// retrying is decided by the caller from the validation outcome.
func (s *Service) Generate(ctx context.Context, prompt string, attempt int) (*GenerationOutput, error) {
	startTime := time.Now()

	if s.budget != nil && s.budget.IsBudgetExceeded(ctx) {
		s.logger.Error("Daily token budget exceeded, refusing generation")
		return nil, fmt.Errorf("QUOTA: %w", ErrBudgetExceeded)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		s.logger.Error("Rate limit exceeded", "error", err)
		return nil, ErrRateLimitExceeded
	}

	provider, err := s.GetProvider("")
	if err != nil {
		return nil, err
	}

	output, err := provider.Generate(ctx, prompt, attempt)
	if err != nil {
		s.logger.Error("LLM API request failed",
			"error", err,
			"provider", provider.GetName(),
			"attempt", attempt)
		return nil, fmt.Errorf("%w: %w", ErrAPIRequestFailed, err)
	}
	if strings.TrimSpace(output.Text) == "" {
		return nil, ErrEmptyResponse
	}
	output.Provider = provider.GetName()

	if s.budget != nil {
		promptTokens, completionTokens := output.PromptTokens, output.CompletionTokens
		if promptTokens == 0 && completionTokens == 0 {
			promptTokens, completionTokens = tokens.CalculateContextSize(prompt, output.Text)
		}
		entry := tokens.UsageEntry{
			Timestamp:        time.Now(),
			Model:            output.Model,
			Provider:         output.Provider,
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			ContentType:      "story",
		}
		if err := s.budget.RecordUsage(ctx, entry); err != nil {
			s.logger.Error("Failed to record token usage", "error", err)
		}
	}

	s.logger.Info("Generated story text",
		"provider", output.Provider,
		"model", output.Model,
		"attempt", attempt,
		"time", time.Since(startTime))

	return output, nil
}

// Close closes every registered provider
func (s *Service) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var errs []error
	for _, p := range s.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var codeBlocksRegex = regexp.MustCompile("(?s)```(?:json)?(.+?)```")

// CleanCodeBlocks removes markdown code fences around a model reply
func CleanCodeBlocks(text string) string {
	if matches := codeBlocksRegex.FindStringSubmatch(text); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return strings.TrimSpace(text)
}
