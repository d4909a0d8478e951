package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chynybekuuludastan/story_generator/internal/service/llm"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	systemPrompt       = "Sen çocuklar için güvenli hikayeler yazan bir yazarsın. Yanıtı her zaman geçerli JSON olarak ver."
)

// OpenAIProvider implements llm.Provider for OpenAI chat completions
type OpenAIProvider struct {
	model    string
	client   *openai.Client
	moderate bool
	logger   llm.Logger
}

// NewOpenAIProvider creates a new OpenAI provider. An empty baseURL selects the
// public API. With moderate set, every reply is scored by the moderation endpoint.
func NewOpenAIProvider(apiKey, model, baseURL string, moderate bool, logger llm.Logger) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	if model == "" {
		model = defaultOpenAIModel
	}

	if logger == nil {
		logger = &llm.DefaultLogger{}
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAIProvider{
		model:    model,
		client:   openai.NewClientWithConfig(config),
		moderate: moderate,
		logger:   logger,
	}, nil
}

// GetName returns the provider name
func (p *OpenAIProvider) GetName() string {
	return "openai"
}

// Generate implements llm.Provider
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, attempt int) (*llm.GenerationOutput, error) {
	temperature := float32(0.8)
	if attempt > 0 {
		temperature = 0.5
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   2048,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		p.logger.Error("OpenAI API error", "error", err)
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, llm.ErrEmptyResponse
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return nil, errors.New("SAFETY: response removed by content filter")
	}

	output := &llm.GenerationOutput{
		Text:             llm.CleanCodeBlocks(choice.Message.Content),
		Model:            p.model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}

	if p.moderate && output.Text != "" {
		ratings, err := p.moderation(ctx, output.Text)
		if err != nil {
			// ratings are optional; the safety score falls back to its default
			p.logger.Error("OpenAI moderation failed", "error", err)
		}
		output.SafetyRatings = ratings
	}

	return output, nil
}

func (p *OpenAIProvider) moderation(ctx context.Context, text string) ([]llm.SafetyRating, error) {
	resp, err := p.client.Moderations(ctx, openai.ModerationRequest{Input: text})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	result := resp.Results[0]
	scores := []struct {
		category string
		score    float32
	}{
		{"hate", result.CategoryScores.Hate},
		{"harassment", result.CategoryScores.Harassment},
		{"self-harm", result.CategoryScores.SelfHarm},
		{"sexual", result.CategoryScores.Sexual},
		{"sexual/minors", result.CategoryScores.SexualMinors},
		{"violence", result.CategoryScores.Violence},
	}

	ratings := make([]llm.SafetyRating, 0, len(scores))
	for _, s := range scores {
		ratings = append(ratings, llm.SafetyRating{
			Category:    s.category,
			Probability: scoreProbability(s.score),
			Blocked:     result.Flagged && s.score >= 0.5,
		})
	}
	return ratings, nil
}

// scoreProbability buckets a moderation score into a harm probability name
func scoreProbability(score float32) string {
	switch {
	case score < 0.1:
		return "NEGLIGIBLE"
	case score < 0.3:
		return "LOW"
	case score < 0.7:
		return "MEDIUM"
	default:
		return "HIGH"
	}
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.Type == "insufficient_quota" {
			return fmt.Errorf("QUOTA: %w", err)
		}
		if apiErr.Code == "content_filter" {
			return fmt.Errorf("SAFETY: %w", err)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("QUOTA: %w", err)
	}

	return err
}

// Close implements llm.Provider
func (p *OpenAIProvider) Close() error {
	// Nothing to close for HTTP client
	return nil
}
