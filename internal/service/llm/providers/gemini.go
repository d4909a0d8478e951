package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chynybekuuludastan/story_generator/internal/service/llm"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements llm.Provider for Google's Gemini API
type GeminiProvider struct {
	modelName string
	client    *genai.Client
	logger    llm.Logger
}

// NewGeminiProvider creates a new Gemini provider using the official client
func NewGeminiProvider(apiKey string, modelName string, logger llm.Logger) (*GeminiProvider, error) {
	if apiKey == "" || apiKey == "YOUR_GEMINI_API_KEY" {
		return nil, errors.New("a valid Gemini API key is required")
	}

	if modelName == "" {
		modelName = defaultGeminiModel
	}

	if logger == nil {
		logger = &llm.DefaultLogger{}
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		modelName: modelName,
		client:    client,
		logger:    logger,
	}, nil
}

// GetName returns the provider name
func (p *GeminiProvider) GetName() string {
	return "gemini"
}

// childSafeSettings blocks everything from a low harm probability upwards
func childSafeSettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockLowAndAbove})
	}
	return settings
}

// Generate implements llm.Provider. The retry attempt runs with a lower
// temperature to keep the model closer to the requested format.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string, attempt int) (*llm.GenerationOutput, error) {
	model := p.client.GenerativeModel(p.modelName)

	temperature := float32(0.8)
	if attempt > 0 {
		temperature = 0.5
	}
	model.SetTemperature(temperature)
	model.SetTopP(0.95)
	model.SetTopK(40)
	model.SetMaxOutputTokens(2048)
	model.ResponseMIMEType = "application/json"
	model.SafetySettings = childSafeSettings()

	p.logger.Debug("Sending prompt to Gemini", "attempt", attempt, "prompt_length", len(prompt))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		p.logger.Error("Gemini API error", "error", err)
		return nil, classifyGeminiError(err)
	}

	return p.convertResponse(resp)
}

func (p *GeminiProvider) convertResponse(resp *genai.GenerateContentResponse) (*llm.GenerationOutput, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return nil, fmt.Errorf("SAFETY: prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, llm.ErrEmptyResponse
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, errors.New("SAFETY: response blocked by safety filter")
	}

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if textPart, ok := part.(genai.Text); ok {
				text.WriteString(string(textPart))
			}
		}
	}

	output := &llm.GenerationOutput{
		Text:          llm.CleanCodeBlocks(text.String()),
		SafetyRatings: convertRatings(candidate.SafetyRatings),
		Model:         p.modelName,
	}
	if resp.UsageMetadata != nil {
		output.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		output.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return output, nil
}

func convertRatings(ratings []*genai.SafetyRating) []llm.SafetyRating {
	converted := make([]llm.SafetyRating, 0, len(ratings))
	for _, r := range ratings {
		if r == nil {
			continue
		}
		converted = append(converted, llm.SafetyRating{
			Category:    r.Category.String(),
			Probability: probabilityName(r.Probability),
			Blocked:     r.Blocked,
		})
	}
	return converted
}

func probabilityName(p genai.HarmProbability) string {
	switch p {
	case genai.HarmProbabilityNegligible:
		return "NEGLIGIBLE"
	case genai.HarmProbabilityLow:
		return "LOW"
	case genai.HarmProbabilityMedium:
		return "MEDIUM"
	case genai.HarmProbabilityHigh:
		return "HIGH"
	default:
		return "UNSPECIFIED"
	}
}

// classifyGeminiError prefixes blocked and quota errors so callers can tell them apart
func classifyGeminiError(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("SAFETY: %w", err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("QUOTA: %w", err)
	}
	if status.Code(err) == codes.ResourceExhausted {
		return fmt.Errorf("QUOTA: %w", err)
	}

	return err
}

// Close closes the Gemini client
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
