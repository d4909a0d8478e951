// Package story runs the generate, validate and retry loop for a single request.
package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chynybekuuludastan/story_generator/internal/service/llm"
	"github.com/chynybekuuludastan/story_generator/internal/service/llm/prompts"
	"github.com/chynybekuuludastan/story_generator/internal/service/llm/validation"
	"github.com/chynybekuuludastan/story_generator/internal/service/safety"
)

// MaxAttempts is the number of generation calls made for one request
const MaxAttempts = 2

// Generator produces raw model text for a prompt; llm.Service implements it
type Generator interface {
	Generate(ctx context.Context, prompt string, attempt int) (*llm.GenerationOutput, error)
}

// Metadata describes how an accepted story was produced
type Metadata struct {
	Model            string    `json:"model"`
	Provider         string    `json:"provider,omitempty"`
	SafetyScore      float64   `json:"safety_score"`
	TemplateVersion  string    `json:"template_version"`
	Attempts         int       `json:"attempts"`
	PromptTokens     int       `json:"prompt_tokens,omitempty"`
	CompletionTokens int       `json:"completion_tokens,omitempty"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Outcome is the result of Orchestrator.Generate. Story and Metadata are set
// only on success.
type Outcome struct {
	Success  bool                  `json:"success"`
	Story    *llm.GenerationResult `json:"story,omitempty"`
	Metadata *Metadata             `json:"metadata,omitempty"`
	Error    string                `json:"error,omitempty"`
	Errors   []llm.ValidationError `json:"errors,omitempty"`
	Attempts int                   `json:"attempts"`
}

// Options configures an Orchestrator; nil fields take defaults
type Options struct {
	Builder   *prompts.Builder
	Validator *validation.Validator
	Guard     *safety.Guard
	Logger    llm.Logger
}

// Orchestrator turns a generation request into a validated story
type Orchestrator struct {
	generator Generator
	builder   *prompts.Builder
	validator *validation.Validator
	guard     *safety.Guard
	logger    llm.Logger
}

// NewOrchestrator creates an orchestrator around a generator
func NewOrchestrator(generator Generator, opts Options) *Orchestrator {
	if opts.Builder == nil {
		opts.Builder = prompts.NewBuilder(nil)
	}
	if opts.Guard == nil {
		opts.Guard = safety.NewGuard(nil)
	}
	if opts.Validator == nil {
		opts.Validator = validation.New(validation.Config{Guard: opts.Guard})
	}
	if opts.Logger == nil {
		opts.Logger = &llm.DefaultLogger{}
	}

	return &Orchestrator{
		generator: generator,
		builder:   opts.Builder,
		validator: opts.Validator,
		guard:     opts.Guard,
		logger:    opts.Logger,
	}
}

// Generate validates the request, screens the caller-supplied text and then
// makes at most MaxAttempts generation calls. The second call only happens
// after a collaborator fault or a recoverable validation failure.
func (o *Orchestrator) Generate(ctx context.Context, request *llm.GenerationRequest) Outcome {
	if errs := o.validator.ValidateRequest(request); len(errs) > 0 {
		return Outcome{Error: "invalid request: " + llm.JoinErrors(errs), Errors: errs}
	}
	if errs := o.screenRequest(request); len(errs) > 0 {
		o.logger.Info("Request rejected by pre-check", "child_name", request.ChildName)
		return Outcome{Error: llm.JoinErrors(errs), Errors: errs}
	}

	var (
		lastError  string
		lastErrors []llm.ValidationError
	)

	for attempt := 0; attempt < MaxAttempts; attempt++ {
		prompt := o.builder.BuildStoryPrompt(request)
		if attempt > 0 {
			prompt = o.builder.BuildRetryPrompt(request, lastError)
		}

		output, err := o.generator.Generate(ctx, prompt, attempt)
		if err != nil {
			lastError = FriendlyError(err)
			lastErrors = nil
			o.logger.Error("Story generation call failed", "attempt", attempt, "error", err)
			continue
		}

		result := o.validator.ValidateStoryResponse(output.Text, request.Length)
		if result.Valid {
			o.logger.Info("Story accepted", "attempt", attempt, "model", output.Model)
			return Outcome{
				Success:  true,
				Story:    result.Data,
				Metadata: o.metadata(output, attempt+1),
				Errors:   []llm.ValidationError{},
				Attempts: attempt + 1,
			}
		}

		lastError = llm.JoinErrors(result.Errors)
		lastErrors = result.Errors
		o.logger.Info("Story rejected by validation",
			"attempt", attempt,
			"codes", llm.ErrorCodes(result.Errors))

		if !validation.IsRecoverableError(result.Errors) {
			return Outcome{
				Error:    "story validation failed: " + lastError,
				Errors:   result.Errors,
				Attempts: attempt + 1,
			}
		}
	}

	return Outcome{
		Error:    fmt.Sprintf("story generation failed after %d attempts: %s", MaxAttempts, lastError),
		Errors:   lastErrors,
		Attempts: MaxAttempts,
	}
}

// screenRequest runs the zero-tolerance pre-check on the name and elements
func (o *Orchestrator) screenRequest(request *llm.GenerationRequest) []llm.ValidationError {
	var errs []llm.ValidationError

	if verdict := o.guard.PreCheckUserInput(request.ChildName); !verdict.Safe {
		errs = append(errs, llm.ValidationError{
			Field:   "childName",
			Message: "child name contains inappropriate content",
			Code:    llm.CodeContentSafetyFailed,
		})
	}
	for _, element := range request.CustomElements() {
		if verdict := o.guard.PreCheckUserInput(element); !verdict.Safe {
			errs = append(errs, llm.ValidationError{
				Field:   "elements",
				Message: fmt.Sprintf("element %q contains inappropriate content", element),
				Code:    llm.CodeContentSafetyFailed,
			})
		}
	}

	return errs
}

func (o *Orchestrator) metadata(output *llm.GenerationOutput, attempts int) *Metadata {
	return &Metadata{
		Model:            output.Model,
		Provider:         output.Provider,
		SafetyScore:      SafetyScore(output.SafetyRatings),
		TemplateVersion:  o.builder.Version(),
		Attempts:         attempts,
		PromptTokens:     output.PromptTokens,
		CompletionTokens: output.CompletionTokens,
		GeneratedAt:      time.Now().UTC(),
	}
}

// DefaultSafetyScore is used when the provider reports no safety ratings
const DefaultSafetyScore = 0.95

var probabilityScores = map[string]float64{
	"NEGLIGIBLE": 1.0,
	"LOW":        0.8,
	"MEDIUM":     0.5,
	"HIGH":       0.2,
}

// SafetyScore averages the numeric value of the provider's safety ratings.
// Ratings with an unknown probability are ignored.
func SafetyScore(ratings []llm.SafetyRating) float64 {
	var total float64
	n := 0
	for _, r := range ratings {
		if score, ok := probabilityScores[strings.ToUpper(r.Probability)]; ok {
			total += score
			n++
		}
	}
	if n == 0 {
		return DefaultSafetyScore
	}
	return total / float64(n)
}

// Messages shown instead of raw collaborator errors
const (
	SafetyBlockedMessage = "the story was blocked by the model's safety filter, please try a different request"
	QuotaMessage         = "the story service has reached its usage limit, please try again later"
)

// FriendlyError turns a collaborator error into a message fit for a parent
func FriendlyError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "SAFETY"):
		return SafetyBlockedMessage
	case strings.Contains(msg, "QUOTA"):
		return QuotaMessage
	}
	return msg
}
