package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/chynybekuuludastan/story_generator/internal/service/llm/tokens"
)

type stubProvider struct {
	name   string
	output *GenerationOutput
	err    error
	calls  int
}

func (p *stubProvider) Generate(_ context.Context, _ string, _ int) (*GenerationOutput, error) {
	p.calls++
	return p.output, p.err
}

func (p *stubProvider) GetName() string { return p.name }
func (p *stubProvider) Close() error    { return nil }

type stubBudget struct {
	exceeded bool
	entries  []tokens.UsageEntry
}

func (b *stubBudget) IsBudgetExceeded(context.Context) bool { return b.exceeded }

func (b *stubBudget) RecordUsage(_ context.Context, entry tokens.UsageEntry) error {
	b.entries = append(b.entries, entry)
	return nil
}

func newTestService(provider Provider, budget BudgetTracker) *Service {
	service := NewService(ServiceOptions{
		RateLimit: rate.Inf,
		Budget:    budget,
		Logger:    NopLogger{},
	})
	service.RegisterProvider(provider)
	return service
}

func TestServiceGenerate(t *testing.T) {
	provider := &stubProvider{name: "gemini", output: &GenerationOutput{Text: `{"title":"x"}`, Model: "gemini-2.0-flash"}}
	budget := &stubBudget{}

	output, err := newTestService(provider, budget).Generate(context.Background(), "Bir hikaye yaz", 0)

	require.NoError(t, err)
	assert.Equal(t, "gemini", output.Provider)
	require.Len(t, budget.entries, 1)
	// zero usage from the provider is estimated from the text
	assert.Positive(t, budget.entries[0].PromptTokens)
	assert.Equal(t, "story", budget.entries[0].ContentType)
}

func TestServiceBudgetExceeded(t *testing.T) {
	provider := &stubProvider{name: "gemini"}

	_, err := newTestService(provider, &stubBudget{exceeded: true}).Generate(context.Background(), "prompt", 0)

	assert.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Contains(t, err.Error(), "QUOTA")
	assert.Zero(t, provider.calls)
}

func TestServiceProviderErrors(t *testing.T) {
	failing := &stubProvider{name: "gemini", err: errors.New("SAFETY: blocked")}
	_, err := newTestService(failing, nil).Generate(context.Background(), "prompt", 1)
	assert.ErrorIs(t, err, ErrAPIRequestFailed)
	assert.Contains(t, err.Error(), "SAFETY")

	empty := &stubProvider{name: "gemini", output: &GenerationOutput{Text: "  "}}
	_, err = newTestService(empty, nil).Generate(context.Background(), "prompt", 0)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestServiceWithoutProvider(t *testing.T) {
	service := NewService(ServiceOptions{RateLimit: rate.Inf, Logger: NopLogger{}})

	_, err := service.Generate(context.Background(), "prompt", 0)

	assert.ErrorIs(t, err, ErrInvalidProvider)
}

func TestCleanCodeBlocks(t *testing.T) {
	assert.Equal(t, `{"a":1}`, CleanCodeBlocks("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, CleanCodeBlocks("Here you go:\n```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, CleanCodeBlocks("  {\"a\":1} \n"))
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core)).With("component", "llm")

	logger.Info("Generated story text", "attempt", 1)
	logger.Error("LLM API request failed", "provider", "gemini")

	require.Equal(t, 2, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Generated story text", entry.Message)
	assert.Equal(t, map[string]interface{}{"component": "llm", "attempt": int64(1)}, entry.ContextMap())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}
