package story

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chynybekuuludastan/story_generator/internal/service/llm"
	"github.com/chynybekuuludastan/story_generator/internal/service/llm/prompts"
	"github.com/chynybekuuludastan/story_generator/internal/testutil"
)

type reply struct {
	text    string
	err     error
	ratings []llm.SafetyRating
}

type fakeGenerator struct {
	replies  []reply
	prompts  []string
	attempts []int
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, attempt int) (*llm.GenerationOutput, error) {
	f.prompts = append(f.prompts, prompt)
	f.attempts = append(f.attempts, attempt)
	if len(f.prompts) > len(f.replies) {
		return nil, fmt.Errorf("unexpected call %d", len(f.prompts))
	}
	r := f.replies[len(f.prompts)-1]
	if r.err != nil {
		return nil, r.err
	}
	return &llm.GenerationOutput{Text: r.text, Model: "gemini-2.0-flash", Provider: "gemini", SafetyRatings: r.ratings}, nil
}

func request() *llm.GenerationRequest {
	return &llm.GenerationRequest{
		ChildName: "Ahmet",
		Age:       7,
		Theme:     llm.ThemeAdventure,
		Length:    llm.LengthShort,
		Elements:  []string{"köpek", "orman"},
	}
}

func newOrchestrator(gen Generator) *Orchestrator {
	return NewOrchestrator(gen, Options{Logger: llm.NopLogger{}})
}

func TestRetryAfterMalformedJSON(t *testing.T) {
	gen := &fakeGenerator{replies: []reply{
		{text: `{"title": "Ahmet", "content": `},
		{text: testutil.StoryJSON(nil)},
	}}

	outcome := newOrchestrator(gen).Generate(context.Background(), request())

	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, []int{0, 1}, gen.attempts)
	assert.Equal(t, testutil.StoryTitle, outcome.Story.Title)
	assert.Equal(t, testutil.StoryContent, outcome.Story.Content)
	assert.Equal(t, 2, outcome.Attempts)

	builder := prompts.NewBuilder(nil)
	assert.Equal(t, builder.BuildStoryPrompt(request()), gen.prompts[0])
	assert.Contains(t, gen.prompts[1], "ÖNCEKİ HATA: response is not valid JSON")

	require.NotNil(t, outcome.Metadata)
	assert.Equal(t, "gemini-2.0-flash", outcome.Metadata.Model)
	assert.Equal(t, prompts.TemplateVersion, outcome.Metadata.TemplateVersion)
	assert.Equal(t, DefaultSafetyScore, outcome.Metadata.SafetyScore)
	assert.Equal(t, 2, outcome.Metadata.Attempts)
}

func TestFirstAttemptSuccess(t *testing.T) {
	gen := &fakeGenerator{replies: []reply{{
		text: testutil.StoryJSON(nil),
		ratings: []llm.SafetyRating{
			{Category: "HARM_CATEGORY_HARASSMENT", Probability: "NEGLIGIBLE"},
			{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Probability: "LOW"},
		},
	}}}

	outcome := newOrchestrator(gen).Generate(context.Background(), request())

	require.True(t, outcome.Success)
	assert.Len(t, gen.prompts, 1)
	assert.InDelta(t, 0.9, outcome.Metadata.SafetyScore, 1e-9)
	assert.Equal(t, 1, outcome.Metadata.Attempts)
}

func TestSafetyFailureStopsImmediately(t *testing.T) {
	unsafe := testutil.StoryJSON(map[string]any{"content": testutil.StoryContent + " Sonra bir hayalet geldi."})
	gen := &fakeGenerator{replies: []reply{{text: unsafe}, {text: testutil.StoryJSON(nil)}}}

	outcome := newOrchestrator(gen).Generate(context.Background(), request())

	assert.False(t, outcome.Success)
	assert.Len(t, gen.prompts, 1)
	assert.Nil(t, outcome.Story)
	assert.Nil(t, outcome.Metadata)
	assert.Equal(t, 1, outcome.Attempts)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, llm.CodeContentSafetyFailed, outcome.Errors[0].Code)
	assert.Contains(t, outcome.Error, "safety")
}

func TestRecoverableFailureTwice(t *testing.T) {
	gen := &fakeGenerator{replies: []reply{{text: "not json"}, {text: "still not json"}}}

	outcome := newOrchestrator(gen).Generate(context.Background(), request())

	assert.False(t, outcome.Success)
	assert.Len(t, gen.prompts, 2)
	assert.Equal(t, MaxAttempts, outcome.Attempts)
	assert.Contains(t, outcome.Error, "after 2 attempts")
	assert.Contains(t, outcome.Error, "response is not valid JSON")
	assert.Equal(t, []string{string(llm.CodeInvalidJSON)}, llm.ErrorCodes(outcome.Errors))
}

func TestCollaboratorErrorIsRetried(t *testing.T) {
	gen := &fakeGenerator{replies: []reply{
		{err: errors.New("connection reset")},
		{text: testutil.StoryJSON(nil)},
	}}

	outcome := newOrchestrator(gen).Generate(context.Background(), request())

	require.True(t, outcome.Success)
	assert.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[1], "ÖNCEKİ HATA: connection reset")
}

func TestFriendlyCollaboratorErrors(t *testing.T) {
	cases := map[error]string{
		fmt.Errorf("%w: SAFETY: response blocked", llm.ErrAPIRequestFailed): SafetyBlockedMessage,
		fmt.Errorf("QUOTA: %w", llm.ErrBudgetExceeded):                      QuotaMessage,
		errors.New("timeout"):                                               "timeout",
	}
	for err, message := range cases {
		gen := &fakeGenerator{replies: []reply{{err: err}, {err: err}}}

		outcome := newOrchestrator(gen).Generate(context.Background(), request())

		assert.False(t, outcome.Success)
		assert.Len(t, gen.prompts, 2)
		assert.Contains(t, outcome.Error, message)
		assert.Empty(t, outcome.Errors)
	}
}

func TestInvalidRequestNeverCallsGenerator(t *testing.T) {
	gen := &fakeGenerator{}
	req := request()
	req.Theme = "horror"
	req.Age = 40

	outcome := newOrchestrator(gen).Generate(context.Background(), req)

	assert.False(t, outcome.Success)
	assert.Empty(t, gen.prompts)
	assert.Equal(t, []string{string(llm.CodeInvalidAge), string(llm.CodeInvalidTheme)}, llm.ErrorCodes(outcome.Errors))
}

func TestPreCheckNeverCallsGenerator(t *testing.T) {
	gen := &fakeGenerator{}
	req := request()
	req.Elements = []string{"köpek", "Vampir", "www.example.com"}

	outcome := newOrchestrator(gen).Generate(context.Background(), req)

	assert.False(t, outcome.Success)
	assert.Empty(t, gen.prompts)
	require.Len(t, outcome.Errors, 2)
	for _, e := range outcome.Errors {
		assert.Equal(t, "elements", e.Field)
		assert.Equal(t, llm.CodeContentSafetyFailed, e.Code)
	}
}

func TestSafetyScore(t *testing.T) {
	assert.Equal(t, DefaultSafetyScore, SafetyScore(nil))
	assert.Equal(t, DefaultSafetyScore, SafetyScore([]llm.SafetyRating{{Probability: "UNSPECIFIED"}}))
	assert.InDelta(t, 0.35, SafetyScore([]llm.SafetyRating{{Probability: "MEDIUM"}, {Probability: "HIGH"}}), 1e-9)
	assert.Equal(t, 1.0, SafetyScore([]llm.SafetyRating{{Probability: "negligible"}}))
}
