package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensToCostFallsBackToDefaultModel(t *testing.T) {
	_, _, known := TokensToCost(fallbackModel, 1000, 1000)
	_, _, unknown := TokensToCost("some-future-model", 1000, 1000)

	assert.Greater(t, known, 0.0)
	assert.InDelta(t, known, unknown, 1e-12)
}

func TestBudgetTrackerInMemory(t *testing.T) {
	ctx := context.Background()
	tracker := NewBudgetTracker(nil, 0.001)

	assert.False(t, tracker.IsBudgetExceeded(ctx))

	require.NoError(t, tracker.RecordUsage(ctx, UsageEntry{Model: "gemini-2.0-flash", TotalCost: 0.0005}))
	assert.False(t, tracker.IsBudgetExceeded(ctx))
	assert.InDelta(t, 0.0005, tracker.GetRemainingBudget(ctx), 1e-9)

	require.NoError(t, tracker.RecordUsage(ctx, UsageEntry{Model: "gemini-2.0-flash", TotalCost: 0.0006}))
	assert.True(t, tracker.IsBudgetExceeded(ctx))
	assert.Zero(t, tracker.GetRemainingBudget(ctx))
}

func TestBudgetTrackerResetsOnNewDay(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)

	tracker := NewBudgetTracker(nil, 1)
	tracker.now = func() time.Time { return day }
	tracker.currentDay = day.Format("2006-01-02")

	require.NoError(t, tracker.RecordUsage(ctx, UsageEntry{TotalCost: 2}))
	assert.True(t, tracker.IsBudgetExceeded(ctx))

	day = day.Add(2 * time.Hour)
	assert.False(t, tracker.IsBudgetExceeded(ctx))
}

func TestZeroBudgetDisablesCheck(t *testing.T) {
	ctx := context.Background()
	tracker := NewBudgetTracker(nil, 0)

	require.NoError(t, tracker.RecordUsage(ctx, UsageEntry{TotalCost: 100}))
	assert.False(t, tracker.IsBudgetExceeded(ctx))
}

func TestEstimateTokensCountsRunes(t *testing.T) {
	assert.Equal(t, 2, EstimateTokens("çğıöşüçğ"))
	p, c := CalculateContextSize("abcdefgh", "abcd")
	assert.Equal(t, 2, p)
	assert.Equal(t, 1, c)
}
