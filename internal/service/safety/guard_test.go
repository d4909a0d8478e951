package safety

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chynybekuuludastan/story_generator/internal/testutil"
)

func TestCleanStoryIsSafe(t *testing.T) {
	guard := NewGuard(nil)

	verdict := guard.CheckContentSafety(testutil.StoryContent)

	assert.True(t, verdict.Safe, "issues: %v", verdict.Issues)
	assert.Empty(t, verdict.BlockedTerms)
	assert.Empty(t, verdict.Categories)
	// (1.0 + 1.0 + 0.9 + 0.8) / 4
	assert.InDelta(t, 0.925, verdict.Confidence, 1e-9)
}

func TestBlockedTermsAnyCase(t *testing.T) {
	guard := NewGuard(nil)

	for _, term := range guard.Config().BlockedTerms {
		for _, variant := range []string{term, strings.ToUpper(term), capitalize(term)} {
			text := testutil.StoryContent + " " + variant + "."
			verdict := guard.CheckContentSafety(text)

			assert.False(t, verdict.Safe, "variant %q", variant)
			assert.Contains(t, verdict.BlockedTerms, term, "variant %q", variant)
			assert.Contains(t, verdict.Categories, CategoryInappropriate)
		}
	}
}

func TestTurkishUppercaseIsMatched(t *testing.T) {
	guard := NewGuard(NewTestConfig(t, `blocked_terms: ["şimşek"]`))

	verdict := guard.CheckContentSafety(testutil.StoryContent + " ŞİMŞEK çaktı.")

	assert.False(t, verdict.Safe)
	assert.Equal(t, []string{"şimşek"}, verdict.BlockedTerms)
}

func TestDotlessIWordsAreNotBlocked(t *testing.T) {
	guard := NewGuard(nil)

	tests := []struct {
		name string
		text string
	}{
		{"akıllı", "Akıllı Ahmet ödevini bitirdi."},
		{"kıllı", "Kıllı tırtıl yaprağa çıktı."},
		{"ılık", "Ilık süt içip uyudu."},
		{"kırmızı", "Kırmızı balon gökyüzüne uçtu."},
		{"lowercase", "akıllı kıllı ılık kırmızı"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked := CheckBlockedTerms(tt.text, guard.Config())
			assert.True(t, blocked.Safe)
			assert.Empty(t, blocked.BlockedTerms)

			verdict := guard.CheckContentSafety(testutil.StoryContent + " " + tt.text)
			assert.True(t, verdict.Safe, "issues: %v", verdict.Issues)
			assert.Empty(t, verdict.BlockedTerms)
		})
	}

	assert.True(t, guard.PreCheckUserInput("akıllı köpek").Safe)
	assert.True(t, guard.PreCheckUserInput("kırmızı kıllı kedi").Safe)
}

func TestDotlessITermUppercase(t *testing.T) {
	cfg := DefaultConfig()

	for _, text := range []string{"bıçakla", "Bıçakla", "BIÇAKLA"} {
		result := CheckBlockedTerms(text, cfg)
		assert.False(t, result.Safe, text)
		assert.Equal(t, []string{"bıçakla"}, result.BlockedTerms, text)
	}

	// a dotless ı in the text never stands in for i in the term
	assert.True(t, CheckBlockedTerms("sılah", cfg).Safe)
}

func TestContactPhoneRule(t *testing.T) {
	cfg := DefaultConfig()
	matchesPhone := func(text string) bool {
		for _, issue := range CheckRules(text, cfg).Issues {
			if strings.HasSuffix(issue, "[contact_phone]") {
				return true
			}
		}
		return false
	}

	for _, text := range []string{
		"Beni ara: 0532 123 45 67",
		"+90 532 123 4567",
		"(0532) 123 45 67",
		"0532-123-45-67",
		"05321234567",
	} {
		assert.True(t, matchesPhone(text), text)
		assert.False(t, CheckRules(text, cfg).Safe, text)
	}

	for _, text := range []string{
		"2020 - 2024 yılları arasında",
		"1 2 3 4 5 6",
		"10 9 8 7 6 5 4 3 2 1 diye saydı",
		"1234 kişi geldi",
		"Saat 12.30'da üç kedi geldi",
	} {
		assert.False(t, matchesPhone(text), text)
	}
}

func TestBlockedTermConfidence(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1.0, CheckBlockedTerms("merhaba", cfg).Confidence)
	assert.InDelta(t, 0.7, CheckBlockedTerms("silah", cfg).Confidence, 1e-9)
	assert.InDelta(t, 0.4, CheckBlockedTerms("silah kavga", cfg).Confidence, 1e-9)
	assert.InDelta(t, 0.1, CheckBlockedTerms("silah kavga kabus hayalet", cfg).Confidence, 1e-9)
}

func TestRuleSeverities(t *testing.T) {
	cfg := DefaultConfig()

	blocked := CheckRules("Yazın bana: ahmet@example.com", cfg)
	assert.False(t, blocked.Safe)
	assert.Equal(t, 0.2, blocked.Confidence)

	warned := CheckRules("Sen ne aptal bir ördeksin dedi", cfg)
	assert.True(t, warned.Safe)
	assert.Len(t, warned.Issues, 1)
	assert.InDelta(t, 0.9, warned.Confidence, 1e-9)

	flagged := CheckRules("HARİKAAA bir gün!!!", cfg)
	assert.True(t, flagged.Safe)
	assert.Len(t, flagged.Issues, 2)
	assert.InDelta(t, 0.8, flagged.Confidence, 1e-9)
}

func TestWarnRulesDoNotMakeStoryUnsafe(t *testing.T) {
	verdict := NewGuard(nil).CheckContentSafety(testutil.StoryContent + " Kuş ona aptal dedi ama sonra özür diledi.")

	assert.True(t, verdict.Safe)
	assert.Contains(t, verdict.Categories, CategoryInappropriate)
}

func TestGraphicViolenceCategory(t *testing.T) {
	verdict := NewGuard(nil).CheckContentSafety(testutil.StoryContent + " Sonra kan aktı.")

	assert.False(t, verdict.Safe)
	assert.Contains(t, verdict.Categories, CategoryViolence)
	assert.Empty(t, verdict.BlockedTerms)
}

func TestLengthAndStructure(t *testing.T) {
	cfg := DefaultConfig()

	short := CheckLengthAndStructure("Kısa bir metin. İki cümle.", cfg)
	assert.False(t, short.Safe)
	assert.Len(t, short.Issues, 2)
	assert.InDelta(t, 0.5, short.Confidence, 1e-9)

	long := CheckLengthAndStructure(testutil.Words(1001), cfg)
	assert.False(t, long.Safe)
	assert.Len(t, long.Issues, 1)

	oneSentence := CheckLengthAndStructure(strings.Repeat("kelime ", 60), cfg)
	assert.False(t, oneSentence.Safe)
	assert.Contains(t, oneSentence.Issues[0], "sentence")

	ok := CheckLengthAndStructure(testutil.StoryContent, cfg)
	assert.True(t, ok.Safe)
	assert.Equal(t, 0.9, ok.Confidence)
}

func TestRepetition(t *testing.T) {
	cfg := DefaultConfig()

	text := testutil.StoryContent + strings.Repeat(" kelebek.", 15)
	result := CheckRepetition(text, cfg)
	assert.False(t, result.Safe)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "kelebek")
	assert.InDelta(t, 0.65, result.Confidence, 1e-9)

	// high share but only five occurrences
	fewTokens := strings.Repeat("kelebek ", 5) + "ve bir gün"
	assert.True(t, CheckRepetition(fewTokens, cfg).Safe)

	// short words are ignored
	assert.True(t, CheckRepetition(strings.Repeat("ve ", 40), cfg).Safe)
}

func TestQualityCategories(t *testing.T) {
	verdict := NewGuard(nil).CheckContentSafety("Çok kısa.")

	assert.False(t, verdict.Safe)
	assert.Equal(t, []Category{CategoryQuality, CategoryFormat}, verdict.Categories)
}

func TestQuickSafetyCheckMatchesFullCheck(t *testing.T) {
	guard := NewGuard(nil)
	texts := []string{
		testutil.StoryContent,
		testutil.StoryContent + " hayalet",
		"Çok kısa.",
		testutil.Words(120),
		"",
	}
	for _, text := range texts {
		assert.Equal(t, guard.CheckContentSafety(text).Safe, guard.QuickSafetyCheck(text))
	}
}

func TestPreCheckUserInput(t *testing.T) {
	guard := NewGuard(nil)

	// short input is fine: no length or repetition checks
	clean := guard.PreCheckUserInput("köpek")
	assert.True(t, clean.Safe)
	assert.Equal(t, 1.0, clean.Confidence)

	assert.False(t, guard.PreCheckUserInput("Vampir").Safe)
	assert.False(t, guard.PreCheckUserInput("www.example.com").Safe)

	// warn rules are not part of the pre-check
	assert.True(t, guard.PreCheckUserInput("aptal").Safe)
}

func TestParseConfig(t *testing.T) {
	cfg := NewTestConfig(t, `
blocked_terms: ["Ejderha", "ejderha", " "]
rules:
  - id: numbers
    description: Numbers are inappropriate
    pattern: '\d+'
    severity: block
min_words: 1
`)

	assert.Equal(t, []string{"ejderha"}, cfg.BlockedTerms)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, 1, cfg.MinWords)
	assert.Equal(t, 1000, cfg.MaxWords)

	guard := NewGuard(cfg)
	assert.False(t, guard.PreCheckUserInput("7 ejderha").Safe)
	// default terms were replaced
	assert.True(t, guard.PreCheckUserInput("hayalet").Safe)
}

func TestParseConfigRejectsBadRules(t *testing.T) {
	_, err := ParseConfig([]byte(`rules: [{id: x, pattern: "(", severity: block}]`))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ParseConfig([]byte(`rules: [{id: x, pattern: "a", severity: loud}]`))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func NewTestConfig(t *testing.T, yamlText string) *Config {
	t.Helper()
	cfg, err := ParseConfig([]byte(yamlText))
	require.NoError(t, err)
	return cfg
}

func capitalize(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
