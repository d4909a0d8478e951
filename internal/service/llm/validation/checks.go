package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/chynybekuuludastan/story_generator/internal/service/llm"
	"github.com/chynybekuuludastan/story_generator/internal/service/safety"
)

const (
	minSentences         = 3
	storyFormatSentences = 5
	repeatedWordMinCount = 3
	meaningfulWordRunes  = 3
	minCommonWords       = 3
	turkishCharacters    = "çğıöşüÇĞİÖŞÜ"
)

var (
	dialogueGlyphs = []string{`"`, "“", "”", "«", "»"}
	dialogueVerbs  = []string{"dedi", "sordu", "bağırdı", "fısıldadı", "said", "asked"}
	commonWords    = []string{"ve", "bir", "bu", "da", "de", "ile", "için", "çok", "ama", "o"}
)

func (v *Validator) checkSafety(content string) []llm.ValidationError {
	verdict := v.config.Guard.CheckContentSafety(content)
	if verdict.Safe {
		return nil
	}

	categories := make([]string, 0, len(verdict.Categories))
	for _, c := range verdict.Categories {
		categories = append(categories, string(c))
	}
	if len(categories) == 0 {
		categories = append(categories, "unspecified")
	}

	return []llm.ValidationError{{
		Field:   "content",
		Message: fmt.Sprintf("content failed safety check: %s", strings.Join(categories, ", ")),
		Code:    llm.CodeContentSafetyFailed,
	}}
}

// checkWordCount compares the whitespace word count with the accepted band; an
// unknown length is checked against the short band
func checkWordCount(content string, expectedLength llm.Length) *llm.ValidationError {
	band, ok := WordCountRanges[expectedLength]
	if !ok {
		band = WordCountRanges[llm.LengthShort]
	}

	actual := len(strings.Fields(content))
	if band.Contains(actual) {
		return nil
	}
	return &llm.ValidationError{
		Field:   "wordCount",
		Message: fmt.Sprintf("story has %d words, expected %d-%d", actual, band.Min, band.Max),
		Code:    llm.CodeWordCountMismatch,
	}
}

func (v *Validator) checkQuality(content string) []llm.ValidationError {
	var errs []llm.ValidationError

	sentences := safety.CountSentences(content)
	if sentences < minSentences {
		errs = append(errs, llm.ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("story has only %d sentences", sentences),
			Code:    llm.CodeInsufficientStructure,
		})
	}

	if score := RepetitionScore(content); score > v.config.RepetitionThreshold {
		errs = append(errs, llm.ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("story repeats words too often (score %.2f)", score),
			Code:    llm.CodeExcessiveRepetition,
		})
	}

	if !hasDialogue(content) && sentences < storyFormatSentences {
		errs = append(errs, llm.ValidationError{
			Field:   "content",
			Message: "content does not read like a story",
			Code:    llm.CodeNotStoryFormat,
		})
	}

	return errs
}

func checkLanguage(content string) []llm.ValidationError {
	var errs []llm.ValidationError

	if !strings.ContainsAny(content, turkishCharacters) {
		errs = append(errs, llm.ValidationError{
			Field:   "content",
			Message: "story contains no Turkish characters",
			Code:    llm.CodeNoTurkishCharacters,
		})
	}

	if found := countCommonWords(content); found < minCommonWords {
		errs = append(errs, llm.ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("story uses only %d common Turkish words", found),
			Code:    llm.CodeNotTurkishLanguage,
		})
	}

	return errs
}

// RepetitionScore is the share of meaningful word occurrences that belong to
// words used three or more times. Words of three runes or fewer are ignored.
func RepetitionScore(content string) float64 {
	counts := map[string]int{}
	total := 0
	for _, token := range tokenize(content) {
		if utf8.RuneCountInString(token) <= meaningfulWordRunes {
			continue
		}
		counts[token]++
		total++
	}
	if total == 0 {
		return 0
	}

	repeated := 0
	for _, n := range counts {
		if n >= repeatedWordMinCount {
			repeated += n
		}
	}
	return float64(repeated) / float64(total)
}

func hasDialogue(content string) bool {
	for _, glyph := range dialogueGlyphs {
		if strings.Contains(content, glyph) {
			return true
		}
	}
	for _, token := range tokenize(content) {
		for _, verb := range dialogueVerbs {
			if token == verb {
				return true
			}
		}
	}
	return false
}

func countCommonWords(content string) int {
	seen := map[string]bool{}
	for _, token := range tokenize(content) {
		for _, word := range commonWords {
			if token == word {
				seen[word] = true
			}
		}
	}
	return len(seen)
}

func tokenize(content string) []string {
	fields := strings.Fields(content)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if token := strings.ToLower(safety.TrimPunctuation(f)); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
