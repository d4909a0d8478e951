// Package safety scores free text against a block-list and regex rules
// together with simple length and repetition heuristics.
package safety

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Category tags an issue found by a check
type Category string

const (
	CategoryInappropriate Category = "inappropriate_content"
	CategoryViolence      Category = "violence"
	CategoryFear          Category = "fear"
	CategoryQuality       Category = "quality_issues"
	CategoryFormat        Category = "format_issues"
)

// CheckResult is the uniform outcome of one sub-check
type CheckResult struct {
	Safe         bool
	Issues       []string
	Confidence   float64
	BlockedTerms []string
}

// Check is a pure sub-check over text
type Check func(text string, cfg *Config) CheckResult

// Verdict is the aggregated outcome of a safety check
type Verdict struct {
	Safe         bool       `json:"safe"`
	Confidence   float64    `json:"confidence"`
	Categories   []Category `json:"categories"`
	BlockedTerms []string   `json:"blocked_terms"`
	Issues       []string   `json:"issues,omitempty"`
}

// Guard runs a fixed list of sub-checks against a configuration
type Guard struct {
	config    *Config
	checks    []Check
	preChecks []Check
}

// NewGuard creates a guard; a nil config selects DefaultConfig
func NewGuard(cfg *Config) *Guard {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Guard{
		config:    cfg,
		checks:    []Check{CheckBlockedTerms, CheckRules, CheckLengthAndStructure, CheckRepetition},
		preChecks: []Check{CheckBlockedTerms, CheckBlockingRules},
	}
}

// Config returns the guard's configuration
func (g *Guard) Config() *Config {
	return g.config
}

// CheckContentSafety runs every sub-check on generated text
func (g *Guard) CheckContentSafety(text string) Verdict {
	return aggregate(text, g.config, g.checks)
}

// PreCheckUserInput runs the block-list and blocking rules only, with zero tolerance.
// It is meant for short caller-supplied fields checked before any generation call.
func (g *Guard) PreCheckUserInput(text string) Verdict {
	return aggregate(text, g.config, g.preChecks)
}

// QuickSafetyCheck reports only whether the text is safe
func (g *Guard) QuickSafetyCheck(text string) bool {
	return g.CheckContentSafety(text).Safe
}

// CheckContentSafety checks text with the given configuration
func CheckContentSafety(text string, cfg *Config) Verdict {
	return NewGuard(cfg).CheckContentSafety(text)
}

func aggregate(text string, cfg *Config, checks []Check) Verdict {
	verdict := Verdict{
		Safe:         true,
		Categories:   []Category{},
		BlockedTerms: []string{},
	}

	var total float64
	for _, check := range checks {
		result := check(text, cfg)
		verdict.Safe = verdict.Safe && result.Safe
		total += result.Confidence
		verdict.Issues = append(verdict.Issues, result.Issues...)
		verdict.BlockedTerms = append(verdict.BlockedTerms, result.BlockedTerms...)
	}
	if len(checks) > 0 {
		verdict.Confidence = total / float64(len(checks))
	}
	verdict.Categories = categorize(verdict.Issues)

	return verdict
}

// CheckBlockedTerms matches the block-list case-insensitively as substrings
func CheckBlockedTerms(text string, cfg *Config) CheckResult {
	folded := foldCase(text)

	var found []string
	for _, term := range cfg.BlockedTerms {
		for _, form := range termForms(term) {
			if strings.Contains(folded, form) {
				found = append(found, term)
				break
			}
		}
	}

	if len(found) == 0 {
		return CheckResult{Safe: true, Confidence: 1.0}
	}

	issues := make([]string, 0, len(found))
	for _, term := range found {
		issues = append(issues, fmt.Sprintf("Inappropriate term detected: %q", term))
	}
	return CheckResult{
		Safe:         false,
		Issues:       issues,
		Confidence:   max(0.1, 1-0.3*float64(len(found))),
		BlockedTerms: found,
	}
}

// CheckRules evaluates every regex rule; only block rules make the text unsafe
func CheckRules(text string, cfg *Config) CheckResult {
	return evaluateRules(text, cfg, false)
}

// CheckBlockingRules evaluates only the block-severity rules
func CheckBlockingRules(text string, cfg *Config) CheckResult {
	return evaluateRules(text, cfg, true)
}

func evaluateRules(text string, cfg *Config, blockingOnly bool) CheckResult {
	var issues []string
	blocked := false

	for _, rule := range cfg.Rules {
		if blockingOnly && rule.Severity != SeverityBlock {
			continue
		}
		if rule.re == nil || !rule.re.MatchString(text) {
			continue
		}
		issues = append(issues, fmt.Sprintf("%s [%s]", rule.Description, rule.ID))
		if rule.Severity == SeverityBlock {
			blocked = true
		}
	}

	if blocked {
		return CheckResult{Safe: false, Issues: issues, Confidence: 0.2}
	}
	return CheckResult{
		Safe:       true,
		Issues:     issues,
		Confidence: max(0.5, 1-0.1*float64(len(issues))),
	}
}

// CheckLengthAndStructure bounds the word count and requires a minimum number of sentences
func CheckLengthAndStructure(text string, cfg *Config) CheckResult {
	var issues []string

	words := len(strings.Fields(text))
	if words < cfg.MinWords {
		issues = append(issues, fmt.Sprintf("Content too short: %d words", words))
	}
	if words > cfg.MaxWords {
		issues = append(issues, fmt.Sprintf("Content too long: %d words", words))
	}
	if sentences := CountSentences(text); sentences < cfg.MinSentences {
		issues = append(issues, fmt.Sprintf("Insufficient sentence structure: %d sentences", sentences))
	}

	return CheckResult{
		Safe:       len(issues) == 0,
		Issues:     issues,
		Confidence: max(0.3, 0.9-0.2*float64(len(issues))),
	}
}

// CheckRepetition flags long words that dominate the text
func CheckRepetition(text string, cfg *Config) CheckResult {
	tokens := strings.Fields(normalize(text))
	if len(tokens) == 0 {
		return CheckResult{Safe: true, Confidence: 0.8}
	}

	counts := make(map[string]int)
	var order []string
	for _, token := range tokens {
		word := TrimPunctuation(token)
		if utf8.RuneCountInString(word) <= cfg.RepetitionMinLength {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	var issues []string
	limit := cfg.RepetitionRatio * float64(len(tokens))
	for _, word := range order {
		count := counts[word]
		if float64(count) > limit && count > cfg.RepetitionMinCount {
			issues = append(issues, fmt.Sprintf("Excessive repetition of word %q (%d times)", word, count))
		}
	}

	return CheckResult{
		Safe:       len(issues) == 0,
		Issues:     issues,
		Confidence: max(0.4, 0.8-0.15*float64(len(issues))),
	}
}

var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryInappropriate, []string{"inappropriate"}},
	{CategoryViolence, []string{"violence", "violent"}},
	{CategoryFear, []string{"fear", "scary"}},
	{CategoryQuality, []string{"too short", "too long", "repetition"}},
	{CategoryFormat, []string{"sentence", "format"}},
}

func categorize(issues []string) []Category {
	categories := []Category{}
	seen := make(map[Category]bool)

	for _, issue := range issues {
		lower := strings.ToLower(issue)
		for _, ck := range categoryKeywords {
			if seen[ck.category] {
				continue
			}
			for _, keyword := range ck.keywords {
				if strings.Contains(lower, keyword) {
					seen[ck.category] = true
					categories = append(categories, ck.category)
					break
				}
			}
		}
	}
	return categories
}

var sentenceSplitter = regexp.MustCompile(`[.!?]+`)

// CountSentences counts non-empty segments between sentence terminators
func CountSentences(text string) int {
	count := 0
	for _, segment := range sentenceSplitter.Split(text, -1) {
		if strings.TrimSpace(segment) != "" {
			count++
		}
	}
	return count
}

// TrimPunctuation strips leading and trailing punctuation and symbols from a token
func TrimPunctuation(token string) string {
	return strings.TrimFunc(token, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

func normalize(s string) string {
	return strings.ToLower(s)
}

// strings.ToLower turns İ into i plus a combining dot; the dot is dropped so
// İ lowers to i. The dotless ı is kept: "akıllı" must not contain "kill".
var combiningDot = strings.NewReplacer("\u0307", "")

func foldCase(s string) string {
	return combiningDot.Replace(strings.ToLower(s))
}

// termForms returns the folded term and, when it has a dotless ı, the form
// the uppercase I of that term lowers to ("BIÇAKLA" lowers to "biçakla").
func termForms(term string) []string {
	folded := foldCase(term)
	if !strings.ContainsRune(folded, 'ı') {
		return []string{folded}
	}
	return []string{folded, strings.ReplaceAll(folded, "ı", "i")}
}
