package safety

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity of a regex rule
type Severity string

const (
	SeverityBlock Severity = "block"
	SeverityWarn  Severity = "warn"
	SeverityFlag  Severity = "flag"
)

// Rule is a named regular expression evaluated against text
type Rule struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description"`
	Pattern     string   `yaml:"pattern"`
	Severity    Severity `yaml:"severity"`

	re *regexp.Regexp
}

// Config holds the block-list, regex rules and thresholds used by the guard.
// It is read-only once compiled and safe for concurrent use.
type Config struct {
	BlockedTerms []string `yaml:"blocked_terms"`
	Rules        []Rule   `yaml:"rules"`

	MinWords     int `yaml:"min_words"`
	MaxWords     int `yaml:"max_words"`
	MinSentences int `yaml:"min_sentences"`

	// A word longer than RepetitionMinLength runes is flagged when it makes up
	// more than RepetitionRatio of all tokens and occurs more than RepetitionMinCount times.
	RepetitionMinLength int     `yaml:"repetition_min_length"`
	RepetitionRatio     float64 `yaml:"repetition_ratio"`
	RepetitionMinCount  int     `yaml:"repetition_min_count"`
}

var ErrInvalidConfig = errors.New("invalid safety configuration")

// DefaultConfig returns the built-in rule set, already compiled
func DefaultConfig() *Config {
	cfg := &Config{
		BlockedTerms: []string{
			// violence
			"öldür", "silah", "bıçakla", "savaş", "kavga", "dövüş", "tabanca",
			"kill", "murder", "weapon", "blood", "fight",
			// fear
			"korkunç", "dehşet", "kabus", "çığlık attı", "horror", "terrified", "nightmare",
			// adult themes
			"alkol", "sigara", "uyuşturucu", "sevişmek", "alcohol", "cigarette", "drugs",
			// religion and politics
			"siyaset", "politika", "seçim kampanyası", "politics", "religion",
			// supernatural and scary
			"şeytan", "hayalet", "vampir", "zombi", "iblis", "demon", "ghost", "zombie",
			// negative emotions
			"nefret", "intikam", "depresyon", "intihar", "revenge", "suicide",
		},
		Rules: []Rule{
			{
				ID:          "graphic_violence",
				Description: "Graphic violence description",
				Pattern:     `(?i)(kan\s+(aktı|döküldü|revan)|blood\s+(everywhere|spilled)|yaraland[ıi])`,
				Severity:    SeverityBlock,
			},
			{
				ID:          "contact_email",
				Description: "Contact information is inappropriate for a story",
				Pattern:     `(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`,
				Severity:    SeverityBlock,
			},
			{
				ID:          "contact_url",
				Description: "Contact information (link) is inappropriate for a story",
				Pattern:     `(?i)(https?://|www\.)\S+`,
				Severity:    SeverityBlock,
			},
			{
				ID:          "contact_phone",
				Description: "Contact information (phone number) is inappropriate for a story",
				Pattern:     `(\+\d{1,3}[ \-]?)?\(?0?\d{3}\)?[ \-]?\d{3}[ \-]?\d{2}[ \-]?\d{2}\b|\b\d{10,}\b`,
				Severity:    SeverityBlock,
			},
			{
				ID:          "scary_atmosphere",
				Description: "Scary atmosphere that may cause fear",
				Pattern:     `(?i)(karanlıkta\s+yalnız|kimse\s+yardım\s+etmedi|titreyerek\s+ağladı|alone\s+in\s+the\s+dark)`,
				Severity:    SeverityWarn,
			},
			{
				ID:          "insults",
				Description: "Insulting language is inappropriate",
				Pattern:     `(?i)(aptal|salak|ahmak|stupid|idiot)`,
				Severity:    SeverityWarn,
			},
			{
				ID:          "shouting",
				Description: "Excessive capital letters (format)",
				Pattern:     `[A-ZÇĞİÖŞÜ]{6,}`,
				Severity:    SeverityFlag,
			},
			{
				ID:          "punctuation",
				Description: "Excessive punctuation (format)",
				Pattern:     `[!?]{3,}`,
				Severity:    SeverityFlag,
			},
		},
		MinWords:            50,
		MaxWords:            1000,
		MinSentences:        3,
		RepetitionMinLength: 3,
		RepetitionRatio:     0.1,
		RepetitionMinCount:  5,
	}

	if err := cfg.Compile(); err != nil {
		panic(err) // built-in rules are constant
	}
	return cfg
}

// LoadConfig reads a YAML rule file on top of the default configuration.
// Lists present in the file replace the defaults; absent keys keep them.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read safety rules: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML rules on top of the default configuration
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Compile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Compile normalizes the block-list and compiles every rule pattern
func (c *Config) Compile() error {
	terms := make([]string, 0, len(c.BlockedTerms))
	seen := make(map[string]bool, len(c.BlockedTerms))
	for _, term := range c.BlockedTerms {
		term = normalize(strings.TrimSpace(term))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	c.BlockedTerms = terms

	for i := range c.Rules {
		rule := &c.Rules[i]
		switch rule.Severity {
		case SeverityBlock, SeverityWarn, SeverityFlag:
		default:
			return fmt.Errorf("%w: rule %q has unknown severity %q", ErrInvalidConfig, rule.ID, rule.Severity)
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return fmt.Errorf("%w: rule %q: %v", ErrInvalidConfig, rule.ID, err)
		}
		rule.re = re
	}

	if c.MinWords < 0 || c.MaxWords < c.MinWords {
		return fmt.Errorf("%w: word bounds [%d,%d]", ErrInvalidConfig, c.MinWords, c.MaxWords)
	}
	return nil
}
