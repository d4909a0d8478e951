package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/chynybekuuludastan/story_generator/internal/service/llm"
)

const (
	minPromptLength   = 100
	maxPromptLength   = 2000
	maxErrorTextRunes = 300
)

// Builder renders generation prompts from a template
type Builder struct {
	template *Template
}

// NewBuilder creates a prompt builder; a nil template selects DefaultTemplate
func NewBuilder(template *Template) *Builder {
	if template == nil {
		template = DefaultTemplate()
	}
	return &Builder{template: template}
}

// Version returns the template version
func (b *Builder) Version() string {
	return b.template.Version
}

// LengthSpec returns the prompt-facing spec for a length, defaulting to short
func (b *Builder) LengthSpec(length llm.Length) LengthSpec {
	if spec, ok := b.template.LengthSpecs[length]; ok {
		return spec
	}
	return b.template.LengthSpecs[llm.LengthShort]
}

// BuildStoryPrompt creates the generation prompt for a request
func (b *Builder) BuildStoryPrompt(request *llm.GenerationRequest) string {
	var sb strings.Builder

	spec := b.LengthSpec(request.Length)
	themeDescription, ok := b.template.ThemeDescriptions[request.Theme]
	if !ok {
		themeDescription = b.template.ThemeDescriptions[llm.ThemeAdventure]
	}

	replacer := strings.NewReplacer(
		PlaceholderChildName, request.ChildName,
		PlaceholderAge, strconv.Itoa(request.Age),
		PlaceholderLength, spec.Description,
		PlaceholderTheme, themeDescription,
	)
	sb.WriteString(replacer.Replace(b.template.Base))
	sb.WriteString("\n\n")

	if modifier := b.template.AgeModifiers[AgeBandFor(request.Age)]; modifier != "" {
		sb.WriteString(modifier)
		sb.WriteString("\n\n")
	}

	if elements := request.CustomElements(); len(elements) > 0 {
		sb.WriteString(fmt.Sprintf("Hikayede şu öğeler yer alsın: %s.\n\n", strings.Join(elements, ", ")))
	}

	sb.WriteString(fmt.Sprintf("Hikaye yaklaşık %d kelime olmalı (%d-%d kelime arası).\n\n",
		spec.WordCount, spec.Min, spec.Max))

	sb.WriteString(b.template.SafetyInstructions)
	sb.WriteString("\n\n")

	theme := request.Theme
	if !theme.IsValid() {
		theme = llm.ThemeAdventure
	}
	example, _ := json.Marshal(map[string]any{
		"title":     "Hikaye başlığı",
		"content":   "Hikaye metni",
		"wordCount": spec.WordCount,
		"theme":     theme,
		"language":  "tr",
	})
	sb.WriteString("Yanıtı açıklama eklemeden yalnızca şu JSON formatında ver:\n")
	sb.Write(example)

	return sb.String()
}

// checkAges covers every age band
var checkAges = []int{4, 7, 10, 13}

// Check renders a story prompt for every theme, length and age band and runs
// ValidatePrompt on each one
func (b *Builder) Check() error {
	var errs []error
	for _, theme := range llm.Themes {
		for _, length := range llm.Lengths {
			for _, age := range checkAges {
				request := &llm.GenerationRequest{ChildName: "Ada", Age: age, Theme: theme, Length: length}
				if result := ValidatePrompt(b.BuildStoryPrompt(request)); !result.Valid {
					errs = append(errs, fmt.Errorf("template %s, %s/%s age %d: %s",
						b.template.Version, theme, length, age, strings.Join(result.Errors, "; ")))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// BuildRetryPrompt re-renders the story prompt and appends the previous failure
func (b *Builder) BuildRetryPrompt(request *llm.GenerationRequest, previousError string) string {
	var sb strings.Builder

	sb.WriteString(b.BuildStoryPrompt(request))
	sb.WriteString("\n\nÖNCEKİ HATA: ")
	sb.WriteString(truncate(previousError, maxErrorTextRunes))
	sb.WriteString("\nLütfen bu hatayı düzelt ve yanıtı yalnızca geçerli JSON formatında tekrar gönder.")

	return sb.String()
}

// PromptValidation is the result of ValidatePrompt
type PromptValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

var (
	childMarkers = []string{"çocuk", "child"}
	storyMarkers = []string{"hikaye", "story"}
)

// ValidatePrompt guards against a malformed template
func ValidatePrompt(prompt string) PromptValidation {
	errs := []string{}

	length := utf8.RuneCountInString(prompt)
	if length < minPromptLength {
		errs = append(errs, fmt.Sprintf("prompt too short: %d characters", length))
	}
	if length > maxPromptLength {
		errs = append(errs, fmt.Sprintf("prompt too long: %d characters", length))
	}
	if !strings.Contains(prompt, "JSON") {
		errs = append(errs, "prompt does not request JSON output")
	}

	lower := strings.ToLower(prompt)
	if !containsAny(lower, childMarkers) && !containsAny(lower, storyMarkers) {
		errs = append(errs, "prompt does not mention a child or a story")
	}

	return PromptValidation{Valid: len(errs) == 0, Errors: errs}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func truncate(s string, maxRunes int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > maxRunes {
		return string(runes[:maxRunes]) + "..."
	}
	return string(runes)
}
