package llm

import (
	"strings"
)

// Theme is one of the fixed story themes
type Theme string

const (
	ThemeAdventure  Theme = "adventure"
	ThemeFriendship Theme = "friendship"
	ThemeNature     Theme = "nature"
	ThemeAnimals    Theme = "animals"
	ThemeSpace      Theme = "space"
	ThemeMagic      Theme = "magic"
	ThemeFamily     Theme = "family"
	ThemeLearning   Theme = "learning"
)

// Themes lists every supported theme in a stable order
var Themes = []Theme{
	ThemeAdventure,
	ThemeFriendship,
	ThemeNature,
	ThemeAnimals,
	ThemeSpace,
	ThemeMagic,
	ThemeFamily,
	ThemeLearning,
}

// IsValid reports whether the theme is a member of the enum
func (t Theme) IsValid() bool {
	for _, theme := range Themes {
		if theme == t {
			return true
		}
	}
	return false
}

// Length selects the target size of a story
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// Lengths lists every supported length
var Lengths = []Length{LengthShort, LengthMedium, LengthLong}

// IsValid reports whether the length is a member of the enum
func (l Length) IsValid() bool {
	switch l {
	case LengthShort, LengthMedium, LengthLong:
		return true
	}
	return false
}

// Languages accepted in a generated story
var Languages = []string{"tr", "en"}

// GenerationRequest represents a personalization request for a story
type GenerationRequest struct {
	ChildName string   `json:"childName" validate:"required,notblank"`
	Age       int      `json:"age" validate:"agebounds"`
	Theme     Theme    `json:"theme" validate:"theme"`
	Length    Length   `json:"length" validate:"length"`
	Elements  []string `json:"elements,omitempty"`
	Token     string   `json:"-"`
}

// CustomElements returns the trimmed, non-empty elements of the request
func (r *GenerationRequest) CustomElements() []string {
	var elements []string
	for _, e := range r.Elements {
		if e = strings.TrimSpace(e); e != "" {
			elements = append(elements, e)
		}
	}
	return elements
}

// GenerationResult is a candidate story parsed from the model reply
type GenerationResult struct {
	Title     string `json:"title" validate:"min=5,max=100,notblank"`
	Content   string `json:"content" validate:"min=50,max=3000,notblank"`
	WordCount int    `json:"wordCount" validate:"min=50,max=800"`
	Theme     Theme  `json:"theme" validate:"theme"`
	Language  string `json:"language" validate:"language"`
}

// SafetyRating is a provider-reported harm probability for one category
type SafetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
	Blocked     bool   `json:"blocked,omitempty"`
}

// GenerationOutput is the raw reply of a provider for one attempt
type GenerationOutput struct {
	Text             string         `json:"text"`
	SafetyRatings    []SafetyRating `json:"safety_ratings,omitempty"`
	Model            string         `json:"model"`
	Provider         string         `json:"provider"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
}
