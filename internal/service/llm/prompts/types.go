package prompts

import (
	"github.com/chynybekuuludastan/story_generator/internal/service/llm"
)

// AgeBand groups ages that share a writing style
type AgeBand string

const (
	AgeBandPreschool AgeBand = "preschool" // 5 and younger
	AgeBandEarly     AgeBand = "early"     // 6-8
	AgeBandMiddle    AgeBand = "middle"    // 9-12
	AgeBandTeen      AgeBand = "teen"      // 13 and older
)

// AgeBandFor classifies an age into its band
func AgeBandFor(age int) AgeBand {
	switch {
	case age <= 5:
		return AgeBandPreschool
	case age <= 8:
		return AgeBandEarly
	case age <= 12:
		return AgeBandMiddle
	default:
		return AgeBandTeen
	}
}

// LengthSpec describes the size requested from the model. The range is what the
// prompt asks for; the validator accepts a wider band.
type LengthSpec struct {
	WordCount   int
	Min         int
	Max         int
	Complexity  string
	Description string
}

// Template is the static configuration used to render prompts
type Template struct {
	Version            string
	Base               string
	AgeModifiers       map[AgeBand]string
	ThemeDescriptions  map[llm.Theme]string
	LengthSpecs        map[llm.Length]LengthSpec
	SafetyInstructions string
}

// Placeholders understood by Template.Base
const (
	PlaceholderChildName = "{childName}"
	PlaceholderAge       = "{age}"
	PlaceholderLength    = "{length}"
	PlaceholderTheme     = "{theme}"
)
