// Package validation checks model replies and generation requests.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/chynybekuuludastan/story_generator/internal/service/llm"
	"github.com/chynybekuuludastan/story_generator/internal/service/safety"
)

// WordRange is an inclusive word-count acceptance band
type WordRange struct {
	Min int
	Max int
}

// Contains reports whether n lies in the band
func (r WordRange) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

// AgeBounds is the inclusive range of accepted ages
type AgeBounds struct {
	Min int
	Max int
}

// Accepted word counts per length. These are wider than the ranges requested in
// the prompt.
var WordCountRanges = map[llm.Length]WordRange{
	llm.LengthShort:  {Min: 80, Max: 220},
	llm.LengthMedium: {Min: 180, Max: 420},
	llm.LengthLong:   {Min: 350, Max: 650},
}

// Config holds validator tunables
type Config struct {
	RepetitionThreshold float64
	AgeBounds           AgeBounds
	Guard               *safety.Guard
}

// DefaultConfig returns the default validator configuration
func DefaultConfig() Config {
	return Config{
		RepetitionThreshold: 0.3,
		AgeBounds:           AgeBounds{Min: 3, Max: 14},
	}
}

// Result is the outcome of ValidateStoryResponse
type Result struct {
	Valid  bool                  `json:"valid"`
	Data   *llm.GenerationResult `json:"data,omitempty"`
	Errors []llm.ValidationError `json:"errors"`
}

// QuickResult is the outcome of QuickValidateJSON
type QuickResult struct {
	Valid bool                  `json:"valid"`
	Data  *llm.GenerationResult `json:"data,omitempty"`
	Error string                `json:"error,omitempty"`
}

// Validator validates model replies and requests against a configuration
type Validator struct {
	config   Config
	validate *validator.Validate
}

// New creates a validator; zero fields of cfg take their defaults
func New(cfg Config) *Validator {
	defaults := DefaultConfig()
	if cfg.RepetitionThreshold <= 0 {
		cfg.RepetitionThreshold = defaults.RepetitionThreshold
	}
	if cfg.AgeBounds.Min == 0 && cfg.AgeBounds.Max == 0 {
		cfg.AgeBounds = defaults.AgeBounds
	}
	if cfg.Guard == nil {
		cfg.Guard = safety.NewGuard(nil)
	}

	v := &Validator{config: cfg, validate: validator.New()}
	v.validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	v.register("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	v.register("theme", func(fl validator.FieldLevel) bool {
		return llm.Theme(fl.Field().String()).IsValid()
	})
	v.register("length", func(fl validator.FieldLevel) bool {
		return llm.Length(fl.Field().String()).IsValid()
	})
	v.register("language", func(fl validator.FieldLevel) bool {
		lang := fl.Field().String()
		for _, l := range llm.Languages {
			if l == lang {
				return true
			}
		}
		return false
	})
	v.register("agebounds", func(fl validator.FieldLevel) bool {
		age := int(fl.Field().Int())
		return age >= v.config.AgeBounds.Min && age <= v.config.AgeBounds.Max
	})

	return v
}

func (v *Validator) register(tag string, fn validator.Func) {
	if err := v.validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// Config returns the validator configuration
func (v *Validator) Config() Config {
	return v.config
}

var defaultValidator = New(DefaultConfig())

// ValidateStoryResponse validates raw model text with the default configuration
func ValidateStoryResponse(rawText string, expectedLength llm.Length) Result {
	return defaultValidator.ValidateStoryResponse(rawText, expectedLength)
}

// QuickValidateJSON runs the parse and schema steps with the default configuration
func QuickValidateJSON(rawText string) QuickResult {
	return defaultValidator.QuickValidateJSON(rawText)
}

// ValidateStoryResponse parses the model reply, checks its schema and then runs
// the safety, word count, quality and language checks on the content. Errors of
// the content checks accumulate.
func (v *Validator) ValidateStoryResponse(rawText string, expectedLength llm.Length) Result {
	data, errs := v.parse(rawText)
	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}

	errs = append(errs, v.checkSafety(data.Content)...)
	if err := checkWordCount(data.Content, expectedLength); err != nil {
		errs = append(errs, *err)
	}
	errs = append(errs, v.checkQuality(data.Content)...)
	errs = append(errs, checkLanguage(data.Content)...)

	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}
	return Result{Valid: true, Data: data, Errors: []llm.ValidationError{}}
}

// QuickValidateJSON runs only the parse and schema steps
func (v *Validator) QuickValidateJSON(rawText string) QuickResult {
	data, errs := v.parse(rawText)
	if len(errs) > 0 {
		return QuickResult{Valid: false, Error: llm.JoinErrors(errs)}
	}
	return QuickResult{Valid: true, Data: data}
}

// resultFields lists the reply fields in reporting order
var resultFields = []string{"title", "content", "wordCount", "theme", "language"}

func (v *Validator) parse(rawText string) (*llm.GenerationResult, []llm.ValidationError) {
	raw := []byte(rawText)
	if !json.Valid(raw) {
		return nil, []llm.ValidationError{{
			Field:   "response",
			Message: "response is not valid JSON",
			Code:    llm.CodeInvalidJSON,
		}}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, []llm.ValidationError{schemaError("response", "response must be a JSON object")}
	}

	result := &llm.GenerationResult{}
	typeErrors := map[string]string{}
	for _, name := range resultFields {
		value, ok := fields[name]
		if !ok || string(value) == "null" {
			typeErrors[name] = fmt.Sprintf("%s is required", name)
			continue
		}

		var err error
		switch name {
		case "title":
			err = json.Unmarshal(value, &result.Title)
		case "content":
			err = json.Unmarshal(value, &result.Content)
		case "wordCount":
			err = json.Unmarshal(value, &result.WordCount)
		case "theme":
			err = json.Unmarshal(value, &result.Theme)
		case "language":
			err = json.Unmarshal(value, &result.Language)
		}
		if err != nil {
			kind := "a string"
			if name == "wordCount" {
				kind = "an integer"
			}
			typeErrors[name] = fmt.Sprintf("%s must be %s", name, kind)
		}
	}

	tagErrors := map[string]string{}
	if err := v.validate.Struct(result); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return nil, []llm.ValidationError{schemaError("response", err.Error())}
		}
		for _, fe := range fieldErrors {
			tagErrors[fe.Field()] = describe(fe)
		}
	}

	var errs []llm.ValidationError
	for _, name := range resultFields {
		if msg, ok := typeErrors[name]; ok {
			errs = append(errs, schemaError(name, msg))
		} else if msg, ok := tagErrors[name]; ok {
			errs = append(errs, schemaError(name, msg))
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return result, nil
}

func schemaError(field, message string) llm.ValidationError {
	return llm.ValidationError{Field: field, Message: message, Code: llm.CodeSchemaValidation}
}

// describe renders a validator field error as a short message
func describe(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", fe.Field(), fe.Param(), unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", fe.Field(), fe.Param(), unit)
	case "theme":
		return fmt.Sprintf("%s %q is not a supported theme", fe.Field(), fe.Value())
	case "language":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.Join(llm.Languages, ", "))
	case "length":
		return fmt.Sprintf("%s %q is not a supported length", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
