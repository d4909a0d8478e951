package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/chynybekuuludastan/story_generator/internal/service/llm"
)

// requestCodes maps request fields to their error codes
var requestCodes = map[string]llm.ErrorCode{
	"childName": llm.CodeMissingChildName,
	"age":       llm.CodeInvalidAge,
	"theme":     llm.CodeInvalidTheme,
	"length":    llm.CodeInvalidLength,
}

// IsRecoverableError reports whether asking the generator again may fix errs
func IsRecoverableError(errs []llm.ValidationError) bool {
	for _, e := range errs {
		switch e.Code {
		case llm.CodeInvalidJSON,
			llm.CodeWordCountMismatch,
			llm.CodeInsufficientStructure,
			llm.CodeNotStoryFormat:
			return true
		}
	}
	return false
}

// ValidateRequest validates a generation request with the default configuration
func ValidateRequest(request *llm.GenerationRequest) []llm.ValidationError {
	return defaultValidator.ValidateRequest(request)
}

// ValidateRequest checks name, age bounds, theme and length of a request
func (v *Validator) ValidateRequest(request *llm.GenerationRequest) []llm.ValidationError {
	if request == nil {
		return []llm.ValidationError{{
			Field:   "childName",
			Message: "request is empty",
			Code:    llm.CodeMissingChildName,
		}}
	}

	err := v.validate.Struct(request)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []llm.ValidationError{schemaError("request", err.Error())}
	}

	errs := make([]llm.ValidationError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		code, ok := requestCodes[fe.Field()]
		if !ok {
			code = llm.CodeSchemaValidation
		}
		errs = append(errs, llm.ValidationError{
			Field:   fe.Field(),
			Message: v.describeRequest(fe),
			Code:    code,
		})
	}
	return errs
}

func (v *Validator) describeRequest(fe validator.FieldError) string {
	switch fe.Field() {
	case "childName":
		return "child name is required"
	case "age":
		return fmt.Sprintf("age must be between %d and %d", v.config.AgeBounds.Min, v.config.AgeBounds.Max)
	case "theme":
		themes := make([]string, 0, len(llm.Themes))
		for _, t := range llm.Themes {
			themes = append(themes, string(t))
		}
		return fmt.Sprintf("theme must be one of %s", strings.Join(themes, ", "))
	case "length":
		return "length must be one of short, medium, long"
	}
	return describe(fe)
}
