package llm

import (
	"fmt"
	"strings"
)

// ErrorCode is a machine-readable validation failure code
type ErrorCode string

const (
	CodeInvalidJSON           ErrorCode = "INVALID_JSON"
	CodeSchemaValidation      ErrorCode = "SCHEMA_VALIDATION_ERROR"
	CodeContentSafetyFailed   ErrorCode = "CONTENT_SAFETY_FAILED"
	CodeWordCountMismatch     ErrorCode = "WORD_COUNT_MISMATCH"
	CodeInsufficientStructure ErrorCode = "INSUFFICIENT_STRUCTURE"
	CodeExcessiveRepetition   ErrorCode = "EXCESSIVE_REPETITION"
	CodeNotStoryFormat        ErrorCode = "NOT_STORY_FORMAT"
	CodeNoTurkishCharacters   ErrorCode = "NO_TURKISH_CHARACTERS"
	CodeNotTurkishLanguage    ErrorCode = "NOT_TURKISH_LANGUAGE"
	CodeMissingChildName      ErrorCode = "MISSING_CHILD_NAME"
	CodeInvalidAge            ErrorCode = "INVALID_AGE"
	CodeInvalidTheme          ErrorCode = "INVALID_THEME"
	CodeInvalidLength         ErrorCode = "INVALID_LENGTH"
)

// ValidationError describes one failed check
type ValidationError struct {
	Field   string    `json:"field"`
	Message string    `json:"message"`
	Code    ErrorCode `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Code)
}

// JoinErrors renders a list of validation errors as one human-readable line
func JoinErrors(errs []ValidationError) string {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Message)
	}
	return strings.Join(messages, "; ")
}

// ErrorCodes extracts the codes of a list of validation errors
func ErrorCodes(errs []ValidationError) []string {
	codes := make([]string, 0, len(errs))
	for _, e := range errs {
		codes = append(codes, string(e.Code))
	}
	return codes
}
