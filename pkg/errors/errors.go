package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryParse         ErrorCategory = "parse"
	CategoryValidation    ErrorCategory = "validation"
	CategoryState         ErrorCategory = "state"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryPublish       ErrorCategory = "publish"
	CategoryAuth          ErrorCategory = "auth"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound      ErrorCode = "file_not_found"
	CodeFilePermission    ErrorCode = "file_permission"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"
	CodeFileCorrupted     ErrorCode = "file_corrupted"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeEncodingError ErrorCode = "encoding_error"

	// Validation errors
	CodeMissingColumn ErrorCode = "missing_column"
	CodeEmptyFile     ErrorCode = "empty_file"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeInvalidOption ErrorCode = "invalid_option"

	// State errors
	CodeMissingPrerequisite ErrorCode = "missing_prerequisite"
	CodeSessionNotFound     ErrorCode = "session_not_found"
	CodeNoResult            ErrorCode = "no_result"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Publish errors
	CodePublishFailed    ErrorCode = "publish_failed"
	CodeConnectionFailed ErrorCode = "connection_failed"

	// Auth errors
	CodeAccessDenied ErrorCode = "access_denied"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// AnalyzerError is the base error type for all application errors
type AnalyzerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *AnalyzerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *AnalyzerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *AnalyzerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryState, CategoryInternal:
		return 5
	case CategoryPublish:
		return 6
	case CategoryAuth:
		return 7
	default:
		return 1
	}
}

// HTTPStatus returns the status code an API handler should answer with
func (e *AnalyzerError) HTTPStatus() int {
	switch e.Category {
	case CategoryFile, CategoryParse, CategoryValidation:
		if e.Code == CodeUnsupportedFormat {
			return http.StatusUnsupportedMediaType
		}
		return http.StatusBadRequest
	case CategoryState:
		if e.Code == CodeSessionNotFound {
			return http.StatusNotFound
		}
		return http.StatusConflict
	case CategoryAuth:
		return http.StatusForbidden
	case CategoryPublish:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsWarning reports whether the error only blocks the requested action.
// Missing prerequisite state is shown to operators as a warning.
func (e *AnalyzerError) IsWarning() bool {
	return e.Category == CategoryState && e.Code == CodeMissingPrerequisite
}

// WithContext adds context information to the error
func (e *AnalyzerError) WithContext(key string, value interface{}) *AnalyzerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *AnalyzerError) WithSuggestion(suggestion string) *AnalyzerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new AnalyzerError
func New(category ErrorCategory, code ErrorCode, message string) *AnalyzerError {
	return &AnalyzerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with AnalyzerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *AnalyzerError {
	if err == nil {
		return nil
	}

	return &AnalyzerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *AnalyzerError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeUnsupportedFormat:
		message = fmt.Sprintf("unsupported file format: %s", path)
		suggestion = "upload a .xlsx, .xls, .csv or .tsv file"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file could not be decoded: %s", path)
		suggestion = "re-export the file from the source system and try again"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *AnalyzerError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates a parsing-related error
func ParseError(code ErrorCode, file string, line int, err error) *AnalyzerError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("malformed content in file %s at line %d", file, line)
		suggestion = "check the delimiter and quoting of the file"
	case CodeEncodingError:
		message = fmt.Sprintf("encoding error in file %s at line %d", file, line)
		suggestion = "save the file in UTF-8 encoding"
	default:
		message = fmt.Sprintf("parse error in file %s at line %d", file, line)
		suggestion = "check the file format and data integrity"
	}

	var result *AnalyzerError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *AnalyzerError {
	var message string
	var suggestion string

	switch code {
	case CodeEmptyFile:
		message = fmt.Sprintf("file '%s' has no header row", field)
		suggestion = "ensure the file contains a header row followed by data rows"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in '%s': %v", field, value)
		suggestion = "use the DD-MM-YYYY format"
	case CodeInvalidOption:
		message = fmt.Sprintf("invalid value for '%s': %v", field, value)
		suggestion = "check the accepted values in the command help"
	default:
		message = fmt.Sprintf("validation error in '%s': %v", field, value)
		suggestion = "check the value and format"
	}

	var result *AnalyzerError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ColumnGap lists the required columns one input table lacks.
type ColumnGap struct {
	Input   string   `json:"input"`
	Columns []string `json:"columns"`
}

// MissingColumnsError reports every required column absent from each input.
// Gaps with no columns are left out of the message.
func MissingColumnsError(gaps ...ColumnGap) *AnalyzerError {
	var parts []string
	var kept []ColumnGap
	for _, gap := range gaps {
		if len(gap.Columns) == 0 {
			continue
		}
		kept = append(kept, gap)
		parts = append(parts, fmt.Sprintf("%s: [%s]", gap.Input, strings.Join(gap.Columns, ", ")))
	}

	return New(CategoryValidation, CodeMissingColumn, "missing columns: "+strings.Join(parts, "; ")).
		WithSuggestion("verify the file has all required columns with the expected headers").
		WithContext("missing_columns", kept)
}

// MissingColumns extracts the column gaps carried by a missing-columns error.
func MissingColumns(err error) []ColumnGap {
	analyzerErr, ok := AsAnalyzerError(err)
	if !ok || analyzerErr.Code != CodeMissingColumn {
		return nil
	}
	gaps, _ := analyzerErr.Context["missing_columns"].([]ColumnGap)
	return gaps
}

// StateError creates an error for an action attempted out of order
func StateError(code ErrorCode, action string) *AnalyzerError {
	var message string
	var suggestion string

	switch code {
	case CodeMissingPrerequisite:
		message = fmt.Sprintf("please run the maturity report first (requested: %s)", action)
		suggestion = "run the maturity report for this session, then retry"
	case CodeSessionNotFound:
		message = fmt.Sprintf("session not found: %s", action)
		suggestion = "create a new session and upload the files again"
	case CodeNoResult:
		message = fmt.Sprintf("no report available for %s", action)
		suggestion = "run a report before downloading or publishing"
	default:
		message = fmt.Sprintf("action not allowed now: %s", action)
		suggestion = "check the order of operations"
	}

	return New(CategoryState, code, message).
		WithSuggestion(suggestion).
		WithContext("action", action)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *AnalyzerError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "set it in the environment, the .env file or the config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *AnalyzerError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting)
}

// PublishError creates an error for a failed remote spreadsheet write
func PublishError(code ErrorCode, target string, err error) *AnalyzerError {
	var message string
	var suggestion string

	switch code {
	case CodeConnectionFailed:
		message = fmt.Sprintf("could not connect to %s", target)
		suggestion = "check the credentials file and network connectivity"
	default:
		message = fmt.Sprintf("failed to upload to %s", target)
		suggestion = "the remote tab may be partially written; run the publish again"
	}
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}

	var result *AnalyzerError
	if err != nil {
		result = Wrap(err, CategoryPublish, code, message)
	} else {
		result = New(CategoryPublish, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("target", target)
}

// AccessDenied is returned for a wrong admin password. It carries no detail.
func AccessDenied() *AnalyzerError {
	return New(CategoryAuth, CodeAccessDenied, "incorrect password, access denied")
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *AnalyzerError {
	var result *AnalyzerError
	message := fmt.Sprintf("unexpected error during %s", operation)
	if err != nil {
		result = Wrap(err, CategoryInternal, code, message)
	} else {
		result = New(CategoryInternal, code, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// IsAnalyzerError checks if an error is an AnalyzerError
func IsAnalyzerError(err error) bool {
	_, ok := err.(*AnalyzerError)
	return ok
}

// AsAnalyzerError extracts an AnalyzerError from an error chain
func AsAnalyzerError(err error) (*AnalyzerError, bool) {
	var analyzerErr *AnalyzerError
	if errors.As(err, &analyzerErr) {
		return analyzerErr, true
	}
	return nil, false
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// WrapIfNeeded wraps an error if it's not already an AnalyzerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *AnalyzerError {
	if err == nil {
		return nil
	}

	if analyzerErr, ok := AsAnalyzerError(err); ok {
		return analyzerErr
	}

	return Wrap(err, category, code, message)
}
