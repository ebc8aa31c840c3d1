package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/teilomillet/promptsmith/utils"
)

// ErrorType represents the type of an error
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeProvider
	ErrorTypeRequest
	ErrorTypeResponse
	ErrorTypeAPI
	ErrorTypeRateLimit
	ErrorTypeAuthentication
	ErrorTypeInvalidInput
)

// LLMError represents an error in the LLM package. Every failure of a chat call
// is reported as one, so callers can branch on Type with errors.As.
type LLMError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
}

func (e *LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.TypeString(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.TypeString(), e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

func (e *LLMError) TypeString() string {
	switch e.Type {
	case ErrorTypeProvider:
		return "ProviderError"
	case ErrorTypeRequest:
		return "RequestError"
	case ErrorTypeResponse:
		return "ResponseError"
	case ErrorTypeAPI:
		return "APIError"
	case ErrorTypeRateLimit:
		return "RateLimitError"
	case ErrorTypeAuthentication:
		return "AuthenticationError"
	case ErrorTypeInvalidInput:
		return "InvalidInputError"
	default:
		return "UnknownError"
	}
}

// LoggableFields returns the error as key/value pairs for a structured logger.
func (e *LLMError) LoggableFields() []any {
	return []any{
		"error_type", e.TypeString(),
		"message", e.Message,
		"error", e.Err,
	}
}

// NewLLMError creates a new LLMError
func NewLLMError(errType ErrorType, message string, err error) *LLMError {
	return &LLMError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// NewStatusError maps a non-2xx HTTP status to the matching error type.
func NewStatusError(statusCode int, body string) *LLMError {
	errType := ErrorTypeAPI
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		errType = ErrorTypeAuthentication
	case http.StatusTooManyRequests:
		errType = ErrorTypeRateLimit
	}

	llmErr := NewLLMError(errType, fmt.Sprintf("API error: status code %d", statusCode), nil)
	llmErr.StatusCode = statusCode
	if body != "" {
		llmErr.Err = errors.New(body)
	}
	return llmErr
}

// IsType reports whether err is an LLMError of the given type.
func IsType(err error, errType ErrorType) bool {
	var llmErr *LLMError
	return errors.As(err, &llmErr) && llmErr.Type == errType
}

// HandleError logs err at error level. When fatal is set it panics afterwards.
func HandleError(err error, fatal bool, logger utils.Logger) {
	if err == nil {
		return
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		logger.Error(llmErr.Message, llmErr.LoggableFields()...)
	} else {
		logger.Error("An error occurred", "error", err)
	}

	if fatal {
		panic(err)
	}
}
