package httperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mediexplain/llm-server-go/internal/archive"
	"github.com/mediexplain/llm-server-go/internal/extract"
	"github.com/mediexplain/llm-server-go/internal/gemini"
	"github.com/mediexplain/llm-server-go/internal/guard"
	"github.com/mediexplain/llm-server-go/internal/rag"
	"github.com/mediexplain/llm-server-go/internal/session"
)

// ErrorCode is the API error code.
type ErrorCode string

const (
	ErrorCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrorCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrorCodeHTTPRateLimit   ErrorCode = "HTTP_RATE_LIMIT"
	ErrorCodeLLM             ErrorCode = "LLM_ERROR"
	ErrorCodeLLMTimeout      ErrorCode = "LLM_TIMEOUT"
	ErrorCodeLLMParsing      ErrorCode = "LLM_PARSING_ERROR"
	ErrorCodeLLMModel        ErrorCode = "LLM_MODEL_ERROR"
	ErrorCodeSession         ErrorCode = "SESSION_ERROR"
	ErrorCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrorCodeSessionLimit    ErrorCode = "SESSION_LIMIT_EXCEEDED"
	ErrorCodeSessionExpired  ErrorCode = "SESSION_EXPIRED"
	ErrorCodeGuard           ErrorCode = "GUARD_ERROR"
	ErrorCodeGuardBlocked    ErrorCode = "GUARD_BLOCKED"
	ErrorCodeGuardConfig     ErrorCode = "GUARD_CONFIG_ERROR"
	ErrorCodeExtraction      ErrorCode = "EXTRACTION_ERROR"
	ErrorCodeRecordNotFound  ErrorCode = "RECORD_NOT_FOUND"
	ErrorCodeDocNotFound     ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrorCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrorCodeMissingField    ErrorCode = "MISSING_FIELD"
)

// ErrorResponse is the API error response body.
type ErrorResponse struct {
	ErrorCode string         `json:"error_code"`
	ErrorType string         `json:"error_type"`
	Message   string         `json:"message"`
	RequestID *string        `json:"request_id"`
	Details   map[string]any `json:"details"`
}

// Error is the internal canonical error type.
type Error struct {
	Code    ErrorCode
	Status  int
	Type    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

// Response converts an error into an HTTP status and response body.
func Response(err error, requestID string) (int, ErrorResponse) {
	apiErr := FromError(err)
	if apiErr == nil {
		apiErr = NewInternalError("unknown error")
	}

	var requestIDPtr *string
	if requestID != "" {
		requestIDPtr = &requestID
	}

	return apiErr.Status, ErrorResponse{
		ErrorCode: string(apiErr.Code),
		ErrorType: apiErr.Type,
		Message:   apiErr.Message,
		RequestID: requestIDPtr,
		Details:   apiErr.Details,
	}
}

// FromError maps known error values to the canonical type.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var blocked *guard.BlockedError
	if errors.As(err, &blocked) {
		return NewGuardBlocked(blocked.Score, blocked.Threshold)
	}

	if errors.Is(err, session.ErrSessionNotFound) {
		return NewSessionError("Session not found", http.StatusNotFound)
	}

	if errors.Is(err, archive.ErrRecordNotFound) {
		return NewRecordNotFound("")
	}

	if errors.Is(err, rag.ErrDocumentNotFound) {
		return NewDocumentNotFound("")
	}

	if errors.Is(err, gemini.ErrInvalidModel) {
		return NewLLMModelError("Invalid model")
	}

	if errors.Is(err, gemini.ErrMissingAPIKey) {
		return NewLLMError("Missing Gemini API key", http.StatusServiceUnavailable)
	}

	if errors.Is(err, extract.ErrEmptyInput) {
		return NewExtractionError("Model returned empty output")
	}

	var noBlock *extract.NoBlockError
	if errors.As(err, &noBlock) {
		return NewExtractionError("No structured block found in model output")
	}

	var parseErr *extract.ParseError
	if errors.As(err, &parseErr) {
		return NewExtractionError("Model output could not be parsed")
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewLLMTimeoutError("LLM request timed out")
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return NewValidationError(err)
	}

	return NewInternalError(err.Error())
}

// NewInternalError builds an internal error.
func NewInternalError(message string) *Error {
	return &Error{
		Code:    ErrorCodeInternal,
		Status:  http.StatusInternalServerError,
		Type:    "InternalError",
		Message: message,
		Details: nil,
	}
}

// NewValidationError builds a validation error.
func NewValidationError(err error) *Error {
	return &Error{
		Code:    ErrorCodeValidation,
		Status:  http.StatusUnprocessableEntity,
		Type:    "ValidationError",
		Message: "Input validation failed",
		Details: validationDetails(err),
	}
}

// NewMissingField builds a missing-field error.
func NewMissingField(field string) *Error {
	return &Error{
		Code:    ErrorCodeMissingField,
		Status:  http.StatusBadRequest,
		Type:    "MissingFieldError",
		Message: fmt.Sprintf("Field '%s' required", field),
		Details: map[string]any{"field": field},
	}
}

// NewInvalidInput builds an invalid-input error.
func NewInvalidInput(message string) *Error {
	return &Error{
		Code:    ErrorCodeInvalidInput,
		Status:  http.StatusBadRequest,
		Type:    "InvalidInputError",
		Message: message,
		Details: nil,
	}
}

// NewUnauthorized builds an authentication error.
func NewUnauthorized(details map[string]any) *Error {
	return &Error{
		Code:    ErrorCodeUnauthorized,
		Status:  http.StatusUnauthorized,
		Type:    "UnauthorizedError",
		Message: "Invalid API key",
		Details: details,
	}
}

// NewRateLimitExceeded builds a throttling error.
func NewRateLimitExceeded(details map[string]any) *Error {
	return &Error{
		Code:    ErrorCodeHTTPRateLimit,
		Status:  http.StatusTooManyRequests,
		Type:    "HTTPRateLimitExceededError",
		Message: "Rate limit exceeded",
		Details: details,
	}
}

// NewGuardBlocked builds a guard rejection error.
func NewGuardBlocked(score float64, threshold float64) *Error {
	return &Error{
		Code:    ErrorCodeGuardBlocked,
		Status:  http.StatusBadRequest,
		Type:    "GuardBlockedError",
		Message: fmt.Sprintf("Input blocked by injection guard (score=%.2f, threshold=%.2f)", score, threshold),
		Details: map[string]any{"score": score, "threshold": threshold},
	}
}

// NewSessionNotFound builds a session-miss error.
func NewSessionNotFound(sessionID string) *Error {
	return &Error{
		Code:    ErrorCodeSessionNotFound,
		Status:  http.StatusNotFound,
		Type:    "SessionNotFoundError",
		Message: fmt.Sprintf("Session '%s' not found", sessionID),
		Details: map[string]any{"session_id": sessionID},
	}
}

// NewRecordNotFound builds an archive-miss error.
func NewRecordNotFound(recordID string) *Error {
	message := "Record not found"
	var details map[string]any
	if recordID != "" {
		message = fmt.Sprintf("Record '%s' not found", recordID)
		details = map[string]any{"record_id": recordID}
	}
	return &Error{
		Code:    ErrorCodeRecordNotFound,
		Status:  http.StatusNotFound,
		Type:    "RecordNotFoundError",
		Message: message,
		Details: details,
	}
}

// NewDocumentNotFound builds an index-miss error.
func NewDocumentNotFound(docID string) *Error {
	message := "Document not found"
	var details map[string]any
	if docID != "" {
		message = fmt.Sprintf("Document '%s' not found", docID)
		details = map[string]any{"doc_id": docID}
	}
	return &Error{
		Code:    ErrorCodeDocNotFound,
		Status:  http.StatusNotFound,
		Type:    "DocumentNotFoundError",
		Message: message,
		Details: details,
	}
}

// NewExtractionError builds an error for unusable model output.
func NewExtractionError(message string) *Error {
	return &Error{
		Code:    ErrorCodeExtraction,
		Status:  http.StatusBadGateway,
		Type:    "ExtractionError",
		Message: message,
		Details: nil,
	}
}

// NewSessionError builds a session error.
func NewSessionError(message string, status int) *Error {
	return &Error{
		Code:    ErrorCodeSession,
		Status:  status,
		Type:    "SessionError",
		Message: message,
		Details: nil,
	}
}

// NewLLMModelError builds a model selection error.
func NewLLMModelError(message string) *Error {
	return &Error{
		Code:    ErrorCodeLLMModel,
		Status:  http.StatusBadRequest,
		Type:    "LLMModelError",
		Message: message,
		Details: nil,
	}
}

// NewLLMTimeoutError builds a timeout error.
func NewLLMTimeoutError(message string) *Error {
	return &Error{
		Code:    ErrorCodeLLMTimeout,
		Status:  http.StatusGatewayTimeout,
		Type:    "LLMTimeoutError",
		Message: message,
		Details: nil,
	}
}

// NewLLMError builds a generic LLM error.
func NewLLMError(message string, status int) *Error {
	return &Error{
		Code:    ErrorCodeLLM,
		Status:  status,
		Type:    "LLMError",
		Message: message,
		Details: nil,
	}
}

// FieldError is a per-field validation detail.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

func validationDetails(err error) map[string]any {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make([]FieldError, 0, len(validationErrors))
		for _, validationErr := range validationErrors {
			fields = append(fields, FieldError{
				Field:   validationErr.Field(),
				Message: validationErr.Error(),
				Value:   validationErr.Value(),
			})
		}
		return map[string]any{"errors": fields}
	}

	return map[string]any{
		"errors": []FieldError{
			{
				Field:   "body",
				Message: err.Error(),
				Value:   nil,
			},
		},
	}
}
