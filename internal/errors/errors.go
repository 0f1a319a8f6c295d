package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a categorized error code
type ErrorCode string

const (
	// Validation errors
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	CodeNotFound   ErrorCode = "NOT_FOUND"

	// Playlist errors
	CodeParse            ErrorCode = "PARSE_ERROR"
	CodeInvalidPlaylist  ErrorCode = "INVALID_PLAYLIST"
	CodePlaylistTooLarge ErrorCode = "PLAYLIST_TOO_LARGE"

	// Collaborator errors
	CodeFetch               ErrorCode = "FETCH_ERROR"
	CodeGuide               ErrorCode = "GUIDE_ERROR"
	CodePlayback            ErrorCode = "PLAYBACK_ERROR"
	CodePlaybackUnsupported ErrorCode = "PLAYBACK_UNSUPPORTED"
	CodeServiceUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"
	CodeServiceTimeout      ErrorCode = "SERVICE_TIMEOUT"
	CodeRateLimited         ErrorCode = "RATE_LIMITED"

	// Storage errors
	CodeStore ErrorCode = "STORE_ERROR"

	// Config errors
	CodeConfig ErrorCode = "CONFIG_ERROR"

	// Internal errors
	CodeInternal ErrorCode = "INTERNAL_ERROR"
	CodeUnknown  ErrorCode = "UNKNOWN_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError creates a validation error
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error
func NotFoundError(resource, identifier string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found: %s", resource, identifier))
}

// FetchError creates an error for a failed document retrieval
func FetchError(url, message string, err error) *AppError {
	return Wrap(err, CodeFetch, message).WithContext("url", url)
}

// GuideError creates an error raised by the guide-loading collaborator
func GuideError(message string, err error) *AppError {
	return Wrap(err, CodeGuide, message)
}

// PlaybackError creates an error raised by the playback collaborator
func PlaybackError(message string, err error) *AppError {
	return Wrap(err, CodePlayback, message)
}

// PlaybackUnsupported creates an error for a player that cannot handle a stream
func PlaybackUnsupported(message string) *AppError {
	return New(CodePlaybackUnsupported, message)
}

// StoreError creates a persistence error
func StoreError(message string, err error) *AppError {
	return Wrap(err, CodeStore, message)
}

// ConfigError creates a configuration error
func ConfigError(message string, err error) *AppError {
	if err != nil {
		return Wrap(err, CodeConfig, message)
	}
	return New(CodeConfig, message)
}

// IsRetryable determines if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeServiceTimeout, CodeServiceUnavailable, CodeRateLimited:
			return true
		}
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorCode(err) == CodeValidation
}

// HTTPStatus maps an error to the status code the API answers with
func HTTPStatus(err error) int {
	switch GetErrorCode(err) {
	case CodeValidation, CodeInvalidPlaylist:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodePlaylistTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodePlaybackUnsupported:
		return http.StatusUnprocessableEntity
	case CodeFetch, CodeGuide, CodeServiceUnavailable, CodeServiceTimeout, CodeRateLimited:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
