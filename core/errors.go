package core

import (
	"net/http"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Numeric error codes carried on the wire and in every error returned by
// this module. They mirror the codes emitted by the REST service so a
// caller sees the same taxonomy whether an error was produced locally or
// decoded from a response body.
const (
	ErrCodeBadRequest      = 40000
	ErrCodeInvalidBody     = 40001
	ErrCodeInvalidHeader   = 40004
	ErrCodeInvalidClientID = 40012
	ErrCodeKeyRequired     = 40106
	ErrCodeTokenFailed     = 40170
	ErrCodeTokenUnrenewal  = 40171
	ErrCodeServerError     = 50000
)

const (
	ClientErrorBadRequest = "PUBSUB_BAD_REQUEST"
	ClientErrorAuth       = "PUBSUB_AUTH_FAILED"
	ClientErrorExternal   = "PUBSUB_EXTERNAL_FAILURE"
	ClientErrorInternal   = "PUBSUB_INTERNAL_ERROR"
)

const statusMetadataKey = "status_code"

// NewError builds a client error with the given wire code. The HTTP status
// is derived from the code's category; use NewErrorWithStatus when the
// upstream status is known.
func NewError(code int, message string) *goerrors.Error {
	category := categoryForCode(code)
	return goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCodeForCategory(category))
}

// NewErrorWithStatus builds a client error carrying an explicit HTTP status.
func NewErrorWithStatus(code int, message string, statusCode int) *goerrors.Error {
	err := NewError(code, message)
	if statusCode > 0 {
		err.WithMetadata(map[string]any{statusMetadataKey: statusCode})
	}
	return err
}

// WrapError wraps a source error into the client error envelope.
func WrapError(source error, code int, message string) *goerrors.Error {
	if source == nil {
		return NewError(code, message)
	}
	category := categoryForCode(code)
	return goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCodeForCategory(category))
}

// ErrorCode returns the wire code of an error produced by this module,
// or ErrCodeServerError when the error carries no code.
func ErrorCode(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return ErrCodeServerError
	}
	if richErr.Code == 0 {
		return ErrCodeServerError
	}
	return richErr.Code
}

// ErrorStatus returns the HTTP status associated with an error. Explicit
// upstream statuses win over the category derived default.
func ErrorStatus(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return http.StatusInternalServerError
	}
	if status, ok := metadataStatus(richErr.Metadata); ok {
		return status
	}
	return statusForCategory(richErr.Category)
}

// ErrorMessage returns the message of the underlying rich error, falling
// back to err.Error for foreign errors.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil && strings.TrimSpace(richErr.Message) != "" {
		return richErr.Message
	}
	return err.Error()
}

func metadataStatus(metadata map[string]any) (int, bool) {
	if len(metadata) == 0 {
		return 0, false
	}
	switch value := metadata[statusMetadataKey].(type) {
	case int:
		if value > 0 {
			return value, true
		}
	case int64:
		if value > 0 {
			return int(value), true
		}
	case float64:
		if value > 0 {
			return int(value), true
		}
	case string:
		if status, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && status > 0 {
			return status, true
		}
	}
	return 0, false
}

func categoryForCode(code int) goerrors.Category {
	switch code {
	case ErrCodeKeyRequired, ErrCodeTokenFailed, ErrCodeTokenUnrenewal:
		return goerrors.CategoryAuth
	}
	switch {
	case code >= 40000 && code < 50000:
		return goerrors.CategoryBadInput
	case code >= 50000:
		return goerrors.CategoryExternal
	default:
		return goerrors.CategoryInternal
	}
}

func textCodeForCategory(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ClientErrorBadRequest
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ClientErrorAuth
	case goerrors.CategoryExternal:
		return ClientErrorExternal
	default:
		return ClientErrorInternal
	}
}

func statusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
