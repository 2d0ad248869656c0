package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	IdentityErrorInvalidAuthConfig   = "IDENTITY_INVALID_AUTH_CONFIG"
	IdentityErrorInvalidConfig       = "IDENTITY_INVALID_CONFIG"
	IdentityErrorMissingHost         = "IDENTITY_MISSING_HOST"
	IdentityErrorNoValidToken        = "IDENTITY_NO_VALID_TOKEN"
	IdentityErrorEndpointNotFound    = "IDENTITY_ENDPOINT_NOT_FOUND"
	IdentityErrorRequestCanceled     = "IDENTITY_REQUEST_CANCELED"
	IdentityErrorMissingSubjectToken = "IDENTITY_MISSING_SUBJECT_TOKEN"
	IdentityErrorInternal            = "IDENTITY_INTERNAL_ERROR"
	IdentityErrorAPI                 = "IDENTITY_API_ERROR"
)

const (
	MessageRequestCanceled = "Request canceled"
	MessageNoValidToken    = "No valid token available"
	MessageUnknownAPIError = "Unknown API error"
)

// LocalError is raised for failures detected on the client side, before or
// instead of a non-success response from the remote service.
type LocalError struct {
	Message  string
	TextCode string
	Metadata map[string]any
	Cause    error
}

func NewLocalError(textCode string, message string) *LocalError {
	return &LocalError{
		Message:  strings.TrimSpace(message),
		TextCode: strings.TrimSpace(textCode),
	}
}

func NewCanceledError(cause error) *LocalError {
	return &LocalError{
		Message:  MessageRequestCanceled,
		TextCode: IdentityErrorRequestCanceled,
		Cause:    cause,
	}
}

func (e *LocalError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *LocalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *LocalError) WithMetadata(metadata map[string]any) *LocalError {
	if e == nil || len(metadata) == 0 {
		return e
	}
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	for key, value := range metadata {
		e.Metadata[key] = value
	}
	return e
}

func (e *LocalError) WithCause(cause error) *LocalError {
	if e == nil {
		return nil
	}
	e.Cause = cause
	return e
}

func (e *LocalError) ToServiceError() *goerrors.Error {
	if e == nil {
		return nil
	}
	category := localErrorCategory(e.TextCode)
	var err *goerrors.Error
	if e.Cause != nil {
		err = goerrors.Wrap(e.Cause, category, e.Message)
		err.Category = category
	} else {
		err = goerrors.New(e.Message, category)
	}
	err = err.WithCode(localErrorHTTPStatus(category)).
		WithTextCode(defaultTextCode(e.TextCode, IdentityErrorInternal))
	if len(e.Metadata) > 0 {
		err.WithMetadata(RedactSensitiveMap(e.Metadata))
	}
	return err
}

// APIError is raised for any non-success HTTP response.
type APIError struct {
	StatusCode int
	Message    string
	Body       any
	RequestID  string
	Cause      error
}

// NewAPIError prefers the message extracted from body over the supplied one.
func NewAPIError(statusCode int, message string, body any) *APIError {
	resolved := strings.TrimSpace(message)
	if extracted, ok := ParseErrorObject(body); ok && strings.TrimSpace(extracted) != "" {
		resolved = extracted
	}
	if resolved == "" {
		resolved = MessageUnknownAPIError
	}
	return &APIError{
		StatusCode: statusCode,
		Message:    resolved,
		Body:       body,
	}
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *APIError) ToServiceError() *goerrors.Error {
	if e == nil {
		return nil
	}
	category := apiErrorCategory(e.StatusCode)
	var err *goerrors.Error
	if e.Cause != nil {
		err = goerrors.Wrap(e.Cause, category, e.Message)
		err.Category = category
	} else {
		err = goerrors.New(e.Message, category)
	}
	code := e.StatusCode
	if code == 0 {
		code = http.StatusInternalServerError
	}
	err = err.WithCode(code).WithTextCode(IdentityErrorAPI)
	metadata := map[string]any{"status_code": e.StatusCode}
	if e.RequestID != "" {
		metadata["request_id"] = e.RequestID
		err = err.WithRequestID(e.RequestID)
	}
	err.WithMetadata(metadata)
	return err
}

func IsLocalError(err error) bool {
	var local *LocalError
	return errors.As(err, &local)
}

func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

func IsCanceled(err error) bool {
	var local *LocalError
	if !errors.As(err, &local) {
		return false
	}
	return local.TextCode == IdentityErrorRequestCanceled
}

// AsTypedError returns err unchanged when it already is one of the two error
// kinds, and an APIError with status 500 otherwise.
func AsTypedError(err error) error {
	if err == nil {
		return nil
	}
	var local *LocalError
	if errors.As(err, &local) {
		return err
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	wrapped := NewAPIError(http.StatusInternalServerError, err.Error(), nil)
	wrapped.Cause = err
	return wrapped
}

func invalidConfigError(field string, message string) *LocalError {
	return &LocalError{
		Message:  fmt.Sprintf("Invalid config: %s", message),
		TextCode: IdentityErrorInvalidConfig,
		Metadata: map[string]any{"field": field},
		Cause: goerrors.NewValidation("core: config validation failed", goerrors.FieldError{
			Field:   field,
			Message: message,
		}),
	}
}

func defaultTextCode(code string, fallback string) string {
	if strings.TrimSpace(code) == "" {
		return fallback
	}
	return code
}

func localErrorCategory(textCode string) goerrors.Category {
	switch textCode {
	case IdentityErrorInvalidAuthConfig, IdentityErrorInvalidConfig:
		return goerrors.CategoryValidation
	case IdentityErrorMissingHost:
		return goerrors.CategoryBadInput
	case IdentityErrorNoValidToken:
		return goerrors.CategoryAuth
	case IdentityErrorEndpointNotFound:
		return goerrors.CategoryNotFound
	case IdentityErrorRequestCanceled:
		return goerrors.CategoryOperation
	case IdentityErrorMissingSubjectToken:
		return goerrors.CategoryExternal
	default:
		return goerrors.CategoryInternal
	}
}

func localErrorHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryOperation:
		return 499
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func apiErrorCategory(status int) goerrors.Category {
	switch {
	case status == http.StatusBadRequest:
		return goerrors.CategoryBadInput
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusConflict:
		return goerrors.CategoryConflict
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status >= 500:
		return goerrors.CategoryExternal
	default:
		return goerrors.CategoryOperation
	}
}
