package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// maxBodyInError caps how much of a remote body is kept on an error
const maxBodyInError = 512

// ValidationError is returned by request builders before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// EncryptionError reports a failure to derive a security credential.
// It never carries the plaintext being encrypted.
type EncryptionError struct {
	Reason string
	Err    error
}

func (e *EncryptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encryption error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("encryption error: %s", e.Reason)
}

func (e *EncryptionError) Unwrap() error {
	return e.Err
}

// NewEncryptionError creates a new encryption error
func NewEncryptionError(reason string, err error) *EncryptionError {
	return &EncryptionError{Reason: reason, Err: err}
}

// AuthErrorKind classifies token acquisition failures
type AuthErrorKind string

const (
	AuthNetwork        AuthErrorKind = "network"
	AuthRemoteRejected AuthErrorKind = "remote_rejected"
	AuthMalformed      AuthErrorKind = "malformed"
)

// AuthError reports a failed access token fetch
type AuthError struct {
	Kind       AuthErrorKind
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	switch e.Kind {
	case AuthRemoteRejected:
		return fmt.Sprintf("auth error: token request rejected with status %d: %s", e.StatusCode, e.Body)
	case AuthNetwork:
		return fmt.Sprintf("auth error: token request failed: %v", e.Err)
	default:
		if e.Err != nil {
			return fmt.Sprintf("auth error: malformed token response: %v", e.Err)
		}
		return "auth error: malformed token response"
	}
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthRejected creates an AuthError for a non-200 token response
func NewAuthRejected(statusCode int, body []byte) *AuthError {
	return &AuthError{Kind: AuthRemoteRejected, StatusCode: statusCode, Body: truncate(body)}
}

// NewAuthMalformed creates an AuthError for an unparseable token response
func NewAuthMalformed(err error) *AuthError {
	return &AuthError{Kind: AuthMalformed, StatusCode: http.StatusOK, Err: err}
}

// NewAuthNetwork creates an AuthError for a transport failure
func NewAuthNetwork(err error) *AuthError {
	return &AuthError{Kind: AuthNetwork, Err: err}
}

// APIErrorKind classifies endpoint dispatch failures
type APIErrorKind string

const (
	APINetwork                 APIErrorKind = "network"
	APIUnexpectedResponseShape APIErrorKind = "unexpected_response_shape"
	APIRemote                  APIErrorKind = "remote"
)

// APIError reports a failed endpoint call. For Remote errors Code is empty
// when the provider body had no error envelope; Description then holds the raw body.
type APIError struct {
	Kind        APIErrorKind
	Endpoint    string
	StatusCode  int
	Code        string
	Description string
	RequestID   string
	Err         error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case APINetwork:
		return fmt.Sprintf("%s: network error: %v", e.Endpoint, e.Err)
	case APIUnexpectedResponseShape:
		return fmt.Sprintf("%s: unexpected response shape (status %d): %v", e.Endpoint, e.StatusCode, e.Err)
	default:
		if e.Code != "" {
			return fmt.Sprintf("%s: remote error %s (status %d): %s", e.Endpoint, e.Code, e.StatusCode, e.Description)
		}
		return fmt.Sprintf("%s: remote error (status %d): %s", e.Endpoint, e.StatusCode, e.Description)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates an APIError for a transport failure
func NewNetworkError(endpoint string, err error) *APIError {
	return &APIError{Kind: APINetwork, Endpoint: endpoint, Err: err}
}

// NewUnexpectedResponseShape creates an APIError for a 2xx body that does not decode
func NewUnexpectedResponseShape(endpoint string, statusCode int, err error) *APIError {
	return &APIError{Kind: APIUnexpectedResponseShape, Endpoint: endpoint, StatusCode: statusCode, Err: err}
}

// NewRemoteError creates an APIError for a provider rejection
func NewRemoteError(endpoint string, statusCode int, code, description, requestID string) *APIError {
	return &APIError{
		Kind:        APIRemote,
		Endpoint:    endpoint,
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
		RequestID:   requestID,
	}
}

// NewRemoteRawError creates a Remote APIError from an unparseable body
func NewRemoteRawError(endpoint string, statusCode int, body []byte) *APIError {
	return &APIError{Kind: APIRemote, Endpoint: endpoint, StatusCode: statusCode, Description: truncate(body)}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAPIKind reports whether err is an APIError of the given kind
func IsAPIKind(err error, kind APIErrorKind) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// IsRetriable reports whether a host may reasonably retry the call that
// produced err. The library itself never retries.
func IsRetriable(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		switch ae.Kind {
		case APINetwork:
			return true
		case APIRemote:
			return ae.StatusCode >= http.StatusInternalServerError || ae.StatusCode == http.StatusTooManyRequests
		}
		return false
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind == AuthNetwork || authErr.StatusCode >= http.StatusInternalServerError
	}

	return false
}

func truncate(body []byte) string {
	if len(body) > maxBodyInError {
		return string(body[:maxBodyInError]) + "..."
	}
	return string(body)
}
