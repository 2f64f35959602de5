package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUserNotFound is returned when a user record does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists is returned when registering an email that is taken.
	ErrUserAlreadyExists = errors.New("user with this email already exists")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidPassword is returned when a password re-check fails for an authenticated user.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidToken is returned for unknown, expired or revoked tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrForbidden is returned when the caller lacks the required role.
	ErrForbidden = errors.New("insufficient permissions")

	// ErrInvalid2FACode is returned when a TOTP code does not validate.
	ErrInvalid2FACode = errors.New("invalid 2FA code")
	// Err2FAAlreadyEnabled is returned when enabling 2FA twice.
	Err2FAAlreadyEnabled = errors.New("2FA is already enabled")
	// Err2FANotEnabled is returned when disabling 2FA that is off.
	Err2FANotEnabled = errors.New("2FA is not enabled")
	// Err2FANotSetUp is returned when verifying a login for a user with no secret.
	Err2FANotSetUp = errors.New("2FA is not set up for this user")
	// Err2FASetupNotStarted is returned when confirming before enable was called.
	Err2FASetupNotStarted = errors.New("2FA setup not started")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var mappings = []struct {
	err    error
	status int
	code   string
}{
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrUserAlreadyExists, http.StatusConflict, "USER_ALREADY_EXISTS"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrInvalidPassword, http.StatusUnauthorized, "INVALID_PASSWORD"},
	{ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrInvalid2FACode, http.StatusUnauthorized, "INVALID_2FA_CODE"},
	{Err2FASetupNotStarted, http.StatusUnauthorized, "2FA_SETUP_NOT_STARTED"},
	{Err2FAAlreadyEnabled, http.StatusBadRequest, "2FA_ALREADY_ENABLED"},
	{Err2FANotEnabled, http.StatusBadRequest, "2FA_NOT_ENABLED"},
	{Err2FANotSetUp, http.StatusBadRequest, "2FA_NOT_SET_UP"},
}

// MapErrorToHTTP maps domain errors, including wrapped ones, to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, m.err.Error(), m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
