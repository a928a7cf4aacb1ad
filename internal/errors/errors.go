package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUserNotFound is returned when no user matches a lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotVerified is returned when a user logs in before confirming the OTP.
	ErrNotVerified = errors.New("email not verified")
	// ErrInvalidOTP is returned when the submitted code does not match.
	ErrInvalidOTP = errors.New("invalid verification code")
	// ErrOTPExpired is returned when the code is older than the configured TTL.
	ErrOTPExpired = errors.New("verification code expired")
	// ErrInvalidSession is returned for missing, expired, or revoked tokens.
	ErrInvalidSession = errors.New("invalid or expired session")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// FormMessage maps domain errors to the text shown on a re-rendered form.
func FormMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmailTaken):
		return "Registration failed: this email is already registered."
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserNotFound):
		return "Invalid email or password."
	case errors.Is(err, ErrNotVerified):
		return "Please verify your email before logging in."
	case errors.Is(err, ErrInvalidOTP):
		return "The code you entered is incorrect."
	case errors.Is(err, ErrOTPExpired):
		return "The code has expired. Please register again."
	case errors.Is(err, ErrInvalidSession):
		return "Your verification session has expired. Please register again."
	default:
		return "Something went wrong. Please try again."
	}
}

// FormStatus maps domain errors to the status of a re-rendered form.
func FormStatus(err error) int {
	switch {
	case errors.Is(err, ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrNotVerified), errors.Is(err, ErrInvalidOTP),
		errors.Is(err, ErrOTPExpired), errors.Is(err, ErrInvalidSession):
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// IsFormError reports whether err is an expected outcome of a form submission.
func IsFormError(err error) bool {
	return FormStatus(err) != http.StatusInternalServerError
}
