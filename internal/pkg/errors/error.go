package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInternal           = errors.New("internal server error")
	ErrRateLimited        = errors.New("too many login attempts, please try again in 15 minutes")
	ErrSessionExpired     = errors.New("session expired or invalid")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAuthUnavailable    = errors.New("authentication failed, please try again")
)

// AttemptsError is a failed login that still counts against the caller's
// login attempts.
type AttemptsError struct {
	Err       error
	Remaining int64
}

func (e *AttemptsError) Error() string { return e.Err.Error() }

func (e *AttemptsError) Unwrap() error { return e.Err }

// RemainingAttempts returns the attempts left carried by err, if any.
func RemainingAttempts(err error) (int64, bool) {
	var ae *AttemptsError
	if errors.As(err, &ae) {
		return ae.Remaining, true
	}
	return 0, false
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
