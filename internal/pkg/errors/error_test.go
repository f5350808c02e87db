package xerrors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	if Wrap(nil, "lookup") != nil {
		t.Fatal("Wrap(nil) should stay nil")
	}
	err := Wrap(ErrNotFound, "student lookup")
	if err.Error() != "student lookup: resource not found" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !Is(err, ErrNotFound) || Is(err, ErrForbidden) {
		t.Fatal("wrapped sentinel not matched")
	}
}

func TestRemainingAttempts(t *testing.T) {
	err := Wrap(&AttemptsError{Err: ErrInvalidCredentials, Remaining: 2}, "login")
	n, ok := RemainingAttempts(err)
	if !ok || n != 2 {
		t.Fatalf("RemainingAttempts = %d, %v", n, ok)
	}
	if !Is(err, ErrInvalidCredentials) {
		t.Fatal("AttemptsError should unwrap to its cause")
	}
	if _, ok := RemainingAttempts(errors.New("plain")); ok {
		t.Fatal("plain error carries no attempts")
	}
}
