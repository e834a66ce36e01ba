package testutil

import (
	"errors"
	"testing"

	apperrors "spendwise/internal/errors"
)

// AssertAppError fails unless err is an *AppError carrying code.
func AssertAppError(t *testing.T, err error, code string) {
	t.Helper()

	appErr := asAppError(t, err, code)
	if appErr.Code != code {
		t.Errorf("expected error code %q, got %q (message: %s)", code, appErr.Code, appErr.Message)
	}
}

// AssertForbidden fails unless err is a permission denial.
func AssertForbidden(t *testing.T, err error) {
	t.Helper()

	appErr := asAppError(t, err, apperrors.ErrForbidden.Code)
	if !errors.Is(appErr, apperrors.ErrForbidden) {
		t.Errorf("expected a permission denial, got %q (message: %s)", appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func asAppError(t *testing.T, err error, want string) *apperrors.AppError {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	return appErr
}
