package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/money"
	appvalidator "spendwise/internal/validator"
)

// Field limits enforced on writes.
const (
	maxDescriptionLength = 200
	maxNotesLength       = 500
	maxReferenceLength   = 50
	maxNameLength        = 100
	minPasswordLength    = 8
)

var validate = validator.New()

func invalidInput(format string, args ...any) error {
	return apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func validateAmount(amount money.Cents) error {
	if err := money.ValidateRange(amount, 1, money.MaxAmount); err != nil {
		return invalidInput("amount must be between %s and %s", money.Format(1), money.Format(money.MaxAmount))
	}
	return nil
}

func validateLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < min {
		return invalidInput("%s is required", field)
	}
	if n > max {
		return invalidInput("%s must be at most %d characters", field, max)
	}
	return nil
}

func validateOptionalLength(field string, value *string, max int) error {
	if value == nil {
		return nil
	}
	return validateLength(field, *value, 0, max)
}

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return invalidInput("a valid email is required")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return invalidInput("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func validateColor(color string) error {
	if color != "" && !appvalidator.IsHexColor(color) {
		return invalidInput("color must be a hex color such as #3b82f6")
	}
	return nil
}

// emptyToNil clears optional text that was submitted blank.
func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
