// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"spendwise/internal/models"
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom tags on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("hex_color", validateHexColor)
	_ = v.RegisterValidation("payment_method", validatePaymentMethod)
	_ = v.RegisterValidation("budget_period", validateBudgetPeriod)
	_ = v.RegisterValidation("rollover_rule", validateRolloverRule)
	_ = v.RegisterValidation("user_role", validateUserRole)
}

// IsHexColor reports whether s is a #rgb or #rrggbb color.
func IsHexColor(s string) bool {
	return hexColorRegex.MatchString(s)
}

func validateHexColor(fl validator.FieldLevel) bool {
	return IsHexColor(fl.Field().String())
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	return models.PaymentMethod(fl.Field().String()).Valid()
}

func validateBudgetPeriod(fl validator.FieldLevel) bool {
	return models.BudgetPeriod(fl.Field().String()).Valid()
}

func validateRolloverRule(fl validator.FieldLevel) bool {
	return models.RolloverRule(fl.Field().String()).Valid()
}

func validateUserRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}
