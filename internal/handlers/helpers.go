package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"spendwise/internal/dates"
	apperrors "spendwise/internal/errors"
	"spendwise/internal/middleware"
	"spendwise/internal/money"
	"spendwise/internal/pagination"
	"spendwise/internal/permissions"
	"spendwise/internal/uuid"
)

// ErrorResponse is the error envelope, re-exported for the API docs.
type ErrorResponse = middleware.ErrorResponse

// getActor extracts the authenticated caller from the Gin context.
// Returns ErrUnauthorized if not present.
func getActor(c *gin.Context) (permissions.Actor, error) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return permissions.Actor{}, apperrors.ErrUnauthorized
	}
	return actor, nil
}

// parsePathID reads a UUID path parameter.
// Returns ErrInvalidInput if the parameter is not a valid UUID.
func parsePathID(c *gin.Context, param string) (string, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return id, nil
}

func respondWithError(c *gin.Context, err error) {
	middleware.RespondWithError(c, err)
}

func bindPage(c *gin.Context) (pagination.PageRequest, error) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		return page, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	page.Defaults()
	return page, nil
}

// toCents converts a dollar amount from a request body.
func toCents(d *decimal.Decimal) *money.Cents {
	if d == nil {
		return nil
	}
	c := money.FromDecimal(*d)
	return &c
}

// parseDateParam parses an optional date query or body value. A date-only
// value used as an upper bound covers the whole day.
func parseDateParam(name, value string, upper bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := dates.ParseDate(value)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, name+": "+err.Error())
	}
	if upper && len(value) == len(dates.DateLayout) {
		t = dates.EndOfDay(t)
	}
	return &t, nil
}

// requiredDate parses a date given explicitly in a request body.
func requiredDate(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, name+" cannot be empty")
	}
	return parseDateParam(name, value, false)
}

// parseBoolParam parses an optional "true"/"false" query value.
func parseBoolParam(c *gin.Context, name string) (*bool, error) {
	switch c.Query(name) {
	case "":
		return nil, nil
	case "true":
		b := true
		return &b, nil
	case "false":
		b := false
		return &b, nil
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, name+" must be 'true' or 'false'")
	}
}

func optionalString(c *gin.Context, name string) *string {
	if v := c.Query(name); v != "" {
		return &v
	}
	return nil
}
