package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"spendwise/internal/dates"
	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/money"
	"spendwise/internal/services"
)

// ExpenseHandler handles expense-related requests.
type ExpenseHandler struct {
	expenseService services.ExpenseServicer
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseService services.ExpenseServicer) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

// CreateExpenseRequest represents the request payload for recording an
// expense. Amount is in dollars; user_id records it for another user.
type CreateExpenseRequest struct {
	UserID        string                `json:"user_id" binding:"omitempty,uuid"`
	CategoryID    string                `json:"category_id" binding:"required,uuid"`
	Amount        *decimal.Decimal      `json:"amount" binding:"required"`
	Date          string                `json:"date" binding:"required"`
	Description   string                `json:"description" binding:"required,min=1,max=255"`
	PaymentMethod *models.PaymentMethod `json:"payment_method" binding:"omitempty,payment_method"`
	Notes         *string               `json:"notes" binding:"omitempty,max=1000"`
	ReferenceID   *string               `json:"reference_id" binding:"omitempty,max=100"`
}

// UpdateExpenseRequest represents the request payload for updating an expense.
type UpdateExpenseRequest struct {
	CategoryID    *string               `json:"category_id" binding:"omitempty,uuid"`
	Amount        *decimal.Decimal      `json:"amount"`
	Date          *string               `json:"date"`
	Description   *string               `json:"description" binding:"omitempty,min=1,max=255"`
	PaymentMethod *models.PaymentMethod `json:"payment_method" binding:"omitempty,payment_method"`
	Notes         *string               `json:"notes" binding:"omitempty,max=1000"`
	ReferenceID   *string               `json:"reference_id" binding:"omitempty,max=100"`
}

// CreateExpense handles recording a new expense.
// @Summary     Create an expense
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateExpenseRequest true "Expense details"
// @Success     201 {object} models.Expense "Expense created"
// @Failure     400 {object} ErrorResponse "Invalid input or category"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date, err := parseDateParam("date", req.Date, false)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expense, err := h.expenseService.CreateExpense(c.Request.Context(), actor, services.CreateExpenseInput{
		UserID:        req.UserID,
		CategoryID:    req.CategoryID,
		Amount:        *toCents(req.Amount),
		Date:          *date,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		ReferenceID:   req.ReferenceID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// GetExpenses handles listing expenses visible to the caller.
// @Summary     List expenses
// @Description Users see their own expenses; accountants and admins see all
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       user_id        query string false "Filter by owner (accountant/admin)"
// @Param       category_id    query string false "Filter by category"
// @Param       from_date      query string false "Start date (YYYY-MM-DD), requires to_date"
// @Param       to_date        query string false "End date (YYYY-MM-DD), requires from_date"
// @Param       min_amount     query number false "Minimum amount in dollars"
// @Param       max_amount     query number false "Maximum amount in dollars"
// @Param       payment_method query string false "Filter by payment method"
// @Param       search         query string false "Search description, notes and reference"
// @Param       page           query int    false "Page number (default 1)"
// @Param       page_size      query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Expense] "Paginated expenses"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /expenses [get]
func (h *ExpenseHandler) GetExpenses(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := parseExpenseFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.expenseService.ListExpenses(c.Request.Context(), actor, filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetExpenseTotals returns count, total and average for the filtered expenses.
// @Summary     Expense totals
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.ExpenseTotals "Totals in cents"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /expenses/totals [get]
func (h *ExpenseHandler) GetExpenseTotals(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := parseExpenseFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	totals, err := h.expenseService.GetExpenseTotals(c.Request.Context(), actor, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"totals": totals})
}

// GetExpense handles retrieving a specific expense.
// @Summary     Get expense by ID
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     200 {object} models.Expense "Expense details"
// @Failure     400 {object} ErrorResponse "Invalid expense ID"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Router      /expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	expense, err := h.expenseService.GetExpenseByID(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// UpdateExpense handles updating an existing expense.
// @Summary     Update expense
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Expense ID"
// @Param       request body UpdateExpenseRequest true "Changed fields"
// @Success     200 {object} models.Expense "Updated expense"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Router      /expenses/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input := services.UpdateExpenseInput{
		CategoryID:    req.CategoryID,
		Amount:        toCents(req.Amount),
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		ReferenceID:   req.ReferenceID,
	}
	if req.Date != nil {
		if input.Date, err = requiredDate("date", *req.Date); err != nil {
			respondWithError(c, err)
			return
		}
	}

	expense, err := h.expenseService.UpdateExpense(c.Request.Context(), actor, id, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// DeleteExpense handles deleting an expense.
// @Summary     Delete expense
// @Tags        expenses
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     204 "Expense deleted"
// @Failure     400 {object} ErrorResponse "Invalid expense ID"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Router      /expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.expenseService.DeleteExpense(c.Request.Context(), actor, id); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// parseExpenseFilter reads the expense filter query parameters shared by the
// expense and analytics endpoints.
func parseExpenseFilter(c *gin.Context) (services.ExpenseFilter, error) {
	filter := services.ExpenseFilter{
		UserID:     optionalString(c, "user_id"),
		CategoryID: optionalString(c, "category_id"),
		Search:     strings.TrimSpace(c.Query("search")),
	}

	var err error
	if filter.StartDate, err = parseDateParam("from_date", c.Query("from_date"), false); err != nil {
		return filter, err
	}
	if filter.EndDate, err = parseDateParam("to_date", c.Query("to_date"), true); err != nil {
		return filter, err
	}

	if filter.MinAmount, err = parseAmountParam(c, "min_amount"); err != nil {
		return filter, err
	}
	if filter.MaxAmount, err = parseAmountParam(c, "max_amount"); err != nil {
		return filter, err
	}

	if v := c.Query("payment_method"); v != "" {
		pm := models.PaymentMethod(v)
		if !pm.Valid() {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid payment_method")
		}
		filter.PaymentMethod = &pm
	}

	return filter, nil
}

// rangeFromQuery resolves an optional quick range ("30d", "this_month") into
// filter dates when no explicit dates were given.
func rangeFromQuery(c *gin.Context, filter *services.ExpenseFilter, now time.Time) error {
	name := c.Query("range")
	if name == "" || filter.StartDate != nil || filter.EndDate != nil {
		return nil
	}
	r, err := dates.QuickRange(name, now)
	if err != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	filter.StartDate, filter.EndDate = &r.Start, &r.End
	return nil
}

func parseAmountParam(c *gin.Context, name string) (*money.Cents, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	cents, err := money.ParseDecimal(v)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, name+" must be an amount")
	}
	return &cents, nil
}
