package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"spendwise/internal/budget"
	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/money"
	"spendwise/internal/services"
)

// BudgetHandler handles budget-related requests.
type BudgetHandler struct {
	budgetService services.BudgetServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// CreateBudgetRequest represents the request payload for creating a budget.
// Amount is in dollars.
type CreateBudgetRequest struct {
	UserID       string              `json:"user_id" binding:"omitempty,uuid"`
	CategoryID   string              `json:"category_id" binding:"required,uuid"`
	Period       models.BudgetPeriod `json:"period" binding:"required,budget_period"`
	Amount       *decimal.Decimal    `json:"amount" binding:"required"`
	RolloverRule models.RolloverRule `json:"rollover_rule" binding:"omitempty,rollover_rule"`
	StartDate    string              `json:"start_date" binding:"required"`
	EndDate      string              `json:"end_date" binding:"required"`
	AlertAt80    *bool               `json:"alert_at_80"`
	AlertAt100   *bool               `json:"alert_at_100"`
}

// UpdateBudgetRequest represents the request payload for updating a budget.
type UpdateBudgetRequest struct {
	CategoryID   *string              `json:"category_id" binding:"omitempty,uuid"`
	Period       *models.BudgetPeriod `json:"period" binding:"omitempty,budget_period"`
	Amount       *decimal.Decimal     `json:"amount"`
	RolloverRule *models.RolloverRule `json:"rollover_rule" binding:"omitempty,rollover_rule"`
	StartDate    *string              `json:"start_date"`
	EndDate      *string              `json:"end_date"`
	AlertAt80    *bool                `json:"alert_at_80"`
	AlertAt100   *bool                `json:"alert_at_100"`
	IsActive     *bool                `json:"is_active"`
}

// BudgetStatusResponse is a budget status with display strings for the amounts.
type BudgetStatusResponse struct {
	budget.Status
	AmountDisplay    string `json:"amount_display"`
	SpentDisplay     string `json:"spent_display"`
	RemainingDisplay string `json:"remaining_display"`
}

func newBudgetStatusResponse(s budget.Status) BudgetStatusResponse {
	return BudgetStatusResponse{
		Status:           s,
		AmountDisplay:    money.Format(s.Budget.Amount),
		SpentDisplay:     money.Format(s.Spent),
		RemainingDisplay: money.Format(s.Remaining),
	}
}

// CreateBudget handles the creation of a new budget.
// @Summary     Create a budget
// @Description Create a budget for a category over a closed date window
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateBudgetRequest true "Budget details"
// @Success     201 {object} models.Budget "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input or category"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     409 {object} ErrorResponse "Overlapping budget"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	start, err := parseDateParam("start_date", req.StartDate, false)
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseDateParam("end_date", req.EndDate, false)
	if err != nil {
		respondWithError(c, err)
		return
	}

	input := services.CreateBudgetInput{
		UserID:       req.UserID,
		CategoryID:   req.CategoryID,
		Period:       req.Period,
		Amount:       *toCents(req.Amount),
		RolloverRule: req.RolloverRule,
		StartDate:    *start,
		EndDate:      *end,
		AlertAt80:    req.AlertAt80 == nil || *req.AlertAt80,
		AlertAt100:   req.AlertAt100 == nil || *req.AlertAt100,
	}
	if input.RolloverRule == "" {
		input.RolloverRule = models.RolloverNone
	}

	created, err := h.budgetService.CreateBudget(c.Request.Context(), actor, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"budget": created})
}

// GetBudgets handles listing budgets.
// @Summary     Get budgets
// @Description Users see their own budgets; accountants and admins may filter by user
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       user_id     query string false "Filter by owner (accountant/admin)"
// @Param       category_id query string false "Filter by category"
// @Param       is_active   query bool   false "Filter by active status"
// @Param       period      query string false "Filter by period (monthly/annual)"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Budget] "Paginated budgets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [get]
func (h *BudgetHandler) GetBudgets(c *gin.Context) {
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

	filter, err := parseBudgetFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.budgetService.ListBudgets(c.Request.Context(), actor, filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBudgetStatuses returns the consumption status of every matching budget.
// @Summary     Budget statuses
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  BudgetStatusResponse "Statuses"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /budgets/statuses [get]
func (h *BudgetHandler) GetBudgetStatuses(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := parseBudgetFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	statuses, err := h.budgetService.GetBudgetStatuses(c.Request.Context(), actor, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp := make([]BudgetStatusResponse, len(statuses))
	for i, s := range statuses {
		resp[i] = newBudgetStatusResponse(s)
	}
	c.JSON(http.StatusOK, gin.H{"statuses": resp})
}

// GetBudgetSummary counts matching budgets by alert level.
// @Summary     Budget summary
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} budget.Summary "Counts by alert level"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /budgets/summary [get]
func (h *BudgetHandler) GetBudgetSummary(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := parseBudgetFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.budgetService.GetBudgetSummary(c.Request.Context(), actor, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary, "total": summary.Total()})
}

// GetBudget handles retrieving a specific budget.
// @Summary     Get budget by ID
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.Budget "Budget details"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [get]
func (h *BudgetHandler) GetBudget(c *gin.Context) {
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

	found, err := h.budgetService.GetBudgetByID(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": found})
}

// GetBudgetStatus returns the consumption status of one budget.
// @Summary     Budget status
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} BudgetStatusResponse "Status"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id}/status [get]
func (h *BudgetHandler) GetBudgetStatus(c *gin.Context) {
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

	status, err := h.budgetService.GetBudgetStatus(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": newBudgetStatusResponse(*status)})
}

// UpdateBudget handles updating an existing budget.
// @Summary     Update budget
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Budget ID"
// @Param       request body UpdateBudgetRequest true "Changed fields"
// @Success     200 {object} models.Budget "Updated budget"
// @Failure     400 {object} ErrorResponse "Invalid input or budget ID"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     409 {object} ErrorResponse "Overlapping budget"
// @Router      /budgets/{id} [put]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
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

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input := services.UpdateBudgetInput{
		CategoryID:   req.CategoryID,
		Period:       req.Period,
		Amount:       toCents(req.Amount),
		RolloverRule: req.RolloverRule,
		AlertAt80:    req.AlertAt80,
		AlertAt100:   req.AlertAt100,
		IsActive:     req.IsActive,
	}
	if req.StartDate != nil {
		if input.StartDate, err = requiredDate("start_date", *req.StartDate); err != nil {
			respondWithError(c, err)
			return
		}
	}
	if req.EndDate != nil {
		if input.EndDate, err = requiredDate("end_date", *req.EndDate); err != nil {
			respondWithError(c, err)
			return
		}
	}

	updated, err := h.budgetService.UpdateBudget(c.Request.Context(), actor, id, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": updated})
}

// DeactivateBudget marks a budget inactive without deleting it.
// @Summary     Deactivate budget
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.Budget "Deactivated budget"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id}/deactivate [post]
func (h *BudgetHandler) DeactivateBudget(c *gin.Context) {
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

	found, err := h.budgetService.DeactivateBudget(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": found})
}

// RolloverBudget renews an ended budget into its next period.
// @Summary     Roll a budget over
// @Description Creates the next period's budget with the carried-over amount and deactivates this one
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     201 {object} models.Budget "Next period budget"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     409 {object} ErrorResponse "Period not ended or next period exists"
// @Router      /budgets/{id}/rollover [post]
func (h *BudgetHandler) RolloverBudget(c *gin.Context) {
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

	next, err := h.budgetService.RolloverBudget(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"budget": next})
}

// DeleteBudget handles deleting a budget.
// @Summary     Delete budget
// @Tags        budgets
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     204 "Budget deleted"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
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

	if err := h.budgetService.DeleteBudget(c.Request.Context(), actor, id); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseBudgetFilter(c *gin.Context) (services.BudgetFilter, error) {
	filter := services.BudgetFilter{
		UserID:     optionalString(c, "user_id"),
		CategoryID: optionalString(c, "category_id"),
	}

	var err error
	if filter.IsActive, err = parseBoolParam(c, "is_active"); err != nil {
		return filter, err
	}

	if v := c.Query("period"); v != "" {
		p := models.BudgetPeriod(v)
		if !p.Valid() {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be 'monthly' or 'annual'")
		}
		filter.Period = &p
	}

	return filter, nil
}
