package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"spendwise/internal/money"
	"spendwise/internal/services"
)

// AnalyticsHandler serves spending reports.
type AnalyticsHandler struct {
	analyticsService services.AnalyticsServicer
	now              func() time.Time
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService services.AnalyticsServicer) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService, now: time.Now}
}

// reportFilter reads the expense filter plus an optional quick range.
func (h *AnalyticsHandler) reportFilter(c *gin.Context) (services.ExpenseFilter, error) {
	filter, err := parseExpenseFilter(c)
	if err != nil {
		return filter, err
	}
	if err := rangeFromQuery(c, &filter, h.now().UTC()); err != nil {
		return filter, err
	}
	return filter, nil
}

// GetDashboard returns the landing page summary.
// @Summary     Dashboard
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} analytics.DashboardStats "Dashboard"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /analytics/dashboard [get]
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	stats, err := h.analyticsService.GetDashboardStats(c.Request.Context(), actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dashboard":             stats,
		"total_spent_display":   money.Compact(stats.TotalSpent),
		"monthly_spent_display": money.Compact(stats.MonthlySpent),
	})
}

// GetCategoryBreakdown returns spending per category.
// @Summary     Spending by category
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       range     query string false "7d, 30d, 90d, this_month or this_year"
// @Param       from_date query string false "Start date (YYYY-MM-DD)"
// @Param       to_date   query string false "End date (YYYY-MM-DD)"
// @Success     200 {array}  analytics.CategorySpending "Breakdown"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /analytics/categories [get]
func (h *AnalyticsHandler) GetCategoryBreakdown(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := h.reportFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	breakdown, err := h.analyticsService.GetCategoryBreakdown(c.Request.Context(), actor, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": breakdown})
}

// GetMonthlyTrend returns spending per calendar month.
// @Summary     Monthly trend
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       range query string false "7d, 30d, 90d, this_month or this_year"
// @Success     200 {array}  analytics.MonthlySpending "Trend"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /analytics/trend [get]
func (h *AnalyticsHandler) GetMonthlyTrend(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := h.reportFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	trend, err := h.analyticsService.GetMonthlyTrend(c.Request.Context(), actor, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trend": trend})
}

// GetPaymentMethods returns spending per payment method.
// @Summary     Spending by payment method
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       range query string false "7d, 30d, 90d, this_month or this_year"
// @Success     200 {array}  analytics.PaymentMethodSpending "Breakdown"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /analytics/payment-methods [get]
func (h *AnalyticsHandler) GetPaymentMethods(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := h.reportFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	methods, err := h.analyticsService.GetSpendingByPaymentMethod(c.Request.Context(), actor, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_methods": methods})
}

// GetBudgetVsActual compares each active budget with its spending.
// @Summary     Budget vs actual
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} analytics.BudgetComparison "Comparisons"
// @Router      /analytics/budget-vs-actual [get]
func (h *AnalyticsHandler) GetBudgetVsActual(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	comparisons, err := h.analyticsService.GetBudgetVsActual(c.Request.Context(), actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budgets": comparisons})
}

// GetAverageDaily returns the average spent per day over a date range.
// @Summary     Average daily spending
// @Tags        analytics
// @Produce     json
// @Security    BearerAuth
// @Param       range     query string false "7d, 30d, 90d, this_month or this_year"
// @Param       from_date query string false "Start date (YYYY-MM-DD)"
// @Param       to_date   query string false "End date (YYYY-MM-DD)"
// @Success     200 {object} map[string]any "Average in cents"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /analytics/average-daily [get]
func (h *AnalyticsHandler) GetAverageDaily(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := h.reportFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	avg, err := h.analyticsService.GetAverageDailySpending(c.Request.Context(), actor, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"average_daily": avg, "display": money.Format(avg)})
}
