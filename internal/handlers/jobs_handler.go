package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spendwise/internal/logger"
	"spendwise/internal/middleware"
	"spendwise/internal/services"
)

// JobsHandler exposes background jobs to an external scheduler.
type JobsHandler struct {
	budgetService services.BudgetServicer
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(budgetService services.BudgetServicer) *JobsHandler {
	return &JobsHandler{budgetService: budgetService}
}

// RunRollovers renews every ended active budget into its next period.
// @Summary     Run budget rollovers
// @Tags        jobs
// @Produce     json
// @Param       X-API-Key header string true "Jobs API key"
// @Success     200 {object} services.RolloverResult "Pass result"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Jobs not configured"
// @Router      /internal/jobs/rollovers [post]
func (h *JobsHandler) RunRollovers(c *gin.Context) {
	result, err := h.budgetService.ProcessRollovers(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	logger.Get().Infow("rollover job triggered",
		"rolled", result.Rolled,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"request_id", middleware.RequestID(c),
	)
	c.JSON(http.StatusOK, gin.H{"result": result})
}
