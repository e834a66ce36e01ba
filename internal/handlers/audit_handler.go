package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/services"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

var auditEntityTypes = map[string]bool{
	models.EntityExpense:  true,
	models.EntityBudget:   true,
	models.EntityCategory: true,
	models.EntityUser:     true,
}

// AuditHandler serves the audit trail to accountants and admins.
type AuditHandler struct {
	auditService services.AuditServicer
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService services.AuditServicer) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// GetAuditLogs lists audit entries, newest first.
// @Summary     List audit logs
// @Tags        audit
// @Produce     json
// @Security    BearerAuth
// @Param       entity_type  query string false "expense, budget, category or user"
// @Param       action       query string false "create, update or delete"
// @Param       performed_by query string false "Performer user ID"
// @Param       from_date    query string false "Start date (YYYY-MM-DD)"
// @Param       to_date      query string false "End date (YYYY-MM-DD)"
// @Param       search       query string false "Search entity type, performer name and entity ID"
// @Param       page         query int    false "Page number (default 1)"
// @Param       page_size    query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.AuditLog] "Paginated audit logs"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /audit [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
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

	filter := services.AuditFilter{
		EntityType:  c.Query("entity_type"),
		PerformedBy: c.Query("performed_by"),
		Search:      c.Query("search"),
	}
	if filter.EntityType != "" && !auditEntityTypes[filter.EntityType] {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid entity_type"))
		return
	}
	if v := c.Query("action"); v != "" {
		action := models.AuditAction(v)
		switch action {
		case models.AuditCreate, models.AuditUpdate, models.AuditDelete:
			filter.Action = &action
		default:
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "action must be create, update or delete"))
			return
		}
	}
	if filter.StartDate, err = parseDateParam("from_date", c.Query("from_date"), false); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.EndDate, err = parseDateParam("to_date", c.Query("to_date"), true); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.auditService.ListAuditLogs(c.Request.Context(), actor, filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetEntityHistory returns every audit entry for one record, oldest first.
// @Summary     Entity history
// @Tags        audit
// @Produce     json
// @Security    BearerAuth
// @Param       entity_type path string true "expense, budget, category or user"
// @Param       id          path string true "Entity ID"
// @Success     200 {array}  models.AuditLog "History"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /audit/{entity_type}/{id} [get]
func (h *AuditHandler) GetEntityHistory(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	entityType := c.Param("entity_type")
	if !auditEntityTypes[entityType] {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid entity_type"))
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	history, err := h.auditService.GetEntityHistory(c.Request.Context(), actor, entityType, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

// GetRecentActivity returns the latest audit entries.
// @Summary     Recent activity
// @Tags        audit
// @Produce     json
// @Security    BearerAuth
// @Param       limit query int false "Number of entries (default 20, max 100)"
// @Success     200 {array}  models.AuditLog "Entries"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /audit/recent [get]
func (h *AuditHandler) GetRecentActivity(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	limit := defaultRecentLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRecentLimit {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	logs, err := h.auditService.GetRecentActivity(c.Request.Context(), actor, limit)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": logs})
}

// GetAuditStats counts audit entries by action, entity type and performer.
// @Summary     Audit statistics
// @Tags        audit
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.AuditStats "Counts"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /audit/stats [get]
func (h *AuditHandler) GetAuditStats(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	stats, err := h.auditService.GetAuditStats(c.Request.Context(), actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
