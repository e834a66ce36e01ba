package services

import (
	"context"
	"strings"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/logger"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/permissions"
	"spendwise/internal/repository"
)

// systemUserName is recorded for mutations made by background jobs.
const systemUserName = "System"

// defaultRecentActivity is used when GetRecentActivity gets a non-positive limit.
const defaultRecentActivity = 50

// auditService handles audit log recording and retrieval.
type auditService struct {
	logs  repository.Repository[models.AuditLog]
	users repository.Repository[models.User]
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(logs repository.Repository[models.AuditLog], users repository.Repository[models.User]) AuditServicer {
	return &auditService{logs: logs, users: users}
}

// LogCreate records every field of a newly created record.
func (s *auditService) LogCreate(ctx context.Context, actor permissions.Actor, entityType, entityID string, record any) {
	s.log(ctx, actor, entityType, entityID, models.AuditCreate, createChanges(record))
}

// LogUpdate records the fields that differ between before and after.
func (s *auditService) LogUpdate(ctx context.Context, actor permissions.Actor, entityType, entityID string, before, after any) {
	s.log(ctx, actor, entityType, entityID, models.AuditUpdate, diffChanges(before, after))
}

// LogDelete records every field of a removed record.
func (s *auditService) LogDelete(ctx context.Context, actor permissions.Actor, entityType, entityID string, record any) {
	s.log(ctx, actor, entityType, entityID, models.AuditDelete, deleteChanges(record))
}

// log writes one entry. Errors are logged but never propagate to avoid
// disrupting the main operation.
func (s *auditService) log(ctx context.Context, actor permissions.Actor, entityType, entityID string, action models.AuditAction, changes models.AuditChanges) {
	name, role, ok := s.performer(ctx, actor)
	if !ok {
		return
	}

	entry := &models.AuditLog{
		EntityType:      entityType,
		EntityID:        entityID,
		Action:          action,
		PerformedBy:     actor.UserID,
		PerformedByName: name,
		PerformedByRole: role,
		Changes:         changes,
	}

	if err := s.logs.Create(ctx, entry); err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", actor.UserID,
			"action", action,
			"entity_type", entityType,
			"entity_id", entityID,
		)
	}
}

func (s *auditService) performer(ctx context.Context, actor permissions.Actor) (string, models.Role, bool) {
	if actor.IsSystem() {
		return systemUserName, actor.Role, true
	}
	user, err := s.users.Get(ctx, actor.UserID)
	if err != nil || user == nil {
		logger.Get().Warnw("skipping audit entry: performer not found", "user_id", actor.UserID, "error", err)
		return "", "", false
	}
	return user.Name, user.Role, true
}

// ListAuditLogs returns a filtered page of the audit trail, newest first.
func (s *auditService) ListAuditLogs(ctx context.Context, actor permissions.Actor, filter AuditFilter, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
	if !permissions.CanViewAuditLogs(actor.Role) {
		return nil, apperrors.ErrForbidden
	}
	page.Defaults()

	scopes := auditFilterScopes(filter)
	total, err := s.logs.Count(ctx, scopes...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	scopes = append(scopes, repository.OrderBy("timestamp DESC, id DESC"), pagination.Paginate(page))
	entries, err := s.logs.Query(ctx, scopes...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(entries, page.Page, page.PageSize, total)
	return &result, nil
}

func auditFilterScopes(f AuditFilter) []repository.Scope {
	var scopes []repository.Scope
	if f.EntityType != "" {
		scopes = append(scopes, repository.Where("entity_type = ?", f.EntityType))
	}
	if f.Action != nil {
		scopes = append(scopes, repository.Where("action = ?", *f.Action))
	}
	if f.PerformedBy != "" {
		scopes = append(scopes, repository.Where("performed_by = ?", f.PerformedBy))
	}
	if f.StartDate != nil {
		scopes = append(scopes, repository.Where("timestamp >= ?", f.StartDate.UTC()))
	}
	if f.EndDate != nil {
		scopes = append(scopes, repository.Where("timestamp <= ?", f.EndDate.UTC()))
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		scopes = append(scopes, repository.Where(
			"LOWER(entity_type) LIKE ? OR LOWER(performed_by_name) LIKE ? OR LOWER(entity_id) LIKE ?",
			like, like, like,
		))
	}
	return scopes
}

// GetEntityHistory returns every entry for one entity, newest first.
func (s *auditService) GetEntityHistory(ctx context.Context, actor permissions.Actor, entityType, entityID string) ([]models.AuditLog, error) {
	if !permissions.CanViewAuditLogs(actor.Role) {
		return nil, apperrors.ErrForbidden
	}
	entries, err := s.logs.Query(ctx,
		repository.Where("entity_type = ? AND entity_id = ?", entityType, entityID),
		repository.OrderBy("timestamp DESC, id DESC"),
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entries, nil
}

// GetRecentActivity returns the latest limit entries.
func (s *auditService) GetRecentActivity(ctx context.Context, actor permissions.Actor, limit int) ([]models.AuditLog, error) {
	if !permissions.CanViewAuditLogs(actor.Role) {
		return nil, apperrors.ErrForbidden
	}
	if limit <= 0 {
		limit = defaultRecentActivity
	}
	entries, err := s.logs.Query(ctx, repository.OrderBy("timestamp DESC, id DESC"), repository.Limit(limit))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entries, nil
}

// GetAuditStats counts entries by action, entity type and performer name.
func (s *auditService) GetAuditStats(ctx context.Context, actor permissions.Actor) (*AuditStats, error) {
	if !permissions.CanViewAuditLogs(actor.Role) {
		return nil, apperrors.ErrForbidden
	}
	entries, err := s.logs.GetAll(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	stats := &AuditStats{
		Total: int64(len(entries)),
		ByAction: map[models.AuditAction]int64{
			models.AuditCreate: 0,
			models.AuditUpdate: 0,
			models.AuditDelete: 0,
		},
		ByEntityType: make(map[string]int64),
		ByUser:       make(map[string]int64),
	}
	for _, e := range entries {
		stats.ByAction[e.Action]++
		stats.ByEntityType[e.EntityType]++
		stats.ByUser[e.PerformedByName]++
	}
	return stats, nil
}
