package services

import (
	"context"
	"strings"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/permissions"
	"spendwise/internal/repository"
)

// categoryService handles category-related business logic.
type categoryService struct {
	categories repository.Repository[models.Category]
	audit      AuditServicer
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(categories repository.Repository[models.Category], audit AuditServicer) CategoryServicer {
	return &categoryService{categories: categories, audit: audit}
}

// ListCategories returns categories sorted by name. Categories are shared,
// so no permission check applies.
func (s *categoryService) ListCategories(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	var scopes []repository.Scope
	if !includeInactive {
		scopes = append(scopes, repository.Where("is_active = ?", true))
	}
	scopes = append(scopes, repository.OrderBy("name ASC"))

	categories, err := s.categories.Query(ctx, scopes...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetCategoryByID returns a category, active or not.
func (s *categoryService) GetCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.categories.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if category == nil {
		return nil, apperrors.ErrCategoryNotFound
	}
	return category, nil
}

// CreateCategory creates a new category
func (s *categoryService) CreateCategory(ctx context.Context, actor permissions.Actor, input CreateCategoryInput) (*models.Category, error) {
	if !permissions.CanManageCategories(actor.Role) {
		return nil, apperrors.ErrForbidden
	}
	name := strings.TrimSpace(input.Name)
	if err := validateLength("name", name, 1, maxNameLength); err != nil {
		return nil, err
	}
	if err := validateColor(input.Color); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Color:       input.Color,
		Icon:        input.Icon,
		IsDefault:   input.IsDefault,
		IsActive:    true,
		CreatedBy:   actor.UserID,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.LogCreate(ctx, actor, models.EntityCategory, category.ID, category)
	return category, nil
}

// UpdateCategory applies the non-nil fields of input.
func (s *categoryService) UpdateCategory(ctx context.Context, actor permissions.Actor, id string, input UpdateCategoryInput) (*models.Category, error) {
	if !permissions.CanManageCategories(actor.Role) {
		return nil, apperrors.ErrForbidden
	}
	before, err := s.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if err := validateLength("name", name, 1, maxNameLength); err != nil {
			return nil, err
		}
		if !strings.EqualFold(name, before.Name) {
			if err := s.ensureUniqueName(ctx, name, id); err != nil {
				return nil, err
			}
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Color != nil {
		if err := validateColor(*input.Color); err != nil {
			return nil, err
		}
		updates["color"] = *input.Color
	}
	if input.Icon != nil {
		updates["icon"] = *input.Icon
	}

	after, err := s.categories.Update(ctx, id, updates)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.LogUpdate(ctx, actor, models.EntityCategory, id, before, after)
	return after, nil
}

// DeleteCategory deactivates a category. Expenses and budgets keep their
// reference for historical records.
func (s *categoryService) DeleteCategory(ctx context.Context, actor permissions.Actor, id string) error {
	if !permissions.CanManageCategories(actor.Role) {
		return apperrors.ErrForbidden
	}
	before, err := s.GetCategoryByID(ctx, id)
	if err != nil {
		return err
	}
	if before.IsDefault {
		return apperrors.ErrDefaultCategory
	}

	after, err := s.categories.Update(ctx, id, map[string]any{"is_active": false})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.LogUpdate(ctx, actor, models.EntityCategory, id, before, after)
	return nil
}

// ensureUniqueName rejects name when another active category already uses
// it, ignoring case.
func (s *categoryService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	scopes := []repository.Scope{
		repository.Where("LOWER(name) = ? AND is_active = ?", strings.ToLower(name), true),
	}
	if excludeID != "" {
		scopes = append(scopes, repository.Where("id <> ?", excludeID))
	}
	count, err := s.categories.Count(ctx, scopes...)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateCategory
	}
	return nil
}

// requireActiveCategory fails with ErrInvalidCategory unless id names an
// active category.
func requireActiveCategory(ctx context.Context, categories repository.Repository[models.Category], id string) error {
	if id == "" {
		return apperrors.ErrInvalidCategory
	}
	category, err := categories.Get(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if category == nil || !category.IsActive {
		return apperrors.ErrInvalidCategory
	}
	return nil
}

// requireUser fails with ErrUserNotFound unless id names an existing user.
func requireUser(ctx context.Context, users repository.Repository[models.User], id string) error {
	user, err := users.Get(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if user == nil {
		return apperrors.ErrUserNotFound
	}
	return nil
}
