package services

import (
	"context"
	"strings"
	"time"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/money"
	"spendwise/internal/pagination"
	"spendwise/internal/permissions"
	"spendwise/internal/repository"
)

// expenseService handles expense-related business logic.
type expenseService struct {
	expenses   repository.Repository[models.Expense]
	categories repository.Repository[models.Category]
	users      repository.Repository[models.User]
	audit      AuditServicer
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(store *repository.Store, audit AuditServicer) ExpenseServicer {
	return &expenseService{
		expenses:   store.Expenses,
		categories: store.Categories,
		users:      store.Users,
		audit:      audit,
	}
}

// FindExpenses returns every expense matching filter that actor may view,
// newest date first.
func (s *expenseService) FindExpenses(ctx context.Context, actor permissions.Actor, filter ExpenseFilter) ([]models.Expense, error) {
	scopes, err := visibleExpenseScopes(actor, filter)
	if err != nil {
		return nil, err
	}
	scopes = append(scopes, repository.OrderBy(expenseOrder))

	expenses, err := s.expenses.Query(ctx, scopes...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return permissions.FilterByPermissions(expenses, actor), nil
}

// ListExpenses returns a paginated, filtered list of expenses visible to actor.
func (s *expenseService) ListExpenses(ctx context.Context, actor permissions.Actor, filter ExpenseFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error) {
	scopes, err := visibleExpenseScopes(actor, filter)
	if err != nil {
		return nil, err
	}
	page.Defaults()

	total, err := s.expenses.Count(ctx, scopes...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	scopes = append(scopes, repository.OrderBy(expenseOrder), pagination.Paginate(page))
	expenses, err := s.expenses.Query(ctx, scopes...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(expenses, page.Page, page.PageSize, total)
	return &result, nil
}

const expenseOrder = "date DESC, created_at DESC, id DESC"

// visibleExpenseScopes adds the owner condition for roles limited to their
// own expenses.
func visibleExpenseScopes(actor permissions.Actor, filter ExpenseFilter) ([]repository.Scope, error) {
	scopes, err := expenseFilterScopes(filter)
	if err != nil {
		return nil, err
	}
	if !permissions.CanViewAllData(actor.Role) {
		scopes = append(scopes, repository.Where("user_id = ?", actor.UserID))
	}
	return scopes, nil
}

// expenseFilterScopes turns the optional filter fields into query conditions.
func expenseFilterScopes(f ExpenseFilter) ([]repository.Scope, error) {
	var scopes []repository.Scope
	if f.UserID != nil {
		scopes = append(scopes, repository.Where("user_id = ?", *f.UserID))
	}
	if f.CategoryID != nil {
		scopes = append(scopes, repository.Where("category_id = ?", *f.CategoryID))
	}
	if (f.StartDate == nil) != (f.EndDate == nil) {
		return nil, invalidInput("start_date and end_date must be given together")
	}
	if f.StartDate != nil {
		if f.EndDate.Before(*f.StartDate) {
			return nil, invalidInput("end_date must not be before start_date")
		}
		scopes = append(scopes, repository.Where("date >= ? AND date <= ?", f.StartDate.UTC(), f.EndDate.UTC()))
	}
	if f.MinAmount != nil {
		scopes = append(scopes, repository.Where("amount >= ?", *f.MinAmount))
	}
	if f.MaxAmount != nil {
		scopes = append(scopes, repository.Where("amount <= ?", *f.MaxAmount))
	}
	if f.PaymentMethod != nil {
		scopes = append(scopes, repository.Where("payment_method = ?", *f.PaymentMethod))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		scopes = append(scopes, repository.Where(
			"LOWER(description) LIKE ? OR LOWER(COALESCE(notes, '')) LIKE ? OR LOWER(COALESCE(reference_id, '')) LIKE ?",
			like, like, like,
		))
	}
	return scopes, nil
}

// GetExpenseByID returns an expense if actor may view it.
func (s *expenseService) GetExpenseByID(ctx context.Context, actor permissions.Actor, id string) (*models.Expense, error) {
	expense, err := s.expenses.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if expense == nil {
		return nil, apperrors.ErrExpenseNotFound
	}
	if !permissions.CanViewExpense(actor.Role, expense.UserID, actor.UserID) {
		return nil, apperrors.ErrForbidden
	}
	return expense, nil
}

// CreateExpense records an expense for the actor, or for input.UserID when
// the actor may edit that user's expenses.
func (s *expenseService) CreateExpense(ctx context.Context, actor permissions.Actor, input CreateExpenseInput) (*models.Expense, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := validateLength("description", input.Description, 1, maxDescriptionLength); err != nil {
		return nil, err
	}
	if err := validateOptionalLength("notes", input.Notes, maxNotesLength); err != nil {
		return nil, err
	}
	if err := validateOptionalLength("reference_id", input.ReferenceID, maxReferenceLength); err != nil {
		return nil, err
	}
	if input.PaymentMethod != nil && !input.PaymentMethod.Valid() {
		return nil, invalidInput("unknown payment method %q", *input.PaymentMethod)
	}
	if input.Date.IsZero() {
		return nil, invalidInput("date is required")
	}

	ownerID := input.UserID
	if ownerID == "" {
		ownerID = actor.UserID
	}
	if !permissions.CanEditExpense(actor.Role, ownerID, actor.UserID) {
		return nil, apperrors.ErrForbidden
	}
	if ownerID != actor.UserID {
		if err := requireUser(ctx, s.users, ownerID); err != nil {
			return nil, err
		}
	}
	if err := requireActiveCategory(ctx, s.categories, input.CategoryID); err != nil {
		return nil, err
	}

	expense := &models.Expense{
		UserID:        ownerID,
		CategoryID:    input.CategoryID,
		Amount:        input.Amount,
		Date:          input.Date.UTC(),
		Description:   strings.TrimSpace(input.Description),
		PaymentMethod: input.PaymentMethod,
		Notes:         emptyToNil(input.Notes),
		ReferenceID:   emptyToNil(input.ReferenceID),
		CreatedBy:     actor.UserID,
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.LogCreate(ctx, actor, models.EntityExpense, expense.ID, expense)
	return expense, nil
}

// UpdateExpense applies the non-nil fields of input.
func (s *expenseService) UpdateExpense(ctx context.Context, actor permissions.Actor, id string, input UpdateExpenseInput) (*models.Expense, error) {
	before, err := s.expenses.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if before == nil {
		return nil, apperrors.ErrExpenseNotFound
	}
	if !permissions.CanEditExpense(actor.Role, before.UserID, actor.UserID) {
		return nil, apperrors.ErrForbidden
	}

	updates := make(map[string]any)
	if input.CategoryID != nil {
		if err := requireActiveCategory(ctx, s.categories, *input.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *input.CategoryID
	}
	if input.Amount != nil {
		if err := validateAmount(*input.Amount); err != nil {
			return nil, err
		}
		updates["amount"] = *input.Amount
	}
	if input.Date != nil {
		if input.Date.IsZero() {
			return nil, invalidInput("date is required")
		}
		updates["date"] = input.Date.UTC()
	}
	if input.Description != nil {
		if err := validateLength("description", *input.Description, 1, maxDescriptionLength); err != nil {
			return nil, err
		}
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.PaymentMethod != nil {
		if !input.PaymentMethod.Valid() {
			return nil, invalidInput("unknown payment method %q", *input.PaymentMethod)
		}
		updates["payment_method"] = *input.PaymentMethod
	}
	if input.Notes != nil {
		if err := validateOptionalLength("notes", input.Notes, maxNotesLength); err != nil {
			return nil, err
		}
		updates["notes"] = emptyToNil(input.Notes)
	}
	if input.ReferenceID != nil {
		if err := validateOptionalLength("reference_id", input.ReferenceID, maxReferenceLength); err != nil {
			return nil, err
		}
		updates["reference_id"] = emptyToNil(input.ReferenceID)
	}
	updates["updated_by"] = actor.UserID
	updates["updated_at"] = time.Now().UTC()

	after, err := s.expenses.Update(ctx, id, updates)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.LogUpdate(ctx, actor, models.EntityExpense, id, before, after)
	return after, nil
}

// DeleteExpense permanently removes an expense.
func (s *expenseService) DeleteExpense(ctx context.Context, actor permissions.Actor, id string) error {
	expense, err := s.expenses.Get(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if expense == nil {
		return apperrors.ErrExpenseNotFound
	}
	if !permissions.CanDeleteExpense(actor.Role, expense.UserID, actor.UserID) {
		return apperrors.ErrForbidden
	}

	deleted, err := s.expenses.Delete(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !deleted {
		return apperrors.ErrExpenseNotFound
	}

	s.audit.LogDelete(ctx, actor, models.EntityExpense, id, expense)
	return nil
}

// GetExpenseTotals sums the expenses FindExpenses would return.
func (s *expenseService) GetExpenseTotals(ctx context.Context, actor permissions.Actor, filter ExpenseFilter) (*ExpenseTotals, error) {
	expenses, err := s.FindExpenses(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	totals := &ExpenseTotals{Count: len(expenses)}
	for _, e := range expenses {
		totals.Total += e.Amount
	}
	if totals.Count > 0 {
		totals.Average = totals.Total / money.Cents(totals.Count)
	}
	return totals, nil
}
