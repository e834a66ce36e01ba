package services

import (
	"context"
	"errors"
	"time"

	"spendwise/internal/budget"
	"spendwise/internal/dates"
	apperrors "spendwise/internal/errors"
	"spendwise/internal/logger"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/permissions"
	"spendwise/internal/repository"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	budgets    repository.Repository[models.Budget]
	expenses   repository.Repository[models.Expense]
	categories repository.Repository[models.Category]
	users      repository.Repository[models.User]
	audit      AuditServicer
	calculator *budget.Calculator
	rollover   *budget.RolloverManager
	now        func() time.Time
}

// NewBudgetService creates a new BudgetServicer. A nil clock uses time.Now.
func NewBudgetService(store *repository.Store, audit AuditServicer, now func() time.Time) BudgetServicer {
	if now == nil {
		now = time.Now
	}
	return &budgetService{
		budgets:    store.Budgets,
		expenses:   store.Expenses,
		categories: store.Categories,
		users:      store.Users,
		audit:      audit,
		calculator: budget.NewCalculator(),
		rollover:   budget.NewRolloverManager(now),
		now:        now,
	}
}

// FindBudgets returns every budget matching filter that actor may view,
// newest first.
func (s *budgetService) FindBudgets(ctx context.Context, actor permissions.Actor, filter BudgetFilter) ([]models.Budget, error) {
	scopes := append(visibleBudgetScopes(actor, filter), repository.OrderBy(budgetOrder))

	budgets, err := s.budgets.Query(ctx, scopes...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return permissions.FilterByPermissions(budgets, actor), nil
}

// ListBudgets returns a paginated list of budgets visible to actor.
func (s *budgetService) ListBudgets(ctx context.Context, actor permissions.Actor, filter BudgetFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()
	scopes := visibleBudgetScopes(actor, filter)

	total, err := s.budgets.Count(ctx, scopes...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	scopes = append(scopes, repository.OrderBy(budgetOrder), pagination.Paginate(page))
	budgets, err := s.budgets.Query(ctx, scopes...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, total)
	return &result, nil
}

const budgetOrder = "created_at DESC, id DESC"

// visibleBudgetScopes turns filter into query conditions. Roles limited to
// their own budgets ignore filter.UserID.
func visibleBudgetScopes(actor permissions.Actor, filter BudgetFilter) []repository.Scope {
	var scopes []repository.Scope
	switch {
	case !permissions.CanViewAllData(actor.Role):
		scopes = append(scopes, repository.Where("user_id = ?", actor.UserID))
	case filter.UserID != nil:
		scopes = append(scopes, repository.Where("user_id = ?", *filter.UserID))
	}
	if filter.CategoryID != nil {
		scopes = append(scopes, repository.Where("category_id = ?", *filter.CategoryID))
	}
	if filter.Period != nil {
		scopes = append(scopes, repository.Where("period = ?", *filter.Period))
	}
	if filter.IsActive != nil {
		scopes = append(scopes, repository.Where("is_active = ?", *filter.IsActive))
	}
	return scopes
}

// GetBudgetByID returns a budget if actor may view it.
func (s *budgetService) GetBudgetByID(ctx context.Context, actor permissions.Actor, id string) (*models.Budget, error) {
	b, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !permissions.CanViewBudget(actor.Role, b.UserID, actor.UserID) {
		return nil, apperrors.ErrForbidden
	}
	return b, nil
}

// getManaged loads a budget and checks that actor may change it.
func (s *budgetService) getManaged(ctx context.Context, actor permissions.Actor, id string) (*models.Budget, error) {
	b, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !permissions.CanManageBudget(actor.Role, b.UserID, actor.UserID) {
		return nil, apperrors.ErrForbidden
	}
	return b, nil
}

func (s *budgetService) get(ctx context.Context, id string) (*models.Budget, error) {
	b, err := s.budgets.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if b == nil {
		return nil, apperrors.ErrBudgetNotFound
	}
	return b, nil
}

// CreateBudget creates an active budget for the actor, or for input.UserID
// when the actor may manage that user's budgets.
func (s *budgetService) CreateBudget(ctx context.Context, actor permissions.Actor, input CreateBudgetInput) (*models.Budget, error) {
	if !input.Period.Valid() {
		return nil, invalidInput("period must be monthly or annual")
	}
	rule := input.RolloverRule
	if rule == "" {
		rule = models.RolloverNone
	}
	if !rule.Valid() {
		return nil, invalidInput("unknown rollover rule %q", rule)
	}
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	window, err := budgetWindow(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}

	ownerID := input.UserID
	if ownerID == "" {
		ownerID = actor.UserID
	}
	if !permissions.CanManageBudget(actor.Role, ownerID, actor.UserID) {
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

	b := &models.Budget{
		UserID:       ownerID,
		CategoryID:   input.CategoryID,
		Period:       input.Period,
		Amount:       input.Amount,
		RolloverRule: rule,
		StartDate:    window.Start,
		EndDate:      window.End,
		AlertAt80:    input.AlertAt80,
		AlertAt100:   input.AlertAt100,
		IsActive:     true,
	}
	if err := s.ensureNoOverlap(ctx, b, ""); err != nil {
		return nil, err
	}
	if err := s.budgets.Create(ctx, b); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.LogCreate(ctx, actor, models.EntityBudget, b.ID, b)
	return b, nil
}

// budgetWindow validates and normalises a budget's dates to whole UTC days.
// The end day must fall after the start day.
func budgetWindow(start, end time.Time) (dates.Range, error) {
	if start.IsZero() || end.IsZero() {
		return dates.Range{}, invalidInput("start_date and end_date are required")
	}
	start = dates.StartOfDay(start.UTC())
	end = dates.EndOfDay(end.UTC())
	if !dates.StartOfDay(end).After(start) {
		return dates.Range{}, invalidInput("end_date must be after start_date")
	}
	return dates.Range{Start: start, End: end}, nil
}

// UpdateBudget applies the non-nil fields of input, re-validating the
// category, the window and overlap with the owner's other active budgets.
func (s *budgetService) UpdateBudget(ctx context.Context, actor permissions.Actor, id string, input UpdateBudgetInput) (*models.Budget, error) {
	before, err := s.getManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	next := *before
	updates := make(map[string]any)
	if input.CategoryID != nil && *input.CategoryID != before.CategoryID {
		if err := requireActiveCategory(ctx, s.categories, *input.CategoryID); err != nil {
			return nil, err
		}
		next.CategoryID = *input.CategoryID
		updates["category_id"] = next.CategoryID
	}
	if input.Period != nil {
		if !input.Period.Valid() {
			return nil, invalidInput("period must be monthly or annual")
		}
		next.Period = *input.Period
		updates["period"] = next.Period
	}
	if input.Amount != nil {
		if err := validateAmount(*input.Amount); err != nil {
			return nil, err
		}
		next.Amount = *input.Amount
		updates["amount"] = next.Amount
	}
	if input.RolloverRule != nil {
		if !input.RolloverRule.Valid() {
			return nil, invalidInput("unknown rollover rule %q", *input.RolloverRule)
		}
		next.RolloverRule = *input.RolloverRule
		updates["rollover_rule"] = next.RolloverRule
	}
	if input.StartDate != nil || input.EndDate != nil {
		start, end := before.StartDate, before.EndDate
		if input.StartDate != nil {
			start = *input.StartDate
		}
		if input.EndDate != nil {
			end = *input.EndDate
		}
		window, err := budgetWindow(start, end)
		if err != nil {
			return nil, err
		}
		next.StartDate, next.EndDate = window.Start, window.End
		updates["start_date"] = next.StartDate
		updates["end_date"] = next.EndDate
	}
	if input.AlertAt80 != nil {
		updates["alert_at_80"] = *input.AlertAt80
	}
	if input.AlertAt100 != nil {
		updates["alert_at_100"] = *input.AlertAt100
	}
	if input.IsActive != nil {
		next.IsActive = *input.IsActive
		updates["is_active"] = next.IsActive
	}

	if next.IsActive {
		if err := s.ensureNoOverlap(ctx, &next, id); err != nil {
			return nil, err
		}
	}

	after, err := s.budgets.Update(ctx, id, updates)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.LogUpdate(ctx, actor, models.EntityBudget, id, before, after)
	return after, nil
}

// ensureNoOverlap rejects b when another active budget of the same owner,
// category and period shares at least one day with it.
func (s *budgetService) ensureNoOverlap(ctx context.Context, b *models.Budget, excludeID string) error {
	scopes := []repository.Scope{
		repository.Where("user_id = ? AND category_id = ? AND period = ? AND is_active = ?",
			b.UserID, b.CategoryID, b.Period, true),
		repository.Where("start_date <= ? AND end_date >= ?", b.EndDate.UTC(), b.StartDate.UTC()),
	}
	if excludeID != "" {
		scopes = append(scopes, repository.Where("id <> ?", excludeID))
	}
	count, err := s.budgets.Count(ctx, scopes...)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrBudgetOverlap
	}
	return nil
}

// DeleteBudget permanently removes a budget.
func (s *budgetService) DeleteBudget(ctx context.Context, actor permissions.Actor, id string) error {
	b, err := s.getManaged(ctx, actor, id)
	if err != nil {
		return err
	}

	deleted, err := s.budgets.Delete(ctx, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !deleted {
		return apperrors.ErrBudgetNotFound
	}

	s.audit.LogDelete(ctx, actor, models.EntityBudget, id, b)
	return nil
}

// DeactivateBudget marks a budget inactive.
func (s *budgetService) DeactivateBudget(ctx context.Context, actor permissions.Actor, id string) (*models.Budget, error) {
	before, err := s.getManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.deactivate(ctx, actor, before)
}

func (s *budgetService) deactivate(ctx context.Context, actor permissions.Actor, before *models.Budget) (*models.Budget, error) {
	after, err := s.budgets.Update(ctx, before.ID, map[string]any{"is_active": false})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.audit.LogUpdate(ctx, actor, models.EntityBudget, before.ID, before, after)
	return after, nil
}

// GetBudgetStatus returns the consumption of one budget.
func (s *budgetService) GetBudgetStatus(ctx context.Context, actor permissions.Actor, id string) (*budget.Status, error) {
	b, err := s.GetBudgetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	status, err := s.statusFor(ctx, *b)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (s *budgetService) statusFor(ctx context.Context, b models.Budget) (budget.Status, error) {
	expenses, err := s.expenses.Query(ctx,
		repository.Where("user_id = ? AND category_id = ?", b.UserID, b.CategoryID),
		repository.Where("date >= ? AND date <= ?", b.StartDate.UTC(), b.EndDate.UTC()),
	)
	if err != nil {
		return budget.Status{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	category, err := s.categories.Get(ctx, b.CategoryID)
	if err != nil {
		return budget.Status{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.calculator.Status(b, expenses, category), nil
}

// GetBudgetStatuses returns the consumption of every budget FindBudgets
// would return, in the same order.
func (s *budgetService) GetBudgetStatuses(ctx context.Context, actor permissions.Actor, filter BudgetFilter) ([]budget.Status, error) {
	budgets, err := s.FindBudgets(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	if len(budgets) == 0 {
		return []budget.Status{}, nil
	}

	owners := make([]string, 0, len(budgets))
	categoryIDs := make([]string, 0, len(budgets))
	for _, b := range budgets {
		owners = append(owners, b.UserID)
		categoryIDs = append(categoryIDs, b.CategoryID)
	}
	expenses, err := s.expenses.Query(ctx,
		repository.Where("user_id IN ? AND category_id IN ?", owners, categoryIDs),
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	categories, err := s.categories.GetAll(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.calculator.Statuses(budgets, expenses, categories), nil
}

// GetBudgetSummary counts the statuses of matching budgets by alert level.
func (s *budgetService) GetBudgetSummary(ctx context.Context, actor permissions.Actor, filter BudgetFilter) (*budget.Summary, error) {
	statuses, err := s.GetBudgetStatuses(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	summary := budget.Summarize(statuses)
	return &summary, nil
}

// RolloverBudget renews a finished budget into its next period on request.
func (s *budgetService) RolloverBudget(ctx context.Context, actor permissions.Actor, id string) (*models.Budget, error) {
	b, err := s.getManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, invalidInput("only active budgets can be rolled over")
	}
	if !s.rollover.HasPeriodEnded(*b) {
		return nil, apperrors.ErrBudgetPeriodActive
	}
	return s.rollOver(ctx, actor, *b)
}

// rollOver creates the next-period budget, carrying over per the rule, and
// deactivates b.
func (s *budgetService) rollOver(ctx context.Context, actor permissions.Actor, b models.Budget) (*models.Budget, error) {
	status, err := s.statusFor(ctx, b)
	if err != nil {
		return nil, err
	}
	carry := s.rollover.CalculateRollover(b, status.Spent, status.Remaining)
	next := s.rollover.NextPeriodBudget(b, carry)

	if err := s.ensureNoOverlap(ctx, &next, b.ID); err != nil {
		return nil, err
	}
	if err := s.budgets.Create(ctx, &next); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.audit.LogCreate(ctx, actor, models.EntityBudget, next.ID, &next)

	if _, err := s.deactivate(ctx, actor, &b); err != nil {
		return nil, err
	}
	return &next, nil
}

// ProcessRollovers renews every active budget whose period has ended. A
// budget whose next period is already covered is only deactivated. Failures
// are logged and do not stop the run.
func (s *budgetService) ProcessRollovers(ctx context.Context) (*RolloverResult, error) {
	ended, err := s.budgets.Query(ctx,
		repository.Where("is_active = ? AND end_date < ?", true, s.now().UTC()),
		repository.OrderBy("end_date ASC, id ASC"),
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &RolloverResult{}
	for _, b := range ended {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		next, err := s.rollOver(ctx, permissions.System, b)
		switch {
		case errors.Is(err, apperrors.ErrBudgetOverlap):
			if _, err := s.deactivate(ctx, permissions.System, &b); err != nil {
				logger.Get().Errorw("failed to deactivate ended budget", "budget_id", b.ID, "error", err)
				result.Failed++
				continue
			}
			result.Skipped++
		case err != nil:
			logger.Get().Errorw("failed to roll over budget", "budget_id", b.ID, "error", err)
			result.Failed++
		default:
			logger.Get().Infow("budget rolled over", "budget_id", b.ID, "next_budget_id", next.ID, "amount", next.Amount)
			result.Rolled++
		}
	}
	return result, nil
}
