package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/analytics"
	"spendwise/internal/budget"
	"spendwise/internal/dates"
	apperrors "spendwise/internal/errors"
	"spendwise/internal/models"
	"spendwise/internal/money"
	"spendwise/internal/permissions"
)

// analyticsService builds spending reports from the expense and budget services.
type analyticsService struct {
	expenses   ExpenseServicer
	budgets    BudgetServicer
	categories CategoryServicer
	now        func() time.Time
}

// NewAnalyticsService creates a new AnalyticsServicer. A nil clock uses time.Now.
func NewAnalyticsService(expenses ExpenseServicer, budgets BudgetServicer, categories CategoryServicer, now func() time.Time) AnalyticsServicer {
	if now == nil {
		now = time.Now
	}
	return &analyticsService{expenses: expenses, budgets: budgets, categories: categories, now: now}
}

// GetDashboardStats summarises everything actor may see.
func (s *analyticsService) GetDashboardStats(ctx context.Context, actor permissions.Actor) (*analytics.DashboardStats, error) {
	var (
		expenses   []models.Expense
		categories []models.Category
		statuses   []budget.Status
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.expenses.FindExpenses(gctx, actor, ExpenseFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.categories.ListCategories(gctx, true)
		return err
	})
	g.Go(func() error {
		active := true
		var err error
		statuses, err = s.budgets.GetBudgetStatuses(gctx, actor, BudgetFilter{IsActive: &active})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := analytics.Dashboard(expenses, categories, statuses, s.now())
	return &stats, nil
}

// GetCategoryBreakdown groups matching expenses by category.
func (s *analyticsService) GetCategoryBreakdown(ctx context.Context, actor permissions.Actor, filter ExpenseFilter) ([]analytics.CategorySpending, error) {
	expenses, err := s.reportExpenses(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.ListCategories(ctx, true)
	if err != nil {
		return nil, err
	}
	return analytics.CategoryBreakdown(expenses, categories), nil
}

// GetMonthlyTrend groups matching expenses by month.
func (s *analyticsService) GetMonthlyTrend(ctx context.Context, actor permissions.Actor, filter ExpenseFilter) ([]analytics.MonthlySpending, error) {
	expenses, err := s.reportExpenses(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	return analytics.MonthlyTrend(expenses), nil
}

// GetSpendingByPaymentMethod groups matching expenses by payment method.
func (s *analyticsService) GetSpendingByPaymentMethod(ctx context.Context, actor permissions.Actor, filter ExpenseFilter) ([]analytics.PaymentMethodSpending, error) {
	expenses, err := s.reportExpenses(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	return analytics.ByPaymentMethod(expenses), nil
}

// GetBudgetVsActual compares every active budget with its spending.
func (s *analyticsService) GetBudgetVsActual(ctx context.Context, actor permissions.Actor) ([]analytics.BudgetComparison, error) {
	active := true
	statuses, err := s.budgets.GetBudgetStatuses(ctx, actor, BudgetFilter{IsActive: &active})
	if err != nil {
		return nil, err
	}
	return analytics.BudgetVsActual(statuses), nil
}

// GetAverageDailySpending is the mean daily spend over the filter's date range.
func (s *analyticsService) GetAverageDailySpending(ctx context.Context, actor permissions.Actor, filter ExpenseFilter) (money.Cents, error) {
	if filter.StartDate == nil || filter.EndDate == nil {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "a start and end date are required")
	}
	expenses, err := s.reportExpenses(ctx, actor, filter)
	if err != nil {
		return 0, err
	}
	return analytics.AverageDaily(expenses, dates.Range{Start: *filter.StartDate, End: *filter.EndDate}), nil
}

// reportExpenses loads the expenses a report covers, scoped to what actor
// may see.
func (s *analyticsService) reportExpenses(ctx context.Context, actor permissions.Actor, filter ExpenseFilter) ([]models.Expense, error) {
	if !permissions.CanExportReports(actor.Role) {
		return nil, apperrors.ErrForbidden
	}
	return s.expenses.FindExpenses(ctx, actor, filter)
}
