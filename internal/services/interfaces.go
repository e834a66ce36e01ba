package services

import (
	"context"
	"time"

	"spendwise/internal/analytics"
	"spendwise/internal/budget"
	"spendwise/internal/money"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/permissions"
)

// RegisterInput holds the fields for public self-registration.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// CreateUserInput holds the fields an admin supplies for a new user.
type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Role     models.Role
}

// UpdateUserInput holds optional user changes; nil fields are left alone.
type UpdateUserInput struct {
	Name     *string
	Role     *models.Role
	IsActive *bool
	Password *string
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, actor permissions.Actor, id string) (*models.User, error)
	ListUsers(ctx context.Context, actor permissions.Actor, page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	CreateUser(ctx context.Context, actor permissions.Actor, input CreateUserInput) (*models.User, error)
	UpdateUser(ctx context.Context, actor permissions.Actor, id string, input UpdateUserInput) (*models.User, error)
	DeactivateUser(ctx context.Context, actor permissions.Actor, id string) error
	EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, error)
	StoreRefreshTokenHash(ctx context.Context, userID, tokenHash string) error
	GetRefreshTokenHash(ctx context.Context, userID string) (string, error)
}

// CreateCategoryInput holds the fields for a new category.
type CreateCategoryInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
	IsDefault   bool
}

// UpdateCategoryInput holds optional category changes.
type UpdateCategoryInput struct {
	Name        *string
	Description *string
	Color       *string
	Icon        *string
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	ListCategories(ctx context.Context, includeInactive bool) ([]models.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, actor permissions.Actor, input CreateCategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, actor permissions.Actor, id string, input UpdateCategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, actor permissions.Actor, id string) error
}

// ExpenseFilter holds optional filter parameters for listing expenses.
// StartDate and EndDate must be given together; both bounds are inclusive.
type ExpenseFilter struct {
	UserID        *string
	CategoryID    *string
	StartDate     *time.Time
	EndDate       *time.Time
	MinAmount     *money.Cents
	MaxAmount     *money.Cents
	PaymentMethod *models.PaymentMethod
	Search        string
}

// CreateExpenseInput holds the fields for a new expense. An empty UserID
// records the expense for the actor.
type CreateExpenseInput struct {
	UserID        string
	CategoryID    string
	Amount        money.Cents
	Date          time.Time
	Description   string
	PaymentMethod *models.PaymentMethod
	Notes         *string
	ReferenceID   *string
}

// UpdateExpenseInput holds optional expense changes. An empty Notes or
// ReferenceID clears the field.
type UpdateExpenseInput struct {
	CategoryID    *string
	Amount        *money.Cents
	Date          *time.Time
	Description   *string
	PaymentMethod *models.PaymentMethod
	Notes         *string
	ReferenceID   *string
}

// ExpenseTotals summarises a filtered set of expenses.
type ExpenseTotals struct {
	Count   int         `json:"count"`
	Total   money.Cents `json:"total"`
	Average money.Cents `json:"average"`
}

// ExpenseServicer defines the contract for expense-related business logic.
type ExpenseServicer interface {
	FindExpenses(ctx context.Context, actor permissions.Actor, filter ExpenseFilter) ([]models.Expense, error)
	ListExpenses(ctx context.Context, actor permissions.Actor, filter ExpenseFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Expense], error)
	GetExpenseByID(ctx context.Context, actor permissions.Actor, id string) (*models.Expense, error)
	CreateExpense(ctx context.Context, actor permissions.Actor, input CreateExpenseInput) (*models.Expense, error)
	UpdateExpense(ctx context.Context, actor permissions.Actor, id string, input UpdateExpenseInput) (*models.Expense, error)
	DeleteExpense(ctx context.Context, actor permissions.Actor, id string) error
	GetExpenseTotals(ctx context.Context, actor permissions.Actor, filter ExpenseFilter) (*ExpenseTotals, error)
}

// BudgetFilter holds optional filter parameters for listing budgets.
// UserID is honoured only for roles that may view all data.
type BudgetFilter struct {
	UserID     *string
	CategoryID *string
	Period     *models.BudgetPeriod
	IsActive   *bool
}

// CreateBudgetInput holds the fields for a new budget. An empty UserID
// creates the budget for the actor.
type CreateBudgetInput struct {
	UserID       string
	CategoryID   string
	Period       models.BudgetPeriod
	Amount       money.Cents
	RolloverRule models.RolloverRule
	StartDate    time.Time
	EndDate      time.Time
	AlertAt80    bool
	AlertAt100   bool
}

// UpdateBudgetInput holds optional budget changes.
type UpdateBudgetInput struct {
	CategoryID   *string
	Period       *models.BudgetPeriod
	Amount       *money.Cents
	RolloverRule *models.RolloverRule
	StartDate    *time.Time
	EndDate      *time.Time
	AlertAt80    *bool
	AlertAt100   *bool
	IsActive     *bool
}

// RolloverResult reports one pass of the rollover job.
type RolloverResult struct {
	Rolled  int `json:"rolled"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	FindBudgets(ctx context.Context, actor permissions.Actor, filter BudgetFilter) ([]models.Budget, error)
	ListBudgets(ctx context.Context, actor permissions.Actor, filter BudgetFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(ctx context.Context, actor permissions.Actor, id string) (*models.Budget, error)
	CreateBudget(ctx context.Context, actor permissions.Actor, input CreateBudgetInput) (*models.Budget, error)
	UpdateBudget(ctx context.Context, actor permissions.Actor, id string, input UpdateBudgetInput) (*models.Budget, error)
	DeleteBudget(ctx context.Context, actor permissions.Actor, id string) error
	DeactivateBudget(ctx context.Context, actor permissions.Actor, id string) (*models.Budget, error)
	GetBudgetStatus(ctx context.Context, actor permissions.Actor, id string) (*budget.Status, error)
	GetBudgetStatuses(ctx context.Context, actor permissions.Actor, filter BudgetFilter) ([]budget.Status, error)
	GetBudgetSummary(ctx context.Context, actor permissions.Actor, filter BudgetFilter) (*budget.Summary, error)
	RolloverBudget(ctx context.Context, actor permissions.Actor, id string) (*models.Budget, error)
	ProcessRollovers(ctx context.Context) (*RolloverResult, error)
}

// AuditFilter holds optional filter parameters for the audit trail.
type AuditFilter struct {
	EntityType  string
	Action      *models.AuditAction
	PerformedBy string
	StartDate   *time.Time
	EndDate     *time.Time
	Search      string
}

// AuditStats counts audit entries.
type AuditStats struct {
	Total        int64                        `json:"total"`
	ByAction     map[models.AuditAction]int64 `json:"by_action"`
	ByEntityType map[string]int64             `json:"by_entity_type"`
	ByUser       map[string]int64             `json:"by_user"`
}

// AuditServicer records and reads the audit trail. The Log methods never
// fail the caller: problems are logged and the entry is dropped.
type AuditServicer interface {
	LogCreate(ctx context.Context, actor permissions.Actor, entityType, entityID string, record any)
	LogUpdate(ctx context.Context, actor permissions.Actor, entityType, entityID string, before, after any)
	LogDelete(ctx context.Context, actor permissions.Actor, entityType, entityID string, record any)
	ListAuditLogs(ctx context.Context, actor permissions.Actor, filter AuditFilter, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
	GetEntityHistory(ctx context.Context, actor permissions.Actor, entityType, entityID string) ([]models.AuditLog, error)
	GetRecentActivity(ctx context.Context, actor permissions.Actor, limit int) ([]models.AuditLog, error)
	GetAuditStats(ctx context.Context, actor permissions.Actor) (*AuditStats, error)
}

// AnalyticsServicer defines the contract for spending reports.
type AnalyticsServicer interface {
	GetDashboardStats(ctx context.Context, actor permissions.Actor) (*analytics.DashboardStats, error)
	GetCategoryBreakdown(ctx context.Context, actor permissions.Actor, filter ExpenseFilter) ([]analytics.CategorySpending, error)
	GetMonthlyTrend(ctx context.Context, actor permissions.Actor, filter ExpenseFilter) ([]analytics.MonthlySpending, error)
	GetSpendingByPaymentMethod(ctx context.Context, actor permissions.Actor, filter ExpenseFilter) ([]analytics.PaymentMethodSpending, error)
	GetBudgetVsActual(ctx context.Context, actor permissions.Actor) ([]analytics.BudgetComparison, error)
	GetAverageDailySpending(ctx context.Context, actor permissions.Actor, filter ExpenseFilter) (money.Cents, error)
}
