package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"spendwise/internal/models"
	"spendwise/internal/permissions"
	"spendwise/internal/repository"
	"spendwise/internal/testutil"
)

// testNow is the fixed clock used by service tests: mid-March 2025.
var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db         *gorm.DB
	store      *repository.Store
	audit      AuditServicer
	expenses   ExpenseServicer
	budgets    BudgetServicer
	categories CategoryServicer
	users      UserServicer
	analytics  AnalyticsServicer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithClock(t, func() time.Time { return testNow })
}

func newTestEnvWithClock(t *testing.T, now func() time.Time) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := repository.NewStore(db)
	audit := NewAuditService(store.AuditLogs, store.Users)
	return buildEnv(db, store, audit, now)
}

func buildEnv(db *gorm.DB, store *repository.Store, audit AuditServicer, now func() time.Time) *testEnv {
	env := &testEnv{
		db:         db,
		store:      store,
		audit:      audit,
		expenses:   NewExpenseService(store, audit),
		budgets:    NewBudgetService(store, audit, now),
		categories: NewCategoryService(store.Categories, audit),
		users:      NewUserService(store.Users, audit, now),
	}
	env.analytics = NewAnalyticsService(env.expenses, env.budgets, env.categories, now)
	return env
}

func actorOf(u *models.User) permissions.Actor {
	return permissions.Actor{UserID: u.ID, Role: u.Role}
}

// auditEntries returns the audit trail of one entity, oldest first.
func auditEntries(t *testing.T, env *testEnv, entityID string) []models.AuditLog {
	t.Helper()
	entries, err := env.store.AuditLogs.Query(context.Background(),
		repository.Where("entity_id = ?", entityID),
		repository.OrderBy("timestamp ASC, id ASC"),
	)
	testutil.AssertNoError(t, err)
	return entries
}

// failingAuditRepo rejects every write; other calls are not expected.
type failingAuditRepo struct {
	repository.Repository[models.AuditLog]
}

func (failingAuditRepo) Create(context.Context, *models.AuditLog) error {
	return errors.New("audit store unavailable")
}

func ptr[T any](v T) *T { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
