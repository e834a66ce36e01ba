package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"spendwise/internal/dates"
	"spendwise/internal/models"
	"spendwise/internal/money"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates an active user with the given role and a unique email.
func CreateTestUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	email := fmt.Sprintf("%s%d@test.com", role, nextID())
	return CreateTestUserWithEmail(t, db, email, role)
}

// CreateTestUserWithEmail creates an active user with the given email and role.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		Name:     fmt.Sprintf("Test %s %d", role, nextID()),
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates an active, non-default category.
func CreateTestCategory(t *testing.T, db *gorm.DB) *models.Category {
	t.Helper()

	category := &models.Category{
		Name:     fmt.Sprintf("Test Category %d", nextID()),
		Color:    "#3b82f6",
		Icon:     "tag",
		IsActive: true,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestExpense creates an expense for userID in categoryID.
func CreateTestExpense(t *testing.T, db *gorm.DB, userID, categoryID string, amount money.Cents, date time.Time) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		UserID:      userID,
		CategoryID:  categoryID,
		Amount:      amount,
		Date:        date,
		Description: fmt.Sprintf("Test expense %d", nextID()),
		CreatedBy:   userID,
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}

// CreateTestBudget creates an active monthly budget covering the month of start.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, categoryID string, amount money.Cents, start time.Time) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:       userID,
		CategoryID:   categoryID,
		Period:       models.BudgetPeriodMonthly,
		Amount:       amount,
		RolloverRule: models.RolloverSurplus,
		StartDate:    dates.StartOfMonth(start),
		EndDate:      dates.EndOfMonth(start),
		AlertAt80:    true,
		AlertAt100:   true,
		IsActive:     true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}
