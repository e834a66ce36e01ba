package budget

import (
	"time"

	"spendwise/internal/dates"
	"spendwise/internal/money"
	"spendwise/internal/models"
)

// RolloverManager carries a finished budget period into the next one.
type RolloverManager struct {
	now func() time.Time
}

// NewRolloverManager creates a RolloverManager reading time from now.
// A nil clock uses time.Now.
func NewRolloverManager(now func() time.Time) *RolloverManager {
	if now == nil {
		now = time.Now
	}
	return &RolloverManager{now: now}
}

// CalculateRollover returns the amount carried into the next period.
// Surplus-only rules never carry a deficit; rollover_all carries either.
func (m *RolloverManager) CalculateRollover(b models.Budget, spent, remaining money.Cents) money.Cents {
	switch b.RolloverRule {
	case models.RolloverSurplus:
		if remaining > 0 {
			return remaining
		}
		return 0
	case models.RolloverAll:
		return remaining
	default:
		return 0
	}
}

// NextWindow returns the window following b. The next period starts the day
// after b ends and runs to the end of the month (monthly) or year (annual)
// after the one it starts in. Boundaries are UTC days whatever location the
// stored end date was loaded in.
func NextWindow(b models.Budget) dates.Range {
	start := dates.StartOfDay(b.EndDate.UTC()).AddDate(0, 0, 1)
	var end time.Time
	switch b.Period {
	case models.BudgetPeriodAnnual:
		end = dates.EndOfYear(start.AddDate(1, 0, 0))
	default:
		end = dates.EndOfMonth(dates.AddMonths(start, 1))
	}
	return dates.Range{Start: start, End: end}
}

// NextPeriodBudget builds the unsaved budget for the period after b, with
// rollover added to the amount.
func (m *RolloverManager) NextPeriodBudget(b models.Budget, rollover money.Cents) models.Budget {
	window := NextWindow(b)
	return models.Budget{
		UserID:       b.UserID,
		CategoryID:   b.CategoryID,
		Period:       b.Period,
		Amount:       b.Amount + rollover,
		RolloverRule: b.RolloverRule,
		StartDate:    window.Start,
		EndDate:      window.End,
		AlertAt80:    b.AlertAt80,
		AlertAt100:   b.AlertAt100,
		IsActive:     true,
	}
}

// HasPeriodEnded reports whether the current time is past b's end date.
func (m *RolloverManager) HasPeriodEnded(b models.Budget) bool {
	return m.now().After(b.EndDate)
}
