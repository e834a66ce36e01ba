// Package budget computes budget consumption and period rollover. Nothing in
// this package touches storage; callers supply budgets, expenses and
// categories and get derived values back.
package budget

import (
	"spendwise/internal/money"
	"spendwise/internal/models"
)

// MaxDisplayPercentage caps the reported percentage for wildly overspent budgets.
const MaxDisplayPercentage = 999.0

// Status is a budget's consumption over its window. It is derived on demand
// and never stored.
type Status struct {
	Budget         models.Budget     `json:"budget"`
	Category       models.Category   `json:"category"`
	Spent          money.Cents       `json:"spent"`
	Remaining      money.Cents       `json:"remaining"`
	PercentageUsed float64           `json:"percentage_used"`
	AlertLevel     models.AlertLevel `json:"alert_level"`
}

// Summary counts statuses by alert level.
type Summary struct {
	OnTrack    int `json:"on_track"`
	Warning    int `json:"warning"`
	OverBudget int `json:"over_budget"`
}

// Total is the number of statuses summarised.
func (s Summary) Total() int { return s.OnTrack + s.Warning + s.OverBudget }

// Calculator derives budget statuses from expenses.
type Calculator struct{}

// NewCalculator creates a Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Spent sums the expenses that count against b: same category, same owner,
// dated inside the budget window (both ends inclusive).
func (c *Calculator) Spent(b models.Budget, expenses []models.Expense) money.Cents {
	window := b.Window()
	var spent money.Cents
	for _, e := range expenses {
		if e.CategoryID != b.CategoryID || e.UserID != b.UserID {
			continue
		}
		if !window.Contains(e.Date) {
			continue
		}
		spent += e.Amount
	}
	return spent
}

// Status computes b's consumption. A nil category is reported with the
// Unknown placeholder.
func (c *Calculator) Status(b models.Budget, expenses []models.Expense, category *models.Category) Status {
	spent := c.Spent(b, expenses)

	cat := models.UnknownCategory(b.CategoryID)
	if category != nil {
		cat = *category
	}

	pct := money.Percent(spent, b.Amount)
	if pct > MaxDisplayPercentage {
		pct = MaxDisplayPercentage
	}

	return Status{
		Budget:         b,
		Category:       cat,
		Spent:          spent,
		Remaining:      b.Amount - spent,
		PercentageUsed: pct,
		AlertLevel:     AlertFor(b, spent),
	}
}

// Statuses computes a status per budget, resolving each budget's category
// independently from categories.
func (c *Calculator) Statuses(budgets []models.Budget, expenses []models.Expense, categories []models.Category) []Status {
	byID := make(map[string]*models.Category, len(categories))
	for i := range categories {
		byID[categories[i].ID] = &categories[i]
	}

	statuses := make([]Status, 0, len(budgets))
	for _, b := range budgets {
		statuses = append(statuses, c.Status(b, expenses, byID[b.CategoryID]))
	}
	return statuses
}

// AlertFor decides the alert level on the exact, uncapped ratio of spent to
// the budget amount. Budgets with a non-positive amount never alert.
func AlertFor(b models.Budget, spent money.Cents) models.AlertLevel {
	if b.Amount <= 0 {
		return models.AlertNone
	}
	// spent/amount >= 1.0 and spent/amount >= 0.8, in integers.
	if b.AlertAt100 && spent >= b.Amount {
		return models.AlertCritical
	}
	if b.AlertAt80 && spent*5 >= b.Amount*4 {
		return models.AlertWarning
	}
	return models.AlertNone
}

// Summarize counts statuses by alert level.
func Summarize(statuses []Status) Summary {
	var s Summary
	for _, st := range statuses {
		switch st.AlertLevel {
		case models.AlertCritical:
			s.OverBudget++
		case models.AlertWarning:
			s.Warning++
		default:
			s.OnTrack++
		}
	}
	return s
}
