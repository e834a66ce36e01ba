// Package analytics aggregates expenses for reports and the dashboard.
// Callers pass already permission-filtered expenses.
package analytics

import (
	"cmp"
	"slices"
	"time"

	"spendwise/internal/budget"
	"spendwise/internal/dates"
	"spendwise/internal/money"
	"spendwise/internal/models"
)

// NotSpecified buckets expenses without a payment method.
const NotSpecified = "not_specified"

// RecentLimit is how many expenses the dashboard lists.
const RecentLimit = 5

// CategorySpending is the total spent in one category.
type CategorySpending struct {
	CategoryID   string      `json:"category_id"`
	CategoryName string      `json:"category_name"`
	Color        string      `json:"color"`
	Icon         string      `json:"icon"`
	Amount       money.Cents `json:"amount"`
	Count        int         `json:"count"`
	Percentage   float64     `json:"percentage"`
}

// MonthlySpending is the total spent in one calendar month.
type MonthlySpending struct {
	Month  string      `json:"month"`
	Amount money.Cents `json:"amount"`
	Count  int         `json:"count"`
}

// PaymentMethodSpending is the total spent with one payment method.
type PaymentMethodSpending struct {
	Method     string      `json:"method"`
	Amount     money.Cents `json:"amount"`
	Count      int         `json:"count"`
	Percentage float64     `json:"percentage"`
}

// BudgetComparison sets a budget against what was actually spent.
type BudgetComparison struct {
	BudgetID       string            `json:"budget_id"`
	CategoryID     string            `json:"category_id"`
	CategoryName   string            `json:"category_name"`
	Budgeted       money.Cents       `json:"budgeted"`
	Actual         money.Cents       `json:"actual"`
	Variance       money.Cents       `json:"variance"`
	PercentageUsed float64           `json:"percentage_used"`
	AlertLevel     models.AlertLevel `json:"alert_level"`
}

// DashboardStats is the landing page summary.
type DashboardStats struct {
	TotalSpent     money.Cents       `json:"total_spent"`
	MonthlySpent   money.Cents       `json:"monthly_spent"`
	ExpenseCount   int               `json:"expense_count"`
	TopCategory    *CategorySpending `json:"top_category,omitempty"`
	BudgetStatus   budget.Summary    `json:"budget_status"`
	RecentExpenses []models.Expense  `json:"recent_expenses"`
}

// Total sums expense amounts.
func Total(expenses []models.Expense) money.Cents {
	var total money.Cents
	for _, e := range expenses {
		total += e.Amount
	}
	return total
}

// CategoryBreakdown groups expenses by category, largest first. Categories
// missing from the lookup are reported as Unknown.
func CategoryBreakdown(expenses []models.Expense, categories []models.Category) []CategorySpending {
	byID := make(map[string]models.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	totals := make(map[string]*CategorySpending)
	var grand money.Cents
	for _, e := range expenses {
		row, ok := totals[e.CategoryID]
		if !ok {
			cat, found := byID[e.CategoryID]
			if !found {
				cat = models.UnknownCategory(e.CategoryID)
			}
			row = &CategorySpending{CategoryID: e.CategoryID, CategoryName: cat.Name, Color: cat.Color, Icon: cat.Icon}
			totals[e.CategoryID] = row
		}
		row.Amount += e.Amount
		row.Count++
		grand += e.Amount
	}

	out := make([]CategorySpending, 0, len(totals))
	for _, row := range totals {
		row.Percentage = money.Percent(row.Amount, grand)
		out = append(out, *row)
	}
	slices.SortFunc(out, func(a, b CategorySpending) int {
		if c := cmp.Compare(b.Amount, a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.CategoryName, b.CategoryName)
	})
	return out
}

// MonthlyTrend groups expenses by calendar month, oldest first.
func MonthlyTrend(expenses []models.Expense) []MonthlySpending {
	totals := make(map[string]*MonthlySpending)
	for _, e := range expenses {
		key := dates.MonthKey(e.Date)
		row, ok := totals[key]
		if !ok {
			row = &MonthlySpending{Month: key}
			totals[key] = row
		}
		row.Amount += e.Amount
		row.Count++
	}

	out := make([]MonthlySpending, 0, len(totals))
	for _, row := range totals {
		out = append(out, *row)
	}
	slices.SortFunc(out, func(a, b MonthlySpending) int { return cmp.Compare(a.Month, b.Month) })
	return out
}

// ByPaymentMethod groups expenses by payment method, largest first.
func ByPaymentMethod(expenses []models.Expense) []PaymentMethodSpending {
	totals := make(map[string]*PaymentMethodSpending)
	var grand money.Cents
	for _, e := range expenses {
		method := NotSpecified
		if e.PaymentMethod != nil {
			method = string(*e.PaymentMethod)
		}
		row, ok := totals[method]
		if !ok {
			row = &PaymentMethodSpending{Method: method}
			totals[method] = row
		}
		row.Amount += e.Amount
		row.Count++
		grand += e.Amount
	}

	out := make([]PaymentMethodSpending, 0, len(totals))
	for _, row := range totals {
		row.Percentage = money.Percent(row.Amount, grand)
		out = append(out, *row)
	}
	slices.SortFunc(out, func(a, b PaymentMethodSpending) int {
		if c := cmp.Compare(b.Amount, a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Method, b.Method)
	})
	return out
}

// AverageDaily is the mean spend per calendar day of r, counting only
// expenses inside r. Integer division truncates toward zero.
func AverageDaily(expenses []models.Expense, r dates.Range) money.Cents {
	var total money.Cents
	for _, e := range expenses {
		if r.Contains(e.Date) {
			total += e.Amount
		}
	}
	return total / money.Cents(r.Days())
}

// BudgetVsActual flattens budget statuses for side-by-side comparison.
func BudgetVsActual(statuses []budget.Status) []BudgetComparison {
	out := make([]BudgetComparison, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, BudgetComparison{
			BudgetID:       st.Budget.ID,
			CategoryID:     st.Budget.CategoryID,
			CategoryName:   st.Category.Name,
			Budgeted:       st.Budget.Amount,
			Actual:         st.Spent,
			Variance:       st.Remaining,
			PercentageUsed: st.PercentageUsed,
			AlertLevel:     st.AlertLevel,
		})
	}
	return out
}

// Dashboard builds the summary for now's month.
func Dashboard(expenses []models.Expense, categories []models.Category, statuses []budget.Status, now time.Time) DashboardStats {
	month := dates.Range{Start: dates.StartOfMonth(now), End: dates.EndOfMonth(now)}

	var monthly money.Cents
	for _, e := range expenses {
		if month.Contains(e.Date) {
			monthly += e.Amount
		}
	}

	stats := DashboardStats{
		TotalSpent:     Total(expenses),
		MonthlySpent:   monthly,
		ExpenseCount:   len(expenses),
		BudgetStatus:   budget.Summarize(statuses),
		RecentExpenses: Recent(expenses, RecentLimit),
	}
	if breakdown := CategoryBreakdown(expenses, categories); len(breakdown) > 0 {
		top := breakdown[0]
		stats.TopCategory = &top
	}
	return stats
}

// Recent returns up to n expenses, newest date first.
func Recent(expenses []models.Expense, n int) []models.Expense {
	sorted := slices.Clone(expenses)
	slices.SortStableFunc(sorted, func(a, b models.Expense) int { return b.Date.Compare(a.Date) })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	if sorted == nil {
		sorted = []models.Expense{}
	}
	return sorted
}
