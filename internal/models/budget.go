package models

import (
	"time"

	"spendwise/internal/dates"
	"spendwise/internal/money"
)

// Budget caps spending in one category over a closed date window.
type Budget struct {
	Base
	UserID       string       `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID   string       `gorm:"type:uuid;not null;index" json:"category_id"`
	Period       BudgetPeriod `gorm:"not null" json:"period"`
	Amount       money.Cents  `gorm:"type:bigint;not null" json:"amount"`
	RolloverRule RolloverRule `gorm:"not null" json:"rollover_rule"`
	StartDate    time.Time    `gorm:"not null" json:"start_date"`
	EndDate      time.Time    `gorm:"not null" json:"end_date"`
	AlertAt80    bool         `gorm:"column:alert_at_80;not null" json:"alert_at_80"`
	AlertAt100   bool         `gorm:"column:alert_at_100;not null" json:"alert_at_100"`
	IsActive     bool         `gorm:"not null;index" json:"is_active"`
}

// OwnerID returns the user the budget belongs to.
func (b Budget) OwnerID() string { return b.UserID }

// Window returns the budget's inclusive date range.
func (b Budget) Window() dates.Range {
	return dates.Range{Start: b.StartDate, End: b.EndDate}
}
