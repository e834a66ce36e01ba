package models

import (
	"time"

	"spendwise/internal/money"
)

// Expense is a single spend record in minor units.
type Expense struct {
	Base
	UserID        string         `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID    string         `gorm:"type:uuid;not null;index" json:"category_id"`
	Amount        money.Cents    `gorm:"type:bigint;not null" json:"amount"`
	Date          time.Time      `gorm:"not null;index" json:"date"`
	Description   string         `gorm:"not null" json:"description"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
	Notes         *string        `json:"notes,omitempty"`
	ReferenceID   *string        `json:"reference_id,omitempty"`
	CreatedBy     string         `gorm:"type:uuid;not null" json:"created_by"`
	UpdatedBy     *string        `gorm:"type:uuid" json:"updated_by,omitempty"`
	UpdatedAt     *time.Time     `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`
}

// OwnerID returns the user the expense belongs to.
func (e Expense) OwnerID() string { return e.UserID }
