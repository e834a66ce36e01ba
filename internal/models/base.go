package models

import (
	"time"

	"spendwise/internal/uuid"

	"gorm.io/gorm"
)

// Base contains the columns shared by every table
type Base struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

// All lists every model for auto-migration (SQLite and tests).
func All() []any {
	return []any{
		&User{},
		&Category{},
		&Expense{},
		&Budget{},
		&AuditLog{},
	}
}
