package repository

import (
	"gorm.io/gorm"

	"spendwise/internal/models"
)

// Store bundles the repositories for every persisted entity.
type Store struct {
	Users      Repository[models.User]
	Categories Repository[models.Category]
	Expenses   Repository[models.Expense]
	Budgets    Repository[models.Budget]
	AuditLogs  Repository[models.AuditLog]
}

// NewStore builds GORM-backed repositories on db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		Users:      New[models.User](db),
		Categories: New[models.Category](db),
		Expenses:   New[models.Expense](db),
		Budgets:    New[models.Budget](db),
		AuditLogs:  New[models.AuditLog](db),
	}
}
