package repository

import "gorm.io/gorm"

// Where filters with a raw condition.
func Where(query any, args ...any) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	}
}

// OrderBy sorts by the given clause, e.g. "date DESC".
func OrderBy(clause string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(clause)
	}
}

// Limit caps the number of rows returned.
func Limit(n int) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(n)
	}
}
