package models

import "time"

// User represents the user model in the database
type User struct {
	Base
	Email               string     `gorm:"uniqueIndex;not null" json:"email"`
	Password            string     `gorm:"not null" json:"-"`
	Name                string     `gorm:"not null" json:"name"`
	Role                Role       `gorm:"not null;index" json:"role"`
	IsActive            bool       `gorm:"not null" json:"is_active"`
	RefreshTokenHash    string     `gorm:"size:64" json:"-"`
	FailedLoginAttempts int        `gorm:"not null" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
