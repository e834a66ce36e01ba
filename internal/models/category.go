package models

// Category groups expenses and budgets. Categories are shared by all users.
type Category struct {
	Base
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	IsDefault   bool   `gorm:"not null" json:"is_default"`
	IsActive    bool   `gorm:"not null;index" json:"is_active"`
	CreatedBy   string `gorm:"type:uuid" json:"created_by"`
}

// UnknownCategory is shown in place of a category that no longer resolves.
func UnknownCategory(id string) Category {
	return Category{
		Base:  Base{ID: id},
		Name:  "Unknown",
		Color: "#9ca3af",
		Icon:  "package",
	}
}
