package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"spendwise/internal/uuid"

	"gorm.io/gorm"
)

// AuditChange is one field's before/after pair. A nil side means the field
// did not exist on that side of the mutation.
type AuditChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// AuditChanges is stored as a JSON document.
type AuditChanges []AuditChange

// Value implements driver.Valuer.
func (c AuditChanges) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (c *AuditChanges) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*c = AuditChanges{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("audit changes: unsupported column type")
	}
	return json.Unmarshal(data, c)
}

// GormDataType tells AutoMigrate how to declare the column.
func (AuditChanges) GormDataType() string { return "text" }

// AuditLog records a create, update or delete of an audited entity.
type AuditLog struct {
	ID              string       `gorm:"type:uuid;primaryKey" json:"id"`
	EntityType      string       `gorm:"not null;index:idx_audit_entity" json:"entity_type"`
	EntityID        string       `gorm:"not null;index:idx_audit_entity" json:"entity_id"`
	Action          AuditAction  `gorm:"not null" json:"action"`
	PerformedBy     string       `gorm:"not null;index" json:"performed_by"`
	PerformedByName string       `gorm:"not null" json:"performed_by_name"`
	PerformedByRole Role         `gorm:"not null" json:"performed_by_role"`
	Changes         AuditChanges `gorm:"not null" json:"changes"`
	Timestamp       time.Time    `gorm:"not null;index" json:"timestamp"`
}

// BeforeCreate assigns the id and timestamp when unset.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return nil
}
