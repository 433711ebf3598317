package models

import "time"

// AuditLog is the trail written on both success and failure paths of the
// engine. Failures while writing it never affect the primary outcome.
type AuditLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Action     string    `gorm:"type:varchar(100);index;not null" json:"action"`
	ResourceID string    `gorm:"type:varchar(100);index;not null;default:''" json:"resource_id"`
	Severity   string    `gorm:"type:varchar(10);index;not null" json:"severity"`
	RequestID  string    `gorm:"type:varchar(64);index;not null;default:''" json:"request_id"`
	DetailJSON JSON      `gorm:"type:json" json:"detail"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName sets the table name.
func (AuditLog) TableName() string {
	return "audit_logs"
}
