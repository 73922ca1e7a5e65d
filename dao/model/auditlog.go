package model

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions recorded by the approval workflow. Retention classes for the
// cleanup job are keyed on these values.
const (
	AuditWithdrawalRequested = "withdrawal.requested"
	AuditWithdrawalApproved  = "withdrawal.approved"
	AuditWithdrawalRejected  = "withdrawal.rejected"
	AuditRequestApproved     = "request.approved"
	AuditRequestRejected     = "request.rejected"
	AuditStaffRoleChanged    = "staff.role_changed"
	AuditStaffDeleted        = "staff.deleted"
	AuditStaffSoftDeleted    = "staff.soft_deleted"
	AuditOfficeDeleted       = "office.deleted"
)

// AuditLog is an append-only trail entry. Rows are never updated or deleted
// except by the retention cleanup job, so the model carries no gorm.Model.
type AuditLog struct {
	ID         uint   `gorm:"primarykey"`
	ActorID    *uint  `gorm:"index;comment:nil for system actions"`
	Action     string `gorm:"type:varchar(64);not null;index"`
	TargetType string `gorm:"type:varchar(64);not null"`
	TargetID   uint   `gorm:"index"`
	OfficeID   uint   `gorm:"index"`
	Details    datatypes.JSON
	CreatedAt  time.Time `gorm:"index"`
}
