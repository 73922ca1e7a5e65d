package model

import (
	"time"

	"gorm.io/gorm"
)

// Archive reasons
const (
	ArchiveReasonStaffWithdrawal  = "staff_withdrawal"
	ArchiveReasonOfficeWithdrawal = "office_withdrawal"
)

// ArchivedStaff is a snapshot of a withdrawn staff record, kept for the
// legal retention period after the live row is gone.
type ArchivedStaff struct {
	gorm.Model
	StaffID        uint   `gorm:"index;not null"`
	Email          string `gorm:"type:varchar(255);not null"`
	Name           string `gorm:"type:varchar(255);not null"`
	Role           Role   `gorm:"not null"`
	OfficeID       uint   `gorm:"index"`
	Reason         string `gorm:"type:varchar(64);not null"`
	DeletedByID    uint   `gorm:"not null"`
	RetentionUntil time.Time
}
