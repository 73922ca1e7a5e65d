package model

import (
	"gorm.io/gorm"
)

// Staff is the basic account entity of the system
type Staff struct {
	gorm.Model
	Email    string  `gorm:"uniqueIndex;type:varchar(255);not null"`
	Name     string  `gorm:"type:varchar(255);not null"`
	Password string  `gorm:"type:varchar(128);not null;comment:bcrypt hash"`
	Role     Role    `gorm:"not null"`
	Status   Status  `gorm:"not null;default:1"`
	Phone    *string `gorm:"type:varchar(32)"`

	OfficeStaffs []OfficeStaff
}

// OfficeStaff links a staff member to an office.
type OfficeStaff struct {
	gorm.Model
	StaffID   uint `gorm:"index;not null"`
	OfficeID  uint `gorm:"index;not null"`
	IsPrimary bool `gorm:"not null;default:false"`

	Staff  Staff  `gorm:"foreignKey:StaffID"`
	Office Office `gorm:"foreignKey:OfficeID"`
}
