package model

import (
	"gorm.io/gorm"
)

// Office is a care-services office that staff members belong to.
// CreatedByID and LastModifiedByID always point at a live staff record:
// when the office is withdrawn they are reassigned to the executing
// reviewer before its staff are deleted.
type Office struct {
	gorm.Model
	Name             string     `gorm:"type:varchar(255);not null"`
	Type             OfficeType `gorm:"type:varchar(64);not null"`
	IsGroup          bool       `gorm:"not null;default:false"`
	CreatedByID      uint       `gorm:"not null"`
	LastModifiedByID uint       `gorm:"not null"`

	OfficeStaffs []OfficeStaff
}
