package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WelfareRecipient is the protected domain record that EmployeeAction
// requests create, update and delete. Employees may only touch it through
// an approved request; managers and owners mutate it directly.
type WelfareRecipient struct {
	gorm.Model
	FirstName     string         `gorm:"type:varchar(255);not null"`
	LastName      string         `gorm:"type:varchar(255);not null"`
	FirstNameKana string         `gorm:"type:varchar(255)"`
	LastNameKana  string         `gorm:"type:varchar(255)"`
	BirthDay      datatypes.Date `gorm:"not null"`
	Gender        GenderType     `gorm:"type:varchar(16);not null"`

	Detail            *RecipientDetail
	DisabilityStatus  *DisabilityStatus
	OfficeAssociation *OfficeWelfareRecipient
}

// RecipientDetail holds address and contact data for a recipient.
type RecipientDetail struct {
	gorm.Model
	WelfareRecipientID   uint    `gorm:"index;not null"`
	Address              string  `gorm:"type:varchar(512)"`
	FormOfResidence      *string `gorm:"type:varchar(64)"`
	FormOfResidenceOther *string `gorm:"type:varchar(255)"`
	Transportation       *string `gorm:"type:varchar(64)"`
	TransportationOther  *string `gorm:"type:varchar(255)"`
	Tel                  string  `gorm:"type:varchar(32)"`

	EmergencyContacts []EmergencyContact `gorm:"foreignKey:RecipientDetailID"`
}

// EmergencyContact is one emergency contact of a recipient, ordered by
// Priority.
type EmergencyContact struct {
	gorm.Model
	RecipientDetailID uint    `gorm:"index;not null"`
	FirstName         string  `gorm:"type:varchar(255);not null"`
	LastName          string  `gorm:"type:varchar(255);not null"`
	FirstNameKana     string  `gorm:"type:varchar(255)"`
	LastNameKana      string  `gorm:"type:varchar(255)"`
	Relationship      string  `gorm:"type:varchar(64)"`
	Tel               string  `gorm:"type:varchar(32);not null"`
	Address           *string `gorm:"type:varchar(512)"`
	Notes             *string `gorm:"type:text"`
	Priority          int     `gorm:"not null;default:1"`
}

// DisabilityStatus summarizes a recipient's condition.
type DisabilityStatus struct {
	gorm.Model
	WelfareRecipientID  uint    `gorm:"index;not null"`
	ConditionName       string  `gorm:"type:varchar(255)"`
	LivelihoodProtected bool    `gorm:"not null;default:false"`
	SpecialRemarks      *string `gorm:"type:text"`

	Details []DisabilityDetail `gorm:"foreignKey:DisabilityStatusID"`
}

// DisabilityDetail is one certified disability entry under a status.
type DisabilityDetail struct {
	gorm.Model
	DisabilityStatusID uint    `gorm:"index;not null"`
	Category           string  `gorm:"type:varchar(64);not null"`
	GradeOrLevel       *string `gorm:"type:varchar(32)"`
	PhysicalType       *string `gorm:"type:varchar(64)"`
	PhysicalTypeOther  *string `gorm:"type:varchar(255)"`
	ApplicationStatus  *string `gorm:"type:varchar(64)"`
}

// OfficeWelfareRecipient links a recipient to the office serving them.
type OfficeWelfareRecipient struct {
	gorm.Model
	OfficeID           uint `gorm:"index;not null"`
	WelfareRecipientID uint `gorm:"index;not null"`
}
