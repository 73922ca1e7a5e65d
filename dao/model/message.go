package model

import (
	"gorm.io/gorm"
)

// Message is a plain office-scoped staff-to-staff message. No workflow
// attached; kept separate from Notice, which is system generated.
type Message struct {
	gorm.Model
	SenderID    uint   `gorm:"index;not null"`
	RecipientID uint   `gorm:"index;not null"`
	OfficeID    uint   `gorm:"index;not null"`
	Subject     string `gorm:"type:varchar(255);not null"`
	Body        string `gorm:"type:text"`
	IsRead      bool   `gorm:"not null;default:false"`

	Sender    Staff `gorm:"foreignKey:SenderID"`
	Recipient Staff `gorm:"foreignKey:RecipientID"`
}
