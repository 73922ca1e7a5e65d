package model

import (
	"gorm.io/gorm"
)

// NoticeType tags a notice with the lifecycle event that produced it.
type NoticeType string

const (
	NoticeRoleChangePending      NoticeType = "role_change_pending"
	NoticeRoleChangeSent         NoticeType = "role_change_request_sent"
	NoticeRoleChangeApproved     NoticeType = "role_change_approved"
	NoticeRoleChangeRejected     NoticeType = "role_change_rejected"
	NoticeEmployeeActionPending  NoticeType = "employee_action_pending"
	NoticeEmployeeActionSent     NoticeType = "employee_action_request_sent"
	NoticeEmployeeActionApproved NoticeType = "employee_action_approved"
	NoticeEmployeeActionRejected NoticeType = "employee_action_rejected"
	NoticeWithdrawalPending      NoticeType = "withdrawal_pending"
	NoticeWithdrawalSent         NoticeType = "withdrawal_request_sent"
	NoticeWithdrawalApproved     NoticeType = "withdrawal_approved"
	NoticeWithdrawalRejected     NoticeType = "withdrawal_rejected"
)

// Notice is a per-staff in-app notification. LinkRef carries the Ref of the
// approval request it belongs to, so resolution can find and replace the
// pending notices of that request.
type Notice struct {
	gorm.Model
	RecipientID uint       `gorm:"index;not null"`
	OfficeID    uint       `gorm:"index;not null"`
	Type        NoticeType `gorm:"type:varchar(50);not null"`
	Title       string     `gorm:"type:varchar(255);not null"`
	Content     string     `gorm:"type:text"`
	LinkRef     string     `gorm:"type:varchar(36);index"`
	IsRead      bool       `gorm:"not null;default:false"`

	Recipient Staff  `gorm:"foreignKey:RecipientID"`
	Office    Office `gorm:"foreignKey:OfficeID"`
}
