package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RequestKind discriminates the payload shape and all downstream behavior
// of an approval request.
type RequestKind string

const (
	KindRoleChange     RequestKind = "RoleChange"
	KindEmployeeAction RequestKind = "EmployeeAction"
	KindWithdrawal     RequestKind = "Withdrawal"
)

// RequestStatus is the lifecycle state of an approval request.
// Transitions happen exactly once: Pending -> Approved or Pending -> Rejected.
type RequestStatus string

const (
	StatusPending  RequestStatus = "Pending"
	StatusApproved RequestStatus = "Approved"
	StatusRejected RequestStatus = "Rejected"
)

// WithdrawalScope selects what a Withdrawal request removes.
type WithdrawalScope string

const (
	WithdrawalScopeStaff  WithdrawalScope = "staff"
	WithdrawalScopeOffice WithdrawalScope = "office"
)

// ActionType is the operation an EmployeeAction request asks for.
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
)

// ExecutionResult records the technical outcome of the post-approval side
// effect, independent of the authorization outcome. A failed execution does
// not revert the Approved status.
type ExecutionResult struct {
	Success bool           `json:"success"`
	Action  string         `json:"action,omitempty"`
	Detail  map[string]any `json:"detail,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// RoleChangePayload is the payload of a KindRoleChange request.
type RoleChangePayload struct {
	FromRole      Role    `json:"fromRole"`
	RequestedRole Role    `json:"requestedRole"`
	Notes         *string `json:"notes,omitempty"`
}

// EmployeeActionPayload is the payload of a KindEmployeeAction request.
// Data is kept raw: historical clients sent it in several shapes, and the
// executor normalizes it in one place right before use.
type EmployeeActionPayload struct {
	TargetKind string         `json:"targetKind"`
	ActionType ActionType     `json:"actionType"`
	TargetID   uint           `json:"targetID,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// WithdrawalPayload is the payload of a KindWithdrawal request.
type WithdrawalPayload struct {
	Scope            WithdrawalScope `json:"scope"`
	TargetStaffID    uint            `json:"targetStaffID,omitempty"`
	Reason           string          `json:"reason"`
	AffectedStaffIDs []uint          `json:"affectedStaffIDs,omitempty"`
}

// TargetEntityKind values for EmployeeActionPayload.TargetKind.
const (
	TargetWelfareRecipient = "welfare_recipient"
)

// ApprovalRequest is the unified approval request entity. One table holds
// the three request kinds; Payload carries the kind-specific data as JSON.
type ApprovalRequest struct {
	gorm.Model
	Ref    string        `gorm:"type:varchar(36);uniqueIndex;not null;comment:stable correlation token for notices and audit"`
	Kind   RequestKind   `gorm:"type:varchar(32);not null;index"`
	Status RequestStatus `gorm:"type:varchar(32);not null;default:Pending;index"`

	RequesterID uint `gorm:"index;not null"`
	OfficeID    uint `gorm:"index;not null"`

	Payload datatypes.JSON

	ReviewerID    *uint
	ReviewedAt    *time.Time
	ReviewerNotes string `gorm:"type:varchar(512)"`

	ExecutionResult *datatypes.JSONType[ExecutionResult]

	Requester Staff  `gorm:"foreignKey:RequesterID"`
	Reviewer  *Staff `gorm:"foreignKey:ReviewerID"`
	Office    Office `gorm:"foreignKey:OfficeID"`
}

// IsPending reports whether the request is still waiting for review.
func (r *ApprovalRequest) IsPending() bool { return r.Status == StatusPending }
