package approval

import (
	"github.com/samber/lo"

	"github.com/caredesk/caredesk/dao/model"
)

// Reviewer is the authorization view of the acting staff member: identity,
// platform role and the offices they belong to.
type Reviewer struct {
	ID        uint
	Role      model.Role
	OfficeIDs []uint
}

func (r Reviewer) InOffice(officeID uint) bool {
	return lo.Contains(r.OfficeIDs, officeID)
}

// CanReview decides whether the reviewer may approve or reject the request.
// The rules are per kind:
//
//   - RoleChange: owners of the office review any transition; managers only
//     review promotions out of the employee role.
//   - EmployeeAction: managers and owners of the office, never the requester.
//   - Withdrawal: platform admins only, regardless of office membership.
//
// Self-review is excluded for every kind.
func CanReview(reviewer Reviewer, req *model.ApprovalRequest) bool {
	if reviewer.ID == req.RequesterID {
		return false
	}
	switch req.Kind {
	case model.KindRoleChange:
		if !reviewer.InOffice(req.OfficeID) {
			return false
		}
		if reviewer.Role == model.RoleOwner {
			return true
		}
		if reviewer.Role == model.RoleManager {
			payload, err := DecodeRoleChange(req.Payload)
			if err != nil {
				return false
			}
			return payload.FromRole == model.RoleEmployee
		}
		return false
	case model.KindEmployeeAction:
		if !reviewer.InOffice(req.OfficeID) {
			return false
		}
		return reviewer.Role == model.RoleManager || reviewer.Role == model.RoleOwner
	case model.KindWithdrawal:
		return reviewer.Role == model.RoleAdmin
	default:
		return false
	}
}
