package approval

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/caredesk/caredesk/dao/model"
	"github.com/caredesk/caredesk/pkg/monitor"
)

// noticeRetentionCap bounds how many notices an office accumulates.
// Overflow is purged oldest-first on every fan-out.
const noticeRetentionCap = 50

// Mailer sends a best-effort email copy of a notice. Implementations must
// not block on delivery; failures are logged and ignored.
type Mailer interface {
	Send(to, subject, body string) error
}

// Fanout distributes request lifecycle notices to the requester and the
// eligible reviewer set. All writes ride on the caller's transaction;
// email is the only out-of-tx side effect and never fails the caller.
type Fanout struct {
	mailer Mailer // nil disables email
}

func NewFanout(mailer Mailer) *Fanout {
	return &Fanout{mailer: mailer}
}

// NotifyCreated fans out the "pending review" notices to eligible reviewers
// and a "request sent" receipt to the requester.
func (f *Fanout) NotifyCreated(ctx context.Context, tx *gorm.DB, req *model.ApprovalRequest) error {
	reviewers, err := f.reviewerSet(ctx, tx, req)
	if err != nil {
		return err
	}

	pendingType, sentType, _, _ := noticeTypes(req.Kind)
	title := fmt.Sprintf("%s request awaiting review", kindLabel(req.Kind))
	content := fmt.Sprintf("%s submitted a %s request.", req.Requester.Name, kindLabel(req.Kind))

	for _, reviewer := range reviewers {
		if err := f.createNotice(ctx, tx, model.Notice{
			RecipientID: reviewer.ID,
			OfficeID:    req.OfficeID,
			Type:        pendingType,
			Title:       title,
			Content:     content,
			LinkRef:     req.Ref,
		}); err != nil {
			return err
		}
	}

	return f.createNotice(ctx, tx, model.Notice{
		RecipientID: req.RequesterID,
		OfficeID:    req.OfficeID,
		Type:        sentType,
		Title:       fmt.Sprintf("%s request sent", kindLabel(req.Kind)),
		Content:     fmt.Sprintf("Your %s request was submitted and awaits review.", kindLabel(req.Kind)),
		LinkRef:     req.Ref,
	})
}

// NotifyResolved replaces the pending notices of the request with fresh
// approved/rejected ones for the requester and the reviewer set. Replacement
// keeps title and body consistent with the new type, which an in-place type
// edit would not.
func (f *Fanout) NotifyResolved(ctx context.Context, tx *gorm.DB, req *model.ApprovalRequest, outcome model.RequestStatus) error {
	pendingType, sentType, approvedType, rejectedType := noticeTypes(req.Kind)

	if err := tx.WithContext(ctx).
		Where("link_ref = ? AND type IN ?", req.Ref, []model.NoticeType{pendingType, sentType}).
		Unscoped().Delete(&model.Notice{}).Error; err != nil {
		return err
	}

	resolvedType := approvedType
	verb := "approved"
	if outcome == model.StatusRejected {
		resolvedType = rejectedType
		verb = "rejected"
	}
	title := fmt.Sprintf("%s request %s", kindLabel(req.Kind), verb)

	if err := f.createNotice(ctx, tx, model.Notice{
		RecipientID: req.RequesterID,
		OfficeID:    req.OfficeID,
		Type:        resolvedType,
		Title:       title,
		Content:     fmt.Sprintf("Your %s request was %s.", kindLabel(req.Kind), verb),
		LinkRef:     req.Ref,
	}); err != nil {
		return err
	}

	reviewers, err := f.reviewerSet(ctx, tx, req)
	if err != nil {
		return err
	}
	content := fmt.Sprintf("The %s request from %s was %s.", kindLabel(req.Kind), req.Requester.Name, verb)
	for _, reviewer := range reviewers {
		if reviewer.ID == req.RequesterID {
			continue
		}
		if err := f.createNotice(ctx, tx, model.Notice{
			RecipientID: reviewer.ID,
			OfficeID:    req.OfficeID,
			Type:        resolvedType,
			Title:       title,
			Content:     content,
			LinkRef:     req.Ref,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fanout) createNotice(ctx context.Context, tx *gorm.DB, notice model.Notice) error {
	if err := tx.WithContext(ctx).Create(&notice).Error; err != nil {
		return err
	}
	if err := f.enforceCap(ctx, tx, notice.OfficeID); err != nil {
		return err
	}
	monitor.NoticesFanned.Inc()
	f.mail(ctx, tx, notice)
	return nil
}

// enforceCap purges the oldest notices of an office beyond the retention cap.
func (f *Fanout) enforceCap(ctx context.Context, tx *gorm.DB, officeID uint) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&model.Notice{}).
		Where("office_id = ?", officeID).Count(&count).Error; err != nil {
		return err
	}
	overflow := count - noticeRetentionCap
	if overflow <= 0 {
		return nil
	}
	var stale []uint
	if err := tx.WithContext(ctx).Model(&model.Notice{}).
		Where("office_id = ?", officeID).
		Order("created_at ASC, id ASC").
		Limit(int(overflow)).
		Pluck("id", &stale).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Unscoped().Delete(&model.Notice{}, stale).Error
}

func (f *Fanout) mail(ctx context.Context, tx *gorm.DB, notice model.Notice) {
	if f.mailer == nil {
		return
	}
	var recipient model.Staff
	if err := tx.WithContext(ctx).Select("email").First(&recipient, notice.RecipientID).Error; err != nil {
		klog.Errorf("fanout: load recipient %d for mail failed: %v", notice.RecipientID, err)
		return
	}
	if err := f.mailer.Send(recipient.Email, notice.Title, notice.Content); err != nil {
		klog.Errorf("fanout: mail notice to %s failed: %v", recipient.Email, err)
	}
}

// reviewerSet resolves the staff who should hear about the request. The rule
// is static per kind and, for role changes, depends on the payload:
// employee promotions reach managers and owners, manager promotions reach
// owners only, and withdrawals reach platform admins everywhere.
func (f *Fanout) reviewerSet(ctx context.Context, tx *gorm.DB, req *model.ApprovalRequest) ([]model.Staff, error) {
	var staff []model.Staff

	if req.Kind == model.KindWithdrawal {
		err := tx.WithContext(ctx).
			Where("role = ?", model.RoleAdmin).
			Find(&staff).Error
		return staff, err
	}

	roles := []model.Role{model.RoleManager, model.RoleOwner}
	if req.Kind == model.KindRoleChange {
		payload, err := DecodeRoleChange(req.Payload)
		if err != nil {
			return nil, err
		}
		if payload.FromRole != model.RoleEmployee {
			roles = []model.Role{model.RoleOwner}
		}
	}

	err := tx.WithContext(ctx).
		Joins("JOIN office_staffs ON office_staffs.staff_id = staffs.id AND office_staffs.deleted_at IS NULL").
		Where("office_staffs.office_id = ?", req.OfficeID).
		Where("staffs.role IN ?", roles).
		Where("staffs.id <> ?", req.RequesterID).
		Find(&staff).Error
	return staff, err
}

func noticeTypes(kind model.RequestKind) (pending, sent, approved, rejected model.NoticeType) {
	switch kind {
	case model.KindRoleChange:
		return model.NoticeRoleChangePending, model.NoticeRoleChangeSent,
			model.NoticeRoleChangeApproved, model.NoticeRoleChangeRejected
	case model.KindEmployeeAction:
		return model.NoticeEmployeeActionPending, model.NoticeEmployeeActionSent,
			model.NoticeEmployeeActionApproved, model.NoticeEmployeeActionRejected
	default:
		return model.NoticeWithdrawalPending, model.NoticeWithdrawalSent,
			model.NoticeWithdrawalApproved, model.NoticeWithdrawalRejected
	}
}

func kindLabel(kind model.RequestKind) string {
	switch kind {
	case model.KindRoleChange:
		return "role change"
	case model.KindEmployeeAction:
		return "employee action"
	case model.KindWithdrawal:
		return "withdrawal"
	default:
		return string(kind)
	}
}
