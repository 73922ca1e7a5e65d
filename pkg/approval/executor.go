package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/caredesk/caredesk/dao/model"
	"github.com/caredesk/caredesk/pkg/audit"
)

const staffArchiveRetention = 5 * 365 * 24 * time.Hour

// Executor performs the side effect an approved request asks for. It runs
// inside the approval transaction; a returned error makes the service roll
// back the executor's writes only and record the failure on the request.
type Executor struct {
	store   *Store
	auditor *audit.Recorder
}

func NewExecutor(store *Store, auditor *audit.Recorder) *Executor {
	return &Executor{store: store, auditor: auditor}
}

// Execute dispatches on the request kind. The returned ExecutionResult is
// persisted on the request verbatim; err is non-nil only when the writes
// must be rolled back.
func (e *Executor) Execute(ctx context.Context, tx *gorm.DB, req *model.ApprovalRequest, reviewerID uint) (model.ExecutionResult, error) {
	switch req.Kind {
	case model.KindRoleChange:
		return e.executeRoleChange(ctx, tx, req, reviewerID)
	case model.KindEmployeeAction:
		return e.executeEmployeeAction(ctx, tx, req, reviewerID)
	case model.KindWithdrawal:
		return e.executeWithdrawal(ctx, tx, req, reviewerID)
	default:
		err := fmt.Errorf("unsupported request kind %q", req.Kind)
		return failedResult(err), err
	}
}

func (e *Executor) executeRoleChange(ctx context.Context, tx *gorm.DB, req *model.ApprovalRequest, reviewerID uint) (model.ExecutionResult, error) {
	payload, err := DecodeRoleChange(req.Payload)
	if err != nil {
		return failedResult(err), err
	}

	staff, err := e.store.GetStaff(ctx, tx, req.RequesterID)
	if err != nil {
		return failedResult(err), err
	}
	if staff.Role != payload.FromRole {
		err := fmt.Errorf("staff %d role changed since request: have %s, expected %s",
			staff.ID, staff.Role, payload.FromRole)
		return failedResult(err), err
	}

	if err := tx.WithContext(ctx).Model(&model.Staff{}).
		Where("id = ?", staff.ID).
		Update("role", payload.RequestedRole).Error; err != nil {
		return failedResult(err), err
	}

	e.auditor.Record(ctx, tx, audit.Entry{
		ActorID:    ptr.To(reviewerID),
		Action:     model.AuditStaffRoleChanged,
		TargetType: "staff",
		TargetID:   staff.ID,
		OfficeID:   req.OfficeID,
		Details: map[string]any{
			"from_role": payload.FromRole.String(),
			"to_role":   payload.RequestedRole.String(),
			"request":   req.Ref,
		},
	})

	return model.ExecutionResult{
		Success: true,
		Action:  "role_change",
		Detail: map[string]any{
			"staff_id": staff.ID,
			"role":     payload.RequestedRole.String(),
		},
	}, nil
}

func (e *Executor) executeEmployeeAction(ctx context.Context, tx *gorm.DB, req *model.ApprovalRequest, reviewerID uint) (model.ExecutionResult, error) {
	payload, err := DecodeEmployeeAction(req.Payload)
	if err != nil {
		return failedResult(err), err
	}
	if payload.TargetKind != model.TargetWelfareRecipient {
		err := fmt.Errorf("unsupported target kind %q", payload.TargetKind)
		return failedResult(err), err
	}

	switch payload.ActionType {
	case model.ActionCreate:
		return e.createRecipient(ctx, tx, req, payload)
	case model.ActionUpdate:
		return e.updateRecipient(ctx, tx, payload)
	case model.ActionDelete:
		return e.deleteRecipient(ctx, tx, payload)
	default:
		err := fmt.Errorf("unsupported action type %q", payload.ActionType)
		return failedResult(err), err
	}
}

func (e *Executor) createRecipient(ctx context.Context, tx *gorm.DB, req *model.ApprovalRequest, payload *model.EmployeeActionPayload) (model.ExecutionResult, error) {
	form := normalizeRecipientForm(payload.Data)
	if form.FirstName == nil || form.LastName == nil || form.BirthDay == nil || form.Gender == nil {
		err := fmt.Errorf("%w: recipient create requires firstName, lastName, birthDay and gender", ErrValidation)
		return failedResult(err), err
	}

	recipient := model.WelfareRecipient{
		FirstName:     *form.FirstName,
		LastName:      *form.LastName,
		FirstNameKana: deref(form.FirstNameKana),
		LastNameKana:  deref(form.LastNameKana),
		BirthDay:      datatypes.Date(*form.BirthDay),
		Gender:        model.GenderType(*form.Gender),
	}
	if err := tx.WithContext(ctx).Create(&recipient).Error; err != nil {
		return failedResult(err), err
	}

	detail := model.RecipientDetail{
		WelfareRecipientID:   recipient.ID,
		Address:              deref(form.Address),
		FormOfResidence:      form.FormOfResidence,
		FormOfResidenceOther: form.FormOfResidenceOther,
		Transportation:       form.Transportation,
		TransportationOther:  form.TransportationOther,
		Tel:                  deref(form.Tel),
	}
	if err := tx.WithContext(ctx).Create(&detail).Error; err != nil {
		return failedResult(err), err
	}

	for _, c := range form.EmergencyContacts {
		contact := model.EmergencyContact{
			RecipientDetailID: detail.ID,
			FirstName:         c.FirstName,
			LastName:          c.LastName,
			FirstNameKana:     c.FirstNameKana,
			LastNameKana:      c.LastNameKana,
			Relationship:      c.Relationship,
			Tel:               c.Tel,
			Address:           c.Address,
			Notes:             c.Notes,
			Priority:          c.Priority,
		}
		if err := tx.WithContext(ctx).Create(&contact).Error; err != nil {
			return failedResult(err), err
		}
	}

	status := model.DisabilityStatus{
		WelfareRecipientID:  recipient.ID,
		ConditionName:       deref(form.ConditionName),
		LivelihoodProtected: form.LivelihoodProtected != nil && *form.LivelihoodProtected,
		SpecialRemarks:      form.SpecialRemarks,
	}
	if err := tx.WithContext(ctx).Create(&status).Error; err != nil {
		return failedResult(err), err
	}
	for _, d := range form.DisabilityDetails {
		entry := model.DisabilityDetail{
			DisabilityStatusID: status.ID,
			Category:           d.Category,
			GradeOrLevel:       d.GradeOrLevel,
			PhysicalType:       d.PhysicalType,
			PhysicalTypeOther:  d.PhysicalTypeOther,
			ApplicationStatus:  d.ApplicationStatus,
		}
		if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
			return failedResult(err), err
		}
	}

	association := model.OfficeWelfareRecipient{
		OfficeID:           req.OfficeID,
		WelfareRecipientID: recipient.ID,
	}
	if err := tx.WithContext(ctx).Create(&association).Error; err != nil {
		return failedResult(err), err
	}

	return model.ExecutionResult{
		Success: true,
		Action:  string(model.ActionCreate),
		Detail:  map[string]any{"recipient_id": recipient.ID},
	}, nil
}

func (e *Executor) updateRecipient(ctx context.Context, tx *gorm.DB, payload *model.EmployeeActionPayload) (model.ExecutionResult, error) {
	if payload.TargetID == 0 {
		err := fmt.Errorf("%w: recipient update requires targetID", ErrValidation)
		return failedResult(err), err
	}
	var recipient model.WelfareRecipient
	if err := tx.WithContext(ctx).First(&recipient, payload.TargetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = fmt.Errorf("recipient %d not found", payload.TargetID)
		}
		return failedResult(err), err
	}

	form := normalizeRecipientForm(payload.Data)
	updates := map[string]any{}
	if form.FirstName != nil {
		updates["first_name"] = *form.FirstName
	}
	if form.LastName != nil {
		updates["last_name"] = *form.LastName
	}
	if form.FirstNameKana != nil {
		updates["first_name_kana"] = *form.FirstNameKana
	}
	if form.LastNameKana != nil {
		updates["last_name_kana"] = *form.LastNameKana
	}
	if form.BirthDay != nil {
		updates["birth_day"] = datatypes.Date(*form.BirthDay)
	}
	if form.Gender != nil {
		updates["gender"] = model.GenderType(*form.Gender)
	}
	if len(updates) > 0 {
		if err := tx.WithContext(ctx).Model(&recipient).Updates(updates).Error; err != nil {
			return failedResult(err), err
		}
	}

	return model.ExecutionResult{
		Success: true,
		Action:  string(model.ActionUpdate),
		Detail:  map[string]any{"recipient_id": recipient.ID},
	}, nil
}

// deleteRecipient removes the recipient and every owned child row.
func (e *Executor) deleteRecipient(ctx context.Context, tx *gorm.DB, payload *model.EmployeeActionPayload) (model.ExecutionResult, error) {
	id := deleteTargetID(payload)
	if id == 0 {
		err := fmt.Errorf("%w: recipient delete requires targetID or welfare_recipient_id", ErrValidation)
		return failedResult(err), err
	}
	var recipient model.WelfareRecipient
	if err := tx.WithContext(ctx).First(&recipient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = fmt.Errorf("recipient %d not found", id)
		}
		return failedResult(err), err
	}

	var details []model.RecipientDetail
	if err := tx.WithContext(ctx).Where("welfare_recipient_id = ?", id).Find(&details).Error; err != nil {
		return failedResult(err), err
	}
	for i := range details {
		if err := tx.WithContext(ctx).Where("recipient_detail_id = ?", details[i].ID).
			Delete(&model.EmergencyContact{}).Error; err != nil {
			return failedResult(err), err
		}
	}
	var statuses []model.DisabilityStatus
	if err := tx.WithContext(ctx).Where("welfare_recipient_id = ?", id).Find(&statuses).Error; err != nil {
		return failedResult(err), err
	}
	for i := range statuses {
		if err := tx.WithContext(ctx).Where("disability_status_id = ?", statuses[i].ID).
			Delete(&model.DisabilityDetail{}).Error; err != nil {
			return failedResult(err), err
		}
	}
	for _, child := range []any{
		&model.RecipientDetail{},
		&model.DisabilityStatus{},
		&model.OfficeWelfareRecipient{},
	} {
		if err := tx.WithContext(ctx).Where("welfare_recipient_id = ?", id).Delete(child).Error; err != nil {
			return failedResult(err), err
		}
	}
	if err := tx.WithContext(ctx).Delete(&recipient).Error; err != nil {
		return failedResult(err), err
	}

	return model.ExecutionResult{
		Success: true,
		Action:  string(model.ActionDelete),
		Detail:  map[string]any{"recipient_id": id},
	}, nil
}

func (e *Executor) executeWithdrawal(ctx context.Context, tx *gorm.DB, req *model.ApprovalRequest, reviewerID uint) (model.ExecutionResult, error) {
	payload, err := DecodeWithdrawal(req.Payload)
	if err != nil {
		return failedResult(err), err
	}
	switch payload.Scope {
	case model.WithdrawalScopeStaff:
		return e.withdrawStaff(ctx, tx, req, payload, reviewerID)
	case model.WithdrawalScopeOffice:
		return e.withdrawOffice(ctx, tx, req, payload, reviewerID)
	default:
		err := fmt.Errorf("unsupported withdrawal scope %q", payload.Scope)
		return failedResult(err), err
	}
}

// withdrawStaff archives the staff snapshot, then removes the live row and
// its office memberships for good. Archive and audit happen before the
// delete so a failure leaves the account untouched.
func (e *Executor) withdrawStaff(ctx context.Context, tx *gorm.DB, req *model.ApprovalRequest, payload *model.WithdrawalPayload, reviewerID uint) (model.ExecutionResult, error) {
	staff, err := e.store.GetStaff(ctx, tx, payload.TargetStaffID)
	if err != nil {
		return failedResult(err), err
	}

	archive := model.ArchivedStaff{
		StaffID:        staff.ID,
		Email:          staff.Email,
		Name:           staff.Name,
		Role:           staff.Role,
		OfficeID:       req.OfficeID,
		Reason:         model.ArchiveReasonStaffWithdrawal,
		DeletedByID:    reviewerID,
		RetentionUntil: time.Now().Add(staffArchiveRetention),
	}
	if err := tx.WithContext(ctx).Create(&archive).Error; err != nil {
		return failedResult(err), err
	}

	e.auditor.Record(ctx, tx, audit.Entry{
		ActorID:    ptr.To(reviewerID),
		Action:     model.AuditStaffDeleted,
		TargetType: "staff",
		TargetID:   staff.ID,
		OfficeID:   req.OfficeID,
		Details: map[string]any{
			"email":   staff.Email,
			"reason":  payload.Reason,
			"request": req.Ref,
		},
	})

	if err := tx.WithContext(ctx).Where("staff_id = ?", staff.ID).
		Unscoped().Delete(&model.OfficeStaff{}).Error; err != nil {
		return failedResult(err), err
	}
	if err := tx.WithContext(ctx).Unscoped().Delete(&model.Staff{}, staff.ID).Error; err != nil {
		return failedResult(err), err
	}

	klog.Infof("withdrew staff %d (archive %d)", staff.ID, archive.ID)
	return model.ExecutionResult{
		Success: true,
		Action:  "withdraw_staff",
		Detail:  map[string]any{"staff_id": staff.ID, "archive_id": archive.ID},
	}, nil
}

// withdrawOffice soft-deletes the office and every staff attached to it.
// The office's bookkeeping columns are reassigned to the executing reviewer
// so soft-deleted rows never reference removed accounts.
func (e *Executor) withdrawOffice(ctx context.Context, tx *gorm.DB, req *model.ApprovalRequest, payload *model.WithdrawalPayload, reviewerID uint) (model.ExecutionResult, error) {
	var office model.Office
	if err := tx.WithContext(ctx).First(&office, req.OfficeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = ErrNotFound
		}
		return failedResult(err), err
	}

	var memberships []model.OfficeStaff
	if err := tx.WithContext(ctx).Where("office_id = ?", office.ID).Find(&memberships).Error; err != nil {
		return failedResult(err), err
	}

	affected := make([]uint, 0, len(memberships))
	for _, m := range memberships {
		staff, err := e.store.GetStaff(ctx, tx, m.StaffID)
		if err != nil {
			return failedResult(err), err
		}
		archive := model.ArchivedStaff{
			StaffID:        staff.ID,
			Email:          staff.Email,
			Name:           staff.Name,
			Role:           staff.Role,
			OfficeID:       office.ID,
			Reason:         model.ArchiveReasonOfficeWithdrawal,
			DeletedByID:    reviewerID,
			RetentionUntil: time.Now().Add(staffArchiveRetention),
		}
		if err := tx.WithContext(ctx).Create(&archive).Error; err != nil {
			return failedResult(err), err
		}
		if err := tx.WithContext(ctx).Delete(&model.Staff{}, m.StaffID).Error; err != nil {
			return failedResult(err), err
		}
		e.auditor.Record(ctx, tx, audit.Entry{
			ActorID:    ptr.To(reviewerID),
			Action:     model.AuditStaffSoftDeleted,
			TargetType: "staff",
			TargetID:   m.StaffID,
			OfficeID:   office.ID,
			Details:    map[string]any{"request": req.Ref},
		})
		affected = append(affected, m.StaffID)
	}

	if err := tx.WithContext(ctx).Model(&model.Office{}).
		Where("id = ?", office.ID).
		Updates(map[string]any{
			"created_by_id":       reviewerID,
			"last_modified_by_id": reviewerID,
		}).Error; err != nil {
		return failedResult(err), err
	}
	if err := tx.WithContext(ctx).Delete(&model.Office{}, office.ID).Error; err != nil {
		return failedResult(err), err
	}

	e.auditor.Record(ctx, tx, audit.Entry{
		ActorID:    ptr.To(reviewerID),
		Action:     model.AuditOfficeDeleted,
		TargetType: "office",
		TargetID:   office.ID,
		OfficeID:   office.ID,
		Details: map[string]any{
			"reason":  payload.Reason,
			"staff":   affected,
			"request": req.Ref,
		},
	})

	klog.Infof("withdrew office %d with %d staff", office.ID, len(affected))
	return model.ExecutionResult{
		Success: true,
		Action:  "withdraw_office",
		Detail: map[string]any{
			"office_id":         office.ID,
			"affected_staff_id": affected,
		},
	}, nil
}

func failedResult(err error) model.ExecutionResult {
	return model.ExecutionResult{Success: false, Error: err.Error()}
}
