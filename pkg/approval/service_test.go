package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/caredesk/caredesk/dao/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Staff{},
		&model.Office{},
		&model.OfficeStaff{},
		&model.ApprovalRequest{},
		&model.Notice{},
		&model.Message{},
		&model.AuditLog{},
		&model.ArchivedStaff{},
		&model.WelfareRecipient{},
		&model.RecipientDetail{},
		&model.EmergencyContact{},
		&model.DisabilityStatus{},
		&model.DisabilityDetail{},
		&model.OfficeWelfareRecipient{},
	))
	return db
}

func seedOffice(t *testing.T, db *gorm.DB, name string) *model.Office {
	t.Helper()
	office := model.Office{
		Name:             name,
		Type:             model.OfficeTypeB,
		CreatedByID:      1,
		LastModifiedByID: 1,
	}
	require.NoError(t, db.Create(&office).Error)
	return &office
}

func seedStaff(t *testing.T, db *gorm.DB, email string, role model.Role, officeIDs ...uint) *model.Staff {
	t.Helper()
	staff := model.Staff{
		Email:    email,
		Name:     email,
		Password: "x",
		Role:     role,
		Status:   model.StatusActive,
	}
	require.NoError(t, db.Create(&staff).Error)
	for _, id := range officeIDs {
		require.NoError(t, db.Create(&model.OfficeStaff{StaffID: staff.ID, OfficeID: id}).Error)
	}
	return &staff
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func countAudit(t *testing.T, db *gorm.DB, action string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.AuditLog{}).Where("action = ?", action).Count(&count).Error)
	return count
}

func TestRoleChangeLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(db, nil)

	office := seedOffice(t, db, "north")
	employee := seedStaff(t, db, "emp@x.jp", model.RoleEmployee, office.ID)
	owner := seedStaff(t, db, "owner@x.jp", model.RoleOwner, office.ID)

	req, err := svc.Create(ctx, CreateInput{
		Kind:        model.KindRoleChange,
		RequesterID: employee.ID,
		OfficeID:    office.ID,
		Payload:     mustJSON(t, model.RoleChangePayload{FromRole: model.RoleEmployee, RequestedRole: model.RoleManager}),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, req.Status)
	assert.NotEmpty(t, req.Ref)
	assert.Nil(t, req.ReviewerID)
	assert.Nil(t, req.ExecutionResult)

	// pending notice for the owner, receipt for the requester
	var notices []model.Notice
	require.NoError(t, db.Where("link_ref = ?", req.Ref).Find(&notices).Error)
	types := map[model.NoticeType]uint{}
	for _, n := range notices {
		types[n.Type] = n.RecipientID
	}
	assert.Equal(t, owner.ID, types[model.NoticeRoleChangePending])
	assert.Equal(t, employee.ID, types[model.NoticeRoleChangeSent])

	approved, err := svc.Approve(ctx, req.ID, owner.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewerID)
	assert.Equal(t, owner.ID, *approved.ReviewerID)
	require.NotNil(t, approved.ReviewedAt)
	require.NotNil(t, approved.ExecutionResult)
	assert.True(t, approved.ExecutionResult.Data().Success)

	var promoted model.Staff
	require.NoError(t, db.First(&promoted, employee.ID).Error)
	assert.Equal(t, model.RoleManager, promoted.Role)
	assert.EqualValues(t, 1, countAudit(t, db, model.AuditStaffRoleChanged))

	// pending notices were replaced, not edited
	require.NoError(t, db.Where("link_ref = ?", req.Ref).Find(&notices).Error)
	for _, n := range notices {
		assert.Equal(t, model.NoticeRoleChangeApproved, n.Type)
	}

	// a second approval must fail without re-executing
	_, err = svc.Approve(ctx, req.ID, owner.ID, "again")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.EqualValues(t, 1, countAudit(t, db, model.AuditStaffRoleChanged))
}

func TestManagerReviewRules(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(db, nil)

	office := seedOffice(t, db, "north")
	employee := seedStaff(t, db, "emp@x.jp", model.RoleEmployee, office.ID)
	manager := seedStaff(t, db, "mgr@x.jp", model.RoleManager, office.ID)
	promoted := seedStaff(t, db, "mgr2@x.jp", model.RoleManager, office.ID)

	t.Run("manager approves an employee promotion", func(t *testing.T) {
		req, err := svc.Create(ctx, CreateInput{
			Kind:        model.KindRoleChange,
			RequesterID: employee.ID,
			OfficeID:    office.ID,
			Payload:     mustJSON(t, model.RoleChangePayload{FromRole: model.RoleEmployee, RequestedRole: model.RoleManager}),
		})
		require.NoError(t, err)
		_, err = svc.Approve(ctx, req.ID, manager.ID, "")
		require.NoError(t, err)
	})

	t.Run("manager cannot approve a manager promotion", func(t *testing.T) {
		req, err := svc.Create(ctx, CreateInput{
			Kind:        model.KindRoleChange,
			RequesterID: promoted.ID,
			OfficeID:    office.ID,
			Payload:     mustJSON(t, model.RoleChangePayload{FromRole: model.RoleManager, RequestedRole: model.RoleOwner}),
		})
		require.NoError(t, err)
		_, err = svc.Approve(ctx, req.ID, manager.ID, "")
		assert.ErrorIs(t, err, ErrForbidden)

		var unchanged model.Staff
		require.NoError(t, db.First(&unchanged, promoted.ID).Error)
		assert.Equal(t, model.RoleManager, unchanged.Role)
	})

	t.Run("requestedRole must differ from the current role", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateInput{
			Kind:        model.KindRoleChange,
			RequesterID: promoted.ID,
			OfficeID:    office.ID,
			Payload:     mustJSON(t, model.RoleChangePayload{FromRole: model.RoleManager, RequestedRole: model.RoleManager}),
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("fromRole must match the current role", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateInput{
			Kind:        model.KindRoleChange,
			RequesterID: promoted.ID,
			OfficeID:    office.ID,
			Payload:     mustJSON(t, model.RoleChangePayload{FromRole: model.RoleEmployee, RequestedRole: model.RoleOwner}),
		})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestCreateRejectsForeignOffice(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(db, nil)

	officeA := seedOffice(t, db, "north")
	officeB := seedOffice(t, db, "south")
	employee := seedStaff(t, db, "emp@x.jp", model.RoleEmployee, officeA.ID)
	seedStaff(t, db, "mgrB@x.jp", model.RoleManager, officeB.ID)

	// filing into an office the requester does not belong to would hand
	// the review to staff with no authority over them
	_, err := svc.Create(ctx, CreateInput{
		Kind:        model.KindRoleChange,
		RequesterID: employee.ID,
		OfficeID:    officeB.ID,
		Payload:     mustJSON(t, model.RoleChangePayload{FromRole: model.RoleEmployee, RequestedRole: model.RoleManager}),
	})
	assert.ErrorIs(t, err, ErrForbidden)

	var reqCount int64
	db.Model(&model.ApprovalRequest{}).Count(&reqCount)
	assert.EqualValues(t, 0, reqCount)

	var unchanged model.Staff
	require.NoError(t, db.First(&unchanged, employee.ID).Error)
	assert.Equal(t, model.RoleEmployee, unchanged.Role)
}

func TestGetForViewer(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(db, nil)

	officeA := seedOffice(t, db, "north")
	officeB := seedOffice(t, db, "south")
	requester := seedStaff(t, db, "emp@x.jp", model.RoleEmployee, officeA.ID)
	peer := seedStaff(t, db, "peer@x.jp", model.RoleEmployee, officeA.ID)
	mgrA := seedStaff(t, db, "mgrA@x.jp", model.RoleManager, officeA.ID)
	mgrB := seedStaff(t, db, "mgrB@x.jp", model.RoleManager, officeB.ID)
	admin := seedStaff(t, db, "admin@x.jp", model.RoleAdmin)

	req, err := svc.Create(ctx, CreateInput{
		Kind:        model.KindEmployeeAction,
		RequesterID: requester.ID,
		OfficeID:    officeA.ID,
		Payload: mustJSON(t, model.EmployeeActionPayload{
			TargetKind: model.TargetWelfareRecipient,
			ActionType: model.ActionCreate,
			Data: map[string]any{"formData": map[string]any{"basicInfo": map[string]any{
				"firstName": "Taro", "lastName": "Yamada",
				"birthDay": "1990-04-01", "gender": "male",
			}}},
		}),
	})
	require.NoError(t, err)

	for _, tc := range []struct {
		name    string
		viewer  uint
		allowed bool
	}{
		{"requester", requester.ID, true},
		{"same-office manager", mgrA.ID, true},
		{"platform admin", admin.ID, true},
		{"other-office manager", mgrB.ID, false},
		{"same-office peer", peer.ID, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.GetForViewer(ctx, req.ID, tc.viewer)
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, req.ID, got.ID)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestEmployeeActionCreate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(db, nil)

	office := seedOffice(t, db, "north")
	employee := seedStaff(t, db, "emp@x.jp", model.RoleEmployee, office.ID)
	manager := seedStaff(t, db, "mgr@x.jp", model.RoleManager, office.ID)

	payload := model.EmployeeActionPayload{
		TargetKind: model.TargetWelfareRecipient,
		ActionType: model.ActionCreate,
		Data: map[string]any{
			"formData": map[string]any{
				"basicInfo": map[string]any{
					"firstName": "Taro",
					"lastName":  "Yamada",
					"birthDay":  "1990-04-01",
					"gender":    "male",
				},
				"contactAddress": map[string]any{
					"address": "1-2-3 Sakura",
					"tel":     "03-0000-0000",
				},
				"emergencyContacts": []any{
					map[string]any{"firstName": "Hana", "lastName": "Yamada", "tel": "090-1111-1111"},
				},
				"disabilityInfo": map[string]any{
					"disabilityOrDiseaseName": "condition",
					"livelihoodProtection":    true,
				},
			},
		},
	}

	req, err := svc.Create(ctx, CreateInput{
		Kind:        model.KindEmployeeAction,
		RequesterID: employee.ID,
		OfficeID:    office.ID,
		Payload:     mustJSON(t, payload),
	})
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, req.ID, manager.ID, "")
	require.NoError(t, err)
	require.NotNil(t, approved.ExecutionResult)
	assert.True(t, approved.ExecutionResult.Data().Success)

	var recipient model.WelfareRecipient
	require.NoError(t, db.First(&recipient).Error)
	assert.Equal(t, "Taro", recipient.FirstName)

	var detailCount, contactCount, statusCount, assocCount int64
	db.Model(&model.RecipientDetail{}).Count(&detailCount)
	db.Model(&model.EmergencyContact{}).Count(&contactCount)
	db.Model(&model.DisabilityStatus{}).Count(&statusCount)
	db.Model(&model.OfficeWelfareRecipient{}).Count(&assocCount)
	assert.EqualValues(t, 1, detailCount)
	assert.EqualValues(t, 1, contactCount)
	assert.EqualValues(t, 1, statusCount)
	assert.EqualValues(t, 1, assocCount)
}

func TestRejectMutatesNothing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(db, nil)

	office := seedOffice(t, db, "north")
	employee := seedStaff(t, db, "emp@x.jp", model.RoleEmployee, office.ID)
	manager := seedStaff(t, db, "mgr@x.jp", model.RoleManager, office.ID)

	payload := model.EmployeeActionPayload{
		TargetKind: model.TargetWelfareRecipient,
		ActionType: model.ActionCreate,
		Data: map[string]any{
			"formData": map[string]any{
				"basicInfo": map[string]any{
					"firstName": "Taro", "lastName": "Yamada",
					"birthDay": "1990-04-01", "gender": "male",
				},
			},
		},
	}

	req, err := svc.Create(ctx, CreateInput{
		Kind:        model.KindEmployeeAction,
		RequesterID: employee.ID,
		OfficeID:    office.ID,
		Payload:     mustJSON(t, payload),
	})
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, req.ID, manager.ID, "not needed")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)
	assert.Equal(t, "not needed", rejected.ReviewerNotes)
	assert.Nil(t, rejected.ExecutionResult)

	var count int64
	db.Model(&model.WelfareRecipient{}).Count(&count)
	assert.EqualValues(t, 0, count)

	_, err = svc.Approve(ctx, req.ID, manager.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestFailedExecutionStillApproves(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(db, nil)

	office := seedOffice(t, db, "north")
	employee := seedStaff(t, db, "emp@x.jp", model.RoleEmployee, office.ID)
	manager := seedStaff(t, db, "mgr@x.jp", model.RoleManager, office.ID)

	// update of a recipient that does not exist
	payload := model.EmployeeActionPayload{
		TargetKind: model.TargetWelfareRecipient,
		ActionType: model.ActionUpdate,
		TargetID:   999,
		Data:       map[string]any{"formData": map[string]any{"basicInfo": map[string]any{"firstName": "X"}}},
	}

	req, err := svc.Create(ctx, CreateInput{
		Kind:        model.KindEmployeeAction,
		RequesterID: employee.ID,
		OfficeID:    office.ID,
		Payload:     mustJSON(t, payload),
	})
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, req.ID, manager.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)
	require.NotNil(t, approved.ExecutionResult)
	result := approved.ExecutionResult.Data()
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestWithdrawalSinglePending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(db, nil)

	office := seedOffice(t, db, "north")
	target := seedStaff(t, db, "target@x.jp", model.RoleEmployee, office.ID)
	owner := seedStaff(t, db, "owner@x.jp", model.RoleOwner, office.ID)
	admin := seedStaff(t, db, "admin@x.jp", model.RoleAdmin)

	payload := mustJSON(t, model.WithdrawalPayload{
		Scope:         model.WithdrawalScopeStaff,
		TargetStaffID: target.ID,
		Reason:        "resigned",
	})

	req, err := svc.Create(ctx, CreateInput{
		Kind:        model.KindWithdrawal,
		RequesterID: owner.ID,
		OfficeID:    office.ID,
		Payload:     payload,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, countAudit(t, db, model.AuditWithdrawalRequested))

	// a duplicate for the same target is refused while the first is pending
	_, err = svc.Create(ctx, CreateInput{
		Kind:        model.KindWithdrawal,
		RequesterID: owner.ID,
		OfficeID:    office.ID,
		Payload:     payload,
	})
	assert.ErrorIs(t, err, ErrConflict)

	// only a platform admin may review withdrawals
	_, err = svc.Approve(ctx, req.ID, owner.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	approved, err := svc.Approve(ctx, req.ID, admin.ID, "")
	require.NoError(t, err)
	assert.True(t, approved.ExecutionResult.Data().Success)

	// staff row and memberships are gone for good, the archive remains
	var staffCount int64
	db.Unscoped().Model(&model.Staff{}).Where("id = ?", target.ID).Count(&staffCount)
	assert.EqualValues(t, 0, staffCount)
	var memberCount int64
	db.Unscoped().Model(&model.OfficeStaff{}).Where("staff_id = ?", target.ID).Count(&memberCount)
	assert.EqualValues(t, 0, memberCount)
	var archive model.ArchivedStaff
	require.NoError(t, db.Where("staff_id = ?", target.ID).First(&archive).Error)
	assert.Equal(t, model.ArchiveReasonStaffWithdrawal, archive.Reason)
	assert.Equal(t, "target@x.jp", archive.Email)

	// after resolution a new withdrawal can be filed again
	exists, err := NewStore().HasPendingWithdrawal(ctx, db, office.ID, model.WithdrawalScopeStaff, target.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOfficeWithdrawalCascade(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(db, nil)

	office := seedOffice(t, db, "closing")
	owner := seedStaff(t, db, "owner@x.jp", model.RoleOwner, office.ID)
	s2 := seedStaff(t, db, "a@x.jp", model.RoleEmployee, office.ID)
	s3 := seedStaff(t, db, "b@x.jp", model.RoleManager, office.ID)
	admin := seedStaff(t, db, "admin@x.jp", model.RoleAdmin)

	req, err := svc.Create(ctx, CreateInput{
		Kind:        model.KindWithdrawal,
		RequesterID: owner.ID,
		OfficeID:    office.ID,
		Payload:     mustJSON(t, model.WithdrawalPayload{Scope: model.WithdrawalScopeOffice, Reason: "office closing"}),
	})
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, req.ID, admin.ID, "confirmed")
	require.NoError(t, err)
	assert.True(t, approved.ExecutionResult.Data().Success)

	// the office and all three staff are soft-deleted
	var liveOffices int64
	db.Model(&model.Office{}).Where("id = ?", office.ID).Count(&liveOffices)
	assert.EqualValues(t, 0, liveOffices)
	var gone model.Office
	require.NoError(t, db.Unscoped().First(&gone, office.ID).Error)
	assert.True(t, gone.DeletedAt.Valid)
	assert.Equal(t, admin.ID, gone.CreatedByID)
	assert.Equal(t, admin.ID, gone.LastModifiedByID)

	for _, id := range []uint{owner.ID, s2.ID, s3.ID} {
		var liveStaff int64
		db.Model(&model.Staff{}).Where("id = ?", id).Count(&liveStaff)
		assert.EqualValues(t, 0, liveStaff, "staff %d should be soft-deleted", id)
		var archived int64
		db.Model(&model.ArchivedStaff{}).Where("staff_id = ?", id).Count(&archived)
		assert.EqualValues(t, 1, archived, "staff %d should be archived", id)
	}

	// one audit row per staff plus one for the office
	assert.EqualValues(t, 3, countAudit(t, db, model.AuditStaffSoftDeleted))
	assert.EqualValues(t, 1, countAudit(t, db, model.AuditOfficeDeleted))
}

func TestDeleteOwnPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(db, nil)

	office := seedOffice(t, db, "north")
	employee := seedStaff(t, db, "emp@x.jp", model.RoleEmployee, office.ID)
	other := seedStaff(t, db, "other@x.jp", model.RoleEmployee, office.ID)
	owner := seedStaff(t, db, "owner@x.jp", model.RoleOwner, office.ID)

	newRoleChange := func() *model.ApprovalRequest {
		req, err := svc.Create(ctx, CreateInput{
			Kind:        model.KindRoleChange,
			RequesterID: employee.ID,
			OfficeID:    office.ID,
			Payload:     mustJSON(t, model.RoleChangePayload{FromRole: model.RoleEmployee, RequestedRole: model.RoleManager}),
		})
		require.NoError(t, err)
		return req
	}

	t.Run("requester deletes a pending request with its notices", func(t *testing.T) {
		req := newRoleChange()
		require.NoError(t, svc.Delete(ctx, req.ID, employee.ID))
		_, err := svc.Get(ctx, req.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		var noticeCount int64
		db.Model(&model.Notice{}).Where("link_ref = ?", req.Ref).Count(&noticeCount)
		assert.EqualValues(t, 0, noticeCount)
	})

	t.Run("someone else cannot delete it", func(t *testing.T) {
		req := newRoleChange()
		assert.ErrorIs(t, svc.Delete(ctx, req.ID, other.ID), ErrForbidden)
	})

	t.Run("processed requests are immutable", func(t *testing.T) {
		req := newRoleChange()
		_, err := svc.Reject(ctx, req.ID, owner.ID, "")
		require.NoError(t, err)
		assert.ErrorIs(t, svc.Delete(ctx, req.ID, employee.ID), ErrAlreadyProcessed)
	})

	t.Run("withdrawals are never requester-deletable", func(t *testing.T) {
		req, err := svc.Create(ctx, CreateInput{
			Kind:        model.KindWithdrawal,
			RequesterID: owner.ID,
			OfficeID:    office.ID,
			Payload: mustJSON(t, model.WithdrawalPayload{
				Scope:         model.WithdrawalScopeStaff,
				TargetStaffID: other.ID,
				Reason:        "left",
			}),
		})
		require.NoError(t, err)
		assert.ErrorIs(t, svc.Delete(ctx, req.ID, owner.ID), ErrForbidden)
	})
}

func TestListPendingForReviewer(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(db, nil)

	officeA := seedOffice(t, db, "north")
	officeB := seedOffice(t, db, "south")
	empA := seedStaff(t, db, "empA@x.jp", model.RoleEmployee, officeA.ID)
	mgrA2 := seedStaff(t, db, "mgrA2@x.jp", model.RoleManager, officeA.ID)
	manager := seedStaff(t, db, "mgrA@x.jp", model.RoleManager, officeA.ID)
	empB := seedStaff(t, db, "empB@x.jp", model.RoleEmployee, officeB.ID)
	ownerA := seedStaff(t, db, "ownerA@x.jp", model.RoleOwner, officeA.ID)
	admin := seedStaff(t, db, "admin@x.jp", model.RoleAdmin)

	mk := func(requester *model.Staff, office uint, from, to model.Role) *model.ApprovalRequest {
		req, err := svc.Create(ctx, CreateInput{
			Kind:        model.KindRoleChange,
			RequesterID: requester.ID,
			OfficeID:    office,
			Payload:     mustJSON(t, model.RoleChangePayload{FromRole: from, RequestedRole: to}),
		})
		require.NoError(t, err)
		return req
	}
	fromEmployee := mk(empA, officeA.ID, model.RoleEmployee, model.RoleManager)
	fromManager := mk(mgrA2, officeA.ID, model.RoleManager, model.RoleOwner)
	mk(empB, officeB.ID, model.RoleEmployee, model.RoleManager)

	wReq, err := svc.Create(ctx, CreateInput{
		Kind:        model.KindWithdrawal,
		RequesterID: ownerA.ID,
		OfficeID:    officeA.ID,
		Payload: mustJSON(t, model.WithdrawalPayload{
			Scope:         model.WithdrawalScopeStaff,
			TargetStaffID: empA.ID,
			Reason:        "left",
		}),
	})
	require.NoError(t, err)

	t.Run("manager sees only what the matrix lets them review", func(t *testing.T) {
		reqs, err := svc.ListPendingForReviewer(ctx, manager.ID)
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		assert.Equal(t, fromEmployee.ID, reqs[0].ID)
	})

	t.Run("owner sees both office requests", func(t *testing.T) {
		reqs, err := svc.ListPendingForReviewer(ctx, ownerA.ID)
		require.NoError(t, err)
		ids := []uint{}
		for _, r := range reqs {
			ids = append(ids, r.ID)
		}
		assert.ElementsMatch(t, []uint{fromEmployee.ID, fromManager.ID}, ids)
	})

	t.Run("admin sees the withdrawal queue", func(t *testing.T) {
		reqs, err := svc.ListPendingForReviewer(ctx, admin.ID)
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		assert.Equal(t, wReq.ID, reqs[0].ID)
	})
}

func TestNoticeRetentionCap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(db, nil)

	office := seedOffice(t, db, "busy")
	employee := seedStaff(t, db, "emp@x.jp", model.RoleEmployee, office.ID)
	seedStaff(t, db, "owner@x.jp", model.RoleOwner, office.ID)

	for i := 0; i < noticeRetentionCap+5; i++ {
		require.NoError(t, db.Create(&model.Notice{
			RecipientID: employee.ID,
			OfficeID:    office.ID,
			Type:        model.NoticeRoleChangeSent,
			Title:       fmt.Sprintf("old %d", i),
		}).Error)
	}

	_, err := svc.Create(ctx, CreateInput{
		Kind:        model.KindRoleChange,
		RequesterID: employee.ID,
		OfficeID:    office.ID,
		Payload:     mustJSON(t, model.RoleChangePayload{FromRole: model.RoleEmployee, RequestedRole: model.RoleManager}),
	})
	require.NoError(t, err)

	var count int64
	db.Model(&model.Notice{}).Where("office_id = ?", office.ID).Count(&count)
	assert.LessOrEqual(t, count, int64(noticeRetentionCap))
}
