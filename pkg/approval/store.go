package approval

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/caredesk/caredesk/dao/model"
)

// Store owns all persistence for approval requests. Every method takes the
// *gorm.DB it should run against so the service can hand it a transaction.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Insert(ctx context.Context, db *gorm.DB, req *model.ApprovalRequest) error {
	return db.WithContext(ctx).Create(req).Error
}

// Get loads a request with requester, reviewer and office preloaded.
func (s *Store) Get(ctx context.Context, db *gorm.DB, id uint) (*model.ApprovalRequest, error) {
	var req model.ApprovalRequest
	err := db.WithContext(ctx).
		Preload("Requester").
		Preload("Reviewer").
		Preload("Office").
		First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Store) GetByRef(ctx context.Context, db *gorm.DB, ref string) (*model.ApprovalRequest, error) {
	var req model.ApprovalRequest
	err := db.WithContext(ctx).
		Preload("Requester").
		Preload("Office").
		Where("ref = ?", ref).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Store) ListByRequester(ctx context.Context, db *gorm.DB, requesterID uint) ([]model.ApprovalRequest, error) {
	var reqs []model.ApprovalRequest
	err := db.WithContext(ctx).
		Preload("Office").
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// ListPendingForOffices returns pending requests of the given kinds scoped to
// any of the offices, excluding those raised by the reviewer themselves.
func (s *Store) ListPendingForOffices(ctx context.Context, db *gorm.DB, officeIDs []uint, kinds []model.RequestKind, excludeRequester uint) ([]model.ApprovalRequest, error) {
	var reqs []model.ApprovalRequest
	tx := db.WithContext(ctx).
		Preload("Requester").
		Preload("Office").
		Where("status = ?", model.StatusPending).
		Where("office_id IN ?", officeIDs).
		Where("requester_id <> ?", excludeRequester)
	if len(kinds) > 0 {
		tx = tx.Where("kind IN ?", kinds)
	}
	err := tx.Order("created_at ASC").Find(&reqs).Error
	return reqs, err
}

// ListPendingWithdrawals is the platform admin queue: every pending
// withdrawal request across all offices.
func (s *Store) ListPendingWithdrawals(ctx context.Context, db *gorm.DB) ([]model.ApprovalRequest, error) {
	var reqs []model.ApprovalRequest
	err := db.WithContext(ctx).
		Preload("Requester").
		Preload("Office").
		Where("status = ? AND kind = ?", model.StatusPending, model.KindWithdrawal).
		Order("created_at ASC").
		Find(&reqs).Error
	return reqs, err
}

// HasPendingWithdrawal reports whether a pending withdrawal already exists
// for the same office, scope and target. Staff withdrawals are unique per
// target staff; office withdrawals are a singleton per office.
func (s *Store) HasPendingWithdrawal(ctx context.Context, db *gorm.DB, officeID uint, scope model.WithdrawalScope, targetStaffID uint) (bool, error) {
	tx := db.WithContext(ctx).Model(&model.ApprovalRequest{}).
		Where("status = ? AND kind = ? AND office_id = ?", model.StatusPending, model.KindWithdrawal, officeID).
		Where(datatypes.JSONQuery("payload").Equals(string(scope), "scope"))
	if scope == model.WithdrawalScopeStaff {
		tx = tx.Where(datatypes.JSONQuery("payload").Equals(targetStaffID, "targetStaffID"))
	}
	var count int64
	err := tx.Count(&count).Error
	return count > 0, err
}

// Transition flips a Pending request to its terminal status with a single
// conditional UPDATE. The status predicate makes the transition exactly-once
// under concurrent reviewers: whoever loses the race gets ErrAlreadyProcessed.
func (s *Store) Transition(ctx context.Context, db *gorm.DB, id uint, to model.RequestStatus, reviewerID uint, notes string) error {
	now := time.Now()
	res := db.WithContext(ctx).Model(&model.ApprovalRequest{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]any{
			"status":         to,
			"reviewer_id":    reviewerID,
			"reviewed_at":    now,
			"reviewer_notes": notes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.WithContext(ctx).Model(&model.ApprovalRequest{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrAlreadyProcessed
	}
	return nil
}

// AttachExecutionResult records the executor outcome on an already
// transitioned request.
func (s *Store) AttachExecutionResult(ctx context.Context, db *gorm.DB, id uint, result model.ExecutionResult) error {
	wrapped := datatypes.NewJSONType(result)
	return db.WithContext(ctx).Model(&model.ApprovalRequest{}).
		Where("id = ?", id).
		Update("execution_result", wrapped).Error
}

// DeleteOwnPending removes a requester's own still-pending request. The
// status predicate keeps processed requests immutable.
func (s *Store) DeleteOwnPending(ctx context.Context, db *gorm.DB, id, requesterID uint) error {
	res := db.WithContext(ctx).
		Where("id = ? AND requester_id = ? AND status = ?", id, requesterID, model.StatusPending).
		Delete(&model.ApprovalRequest{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var req model.ApprovalRequest
		err := db.WithContext(ctx).Select("id", "requester_id", "status").First(&req, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if req.RequesterID != requesterID {
			return ErrForbidden
		}
		return ErrAlreadyProcessed
	}
	return nil
}

// GetStaff loads a staff record inside the surrounding transaction.
func (s *Store) GetStaff(ctx context.Context, db *gorm.DB, staffID uint) (*model.Staff, error) {
	var staff model.Staff
	err := db.WithContext(ctx).First(&staff, staffID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &staff, nil
}
