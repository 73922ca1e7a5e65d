package approval

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/caredesk/caredesk/dao/model"
	"github.com/caredesk/caredesk/pkg/audit"
	"github.com/caredesk/caredesk/pkg/monitor"
)

// Service is the exposed surface of the approval workflow. Every mutating
// operation runs in a single transaction so request status, domain state,
// notices and audit trail move together or not at all.
type Service struct {
	db       *gorm.DB
	store    *Store
	executor *Executor
	fanout   *Fanout
	auditor  *audit.Recorder
}

func NewService(db *gorm.DB, mailer Mailer) *Service {
	store := NewStore()
	auditor := audit.NewRecorder()
	return &Service{
		db:       db,
		store:    store,
		executor: NewExecutor(store, auditor),
		fanout:   NewFanout(mailer),
		auditor:  auditor,
	}
}

// CreateInput is what a requester submits. Payload is the raw kind-specific
// body; it is validated before anything is written.
type CreateInput struct {
	Kind        model.RequestKind
	RequesterID uint
	OfficeID    uint
	Payload     []byte
}

// Create validates the payload for its kind, enforces the single pending
// withdrawal rule and fans out the pending notices.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.ApprovalRequest, error) {
	req := &model.ApprovalRequest{
		Ref:         uuid.NewString(),
		Kind:        in.Kind,
		Status:      model.StatusPending,
		RequesterID: in.RequesterID,
		OfficeID:    in.OfficeID,
		Payload:     in.Payload,
	}

	// The office a request is scoped to comes from the client; it only
	// counts if the requester actually belongs to it, otherwise the
	// office-scoped review rules would be filing into a foreign office.
	requester, err := s.loadReviewer(ctx, s.db, in.RequesterID)
	if err != nil {
		return nil, err
	}
	if !requester.InOffice(in.OfficeID) {
		return nil, fmt.Errorf("%w: requester %d is not a member of office %d",
			ErrForbidden, in.RequesterID, in.OfficeID)
	}

	var withdrawal *model.WithdrawalPayload
	switch in.Kind {
	case model.KindRoleChange:
		payload, err := DecodeRoleChange(req.Payload)
		if err != nil {
			return nil, err
		}
		if requester.Role != payload.FromRole {
			return nil, fmt.Errorf("%w: fromRole %s does not match current role %s",
				ErrValidation, payload.FromRole, requester.Role)
		}
		if payload.RequestedRole == payload.FromRole {
			return nil, fmt.Errorf("%w: role %s is already assigned", ErrValidation, payload.FromRole)
		}
	case model.KindEmployeeAction:
		if _, err := DecodeEmployeeAction(req.Payload); err != nil {
			return nil, err
		}
	case model.KindWithdrawal:
		withdrawal, err = DecodeWithdrawal(req.Payload)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown request kind %q", ErrValidation, in.Kind)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if withdrawal != nil {
			exists, err := s.store.HasPendingWithdrawal(ctx, tx, in.OfficeID, withdrawal.Scope, withdrawal.TargetStaffID)
			if err != nil {
				return err
			}
			if exists {
				return ErrConflict
			}
		}
		if err := s.store.Insert(ctx, tx, req); err != nil {
			return err
		}
		if withdrawal != nil {
			s.auditor.Record(ctx, tx, audit.Entry{
				ActorID:    ptr.To(in.RequesterID),
				Action:     model.AuditWithdrawalRequested,
				TargetType: "approval_request",
				TargetID:   req.ID,
				OfficeID:   in.OfficeID,
				Details: map[string]any{
					"scope":   withdrawal.Scope,
					"target":  withdrawal.TargetStaffID,
					"request": req.Ref,
				},
			})
		}
		loaded, err := s.store.Get(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		*req = *loaded
		return s.fanout.NotifyCreated(ctx, tx, req)
	})
	if err != nil {
		return nil, err
	}

	monitor.RequestsCreated.WithLabelValues(string(in.Kind)).Inc()
	klog.Infof("approval request %s created: kind=%s requester=%d office=%d",
		req.Ref, req.Kind, req.RequesterID, req.OfficeID)
	return req, nil
}

// Approve transitions the request to Approved exactly once and runs the
// executor. Execution failures are recorded on the request and never undo
// the transition; the executor's own writes roll back through a savepoint.
func (s *Service) Approve(ctx context.Context, id, reviewerID uint, notes string) (*model.ApprovalRequest, error) {
	var out *model.ApprovalRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := s.store.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		reviewer, err := s.loadReviewer(ctx, tx, reviewerID)
		if err != nil {
			return err
		}
		if !CanReview(reviewer, req) {
			return ErrForbidden
		}
		if err := s.store.Transition(ctx, tx, id, model.StatusApproved, reviewerID, notes); err != nil {
			return err
		}

		result := s.runExecutor(ctx, tx, req, reviewerID)
		if err := s.store.AttachExecutionResult(ctx, tx, id, result); err != nil {
			return err
		}
		if !result.Success {
			monitor.ExecutionFailures.WithLabelValues(string(req.Kind)).Inc()
			klog.Errorf("approval request %s approved but execution failed: %s", req.Ref, result.Error)
		}

		s.recordResolution(ctx, tx, req, reviewerID, model.StatusApproved)
		if err := s.fanout.NotifyResolved(ctx, tx, req, model.StatusApproved); err != nil {
			return err
		}

		out, err = s.store.Get(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	monitor.RequestsResolved.WithLabelValues(string(out.Kind), "approved").Inc()
	return out, nil
}

// Reject transitions the request to Rejected exactly once. No domain state
// is touched beyond the request row, its notices and the audit trail.
func (s *Service) Reject(ctx context.Context, id, reviewerID uint, notes string) (*model.ApprovalRequest, error) {
	var out *model.ApprovalRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := s.store.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		reviewer, err := s.loadReviewer(ctx, tx, reviewerID)
		if err != nil {
			return err
		}
		if !CanReview(reviewer, req) {
			return ErrForbidden
		}
		if err := s.store.Transition(ctx, tx, id, model.StatusRejected, reviewerID, notes); err != nil {
			return err
		}

		s.recordResolution(ctx, tx, req, reviewerID, model.StatusRejected)
		if err := s.fanout.NotifyResolved(ctx, tx, req, model.StatusRejected); err != nil {
			return err
		}

		out, err = s.store.Get(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	monitor.RequestsResolved.WithLabelValues(string(out.Kind), "rejected").Inc()
	return out, nil
}

// Delete removes a requester's own still-pending request and its notices.
// Withdrawal requests are not deletable by their requester.
func (s *Service) Delete(ctx context.Context, id, requesterID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := s.store.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Kind == model.KindWithdrawal {
			return ErrForbidden
		}
		if err := s.store.DeleteOwnPending(ctx, tx, id, requesterID); err != nil {
			return err
		}
		return tx.WithContext(ctx).
			Where("link_ref = ?", req.Ref).
			Unscoped().Delete(&model.Notice{}).Error
	})
}

func (s *Service) Get(ctx context.Context, id uint) (*model.ApprovalRequest, error) {
	return s.store.Get(ctx, s.db, id)
}

// GetForViewer returns the request only to its requester, a platform admin,
// or a reviewer the matrix accepts for it. Payloads can carry recipient
// personal data, so detail visibility follows the same rule as the
// reviewable list.
func (s *Service) GetForViewer(ctx context.Context, id, viewerID uint) (*model.ApprovalRequest, error) {
	req, err := s.store.Get(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if req.RequesterID == viewerID {
		return req, nil
	}
	viewer, err := s.loadReviewer(ctx, s.db, viewerID)
	if err != nil {
		return nil, err
	}
	if viewer.Role == model.RoleAdmin || CanReview(viewer, req) {
		return req, nil
	}
	return nil, ErrForbidden
}

func (s *Service) ListMine(ctx context.Context, requesterID uint) ([]model.ApprovalRequest, error) {
	return s.store.ListByRequester(ctx, s.db, requesterID)
}

// ListPendingForReviewer returns the requests the given staff member could
// act on right now, filtered through the same authorization matrix approval
// itself uses.
func (s *Service) ListPendingForReviewer(ctx context.Context, reviewerID uint) ([]model.ApprovalRequest, error) {
	reviewer, err := s.loadReviewer(ctx, s.db, reviewerID)
	if err != nil {
		return nil, err
	}

	if reviewer.Role == model.RoleAdmin {
		return s.store.ListPendingWithdrawals(ctx, s.db)
	}
	if reviewer.Role != model.RoleManager && reviewer.Role != model.RoleOwner {
		return []model.ApprovalRequest{}, nil
	}
	if len(reviewer.OfficeIDs) == 0 {
		return []model.ApprovalRequest{}, nil
	}

	candidates, err := s.store.ListPendingForOffices(ctx, s.db, reviewer.OfficeIDs,
		[]model.RequestKind{model.KindRoleChange, model.KindEmployeeAction}, reviewerID)
	if err != nil {
		return nil, err
	}
	reviewable := make([]model.ApprovalRequest, 0, len(candidates))
	for i := range candidates {
		if CanReview(reviewer, &candidates[i]) {
			reviewable = append(reviewable, candidates[i])
		}
	}
	return reviewable, nil
}

// ListPendingWithdrawals is the platform admin queue.
func (s *Service) ListPendingWithdrawals(ctx context.Context) ([]model.ApprovalRequest, error) {
	return s.store.ListPendingWithdrawals(ctx, s.db)
}

// runExecutor runs the side effect inside a savepoint and absorbs every
// failure, panics included, into the returned result. A failed execution
// rolls back its own writes while the surrounding approval still commits.
func (s *Service) runExecutor(ctx context.Context, tx *gorm.DB, req *model.ApprovalRequest, reviewerID uint) model.ExecutionResult {
	var result model.ExecutionResult
	err := tx.Transaction(func(inner *gorm.DB) error {
		var err error
		result, err = s.execSafe(ctx, inner, req, reviewerID)
		return err
	})
	if err != nil && result.Error == "" {
		result = failedResult(err)
	}
	return result
}

// execSafe converts executor panics into errors so the savepoint rolls back
// instead of committing half-applied writes.
func (s *Service) execSafe(ctx context.Context, tx *gorm.DB, req *model.ApprovalRequest, reviewerID uint) (result model.ExecutionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			klog.Errorf("executor panic on request %s: %v", req.Ref, r)
			err = fmt.Errorf("executor panic: %v", r)
			result = failedResult(err)
		}
	}()
	return s.executor.Execute(ctx, tx, req, reviewerID)
}

func (s *Service) recordResolution(ctx context.Context, tx *gorm.DB, req *model.ApprovalRequest, reviewerID uint, outcome model.RequestStatus) {
	action := model.AuditRequestApproved
	if outcome == model.StatusRejected {
		action = model.AuditRequestRejected
	}
	if req.Kind == model.KindWithdrawal {
		action = model.AuditWithdrawalApproved
		if outcome == model.StatusRejected {
			action = model.AuditWithdrawalRejected
		}
	}
	s.auditor.Record(ctx, tx, audit.Entry{
		ActorID:    ptr.To(reviewerID),
		Action:     action,
		TargetType: "approval_request",
		TargetID:   req.ID,
		OfficeID:   req.OfficeID,
		Details:    map[string]any{"kind": req.Kind, "request": req.Ref},
	})
}

// loadReviewer builds the authorization view of a staff member: role plus
// current office memberships.
func (s *Service) loadReviewer(ctx context.Context, db *gorm.DB, staffID uint) (Reviewer, error) {
	var staff model.Staff
	if err := db.WithContext(ctx).First(&staff, staffID).Error; err != nil {
		return Reviewer{}, err
	}
	var officeIDs []uint
	if err := db.WithContext(ctx).Model(&model.OfficeStaff{}).
		Where("staff_id = ?", staffID).
		Pluck("office_id", &officeIDs).Error; err != nil {
		return Reviewer{}, err
	}
	return Reviewer{ID: staff.ID, Role: staff.Role, OfficeIDs: officeIDs}, nil
}
