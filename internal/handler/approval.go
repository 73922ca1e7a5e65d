package handler

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/caredesk/caredesk/dao/model"
	"github.com/caredesk/caredesk/internal/resputil"
	"github.com/caredesk/caredesk/internal/util"
	"github.com/caredesk/caredesk/pkg/approval"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewApprovalMgr)
}

type ApprovalMgr struct {
	name    string
	service *approval.Service
}

func NewApprovalMgr(conf *RegisterConfig) Manager {
	return &ApprovalMgr{
		name:    "approvals",
		service: conf.Service,
	}
}

func (mgr *ApprovalMgr) GetName() string { return mgr.name }

func (mgr *ApprovalMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ApprovalMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListMine)
	g.GET("/reviewable", mgr.ListReviewable)
	g.GET("/:id", mgr.GetRequest)
	g.POST("", mgr.CreateRequest)
	g.POST("/:id/approve", mgr.ApproveRequest)
	g.POST("/:id/reject", mgr.RejectRequest)
	g.DELETE("/:id", mgr.DeleteRequest)
}

func (mgr *ApprovalMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("/withdrawals", mgr.ListPendingWithdrawals)
}

type (
	CreateApprovalReq struct {
		Kind     model.RequestKind `json:"kind" binding:"required"`
		OfficeID uint              `json:"officeID"`
		Payload  json.RawMessage   `json:"payload" binding:"required"`
	}
	ReviewReq struct {
		Notes string `json:"notes"`
	}
	ApprovalResp struct {
		ID              uint                   `json:"id"`
		Ref             string                 `json:"ref"`
		Kind            model.RequestKind      `json:"kind"`
		Status          model.RequestStatus    `json:"status"`
		Payload         json.RawMessage        `json:"payload"`
		ReviewerNotes   string                 `json:"reviewerNotes,omitempty"`
		ExecutionResult *model.ExecutionResult `json:"executionResult,omitempty"`
		CreatedAt       time.Time              `json:"createdAt"`
		ReviewedAt      *time.Time             `json:"reviewedAt,omitempty"`

		RequesterID   uint   `json:"requesterID"`
		RequesterName string `json:"requesterName"`
		ReviewerID    *uint  `json:"reviewerID,omitempty"`
		ReviewerName  string `json:"reviewerName,omitempty"`
		OfficeID      uint   `json:"officeID"`
		OfficeName    string `json:"officeName"`
	}
)

// swagger
//
//	@Summary		List my approval requests
//	@Description	All approval requests created by the current staff member
//	@Tags			approvals
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[[]ApprovalResp]	"request list"
//	@Failure		500	{object}	resputil.Response[any]				"server error"
//	@Router			/v1/approvals [get]
func (mgr *ApprovalMgr) ListMine(c *gin.Context) {
	token := util.GetToken(c)
	reqs, err := mgr.service.ListMine(c, token.StaffID)
	if err != nil {
		klog.Errorf("list own approval requests, staff %d: %v", token.StaffID, err)
		resputil.Error(c, "failed to list approval requests", resputil.NotSpecified)
		return
	}
	resputil.Success(c, convertApprovalResps(reqs))
}

// swagger
//
//	@Summary		List reviewable approval requests
//	@Description	Pending requests the current staff member may act on
//	@Tags			approvals
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[[]ApprovalResp]	"request list"
//	@Failure		500	{object}	resputil.Response[any]				"server error"
//	@Router			/v1/approvals/reviewable [get]
func (mgr *ApprovalMgr) ListReviewable(c *gin.Context) {
	token := util.GetToken(c)
	reqs, err := mgr.service.ListPendingForReviewer(c, token.StaffID)
	if err != nil {
		klog.Errorf("list reviewable requests, staff %d: %v", token.StaffID, err)
		resputil.Error(c, "failed to list reviewable requests", resputil.NotSpecified)
		return
	}
	resputil.Success(c, convertApprovalResps(reqs))
}

// swagger
//
//	@Summary		Get one approval request
//	@Description	Request detail, visible to its requester and eligible reviewers
//	@Tags			approvals
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			id	path		int									true	"request id"
//	@Success		200	{object}	resputil.Response[ApprovalResp]		"request detail"
//	@Failure		403	{object}	resputil.Response[any]				"not visible to this staff member"
//	@Failure		404	{object}	resputil.Response[any]				"not found"
//	@Router			/v1/approvals/{id} [get]
func (mgr *ApprovalMgr) GetRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	token := util.GetToken(c)
	req, err := mgr.service.GetForViewer(c, id, token.StaffID)
	if err != nil {
		resputil.WorkflowError(c, err)
		return
	}
	resputil.Success(c, convertApprovalResp(req))
}

// swagger
//
//	@Summary		Create an approval request
//	@Description	Submit a role change, employee action or withdrawal request
//	@Tags			approvals
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			body	body		CreateApprovalReq				true	"request body"
//	@Success		200		{object}	resputil.Response[ApprovalResp]	"created request"
//	@Failure		409		{object}	resputil.Response[any]			"duplicate pending withdrawal"
//	@Failure		422		{object}	resputil.Response[any]			"malformed payload"
//	@Router			/v1/approvals [post]
func (mgr *ApprovalMgr) CreateRequest(c *gin.Context) {
	var body CreateApprovalReq
	if err := c.ShouldBindJSON(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	officeID := body.OfficeID
	if officeID == 0 {
		officeID = token.OfficeID
	}
	if officeID == 0 {
		resputil.BadRequestError(c, "officeID is required")
		return
	}

	req, err := mgr.service.Create(c, approval.CreateInput{
		Kind:        body.Kind,
		RequesterID: token.StaffID,
		OfficeID:    officeID,
		Payload:     body.Payload,
	})
	if err != nil {
		resputil.WorkflowError(c, err)
		return
	}
	resputil.Success(c, convertApprovalResp(req))
}

// swagger
//
//	@Summary		Approve an approval request
//	@Description	Transition to Approved and execute the requested action
//	@Tags			approvals
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			id		path		int								true	"request id"
//	@Param			body	body		ReviewReq						false	"review notes"
//	@Success		200		{object}	resputil.Response[ApprovalResp]	"approved request"
//	@Failure		403		{object}	resputil.Response[any]			"not an eligible reviewer"
//	@Failure		409		{object}	resputil.Response[any]			"already processed"
//	@Router			/v1/approvals/{id}/approve [post]
func (mgr *ApprovalMgr) ApproveRequest(c *gin.Context) {
	mgr.review(c, mgr.service.Approve)
}

// swagger
//
//	@Summary		Reject an approval request
//	@Description	Transition to Rejected without executing anything
//	@Tags			approvals
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			id		path		int								true	"request id"
//	@Param			body	body		ReviewReq						false	"review notes"
//	@Success		200		{object}	resputil.Response[ApprovalResp]	"rejected request"
//	@Failure		403		{object}	resputil.Response[any]			"not an eligible reviewer"
//	@Failure		409		{object}	resputil.Response[any]			"already processed"
//	@Router			/v1/approvals/{id}/reject [post]
func (mgr *ApprovalMgr) RejectRequest(c *gin.Context) {
	mgr.review(c, mgr.service.Reject)
}

func (mgr *ApprovalMgr) review(c *gin.Context, act func(ctx context.Context, id, reviewerID uint, notes string) (*model.ApprovalRequest, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body ReviewReq
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	req, err := act(c, id, token.StaffID, body.Notes)
	if err != nil {
		resputil.WorkflowError(c, err)
		return
	}
	resputil.Success(c, convertApprovalResp(req))
}

// swagger
//
//	@Summary		Delete an approval request
//	@Description	Requesters may delete their own still-pending requests
//	@Tags			approvals
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			id	path		int								true	"request id"
//	@Success		200	{object}	resputil.Response[string]		"deleted"
//	@Failure		403	{object}	resputil.Response[any]			"not the requester, or a withdrawal"
//	@Failure		409	{object}	resputil.Response[any]			"already processed"
//	@Router			/v1/approvals/{id} [delete]
func (mgr *ApprovalMgr) DeleteRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	token := util.GetToken(c)
	if err := mgr.service.Delete(c, id, token.StaffID); err != nil {
		resputil.WorkflowError(c, err)
		return
	}
	resputil.Success(c, "deleted")
}

// swagger
//
//	@Summary		List pending withdrawal requests
//	@Description	Platform admin queue of withdrawal requests awaiting review
//	@Tags			approvals
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[[]ApprovalResp]	"request list"
//	@Failure		500	{object}	resputil.Response[any]				"server error"
//	@Router			/v1/admin/approvals/withdrawals [get]
func (mgr *ApprovalMgr) ListPendingWithdrawals(c *gin.Context) {
	reqs, err := mgr.service.ListPendingWithdrawals(c)
	if err != nil {
		klog.Errorf("list pending withdrawals: %v", err)
		resputil.Error(c, "failed to list pending withdrawals", resputil.NotSpecified)
		return
	}
	resputil.Success(c, convertApprovalResps(reqs))
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		resputil.BadRequestError(c, "invalid request id")
		return 0, false
	}
	return uint(id), true
}

func convertApprovalResp(req *model.ApprovalRequest) ApprovalResp {
	resp := ApprovalResp{
		ID:            req.ID,
		Ref:           req.Ref,
		Kind:          req.Kind,
		Status:        req.Status,
		Payload:       json.RawMessage(req.Payload),
		ReviewerNotes: req.ReviewerNotes,
		CreatedAt:     req.CreatedAt,
		ReviewedAt:    req.ReviewedAt,
		RequesterID:   req.RequesterID,
		RequesterName: req.Requester.Name,
		ReviewerID:    req.ReviewerID,
		OfficeID:      req.OfficeID,
		OfficeName:    req.Office.Name,
	}
	if req.Reviewer != nil {
		resp.ReviewerName = req.Reviewer.Name
	}
	if req.ExecutionResult != nil {
		result := req.ExecutionResult.Data()
		resp.ExecutionResult = &result
	}
	return resp
}

func convertApprovalResps(reqs []model.ApprovalRequest) []ApprovalResp {
	resps := make([]ApprovalResp, 0, len(reqs))
	for i := range reqs {
		resps = append(resps, convertApprovalResp(&reqs[i]))
	}
	return resps
}
