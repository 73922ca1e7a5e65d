package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/caredesk/caredesk/dao/model"
	"github.com/caredesk/caredesk/internal/resputil"
	"github.com/caredesk/caredesk/internal/util"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewMessageMgr)
}

type MessageMgr struct {
	name string
	db   *gorm.DB
}

func NewMessageMgr(conf *RegisterConfig) Manager {
	return &MessageMgr{
		name: "messages",
		db:   conf.DB,
	}
}

func (mgr *MessageMgr) GetName() string { return mgr.name }

func (mgr *MessageMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *MessageMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListInbox)
	g.GET("/sent", mgr.ListSent)
	g.POST("", mgr.SendMessage)
	g.PUT("/:id/read", mgr.MarkRead)
	g.DELETE("/:id", mgr.DeleteMessage)
}

func (mgr *MessageMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	SendMessageReq struct {
		RecipientID uint   `json:"recipientID" binding:"required"`
		Subject     string `json:"subject" binding:"required"`
		Body        string `json:"body"`
	}
	MessageResp struct {
		ID          uint      `json:"id"`
		SenderID    uint      `json:"senderID"`
		RecipientID uint      `json:"recipientID"`
		Subject     string    `json:"subject"`
		Body        string    `json:"body"`
		IsRead      bool      `json:"isRead"`
		CreatedAt   time.Time `json:"createdAt"`
	}
)

// swagger
//
//	@Summary		List received messages
//	@Tags			messages
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[[]MessageResp]	"message list"
//	@Router			/v1/messages [get]
func (mgr *MessageMgr) ListInbox(c *gin.Context) {
	token := util.GetToken(c)
	mgr.list(c, "recipient_id = ?", token.StaffID)
}

// swagger
//
//	@Summary		List sent messages
//	@Tags			messages
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[[]MessageResp]	"message list"
//	@Router			/v1/messages/sent [get]
func (mgr *MessageMgr) ListSent(c *gin.Context) {
	token := util.GetToken(c)
	mgr.list(c, "sender_id = ?", token.StaffID)
}

func (mgr *MessageMgr) list(c *gin.Context, cond string, staffID uint) {
	var messages []model.Message
	err := mgr.db.WithContext(c).
		Where(cond, staffID).
		Order("created_at DESC").
		Find(&messages).Error
	if err != nil {
		klog.Errorf("list messages of staff %d: %v", staffID, err)
		resputil.Error(c, "failed to list messages", resputil.NotSpecified)
		return
	}
	resps := make([]MessageResp, 0, len(messages))
	for i := range messages {
		m := &messages[i]
		resps = append(resps, MessageResp{
			ID:          m.ID,
			SenderID:    m.SenderID,
			RecipientID: m.RecipientID,
			Subject:     m.Subject,
			Body:        m.Body,
			IsRead:      m.IsRead,
			CreatedAt:   m.CreatedAt,
		})
	}
	resputil.Success(c, resps)
}

// swagger
//
//	@Summary		Send a message
//	@Description	Message another staff member of the same office
//	@Tags			messages
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			body	body		SendMessageReq					true	"message"
//	@Success		200		{object}	resputil.Response[MessageResp]	"sent message"
//	@Failure		403		{object}	resputil.Response[any]			"recipient not in office"
//	@Router			/v1/messages [post]
func (mgr *MessageMgr) SendMessage(c *gin.Context) {
	var body SendMessageReq
	if err := c.ShouldBindJSON(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	if token.OfficeID == 0 {
		resputil.BadRequestError(c, "no office membership")
		return
	}

	var count int64
	err := mgr.db.WithContext(c).Model(&model.OfficeStaff{}).
		Where("staff_id = ? AND office_id = ?", body.RecipientID, token.OfficeID).
		Count(&count).Error
	if err != nil {
		resputil.Error(c, "failed to check recipient", resputil.NotSpecified)
		return
	}
	if count == 0 {
		resputil.HTTPError(c, http.StatusForbidden, "recipient not in your office", resputil.NotAllowed)
		return
	}

	message := model.Message{
		SenderID:    token.StaffID,
		RecipientID: body.RecipientID,
		OfficeID:    token.OfficeID,
		Subject:     body.Subject,
		Body:        body.Body,
	}
	if err := mgr.db.WithContext(c).Create(&message).Error; err != nil {
		klog.Errorf("send message from %d to %d: %v", token.StaffID, body.RecipientID, err)
		resputil.Error(c, "failed to send message", resputil.NotSpecified)
		return
	}
	resputil.Success(c, MessageResp{
		ID:          message.ID,
		SenderID:    message.SenderID,
		RecipientID: message.RecipientID,
		Subject:     message.Subject,
		Body:        message.Body,
		CreatedAt:   message.CreatedAt,
	})
}

// swagger
//
//	@Summary		Mark a message read
//	@Tags			messages
//	@Produce		json
//	@Security		Bearer
//	@Param			id	path		int							true	"message id"
//	@Success		200	{object}	resputil.Response[string]	"marked"
//	@Failure		404	{object}	resputil.Response[any]		"not found"
//	@Router			/v1/messages/{id}/read [put]
func (mgr *MessageMgr) MarkRead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	token := util.GetToken(c)
	res := mgr.db.WithContext(c).Model(&model.Message{}).
		Where("id = ? AND recipient_id = ?", id, token.StaffID).
		Update("is_read", true)
	if res.Error != nil {
		resputil.Error(c, "failed to mark message read", resputil.NotSpecified)
		return
	}
	if res.RowsAffected == 0 {
		resputil.HTTPError(c, http.StatusNotFound, "message not found", resputil.RequestNotFound)
		return
	}
	resputil.Success(c, "marked")
}

// swagger
//
//	@Summary		Delete a sent message
//	@Tags			messages
//	@Produce		json
//	@Security		Bearer
//	@Param			id	path		int							true	"message id"
//	@Success		200	{object}	resputil.Response[string]	"deleted"
//	@Failure		404	{object}	resputil.Response[any]		"not found"
//	@Router			/v1/messages/{id} [delete]
func (mgr *MessageMgr) DeleteMessage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	token := util.GetToken(c)
	res := mgr.db.WithContext(c).
		Where("id = ? AND sender_id = ?", id, token.StaffID).
		Delete(&model.Message{})
	if res.Error != nil {
		klog.Errorf("delete message %d: %v", id, res.Error)
		resputil.Error(c, "failed to delete message", resputil.NotSpecified)
		return
	}
	if res.RowsAffected == 0 {
		resputil.HTTPError(c, http.StatusNotFound, "message not found", resputil.RequestNotFound)
		return
	}
	resputil.Success(c, "deleted")
}
