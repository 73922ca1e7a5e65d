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
	Registers = append(Registers, NewNoticeMgr)
}

type NoticeMgr struct {
	name string
	db   *gorm.DB
}

func NewNoticeMgr(conf *RegisterConfig) Manager {
	return &NoticeMgr{
		name: "notices",
		db:   conf.DB,
	}
}

func (mgr *NoticeMgr) GetName() string { return mgr.name }

func (mgr *NoticeMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *NoticeMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListMine)
	g.GET("/unread", mgr.ListUnread)
	g.PUT("/:id/read", mgr.MarkRead)
	g.PUT("/read", mgr.MarkAllRead)
}

func (mgr *NoticeMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type NoticeResp struct {
	ID        uint             `json:"id"`
	Type      model.NoticeType `json:"type"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	LinkRef   string           `json:"linkRef,omitempty"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// swagger
//
//	@Summary		List my notices
//	@Tags			notices
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[[]NoticeResp]	"notice list"
//	@Router			/v1/notices [get]
func (mgr *NoticeMgr) ListMine(c *gin.Context) {
	mgr.list(c, false)
}

// swagger
//
//	@Summary		List my unread notices
//	@Tags			notices
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[[]NoticeResp]	"notice list"
//	@Router			/v1/notices/unread [get]
func (mgr *NoticeMgr) ListUnread(c *gin.Context) {
	mgr.list(c, true)
}

func (mgr *NoticeMgr) list(c *gin.Context, unreadOnly bool) {
	token := util.GetToken(c)
	tx := mgr.db.WithContext(c).
		Where("recipient_id = ?", token.StaffID).
		Order("created_at DESC")
	if unreadOnly {
		tx = tx.Where("is_read = ?", false)
	}
	var notices []model.Notice
	if err := tx.Find(&notices).Error; err != nil {
		klog.Errorf("list notices for staff %d: %v", token.StaffID, err)
		resputil.Error(c, "failed to list notices", resputil.NotSpecified)
		return
	}
	resps := make([]NoticeResp, 0, len(notices))
	for i := range notices {
		n := &notices[i]
		resps = append(resps, NoticeResp{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Content:   n.Content,
			LinkRef:   n.LinkRef,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	resputil.Success(c, resps)
}

// swagger
//
//	@Summary		Mark a notice read
//	@Tags			notices
//	@Produce		json
//	@Security		Bearer
//	@Param			id	path		int							true	"notice id"
//	@Success		200	{object}	resputil.Response[string]	"marked"
//	@Failure		404	{object}	resputil.Response[any]		"not found"
//	@Router			/v1/notices/{id}/read [put]
func (mgr *NoticeMgr) MarkRead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	token := util.GetToken(c)
	res := mgr.db.WithContext(c).Model(&model.Notice{}).
		Where("id = ? AND recipient_id = ?", id, token.StaffID).
		Update("is_read", true)
	if res.Error != nil {
		resputil.Error(c, "failed to mark notice read", resputil.NotSpecified)
		return
	}
	if res.RowsAffected == 0 {
		resputil.HTTPError(c, http.StatusNotFound, "notice not found", resputil.RequestNotFound)
		return
	}
	resputil.Success(c, "marked")
}

// swagger
//
//	@Summary		Mark all my notices read
//	@Tags			notices
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[string]	"marked"
//	@Router			/v1/notices/read [put]
func (mgr *NoticeMgr) MarkAllRead(c *gin.Context) {
	token := util.GetToken(c)
	err := mgr.db.WithContext(c).Model(&model.Notice{}).
		Where("recipient_id = ? AND is_read = ?", token.StaffID, false).
		Update("is_read", true).Error
	if err != nil {
		resputil.Error(c, "failed to mark notices read", resputil.NotSpecified)
		return
	}
	resputil.Success(c, "marked")
}
