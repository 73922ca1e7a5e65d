package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/caredesk/caredesk/dao/model"
	"github.com/caredesk/caredesk/internal/resputil"
	"github.com/caredesk/caredesk/internal/util"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewOfficeMgr)
}

type OfficeMgr struct {
	name string
	db   *gorm.DB
}

func NewOfficeMgr(conf *RegisterConfig) Manager {
	return &OfficeMgr{
		name: "offices",
		db:   conf.DB,
	}
}

func (mgr *OfficeMgr) GetName() string { return mgr.name }

func (mgr *OfficeMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *OfficeMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListMine)
	g.GET("/:id", mgr.GetOffice)
}

func (mgr *OfficeMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("", mgr.ListAll)
	g.POST("", mgr.CreateOffice)
}

type (
	CreateOfficeReq struct {
		Name    string           `json:"name" binding:"required"`
		Type    model.OfficeType `json:"type" binding:"required"`
		IsGroup bool             `json:"isGroup"`
	}
	OfficeResp struct {
		ID      uint             `json:"id"`
		Name    string           `json:"name"`
		Type    model.OfficeType `json:"type"`
		IsGroup bool             `json:"isGroup"`
	}
)

// swagger
//
//	@Summary		List my offices
//	@Tags			offices
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[[]OfficeResp]	"office list"
//	@Router			/v1/offices [get]
func (mgr *OfficeMgr) ListMine(c *gin.Context) {
	token := util.GetToken(c)
	var offices []model.Office
	err := mgr.db.WithContext(c).
		Joins("JOIN office_staffs ON office_staffs.office_id = offices.id AND office_staffs.deleted_at IS NULL").
		Where("office_staffs.staff_id = ?", token.StaffID).
		Find(&offices).Error
	if err != nil {
		klog.Errorf("list offices of staff %d: %v", token.StaffID, err)
		resputil.Error(c, "failed to list offices", resputil.NotSpecified)
		return
	}
	resputil.Success(c, convertOfficeResps(offices))
}

// swagger
//
//	@Summary		Get one office
//	@Tags			offices
//	@Produce		json
//	@Security		Bearer
//	@Param			id	path		int								true	"office id"
//	@Success		200	{object}	resputil.Response[OfficeResp]	"office detail"
//	@Failure		404	{object}	resputil.Response[any]			"not found"
//	@Router			/v1/offices/{id} [get]
func (mgr *OfficeMgr) GetOffice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var office model.Office
	if err := mgr.db.WithContext(c).First(&office, id).Error; err != nil {
		resputil.HTTPError(c, http.StatusNotFound, "office not found", resputil.RequestNotFound)
		return
	}
	resputil.Success(c, convertOfficeResp(&office))
}

// swagger
//
//	@Summary		List all offices
//	@Tags			offices
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[[]OfficeResp]	"office list"
//	@Router			/v1/admin/offices [get]
func (mgr *OfficeMgr) ListAll(c *gin.Context) {
	var offices []model.Office
	if err := mgr.db.WithContext(c).Find(&offices).Error; err != nil {
		resputil.Error(c, "failed to list offices", resputil.NotSpecified)
		return
	}
	resputil.Success(c, convertOfficeResps(offices))
}

// swagger
//
//	@Summary		Create an office
//	@Tags			offices
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			body	body		CreateOfficeReq					true	"office data"
//	@Success		200		{object}	resputil.Response[OfficeResp]	"created office"
//	@Router			/v1/admin/offices [post]
func (mgr *OfficeMgr) CreateOffice(c *gin.Context) {
	var body CreateOfficeReq
	if err := c.ShouldBindJSON(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	office := model.Office{
		Name:             body.Name,
		Type:             body.Type,
		IsGroup:          body.IsGroup,
		CreatedByID:      token.StaffID,
		LastModifiedByID: token.StaffID,
	}
	if err := mgr.db.WithContext(c).Create(&office).Error; err != nil {
		klog.Errorf("create office %s: %v", body.Name, err)
		resputil.Error(c, "failed to create office", resputil.NotSpecified)
		return
	}
	resputil.Success(c, convertOfficeResp(&office))
}

func convertOfficeResp(office *model.Office) OfficeResp {
	return OfficeResp{
		ID:      office.ID,
		Name:    office.Name,
		Type:    office.Type,
		IsGroup: office.IsGroup,
	}
}

func convertOfficeResps(offices []model.Office) []OfficeResp {
	return lo.Map(offices, func(o model.Office, _ int) OfficeResp {
		return convertOfficeResp(&o)
	})
}
