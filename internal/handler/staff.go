package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/caredesk/caredesk/dao/model"
	"github.com/caredesk/caredesk/internal/resputil"
	"github.com/caredesk/caredesk/internal/util"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewStaffMgr)
}

type StaffMgr struct {
	name string
	db   *gorm.DB
}

func NewStaffMgr(conf *RegisterConfig) Manager {
	return &StaffMgr{
		name: "staff",
		db:   conf.DB,
	}
}

func (mgr *StaffMgr) GetName() string { return mgr.name }

func (mgr *StaffMgr) RegisterPublic(g *gin.RouterGroup) {
	g.POST("/login", mgr.Login)
	g.POST("/refresh", mgr.RefreshToken)
}

func (mgr *StaffMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/me", mgr.GetMe)
	g.GET("", mgr.ListOfficeStaff)
}

func (mgr *StaffMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.POST("", mgr.CreateStaff)
}

type (
	LoginReq struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	RefreshReq struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	TokenResp struct {
		AccessToken  string    `json:"accessToken"`
		RefreshToken string    `json:"refreshToken"`
		Staff        StaffResp `json:"staff"`
	}
	CreateStaffReq struct {
		Email     string     `json:"email" binding:"required,email"`
		Name      string     `json:"name" binding:"required"`
		Password  string     `json:"password" binding:"required,min=8"`
		Role      model.Role `json:"role" binding:"required"`
		OfficeID  uint       `json:"officeID"`
		IsPrimary bool       `json:"isPrimary"`
	}
	StaffResp struct {
		ID    uint       `json:"id"`
		Email string     `json:"email"`
		Name  string     `json:"name"`
		Role  model.Role `json:"role"`
	}
)

// swagger
//
//	@Summary		Log in
//	@Description	Exchange email and password for a token pair
//	@Tags			staff
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LoginReq					true	"credentials"
//	@Success		200		{object}	resputil.Response[TokenResp]	"token pair"
//	@Failure		401		{object}	resputil.Response[any]			"invalid credentials"
//	@Router			/v1/staff/login [post]
func (mgr *StaffMgr) Login(c *gin.Context) {
	var body LoginReq
	if err := c.ShouldBindJSON(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	var staff model.Staff
	err := mgr.db.WithContext(c).Where("email = ?", body.Email).First(&staff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		resputil.HTTPError(c, http.StatusUnauthorized, "invalid credentials", resputil.InvalidCredentials)
		return
	}
	if err != nil {
		resputil.Error(c, "failed to load staff", resputil.NotSpecified)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(staff.Password), []byte(body.Password)) != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "invalid credentials", resputil.InvalidCredentials)
		return
	}
	if staff.Status != model.StatusActive {
		resputil.HTTPError(c, http.StatusUnauthorized, "account disabled", resputil.InvalidCredentials)
		return
	}

	mgr.issueTokens(c, &staff)
}

// swagger
//
//	@Summary		Refresh tokens
//	@Description	Exchange a refresh token for a fresh token pair
//	@Tags			staff
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RefreshReq						true	"refresh token"
//	@Success		200		{object}	resputil.Response[TokenResp]	"token pair"
//	@Failure		401		{object}	resputil.Response[any]			"invalid token"
//	@Router			/v1/staff/refresh [post]
func (mgr *StaffMgr) RefreshToken(c *gin.Context) {
	var body RefreshReq
	if err := c.ShouldBindJSON(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	msg, err := util.GetTokenMgr().CheckToken(body.RefreshToken)
	if err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, err.Error(), resputil.TokenExpired)
		return
	}
	var staff model.Staff
	if err := mgr.db.WithContext(c).First(&staff, msg.StaffID).Error; err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "staff not found", resputil.TokenInvalid)
		return
	}
	mgr.issueTokens(c, &staff)
}

func (mgr *StaffMgr) issueTokens(c *gin.Context, staff *model.Staff) {
	var primaryOffice uint
	var membership model.OfficeStaff
	err := mgr.db.WithContext(c).
		Where("staff_id = ?", staff.ID).
		Order("is_primary DESC, id ASC").
		First(&membership).Error
	if err == nil {
		primaryOffice = membership.OfficeID
	}

	msg := util.JWTMessage{
		StaffID:  staff.ID,
		Name:     staff.Name,
		Role:     staff.Role,
		OfficeID: primaryOffice,
	}
	access, refresh, err := util.GetTokenMgr().CreateTokens(&msg)
	if err != nil {
		klog.Errorf("create tokens for staff %d: %v", staff.ID, err)
		resputil.Error(c, "failed to create tokens", resputil.NotSpecified)
		return
	}
	resputil.Success(c, TokenResp{
		AccessToken:  access,
		RefreshToken: refresh,
		Staff:        convertStaffResp(staff),
	})
}

// swagger
//
//	@Summary		Current staff profile
//	@Tags			staff
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[StaffResp]	"profile"
//	@Router			/v1/staff/me [get]
func (mgr *StaffMgr) GetMe(c *gin.Context) {
	token := util.GetToken(c)
	var staff model.Staff
	if err := mgr.db.WithContext(c).First(&staff, token.StaffID).Error; err != nil {
		resputil.Error(c, "failed to load staff", resputil.NotSpecified)
		return
	}
	resputil.Success(c, convertStaffResp(&staff))
}

// swagger
//
//	@Summary		List staff of my office
//	@Tags			staff
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[[]StaffResp]	"staff list"
//	@Router			/v1/staff [get]
func (mgr *StaffMgr) ListOfficeStaff(c *gin.Context) {
	token := util.GetToken(c)
	if token.OfficeID == 0 {
		resputil.Success(c, []StaffResp{})
		return
	}
	var staff []model.Staff
	err := mgr.db.WithContext(c).
		Joins("JOIN office_staffs ON office_staffs.staff_id = staffs.id AND office_staffs.deleted_at IS NULL").
		Where("office_staffs.office_id = ?", token.OfficeID).
		Find(&staff).Error
	if err != nil {
		klog.Errorf("list staff of office %d: %v", token.OfficeID, err)
		resputil.Error(c, "failed to list staff", resputil.NotSpecified)
		return
	}
	resps := make([]StaffResp, 0, len(staff))
	for i := range staff {
		resps = append(resps, convertStaffResp(&staff[i]))
	}
	resputil.Success(c, resps)
}

// swagger
//
//	@Summary		Create a staff account
//	@Description	Platform admin provisioning of a staff account
//	@Tags			staff
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			body	body		CreateStaffReq					true	"account data"
//	@Success		200		{object}	resputil.Response[StaffResp]	"created account"
//	@Failure		409		{object}	resputil.Response[any]			"email taken"
//	@Router			/v1/admin/staff [post]
func (mgr *StaffMgr) CreateStaff(c *gin.Context) {
	var body CreateStaffReq
	if err := c.ShouldBindJSON(&body); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	var count int64
	if err := mgr.db.WithContext(c).Model(&model.Staff{}).
		Where("email = ?", body.Email).Count(&count).Error; err != nil {
		resputil.Error(c, "failed to check email", resputil.NotSpecified)
		return
	}
	if count > 0 {
		resputil.HTTPError(c, http.StatusConflict, "email already registered", resputil.EmailTaken)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		resputil.Error(c, "failed to hash password", resputil.NotSpecified)
		return
	}

	staff := model.Staff{
		Email:    body.Email,
		Name:     body.Name,
		Password: string(hash),
		Role:     body.Role,
		Status:   model.StatusActive,
	}
	err = mgr.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&staff).Error; err != nil {
			return err
		}
		if body.OfficeID != 0 {
			return tx.Create(&model.OfficeStaff{
				StaffID:   staff.ID,
				OfficeID:  body.OfficeID,
				IsPrimary: body.IsPrimary,
			}).Error
		}
		return nil
	})
	if err != nil {
		klog.Errorf("create staff %s: %v", body.Email, err)
		resputil.Error(c, "failed to create staff", resputil.NotSpecified)
		return
	}
	resputil.Success(c, convertStaffResp(&staff))
}

func convertStaffResp(staff *model.Staff) StaffResp {
	return StaffResp{
		ID:    staff.ID,
		Email: staff.Email,
		Name:  staff.Name,
		Role:  staff.Role,
	}
}
