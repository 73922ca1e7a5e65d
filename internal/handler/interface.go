package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/caredesk/caredesk/pkg/approval"
)

type Manager interface {
	GetName() string
	RegisterPublic(group *gin.RouterGroup)
	RegisterProtected(group *gin.RouterGroup)
	RegisterAdmin(group *gin.RouterGroup)
}

// RegisterConfig carries the shared dependencies every manager may need.
type RegisterConfig struct {
	DB      *gorm.DB
	Service *approval.Service
}

type ManagerRegister func(conf *RegisterConfig) Manager

// Registers is appended to by each manager's init; the server instantiates
// every registered manager at startup.
var Registers []ManagerRegister
