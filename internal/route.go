package internal

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	docs "github.com/caredesk/caredesk/docs"
	"github.com/caredesk/caredesk/internal/handler"
	"github.com/caredesk/caredesk/internal/middleware"
	"github.com/caredesk/caredesk/pkg/approval"
)

type Backend struct {
	R *gin.Engine
}

func Register(db *gorm.DB, service *approval.Service) *Backend {
	s := new(Backend)
	s.R = gin.Default()

	s.R.GET("/v1/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "ok",
		})
	})

	s.registerService(db, service)

	// Swagger
	docs.SwaggerInfo.BasePath = "/"
	s.R.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return s
}

func (b *Backend) registerService(db *gorm.DB, service *approval.Service) {
	conf := &handler.RegisterConfig{
		DB:      db,
		Service: service,
	}
	managers := registerManagers(conf)

	publicRouter := b.R.Group("/v1")

	protectedRouter := b.R.Group("/v1")
	protectedRouter.Use(middleware.AuthProtected())

	adminRouter := b.R.Group("/v1/admin")
	adminRouter.Use(middleware.AuthProtected(), middleware.AuthAdmin())

	for _, mgr := range managers {
		mgr.RegisterPublic(publicRouter.Group(mgr.GetName()))
		mgr.RegisterProtected(protectedRouter.Group(mgr.GetName()))
		mgr.RegisterAdmin(adminRouter.Group(mgr.GetName()))
	}
}
