package main

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"k8s.io/klog/v2"

	"github.com/caredesk/caredesk/dao/query"
	"github.com/caredesk/caredesk/internal"
	"github.com/caredesk/caredesk/pkg/approval"
	"github.com/caredesk/caredesk/pkg/cleanup"
	"github.com/caredesk/caredesk/pkg/config"
	"github.com/caredesk/caredesk/pkg/mailer"
	"github.com/caredesk/caredesk/pkg/monitor"
)

// @title CareDesk API
// @version 1.0
// @description Approval workflow backend for care-services offices.
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Log in via /v1/staff/login and supply 'Bearer ${TOKEN}'.
func main() {
	// set global timezone
	time.Local = time.UTC

	backendConfig := config.GetConfig()
	// variable changes in local development
	if gin.Mode() == gin.DebugMode {
		if err := godotenv.Load(".debug.env"); err == nil {
			if be := os.Getenv("CAREDESK_BE_PORT"); be != "" {
				backendConfig.ServerAddr = ":" + be
			}
			if ms := os.Getenv("CAREDESK_MS_PORT"); ms != "" {
				backendConfig.MetricsAddr = ":" + ms
			}
		}
	}

	db := query.GetDB()
	if err := query.Migrate(db); err != nil {
		klog.Fatalf("migrate database: %v", err)
	}

	var mail approval.Mailer
	if m := mailer.New(); m != nil {
		mail = m
	}
	service := approval.NewService(db, mail)

	cleaner := cleanup.NewManager(db)
	if err := cleaner.Start(); err != nil {
		klog.Fatalf("start cleanup jobs: %v", err)
	}
	defer cleaner.Stop()

	if backendConfig.MetricsAddr != "" {
		go monitor.Serve(backendConfig.MetricsAddr)
	}

	backend := internal.Register(db, service)
	klog.Infof("server listening on %s", backendConfig.ServerAddr)
	if err := backend.R.Run(backendConfig.ServerAddr); err != nil {
		klog.Fatalf("server stopped: %v", err)
	}
}
