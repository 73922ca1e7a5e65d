package query

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/caredesk/caredesk/dao/model"
	"github.com/caredesk/caredesk/pkg/logutils"
)

// Migrate brings the schema up to date. The initial migration creates the
// whole model set; later changes get their own migration IDs.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20250301-init",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&model.Staff{},
					&model.Office{},
					&model.OfficeStaff{},
					&model.ApprovalRequest{},
					&model.Notice{},
					&model.Message{},
					&model.AuditLog{},
					&model.ArchivedStaff{},
					&model.WelfareRecipient{},
					&model.RecipientDetail{},
					&model.EmergencyContact{},
					&model.DisabilityStatus{},
					&model.DisabilityDetail{},
					&model.OfficeWelfareRecipient{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					"office_welfare_recipients", "disability_details",
					"disability_statuses", "emergency_contacts",
					"recipient_details", "welfare_recipients",
					"archived_staffs", "audit_logs", "messages", "notices",
					"approval_requests", "office_staffs", "offices", "staffs",
				)
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return err
	}
	logutils.Log.Info("Database migration completed")
	return nil
}
