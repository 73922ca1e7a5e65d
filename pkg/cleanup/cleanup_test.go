package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/caredesk/caredesk/dao/model"
)

const testConfig = `
cleanup:
  spec: ""
  staffGraceDays: 30
  noticeReadDays: 30
`

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cleanup-test")
	if err != nil {
		panic(err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0o600); err != nil {
		panic(err)
	}
	os.Setenv("CAREDESK_DEBUG_CONFIG_PATH", path)
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&model.Staff{},
		&model.OfficeStaff{},
		&model.Notice{},
		&model.AuditLog{},
		&model.ArchivedStaff{},
	))
	return db
}

func TestPurgeReadNotices(t *testing.T) {
	db := newTestDB(t)
	mgr := NewManager(db)

	old := model.Notice{RecipientID: 1, OfficeID: 1, Type: model.NoticeRoleChangeSent, Title: "old", IsRead: true}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&old).UpdateColumn("updated_at", time.Now().AddDate(0, 0, -40)).Error)

	// unread notices survive regardless of age
	unread := model.Notice{RecipientID: 1, OfficeID: 1, Type: model.NoticeRoleChangeSent, Title: "unread"}
	require.NoError(t, db.Create(&unread).Error)
	require.NoError(t, db.Model(&unread).UpdateColumn("updated_at", time.Now().AddDate(0, 0, -40)).Error)

	recent := model.Notice{RecipientID: 1, OfficeID: 1, Type: model.NoticeRoleChangeSent, Title: "recent", IsRead: true}
	require.NoError(t, db.Create(&recent).Error)

	mgr.RunOnce()

	var titles []string
	require.NoError(t, db.Model(&model.Notice{}).Order("id").Pluck("title", &titles).Error)
	assert.ElementsMatch(t, []string{"unread", "recent"}, titles)
}

func TestPurgeExpiredAudit(t *testing.T) {
	db := newTestDB(t)
	mgr := NewManager(db)

	mk := func(action string, age time.Duration) {
		row := model.AuditLog{Action: action, TargetType: "staff", TargetID: 1}
		require.NoError(t, db.Create(&row).Error)
		require.NoError(t, db.Model(&row).UpdateColumn("created_at", time.Now().Add(-age)).Error)
	}
	// role change past its one-year retention, withdrawal within its five
	mk(model.AuditStaffRoleChanged, 2*365*24*time.Hour)
	mk(model.AuditWithdrawalApproved, 2*365*24*time.Hour)
	mk(model.AuditStaffRoleChanged, 24*time.Hour)

	mgr.RunOnce()

	var actions []string
	require.NoError(t, db.Model(&model.AuditLog{}).Pluck("action", &actions).Error)
	assert.ElementsMatch(t, []string{model.AuditWithdrawalApproved, model.AuditStaffRoleChanged}, actions)
}

func TestPurgeExpiredArchives(t *testing.T) {
	db := newTestDB(t)
	mgr := NewManager(db)

	expired := model.ArchivedStaff{StaffID: 1, Email: "a@x.jp", Name: "a", Role: model.RoleEmployee,
		Reason: model.ArchiveReasonStaffWithdrawal, DeletedByID: 9,
		RetentionUntil: time.Now().AddDate(0, 0, -1)}
	kept := model.ArchivedStaff{StaffID: 2, Email: "b@x.jp", Name: "b", Role: model.RoleEmployee,
		Reason: model.ArchiveReasonStaffWithdrawal, DeletedByID: 9,
		RetentionUntil: time.Now().AddDate(1, 0, 0)}
	require.NoError(t, db.Create(&expired).Error)
	require.NoError(t, db.Create(&kept).Error)

	mgr.RunOnce()

	var ids []uint
	require.NoError(t, db.Model(&model.ArchivedStaff{}).Pluck("staff_id", &ids).Error)
	assert.Equal(t, []uint{2}, ids)
}

func TestReapSoftDeletedStaff(t *testing.T) {
	db := newTestDB(t)
	mgr := NewManager(db)

	mkStaff := func(email string) *model.Staff {
		s := model.Staff{Email: email, Name: email, Password: "x", Role: model.RoleEmployee, Status: model.StatusActive}
		require.NoError(t, db.Create(&s).Error)
		require.NoError(t, db.Create(&model.OfficeStaff{StaffID: s.ID, OfficeID: 1}).Error)
		return &s
	}
	expired := mkStaff("expired@x.jp")
	fresh := mkStaff("fresh@x.jp")
	live := mkStaff("live@x.jp")

	require.NoError(t, db.Delete(expired).Error)
	require.NoError(t, db.Unscoped().Model(&model.Staff{}).Where("id = ?", expired.ID).
		UpdateColumn("deleted_at", time.Now().AddDate(0, 0, -40)).Error)
	require.NoError(t, db.Delete(fresh).Error)

	mgr.RunOnce()

	var staffCount int64
	db.Unscoped().Model(&model.Staff{}).Where("id = ?", expired.ID).Count(&staffCount)
	assert.EqualValues(t, 0, staffCount, "expired staff should be hard-deleted")
	var memberCount int64
	db.Unscoped().Model(&model.OfficeStaff{}).Where("staff_id = ?", expired.ID).Count(&memberCount)
	assert.EqualValues(t, 0, memberCount)

	db.Unscoped().Model(&model.Staff{}).Where("id = ?", fresh.ID).Count(&staffCount)
	assert.EqualValues(t, 1, staffCount, "staff inside the grace period survives")
	db.Model(&model.Staff{}).Where("id = ?", live.ID).Count(&staffCount)
	assert.EqualValues(t, 1, staffCount)
}
