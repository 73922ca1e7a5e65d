// Package cleanup runs the scheduled retention jobs: read notices, expired
// audit rows, expired staff archives and staff accounts past their
// soft-delete grace period.
package cleanup

import (
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/caredesk/caredesk/dao/model"
	"github.com/caredesk/caredesk/pkg/config"
)

// Audit retention per action class. Withdrawal and deletion events are kept
// far longer than routine approvals.
var auditRetention = map[string]time.Duration{
	model.AuditWithdrawalRequested: 5 * 365 * 24 * time.Hour,
	model.AuditWithdrawalApproved:  5 * 365 * 24 * time.Hour,
	model.AuditWithdrawalRejected:  5 * 365 * 24 * time.Hour,
	model.AuditStaffDeleted:        5 * 365 * 24 * time.Hour,
	model.AuditStaffSoftDeleted:    5 * 365 * 24 * time.Hour,
	model.AuditOfficeDeleted:       5 * 365 * 24 * time.Hour,
	model.AuditRequestApproved:     365 * 24 * time.Hour,
	model.AuditRequestRejected:     365 * 24 * time.Hour,
	model.AuditStaffRoleChanged:    365 * 24 * time.Hour,
}

type Manager struct {
	db   *gorm.DB
	cron *cron.Cron
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{
		db:   db,
		cron: cron.New(cron.WithLocation(time.Local)),
	}
}

// Start registers the retention job with the configured spec and launches
// the scheduler. An empty spec disables it.
func (m *Manager) Start() error {
	spec := config.GetConfig().Cleanup.Spec
	if spec == "" {
		klog.Info("cleanup: no cron spec configured, retention jobs disabled")
		return nil
	}
	if _, err := m.cron.AddFunc(spec, m.RunOnce); err != nil {
		return err
	}
	m.cron.Start()
	klog.Infof("cleanup: retention jobs scheduled with spec %q", spec)
	return nil
}

func (m *Manager) Stop() {
	m.cron.Stop()
}

// RunOnce executes every retention task one time. Exported so tests and an
// operator CLI can trigger it outside the schedule.
func (m *Manager) RunOnce() {
	m.purgeReadNotices()
	m.purgeExpiredAudit()
	m.purgeExpiredArchives()
	m.reapSoftDeletedStaff()
}

func (m *Manager) purgeReadNotices() {
	days := config.GetConfig().Cleanup.NoticeReadDays
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	res := m.db.Unscoped().
		Where("is_read = ? AND updated_at < ?", true, cutoff).
		Delete(&model.Notice{})
	if res.Error != nil {
		klog.Errorf("cleanup: purge read notices: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		klog.Infof("cleanup: purged %d read notices", res.RowsAffected)
	}
}

func (m *Manager) purgeExpiredAudit() {
	now := time.Now()
	for action, keep := range auditRetention {
		res := m.db.
			Where("action = ? AND created_at < ?", action, now.Add(-keep)).
			Delete(&model.AuditLog{})
		if res.Error != nil {
			klog.Errorf("cleanup: purge audit %s: %v", action, res.Error)
			continue
		}
		if res.RowsAffected > 0 {
			klog.Infof("cleanup: purged %d audit rows for %s", res.RowsAffected, action)
		}
	}
}

func (m *Manager) purgeExpiredArchives() {
	res := m.db.Unscoped().
		Where("retention_until < ?", time.Now()).
		Delete(&model.ArchivedStaff{})
	if res.Error != nil {
		klog.Errorf("cleanup: purge staff archives: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		klog.Infof("cleanup: purged %d expired staff archives", res.RowsAffected)
	}
}

// reapSoftDeletedStaff hard-deletes staff rows whose soft delete is past the
// grace period, along with their office memberships.
func (m *Manager) reapSoftDeletedStaff() {
	days := config.GetConfig().Cleanup.StaffGraceDays
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	var ids []uint
	if err := m.db.Unscoped().Model(&model.Staff{}).
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Pluck("id", &ids).Error; err != nil {
		klog.Errorf("cleanup: list expired staff: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("staff_id IN ?", ids).
			Delete(&model.OfficeStaff{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.Staff{}, ids).Error
	})
	if err != nil {
		klog.Errorf("cleanup: reap soft-deleted staff: %v", err)
		return
	}
	klog.Infof("cleanup: hard-deleted %d staff past grace period", len(ids))
}
