// Package audit appends workflow events to the tamper-evident trail.
// Recording is best-effort: a failed insert is logged and swallowed so the
// business transaction it rides on never rolls back over bookkeeping.
package audit

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/caredesk/caredesk/dao/model"
)

// Entry is one audit event. ActorID is nil for system-initiated actions.
type Entry struct {
	ActorID    *uint
	Action     string
	TargetType string
	TargetID   uint
	OfficeID   uint
	Details    map[string]any
}

type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record writes one entry on the given db handle. Errors are logged, never
// returned.
func (r *Recorder) Record(ctx context.Context, db *gorm.DB, e Entry) {
	var details []byte
	if e.Details != nil {
		var err error
		details, err = json.Marshal(e.Details)
		if err != nil {
			klog.Errorf("audit: marshal details for %s failed: %v", e.Action, err)
			details = nil
		}
	}
	log := model.AuditLog{
		ActorID:    e.ActorID,
		Action:     e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		OfficeID:   e.OfficeID,
		Details:    details,
	}
	if err := db.WithContext(ctx).Create(&log).Error; err != nil {
		klog.Errorf("audit: record %s on %s/%d failed: %v", e.Action, e.TargetType, e.TargetID, err)
	}
}
