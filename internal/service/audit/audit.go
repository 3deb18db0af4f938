// Package audit records an invocation trail for the bridge.
package audit

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emscape/roze-mcp/internal/model"
)

// Recorder persists invocation records on a best-effort basis.
// Recording never fails a dispatch: failures are logged and dropped.
// A no-op implementation is used when auditing is disabled so the dispatch
// pipeline never checks whether the audit trail is on.
type Recorder interface {
	RecordInvocation(rec *model.InvocationRecord)
}

type noopRecorder struct{}

// NewNoopRecorder returns a Recorder that discards all records.
func NewNoopRecorder() Recorder {
	return &noopRecorder{}
}

func (n *noopRecorder) RecordInvocation(*model.InvocationRecord) {}

type dbRecorder struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewDBRecorder returns a Recorder that writes records to the database.
func NewDBRecorder(db *gorm.DB, logger *zap.Logger) Recorder {
	return &dbRecorder{db: db, logger: logger}
}

func (r *dbRecorder) RecordInvocation(rec *model.InvocationRecord) {
	if err := r.db.Create(rec).Error; err != nil {
		r.logger.Warn("failed to record invocation",
			zap.String("tool", rec.Tool),
			zap.Error(err),
		)
	}
}
