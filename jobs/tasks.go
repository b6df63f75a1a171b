package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/rounds-hq/rounds/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditExport is the task type for compliance exports of the audit
	// trail.
	TaskAuditExport = "audit:export"
)

// AuditExportPayload describes one requested audit export.
type AuditExportPayload struct {
	TargetPrincipalID int64     `json:"target_principal_id"`
	Since             time.Time `json:"since,omitempty"`
	Until             time.Time `json:"until,omitempty"`
}

// NewAuditExportTask constructs an Asynq task for an audit export.
func NewAuditExportTask(targetPrincipalID int64, filters audit.HistoryFilters) (*asynq.Task, error) {
	data, err := json.Marshal(AuditExportPayload{
		TargetPrincipalID: targetPrincipalID,
		Since:             filters.Since,
		Until:             filters.Until,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditExport, data, asynq.Queue(QueueDefault)), nil
}

// Enqueuer wraps an asynq client behind the narrow interface handlers use.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer constructs an Enqueuer.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// Enqueue submits the task for background processing.
func (e *Enqueuer) Enqueue(ctx context.Context, task *asynq.Task) error {
	_, err := e.client.EnqueueContext(ctx, task)
	return err
}
