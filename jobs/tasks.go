package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAuditGapAlert flags an audit record that failed to persist.
	TaskTypeAuditGapAlert = "audit:gap_alert"
)

// AuditGapAlertPayload describes an audit record that was lost. The gap is
// alertable on its own: the business mutation it described already
// committed.
type AuditGapAlertPayload struct {
	RecordID     string    `json:"record_id"`
	Action       string    `json:"action"`
	Resource     string    `json:"resource"`
	ActingUserID int64     `json:"acting_user_id"`
	OccurredAt   time.Time `json:"occurred_at"`
	Reason       string    `json:"reason"`
}

// NewAuditGapAlertTask constructs an Asynq task.
func NewAuditGapAlertTask(payload AuditGapAlertPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditGapAlert, data), nil
}

// HandleAuditGapAlertTask processes TaskTypeAuditGapAlert tasks. For now the
// alert channel is the worker's error log; operations watch for it alongside
// the rosterly_audit_write_failures_total metric.
func HandleAuditGapAlertTask(ctx context.Context, t *asynq.Task) error {
	var payload AuditGapAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	slog.Default().Error("audit gap detected",
		slog.String("record_id", payload.RecordID),
		slog.String("action", payload.Action),
		slog.String("resource", payload.Resource),
		slog.Int64("acting_user_id", payload.ActingUserID),
		slog.Time("occurred_at", payload.OccurredAt),
		slog.String("reason", payload.Reason))
	return nil
}
