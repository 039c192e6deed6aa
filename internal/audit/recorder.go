package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/rosterly/rosterly/internal/identity"
	"github.com/rosterly/rosterly/internal/observability"
	"github.com/rosterly/rosterly/jobs"
)

// TaskEnqueuer enqueues background tasks. *asynq.Client satisfies it.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Recorder builds and persists audit records from the session identity
// context. Durability failures are reported (log, metric, gap-alert task),
// never retried indefinitely and never rolled into the business mutation.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	metrics *observability.Metrics
	tasks   TaskEnqueuer
	now     func() time.Time
}

// NewRecorder constructs a Recorder. Metrics and tasks may be nil.
func NewRecorder(store Store, logger *slog.Logger, metrics *observability.Metrics, tasks TaskEnqueuer) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:   store,
		logger:  logger,
		metrics: metrics,
		tasks:   tasks,
		now:     time.Now,
	}
}

// Record persists one audit entry attributed to the given identity context.
// Attribution is computed here and only here: IsImpersonated is true iff the
// true principal differs from the acting principal. The built record is
// returned even when the durable write fails, wrapped in ErrWriteFailed.
func (r *Recorder) Record(ctx context.Context, idc identity.Context, e Entry) (Record, error) {
	acting := idc.ActingPrincipal
	rec := Record{
		ID:             uuid.New(),
		Timestamp:      r.now().UTC(),
		Action:         e.Action,
		Resource:       e.Resource,
		ResourceID:     e.ResourceID,
		ActingUserID:   acting.ID,
		ActingUserRole: acting.Role,
		Details:        e.Details,
	}
	if idc.TruePrincipal.ID != acting.ID {
		trueID := idc.TruePrincipal.ID
		rec.TrueUserID = &trueID
		rec.IsImpersonated = true
	}
	rec.ImpersonationContext = e.Snapshot
	if rec.ImpersonationContext == nil && rec.IsImpersonated {
		snap := Snapshot{
			StartedBy:  idc.ImpersonationStartedBy,
			TargetID:   acting.ID,
			TargetRole: acting.Role,
		}
		if idc.ImpersonationStartedAt != nil {
			snap.StartedAt = *idc.ImpersonationStartedAt
		}
		rec.ImpersonationContext = &snap
	}

	if err := r.store.Insert(ctx, rec); err != nil {
		r.reportGap(rec, err)
		return rec, fmt.Errorf("%w: %s", ErrWriteFailed, err)
	}
	return rec, nil
}

func (r *Recorder) reportGap(rec Record, cause error) {
	r.logger.Error("audit write failed",
		slog.Any("error", cause),
		slog.String("action", rec.Action),
		slog.String("resource", rec.Resource),
		slog.Int64("acting_user_id", rec.ActingUserID))
	r.metrics.AuditWriteFailed()
	if r.tasks == nil {
		return
	}
	task, err := jobs.NewAuditGapAlertTask(jobs.AuditGapAlertPayload{
		RecordID:     rec.ID.String(),
		Action:       rec.Action,
		Resource:     rec.Resource,
		ActingUserID: rec.ActingUserID,
		OccurredAt:   rec.Timestamp,
		Reason:       cause.Error(),
	})
	if err != nil {
		r.logger.Error("build audit gap task", slog.Any("error", err))
		return
	}
	if _, err := r.tasks.Enqueue(task, asynq.MaxRetry(5)); err != nil {
		r.logger.Error("enqueue audit gap task", slog.Any("error", err))
	}
}
