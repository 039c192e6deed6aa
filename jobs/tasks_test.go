package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterly/rosterly/jobs"
	_ "github.com/rosterly/rosterly/testing"
)

func TestNewAuditGapAlertTask(t *testing.T) {
	payload := jobs.AuditGapAlertPayload{
		RecordID:     "b7b2c2e0-0000-0000-0000-000000000001",
		Action:       "update",
		Resource:     "facility",
		ActingUserID: 7,
		OccurredAt:   time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		Reason:       "connection refused",
	}
	task, err := jobs.NewAuditGapAlertTask(payload)
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskTypeAuditGapAlert, task.Type())

	var decoded jobs.AuditGapAlertPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, payload, decoded)
}

func TestHandleAuditGapAlertTask(t *testing.T) {
	task, err := jobs.NewAuditGapAlertTask(jobs.AuditGapAlertPayload{RecordID: "x", Action: "delete", Resource: "shift"})
	require.NoError(t, err)
	assert.NoError(t, jobs.HandleAuditGapAlertTask(context.Background(), task))
}

func TestHandleAuditGapAlertTaskBadPayload(t *testing.T) {
	task := asynq.NewTask(jobs.TaskTypeAuditGapAlert, []byte("{not json"))
	err := jobs.HandleAuditGapAlertTask(context.Background(), task)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
