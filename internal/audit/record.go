// Package audit appends immutable records attributing mutating actions to
// both the acting and the true principal.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/rosterly/rosterly/internal/identity"
)

// Snapshot captures the impersonation state around a record: who started it,
// when, and against whom.
type Snapshot struct {
	StartedBy  int64         `json:"startedBy"`
	StartedAt  time.Time     `json:"startedAt"`
	TargetID   int64         `json:"targetId"`
	TargetRole identity.Role `json:"targetRole"`
}

// Record is an append-only audit entry. IsImpersonated is true iff
// TrueUserID is present and differs from ActingUserID; records are never
// mutated or deleted after creation.
type Record struct {
	ID                   uuid.UUID      `json:"id"`
	Timestamp            time.Time      `json:"timestamp"`
	Action               string         `json:"action"`
	Resource             string         `json:"resource"`
	ResourceID           string         `json:"resourceId,omitempty"`
	ActingUserID         int64          `json:"actingUserId"`
	ActingUserRole       identity.Role  `json:"actingUserRole"`
	TrueUserID           *int64         `json:"trueUserId"`
	IsImpersonated       bool           `json:"isImpersonated"`
	ImpersonationContext *Snapshot      `json:"impersonationContext,omitempty"`
	Details              map[string]any `json:"details,omitempty"`
}

// Entry describes a mutating action to be recorded. Identity attribution is
// never part of the entry; the recorder derives it from the session context
// so "who acted" and "what was logged" cannot drift apart.
type Entry struct {
	Action     string
	Resource   string
	ResourceID string
	Details    map[string]any
	// Snapshot overrides the derived impersonation context. Transition
	// records (start/end) use this to describe the layer they create or
	// tear down without being flagged as impersonated themselves.
	Snapshot *Snapshot
}
