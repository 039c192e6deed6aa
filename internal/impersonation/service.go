// Package impersonation orchestrates session identity switching for
// super-admin operators.
package impersonation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rosterly/rosterly/internal/audit"
	"github.com/rosterly/rosterly/internal/directory"
	"github.com/rosterly/rosterly/internal/identity"
	"github.com/rosterly/rosterly/internal/observability"
)

var (
	// ErrForbidden indicates the operator may not impersonate.
	ErrForbidden = errors.New("impersonation: operator is not a super admin")
	// ErrTargetNotFound indicates the target user does not exist.
	ErrTargetNotFound = errors.New("impersonation: target not found")
	// ErrInvalidTarget indicates the target may not be impersonated.
	ErrInvalidTarget = errors.New("impersonation: target cannot be impersonated")
)

// Service coordinates impersonation start/stop against the identity store,
// the user directory and the audit recorder.
type Service struct {
	store     identity.Store
	directory directory.Directory
	recorder  *audit.Recorder
	metrics   *observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a Service. Metrics may be nil.
func NewService(store identity.Store, dir directory.Directory, recorder *audit.Recorder, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		directory: dir,
		recorder:  recorder,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Start begins impersonating the target user. Only a session whose true
// principal is a super admin may start, and another super admin is never a
// valid target. The identity store mutation happens only after every check
// has passed; its own errors (already impersonating, self target) propagate
// unchanged.
func (s *Service) Start(ctx context.Context, sessionID string, targetUserID int64) (identity.Principal, error) {
	ic, err := s.store.Current(ctx, sessionID)
	if err != nil {
		return identity.Principal{}, err
	}
	if ic.TruePrincipal.Role != identity.RoleSuperAdmin {
		s.logger.Warn("impersonation denied",
			slog.Int64("user_id", ic.TruePrincipal.ID),
			slog.String("role", string(ic.TruePrincipal.Role)))
		return identity.Principal{}, ErrForbidden
	}

	target, err := s.directory.Lookup(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return identity.Principal{}, fmt.Errorf("%w: user %d", ErrTargetNotFound, targetUserID)
		}
		return identity.Principal{}, err
	}
	if target.Role == identity.RoleSuperAdmin {
		return identity.Principal{}, fmt.Errorf("%w: user %d is a super admin", ErrInvalidTarget, target.ID)
	}

	next, err := s.store.BeginImpersonation(ctx, sessionID, target)
	if err != nil {
		return identity.Principal{}, err
	}

	// The start event belongs to the real operator: it is recorded against
	// a non-impersonated view of the session, with the new layer described
	// in the snapshot.
	operator := identity.Context{ActingPrincipal: ic.TruePrincipal, TruePrincipal: ic.TruePrincipal}
	snap := &audit.Snapshot{
		StartedBy:  ic.TruePrincipal.ID,
		TargetID:   target.ID,
		TargetRole: target.Role,
	}
	if next.ImpersonationStartedAt != nil {
		snap.StartedAt = *next.ImpersonationStartedAt
	}
	s.record(ctx, operator, audit.Entry{
		Action:   "impersonation_start",
		Resource: "session",
		Snapshot: snap,
	})
	s.metrics.ImpersonationTransition("start")

	return target, nil
}

// Stop ends the active impersonation layer and returns the restored
// principal.
func (s *Service) Stop(ctx context.Context, sessionID string) (identity.Principal, error) {
	ic, err := s.store.Current(ctx, sessionID)
	if err != nil {
		return identity.Principal{}, err
	}
	if !ic.IsImpersonating() {
		return identity.Principal{}, identity.ErrNotImpersonating
	}
	outgoing := ic.ActingPrincipal
	startedAt := ic.ImpersonationStartedAt

	restored, err := s.store.EndImpersonation(ctx, sessionID)
	if err != nil {
		return identity.Principal{}, err
	}

	snap := &audit.Snapshot{
		StartedBy:  restored.TruePrincipal.ID,
		TargetID:   outgoing.ID,
		TargetRole: outgoing.Role,
	}
	details := map[string]any{}
	if startedAt != nil {
		snap.StartedAt = *startedAt
		details["durationSeconds"] = s.now().UTC().Sub(*startedAt).Seconds()
	}
	s.record(ctx, restored, audit.Entry{
		Action:   "impersonation_end",
		Resource: "session",
		Snapshot: snap,
		Details:  details,
	})
	s.metrics.ImpersonationTransition("end")

	return restored.TruePrincipal, nil
}

func (s *Service) record(ctx context.Context, idc identity.Context, entry audit.Entry) {
	if s.recorder == nil {
		return
	}
	if _, err := s.recorder.Record(ctx, idc, entry); err != nil {
		// The transition already committed; the recorder has reported the
		// gap through its own channels.
		s.logger.Warn("impersonation transition audit", slog.Any("error", err), slog.String("action", entry.Action))
	}
}
