package impersonation_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterly/rosterly/internal/audit"
	"github.com/rosterly/rosterly/internal/directory"
	"github.com/rosterly/rosterly/internal/identity"
	"github.com/rosterly/rosterly/internal/impersonation"
	_ "github.com/rosterly/rosterly/testing"
)

type fixture struct {
	store      *identity.RedisStore
	directory  *directory.InMemory
	auditStore *audit.InMemoryStore
	recorder   *audit.Recorder
	service    *impersonation.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := identity.NewRedisStore(client, time.Hour)
	dir := directory.NewInMemory()
	auditStore := audit.NewInMemoryStore()
	recorder := audit.NewRecorder(auditStore, nil, nil, nil)
	return &fixture{
		store:      store,
		directory:  dir,
		auditStore: auditStore,
		recorder:   recorder,
		service:    impersonation.NewService(store, dir, recorder, nil, nil),
	}
}

func (f *fixture) addUser(p identity.Principal) {
	f.directory.Add(directory.Account{Principal: p, IsActive: true})
}

func (f *fixture) login(t *testing.T, p identity.Principal) string {
	t.Helper()
	sessionID, err := f.store.Create(context.Background(), p)
	require.NoError(t, err)
	return sessionID
}

func superAdmin() identity.Principal {
	return identity.Principal{ID: 1, Name: "Ada Root", Role: identity.RoleSuperAdmin}
}

func facilityAdmin() identity.Principal {
	return identity.Principal{ID: 7, Name: "Faye Admin", Role: identity.RoleFacilityAdmin}
}

func TestStartRequiresSuperAdmin(t *testing.T) {
	f := newFixture(t)
	staff := identity.Principal{ID: 9, Role: identity.RoleStaff}
	f.addUser(facilityAdmin())
	sessionID := f.login(t, staff)

	_, err := f.service.Start(context.Background(), sessionID, facilityAdmin().ID)
	assert.ErrorIs(t, err, impersonation.ErrForbidden)

	// No store mutation and no audit record.
	ic, err := f.store.Current(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, ic.ImpersonationDepth)
	assert.Equal(t, staff, ic.ActingPrincipal)
	assert.Empty(t, f.auditStore.All())
}

func TestStartUnknownTarget(t *testing.T) {
	f := newFixture(t)
	sessionID := f.login(t, superAdmin())

	_, err := f.service.Start(context.Background(), sessionID, 404)
	assert.ErrorIs(t, err, impersonation.ErrTargetNotFound)
	assert.Empty(t, f.auditStore.All())
}

func TestStartRejectsSuperAdminTarget(t *testing.T) {
	f := newFixture(t)
	other := identity.Principal{ID: 2, Role: identity.RoleSuperAdmin}
	f.addUser(other)
	sessionID := f.login(t, superAdmin())

	_, err := f.service.Start(context.Background(), sessionID, other.ID)
	assert.ErrorIs(t, err, impersonation.ErrInvalidTarget)
	assert.Empty(t, f.auditStore.All())
}

func TestStartWhileImpersonating(t *testing.T) {
	f := newFixture(t)
	f.addUser(facilityAdmin())
	staff := identity.Principal{ID: 9, Role: identity.RoleStaff}
	f.addUser(staff)
	sessionID := f.login(t, superAdmin())

	_, err := f.service.Start(context.Background(), sessionID, facilityAdmin().ID)
	require.NoError(t, err)
	_, err = f.service.Start(context.Background(), sessionID, staff.ID)
	assert.ErrorIs(t, err, identity.ErrAlreadyImpersonating)
}

func TestStopWithoutImpersonation(t *testing.T) {
	f := newFixture(t)
	sessionID := f.login(t, superAdmin())

	_, err := f.service.Stop(context.Background(), sessionID)
	assert.ErrorIs(t, err, identity.ErrNotImpersonating)

	ic, err := f.store.Current(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, ic.ImpersonationDepth)
	assert.Empty(t, f.auditStore.All())
}

func TestStopExpiredSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Stop(context.Background(), "gone")
	assert.ErrorIs(t, err, identity.ErrSessionNotFound)
}

// Full scenario: the operator starts impersonation, the impersonated session
// performs a mutation, the operator stops. Three audit records with exact
// attribution.
func TestImpersonationScenarioAttribution(t *testing.T) {
	f := newFixture(t)
	f.addUser(facilityAdmin())
	sessionID := f.login(t, superAdmin())
	ctx := context.Background()

	target, err := f.service.Start(ctx, sessionID, facilityAdmin().ID)
	require.NoError(t, err)
	assert.Equal(t, facilityAdmin(), target)

	// Mutation performed while impersonating, recorded with the session's
	// current identity context.
	ic, err := f.store.Current(ctx, sessionID)
	require.NoError(t, err)
	_, err = f.recorder.Record(ctx, ic, audit.Entry{Action: "update", Resource: "facility", ResourceID: "12"})
	require.NoError(t, err)

	restored, err := f.service.Stop(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, superAdmin(), restored)

	records := f.auditStore.All()
	require.Len(t, records, 3)

	start := records[0]
	assert.Equal(t, "impersonation_start", start.Action)
	assert.Equal(t, "session", start.Resource)
	assert.Equal(t, int64(1), start.ActingUserID)
	assert.Nil(t, start.TrueUserID)
	assert.False(t, start.IsImpersonated)
	require.NotNil(t, start.ImpersonationContext)
	assert.Equal(t, int64(7), start.ImpersonationContext.TargetID)
	assert.Equal(t, identity.RoleFacilityAdmin, start.ImpersonationContext.TargetRole)
	assert.False(t, start.ImpersonationContext.StartedAt.IsZero())

	mutation := records[1]
	assert.Equal(t, "update", mutation.Action)
	assert.Equal(t, int64(7), mutation.ActingUserID)
	require.NotNil(t, mutation.TrueUserID)
	assert.Equal(t, int64(1), *mutation.TrueUserID)
	assert.True(t, mutation.IsImpersonated)

	end := records[2]
	assert.Equal(t, "impersonation_end", end.Action)
	assert.Equal(t, int64(1), end.ActingUserID)
	assert.Nil(t, end.TrueUserID)
	assert.False(t, end.IsImpersonated)
	require.NotNil(t, end.ImpersonationContext)
	assert.Equal(t, int64(7), end.ImpersonationContext.TargetID)
	assert.Contains(t, end.Details, "durationSeconds")
}

// Begin then end restores the context exactly, for any valid target role.
func TestRoundTripRestoresContext(t *testing.T) {
	f := newFixture(t)
	sessionID := f.login(t, superAdmin())
	ctx := context.Background()
	before, err := f.store.Current(ctx, sessionID)
	require.NoError(t, err)

	nextID := int64(100)
	for _, role := range identity.Roles() {
		if role == identity.RoleSuperAdmin {
			continue
		}
		target := identity.Principal{ID: nextID, Role: role}
		nextID++
		f.addUser(target)

		_, err := f.service.Start(ctx, sessionID, target.ID)
		require.NoError(t, err, "start as %s", role)
		_, err = f.service.Stop(ctx, sessionID)
		require.NoError(t, err, "stop as %s", role)

		after, err := f.store.Current(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, before, after, "round trip for role %s", role)
	}
}
