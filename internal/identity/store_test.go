package identity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterly/rosterly/internal/identity"
	_ "github.com/rosterly/rosterly/testing"
)

func newStore(t *testing.T) *identity.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return identity.NewRedisStore(client, time.Hour)
}

func superAdmin() identity.Principal {
	return identity.Principal{ID: 1, Name: "Ada Root", Email: "ada@rosterly.local", Role: identity.RoleSuperAdmin}
}

func facilityAdmin() identity.Principal {
	fid := int64(12)
	return identity.Principal{ID: 7, Name: "Faye Admin", Email: "faye@rosterly.local", Role: identity.RoleFacilityAdmin, FacilityID: &fid}
}

func TestCreateAndCurrent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	sessionID, err := store.Create(ctx, superAdmin())
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	ic, err := store.Current(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, superAdmin(), ic.ActingPrincipal)
	assert.Equal(t, superAdmin(), ic.TruePrincipal)
	assert.Equal(t, 0, ic.ImpersonationDepth)
	assert.Nil(t, ic.ImpersonationStartedAt)
}

func TestCurrentUnknownSession(t *testing.T) {
	store := newStore(t)
	_, err := store.Current(context.Background(), "missing")
	assert.ErrorIs(t, err, identity.ErrSessionNotFound)
}

func TestBeginEndRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	sessionID, err := store.Create(ctx, superAdmin())
	require.NoError(t, err)
	before, err := store.Current(ctx, sessionID)
	require.NoError(t, err)

	next, err := store.BeginImpersonation(ctx, sessionID, facilityAdmin())
	require.NoError(t, err)
	assert.Equal(t, facilityAdmin(), next.ActingPrincipal)
	assert.Equal(t, superAdmin(), next.TruePrincipal)
	assert.Equal(t, 1, next.ImpersonationDepth)
	require.NotNil(t, next.ImpersonationStartedAt)
	assert.Equal(t, superAdmin().ID, next.ImpersonationStartedBy)

	restored, err := store.EndImpersonation(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, before.ActingPrincipal, restored.ActingPrincipal)
	assert.Equal(t, before.TruePrincipal, restored.TruePrincipal)
	assert.Equal(t, before.ImpersonationDepth, restored.ImpersonationDepth)
	assert.Nil(t, restored.ImpersonationStartedAt)

	persisted, err := store.Current(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, restored, persisted)
}

func TestNestedImpersonationRejected(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	sessionID, err := store.Create(ctx, superAdmin())
	require.NoError(t, err)
	_, err = store.BeginImpersonation(ctx, sessionID, facilityAdmin())
	require.NoError(t, err)
	active, err := store.Current(ctx, sessionID)
	require.NoError(t, err)

	staff := identity.Principal{ID: 22, Role: identity.RoleStaff}
	_, err = store.BeginImpersonation(ctx, sessionID, staff)
	assert.ErrorIs(t, err, identity.ErrAlreadyImpersonating)

	unchanged, err := store.Current(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, active, unchanged)
}

func TestSelfImpersonationRejected(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	sessionID, err := store.Create(ctx, superAdmin())
	require.NoError(t, err)

	_, err = store.BeginImpersonation(ctx, sessionID, superAdmin())
	assert.ErrorIs(t, err, identity.ErrSelfImpersonation)

	ic, err := store.Current(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, ic.ImpersonationDepth)
}

func TestEndWithoutBeginRejected(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	sessionID, err := store.Create(ctx, superAdmin())
	require.NoError(t, err)
	before, err := store.Current(ctx, sessionID)
	require.NoError(t, err)

	_, err = store.EndImpersonation(ctx, sessionID)
	assert.ErrorIs(t, err, identity.ErrNotImpersonating)

	after, err := store.Current(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDestroyIsTerminal(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	sessionID, err := store.Create(ctx, superAdmin())
	require.NoError(t, err)
	require.NoError(t, store.Destroy(ctx, sessionID))

	_, err = store.Current(ctx, sessionID)
	assert.ErrorIs(t, err, identity.ErrSessionNotFound)
	_, err = store.BeginImpersonation(ctx, sessionID, facilityAdmin())
	assert.ErrorIs(t, err, identity.ErrSessionNotFound)
}

func TestConcurrentBeginOnOneSession(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	sessionID, err := store.Create(ctx, superAdmin())
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			target := identity.Principal{ID: int64(100 + n), Role: identity.RoleStaff}
			_, err := store.BeginImpersonation(ctx, sessionID, target)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			require.ErrorIs(t, err, identity.ErrAlreadyImpersonating)
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
}
