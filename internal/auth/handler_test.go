package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rosterly/rosterly/internal/audit"
	"github.com/rosterly/rosterly/internal/auth"
	"github.com/rosterly/rosterly/internal/directory"
	"github.com/rosterly/rosterly/internal/identity"
	_ "github.com/rosterly/rosterly/testing"
)

type authRig struct {
	manager    *identity.Manager
	auditStore *audit.InMemoryStore
	handler    http.Handler
}

func newAuthRig(t *testing.T) *authRig {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := identity.NewRedisStore(client, time.Hour)
	manager := identity.NewManager(store, "rosterly_session", time.Hour, false)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	dir := directory.NewInMemory()
	dir.Add(directory.Account{
		Principal:    identity.Principal{ID: 3, Name: "Hana Ruiz", Email: "hana@rosterly.local", Role: identity.RoleHRManager},
		PasswordHash: string(hash),
		IsActive:     true,
	})
	dir.Add(directory.Account{
		Principal:    identity.Principal{ID: 8, Email: "gone@rosterly.local", Role: identity.RoleStaff},
		PasswordHash: string(hash),
		IsActive:     false,
	})

	auditStore := audit.NewInMemoryStore()
	recorder := audit.NewRecorder(auditStore, nil, nil, nil)
	handler := auth.NewHandler(nil, auth.NewService(dir), manager, recorder)
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return &authRig{manager: manager, auditStore: auditStore, handler: r}
}

func (rig *authRig) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]string{"email": email, "password": password}))
	req := httptest.NewRequest(http.MethodPost, "/auth/login", &buf)
	res := httptest.NewRecorder()
	rig.handler.ServeHTTP(res, req)
	return res
}

func sessionCookie(res *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range res.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginSetsSessionCookie(t *testing.T) {
	rig := newAuthRig(t)

	res := rig.login(t, "hana@rosterly.local", "hunter2hunter2")
	require.Equal(t, http.StatusOK, res.Code)

	cookie := sessionCookie(res, rig.manager.CookieName())
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	ic, err := rig.manager.Store().Current(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(3), ic.ActingPrincipal.ID)
	assert.Equal(t, identity.RoleHRManager, ic.ActingPrincipal.Role)
	assert.Equal(t, 0, ic.ImpersonationDepth)

	records := rig.auditStore.All()
	require.Len(t, records, 1)
	assert.Equal(t, "login", records[0].Action)
	assert.Equal(t, int64(3), records[0].ActingUserID)
	assert.False(t, records[0].IsImpersonated)
}

func TestLoginWrongPassword(t *testing.T) {
	rig := newAuthRig(t)

	res := rig.login(t, "hana@rosterly.local", "wrongwrongwrong")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Nil(t, sessionCookie(res, rig.manager.CookieName()))
	assert.Empty(t, rig.auditStore.All())
}

func TestLoginInactiveAccount(t *testing.T) {
	rig := newAuthRig(t)

	res := rig.login(t, "gone@rosterly.local", "hunter2hunter2")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginValidation(t *testing.T) {
	rig := newAuthRig(t)

	res := rig.login(t, "not-an-email", "hunter2hunter2")
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = rig.login(t, "hana@rosterly.local", "short")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	rig := newAuthRig(t)

	loginRes := rig.login(t, "hana@rosterly.local", "hunter2hunter2")
	require.Equal(t, http.StatusOK, loginRes.Code)
	cookie := sessionCookie(loginRes, rig.manager.CookieName())
	require.NotNil(t, cookie)

	ic, err := rig.manager.Store().Current(context.Background(), cookie.Value)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(identity.WithRequestIdentity(req.Context(), identity.RequestIdentity{
		SessionID:     cookie.Value,
		Context:       ic,
		Authenticated: true,
	}))
	res := httptest.NewRecorder()
	rig.handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusNoContent, res.Code)

	_, err = rig.manager.Store().Current(context.Background(), cookie.Value)
	assert.ErrorIs(t, err, identity.ErrSessionNotFound)

	cleared := sessionCookie(res, rig.manager.CookieName())
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	records := rig.auditStore.All()
	require.Len(t, records, 2)
	assert.Equal(t, "logout", records[1].Action)
}

func TestLogoutAnonymous(t *testing.T) {
	rig := newAuthRig(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	res := httptest.NewRecorder()
	rig.handler.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}
