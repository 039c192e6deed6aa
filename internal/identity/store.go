package identity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store manages session identity contexts. Mutations on the same session are
// serialized; different sessions never contend.
type Store interface {
	Create(ctx context.Context, truePrincipal Principal) (string, error)
	Current(ctx context.Context, sessionID string) (Context, error)
	BeginImpersonation(ctx context.Context, sessionID string, target Principal) (Context, error)
	EndImpersonation(ctx context.Context, sessionID string) (Context, error)
	Destroy(ctx context.Context, sessionID string) error
}

// RedisStore keeps identity contexts in Redis as JSON payloads with the
// session TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	locks  sync.Map
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Create initializes a fresh context with acting = true principal, depth 0.
func (s *RedisStore) Create(ctx context.Context, truePrincipal Principal) (string, error) {
	sessionID := uuid.NewString()
	ic := Context{
		ActingPrincipal: truePrincipal,
		TruePrincipal:   truePrincipal,
	}
	if err := s.write(ctx, sessionID, ic); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Current loads the identity context for a session.
func (s *RedisStore) Current(ctx context.Context, sessionID string) (Context, error) {
	return s.read(ctx, sessionID)
}

// BeginImpersonation installs a single impersonation layer. The true
// principal is preserved, never overwritten. The stored context is only
// written once every check has passed, so a failed call leaves no partial
// state.
func (s *RedisStore) BeginImpersonation(ctx context.Context, sessionID string, target Principal) (Context, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	ic, err := s.read(ctx, sessionID)
	if err != nil {
		return Context{}, err
	}
	if ic.ImpersonationDepth >= 1 {
		return Context{}, ErrAlreadyImpersonating
	}
	if target.ID == ic.ActingPrincipal.ID {
		return Context{}, ErrSelfImpersonation
	}

	now := time.Now().UTC()
	ic.ActingPrincipal = target
	ic.ImpersonationDepth = 1
	ic.ImpersonationStartedAt = &now
	ic.ImpersonationStartedBy = ic.TruePrincipal.ID
	if err := s.write(ctx, sessionID, ic); err != nil {
		return Context{}, err
	}
	return ic, nil
}

// EndImpersonation restores the true principal and returns the restored
// context.
func (s *RedisStore) EndImpersonation(ctx context.Context, sessionID string) (Context, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	ic, err := s.read(ctx, sessionID)
	if err != nil {
		return Context{}, err
	}
	if ic.ImpersonationDepth == 0 {
		return Context{}, ErrNotImpersonating
	}

	ic.ActingPrincipal = ic.TruePrincipal
	ic.ImpersonationDepth = 0
	ic.ImpersonationStartedAt = nil
	ic.ImpersonationStartedBy = 0
	if err := s.write(ctx, sessionID, ic); err != nil {
		return Context{}, err
	}
	return ic, nil
}

// Destroy removes the session. Subsequent lookups fail with
// ErrSessionNotFound.
func (s *RedisStore) Destroy(ctx context.Context, sessionID string) error {
	unlock := s.lock(sessionID)
	defer unlock()

	if err := s.client.Del(ctx, s.redisKey(sessionID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	s.locks.Delete(sessionID)
	return nil
}

func (s *RedisStore) read(ctx context.Context, sessionID string) (Context, error) {
	if sessionID == "" {
		return Context{}, ErrSessionNotFound
	}
	payload, err := s.client.Get(ctx, s.redisKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Context{}, ErrSessionNotFound
		}
		return Context{}, err
	}
	var ic Context
	if err := json.Unmarshal(payload, &ic); err != nil {
		return Context{}, err
	}
	return ic, nil
}

func (s *RedisStore) write(ctx context.Context, sessionID string, ic Context) error {
	data, err := json.Marshal(ic)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.redisKey(sessionID), data, s.ttl).Err()
}

func (s *RedisStore) redisKey(sessionID string) string {
	return "identity:" + sessionID
}

// lock acquires the per-session mutex and returns its release func.
func (s *RedisStore) lock(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

var _ Store = (*RedisStore)(nil)
