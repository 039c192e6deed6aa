package identity

import (
	"context"
	"time"
)

// Context is the per-session identity state. ActingPrincipal is who requests
// are evaluated as; TruePrincipal is who authenticated the session. The two
// are equal while not impersonating.
type Context struct {
	ActingPrincipal        Principal  `json:"actingPrincipal"`
	TruePrincipal          Principal  `json:"truePrincipal"`
	ImpersonationDepth     int        `json:"impersonationDepth"`
	ImpersonationStartedAt *time.Time `json:"impersonationStartedAt,omitempty"`
	ImpersonationStartedBy int64      `json:"impersonationStartedBy,omitempty"`
}

// IsImpersonating reports whether an impersonation layer is active.
func (c Context) IsImpersonating() bool {
	return c.ImpersonationDepth > 0
}

// RequestIdentity carries the resolved session identity through a request.
type RequestIdentity struct {
	SessionID     string
	Context       Context
	Authenticated bool
}

type requestIdentityKey struct{}

// WithRequestIdentity stores the resolved identity in the request context.
func WithRequestIdentity(ctx context.Context, ri RequestIdentity) context.Context {
	return context.WithValue(ctx, requestIdentityKey{}, ri)
}

// RequestFromContext extracts the resolved identity, if any.
func RequestFromContext(ctx context.Context) (RequestIdentity, bool) {
	ri, ok := ctx.Value(requestIdentityKey{}).(RequestIdentity)
	return ri, ok
}
