package identity

import "errors"

var (
	// ErrSessionNotFound indicates the session id is unknown or expired.
	ErrSessionNotFound = errors.New("identity: session not found")
	// ErrAlreadyImpersonating occurs when a second impersonation layer is requested.
	ErrAlreadyImpersonating = errors.New("identity: already impersonating")
	// ErrNotImpersonating occurs when ending impersonation on a direct session.
	ErrNotImpersonating = errors.New("identity: not impersonating")
	// ErrSelfImpersonation occurs when the target equals the current acting principal.
	ErrSelfImpersonation = errors.New("identity: cannot impersonate self")
)
