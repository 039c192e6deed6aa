package access

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/rosterly/rosterly/internal/identity"
	"github.com/rosterly/rosterly/internal/platform/httpx"
)

// Guard rejects requests whose acting principal may not reach the requested
// path. During impersonation the acting principal's role governs access,
// never the true principal's: an impersonated session has exactly the
// target's reach.
type Guard struct {
	Table  Table
	Logger *slog.Logger
	// Skip lists path prefixes exempt from the guard (login, health,
	// metrics, the impersonation endpoints themselves).
	Skip []string
}

// Middleware returns the guard as a chi-compatible middleware.
func (g Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range g.Skip {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		ri, ok := identity.RequestFromContext(r.Context())
		if !ok || !ri.Authenticated {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "no active session")
			return
		}

		allowed, err := g.Table.Allows(ri.Context.ActingPrincipal.Role, r.URL.Path)
		if err != nil {
			if g.Logger != nil {
				g.Logger.Error("route access lookup", slog.Any("error", err), slog.String("path", r.URL.Path))
			}
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		if !allowed {
			if g.Logger != nil {
				g.Logger.Warn("route access denied",
					slog.String("path", r.URL.Path),
					slog.String("role", string(ri.Context.ActingPrincipal.Role)),
					slog.Int64("acting_user_id", ri.Context.ActingPrincipal.ID))
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "role lacks access to this path")
			return
		}

		next.ServeHTTP(w, r)
	})
}
