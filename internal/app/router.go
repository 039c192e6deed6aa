package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rosterly/rosterly/internal/access"
	"github.com/rosterly/rosterly/internal/audit"
	"github.com/rosterly/rosterly/internal/auth"
	"github.com/rosterly/rosterly/internal/identity"
	"github.com/rosterly/rosterly/internal/impersonation"
	"github.com/rosterly/rosterly/internal/observability"
	"github.com/rosterly/rosterly/internal/staffing"
)

// GuardSkipPrefixes lists paths exempt from the access guard: health and
// metrics, the session-creating auth endpoints, and the impersonation
// endpoints themselves (their controller enforces its own authorization so
// an operator impersonating a low-privilege role can still stop).
func GuardSkipPrefixes() []string {
	return []string{"/healthz", "/metrics", "/auth", "/impersonate", "/debug/session"}
}

// InterceptorSkipPrefixes lists paths whose handlers write their own audit
// records.
func InterceptorSkipPrefixes() []string {
	return []string{"/auth", "/impersonate", "/facilities"}
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger               *slog.Logger
	Config               *Config
	Manager              *identity.Manager
	AccessTable          access.Table
	Recorder             *audit.Recorder
	AuthHandler          *auth.Handler
	ImpersonationHandler *impersonation.Handler
	AuditHandler         *audit.Handler
	StaffingHandler      *staffing.Handler
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router with Rosterly defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Manager: params.Manager,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	guard := access.Guard{
		Table:  params.AccessTable,
		Logger: params.Logger,
		Skip:   GuardSkipPrefixes(),
	}
	interceptor := audit.Interceptor{
		Recorder: params.Recorder,
		Logger:   params.Logger,
		Skip:     InterceptorSkipPrefixes(),
	}
	r.Use(guard.Middleware)
	r.Use(interceptor.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	params.AuthHandler.MountRoutes(r)
	params.ImpersonationHandler.MountRoutes(r)
	params.StaffingHandler.MountRoutes(r)
	r.Route("/admin", func(admin chi.Router) {
		params.AuditHandler.MountRoutes(admin)
	})

	return r
}
