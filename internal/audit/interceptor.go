package audit

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rosterly/rosterly/internal/identity"
)

// Interceptor is the mutation hook point: it wraps business routes and
// records an audit entry after every successful state-mutating response,
// using the identity context resolved for the request. Handlers that write
// richer records themselves list their prefixes in Skip.
type Interceptor struct {
	Recorder *Recorder
	Logger   *slog.Logger
	Skip     []string
}

// Middleware returns the interceptor as a chi-compatible middleware.
func (i Interceptor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !mutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		for _, prefix := range i.Skip {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		recorder := &statusCapture{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		if recorder.status < 200 || recorder.status >= 300 {
			return
		}
		ri, ok := identity.RequestFromContext(r.Context())
		if !ok || !ri.Authenticated {
			return
		}
		entry := Entry{
			Action:     actionForMethod(r.Method),
			Resource:   resourcePattern(r),
			ResourceID: chi.URLParam(r, "id"),
		}
		if _, err := i.Recorder.Record(r.Context(), ri.Context, entry); err != nil && i.Logger != nil {
			i.Logger.Warn("mutation audit record", slog.Any("error", err), slog.String("path", r.URL.Path))
		}
	})
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func actionForMethod(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodDelete:
		return "delete"
	default:
		return "update"
	}
}

func resourcePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

type statusCapture struct {
	http.ResponseWriter
	status int
}

func (s *statusCapture) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}
