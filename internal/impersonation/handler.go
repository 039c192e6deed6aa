package impersonation

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rosterly/rosterly/internal/identity"
	"github.com/rosterly/rosterly/internal/platform/httpx"
)

// Handler wires the impersonation endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers the impersonation endpoints. "/quit" is a legacy
// alias for "/stop".
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/impersonate/start", h.handleStart)
	r.Post("/impersonate/stop", h.handleStop)
	r.Post("/impersonate/quit", h.handleStop)
	r.Get("/debug/session", h.handleDebugSession)
}

type startRequest struct {
	TargetUserID int64  `json:"targetUserId" validate:"required,gt=0"`
	UserType     string `json:"userType" validate:"omitempty,max=64"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ri, ok := identity.RequestFromContext(r.Context())
	if !ok || !ri.Authenticated {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "no active session")
		return
	}

	var body startRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	target, err := h.service.Start(r.Context(), ri.SessionID, body.TargetUserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, target)
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	ri, ok := identity.RequestFromContext(r.Context())
	if !ok || !ri.Authenticated {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "no active session")
		return
	}

	restored, err := h.service.Stop(r.Context(), ri.SessionID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, restored)
}

// handleDebugSession exposes the current identity context for diagnostics.
func (h *Handler) handleDebugSession(w http.ResponseWriter, r *http.Request) {
	ri, ok := identity.RequestFromContext(r.Context())
	if !ok || !ri.Authenticated {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "no active session")
		return
	}
	httpx.JSON(w, http.StatusOK, ri.Context)
}

// respondError keeps every error kind distinct on the wire; callers must be
// able to tell "not allowed" from "nothing to stop".
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrSessionNotFound):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "session expired")
	case errors.Is(err, ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "impersonation requires super admin")
	case errors.Is(err, ErrTargetNotFound):
		httpx.Problem(w, http.StatusNotFound, "Target Not Found", err.Error())
	case errors.Is(err, ErrInvalidTarget):
		httpx.Problem(w, http.StatusConflict, "Invalid Target", err.Error())
	case errors.Is(err, identity.ErrAlreadyImpersonating):
		httpx.Problem(w, http.StatusConflict, "Already Impersonating", "end the active impersonation first")
	case errors.Is(err, identity.ErrSelfImpersonation):
		httpx.Problem(w, http.StatusConflict, "Invalid Target", "cannot impersonate the current identity")
	case errors.Is(err, identity.ErrNotImpersonating):
		httpx.Problem(w, http.StatusConflict, "Not Impersonating", "no impersonation to stop")
	default:
		h.logger.Error("impersonation request", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
