package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rosterly/rosterly/internal/audit"
	"github.com/rosterly/rosterly/internal/identity"
	"github.com/rosterly/rosterly/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the login/logout flow that creates and
// destroys identity sessions.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	manager   *identity.Manager
	recorder  *audit.Recorder
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, manager *identity.Manager, recorder *audit.Recorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		manager:   manager,
		recorder:  recorder,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	principal, err := h.service.Authenticate(r.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	sessionID, err := h.manager.Store().Create(r.Context(), principal)
	if err != nil {
		h.logger.Error("create session", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.manager.SetCookie(w, sessionID)

	idc := identity.Context{ActingPrincipal: principal, TruePrincipal: principal}
	if _, err := h.recorder.Record(r.Context(), idc, audit.Entry{Action: "login", Resource: "session"}); err != nil {
		h.logger.Warn("login audit record", slog.Any("error", err))
	}

	httpx.JSON(w, http.StatusOK, principal)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ri, ok := identity.RequestFromContext(r.Context())
	if !ok || !ri.Authenticated {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "no active session")
		return
	}

	if _, err := h.recorder.Record(r.Context(), ri.Context, audit.Entry{Action: "logout", Resource: "session"}); err != nil {
		h.logger.Warn("logout audit record", slog.Any("error", err))
	}
	if err := h.manager.Store().Destroy(r.Context(), ri.SessionID); err != nil {
		h.logger.Error("destroy session", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.manager.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
