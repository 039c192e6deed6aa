package staffing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rosterly/rosterly/internal/audit"
	"github.com/rosterly/rosterly/internal/identity"
	"github.com/rosterly/rosterly/internal/platform/httpx"
)

// Handler serves facility mutations. After a successful write it records an
// audit entry with the session's current identity context.
type Handler struct {
	logger    *slog.Logger
	repo      Repository
	recorder  *audit.Recorder
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo Repository, recorder *audit.Recorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		repo:      repo,
		recorder:  recorder,
		validator: validator.New(),
	}
}

// MountRoutes registers staffing routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Patch("/facilities/{id}", h.handleUpdateFacility)
}

type updateFacilityRequest struct {
	Name     string `json:"name" validate:"omitempty,max=200"`
	Timezone string `json:"timezone" validate:"omitempty,max=64"`
}

func (h *Handler) handleUpdateFacility(w http.ResponseWriter, r *http.Request) {
	ri, ok := identity.RequestFromContext(r.Context())
	if !ok || !ri.Authenticated {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "no active session")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid facility id")
		return
	}
	var body updateFacilityRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if body.Name == "" && body.Timezone == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "no fields to update")
		return
	}

	facility, err := h.repo.UpdateFacility(r.Context(), id, body.Name, body.Timezone)
	if err != nil {
		if errors.Is(err, ErrFacilityNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("update facility", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	// The mutation committed; an audit failure is reported, not rolled back.
	if _, err := h.recorder.Record(r.Context(), ri.Context, audit.Entry{
		Action:     "update",
		Resource:   "facility",
		ResourceID: strconv.FormatInt(facility.ID, 10),
		Details:    map[string]any{"name": facility.Name, "timezone": facility.Timezone},
	}); err != nil {
		h.logger.Warn("facility audit record", slog.Any("error", err))
	}

	httpx.JSON(w, http.StatusOK, facility)
}
