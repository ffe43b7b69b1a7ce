package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/services"
)

type ProfileHandler struct {
	profileService *services.ProfileService
	log            *zap.Logger
}

func NewProfileHandler(profileService *services.ProfileService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		log:            log,
	}
}

// GetProfile responds with a null profile when none was saved yet.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	profile, err := h.profileService.Get(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err, "Failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"profile": profile}))
}

func (h *ProfileHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !canActFor(w, r, userID) {
		return
	}

	var req models.UpsertProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w)
		return
	}

	profile, err := h.profileService.Upsert(r.Context(), userID, &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to save profile")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"ok": true, "profile": profile}))
}

func (h *ProfileHandler) ListResearchers(w http.ResponseWriter, r *http.Request) {
	researchers, err := h.profileService.Researchers(r.Context(), r.URL.Query().Get("excludeUserId"), 0)
	if err != nil {
		writeError(w, h.log, err, "Failed to fetch researchers")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"researchers": researchers}))
}
