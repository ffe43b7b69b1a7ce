package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/services"
)

type InsightsHandler struct {
	insightsService *services.InsightsService
	followService   *services.FollowService
	log             *zap.Logger
}

func NewInsightsHandler(insightsService *services.InsightsService, followService *services.FollowService, log *zap.Logger) *InsightsHandler {
	return &InsightsHandler{
		insightsService: insightsService,
		followService:   followService,
		log:             log,
	}
}

func (h *InsightsHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if !canActFor(w, r, userID) {
		return
	}
	typ := models.NotificationType(r.URL.Query().Get("type"))

	insights, err := h.insightsService.Insights(r.Context(), userID, typ)
	if err != nil {
		writeError(w, h.log, err, "Failed to load insights")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(insights))
}

func (h *InsightsHandler) Followers(w http.ResponseWriter, r *http.Request) {
	followers, err := h.followService.Followers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err, "Failed to list followers")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"followers": followers}))
}

// MarkRead takes a notification id. Unknown ids succeed. An authenticated
// caller may only mark their own notifications.
func (h *InsightsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.insightsService.MarkRead(r.Context(), chi.URLParam(r, "id"), actorID(r, "")); err != nil {
		writeError(w, h.log, err, "Failed to mark notification read")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"ok": true}))
}

func (h *InsightsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if !canActFor(w, r, userID) {
		return
	}

	updated, err := h.insightsService.MarkAllRead(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err, "Failed to mark notifications read")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"updated": updated}))
}
