package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/services"
)

type FavoriteHandler struct {
	favoriteService *services.FavoriteService
	log             *zap.Logger
}

func NewFavoriteHandler(favoriteService *services.FavoriteService, log *zap.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		favoriteService: favoriteService,
		log:             log,
	}
}

func (h *FavoriteHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !canActFor(w, r, userID) {
		return
	}

	var req models.AddFavoriteRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w)
		return
	}

	favorite, err := h.favoriteService.AddFavorite(r.Context(), userID, &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to add favorite")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"ok": true, "item": favorite}))
}

// RemoveFavorite takes the favorite's type and id from the query string.
func (h *FavoriteHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !canActFor(w, r, userID) {
		return
	}

	q := r.URL.Query()
	typ := models.FavoriteType(q.Get("type"))

	if err := h.favoriteService.RemoveFavorite(r.Context(), userID, typ, q.Get("id")); err != nil {
		writeError(w, h.log, err, "Failed to remove favorite")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"ok": true}))
}

func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	favorites, err := h.favoriteService.ListUserFavorites(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err, "Failed to list favorites")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"items": favorites}))
}
