package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/services"
	"github.com/curalink/backend/internal/sources"
)

// SearchHandler serves external search and dashboard recommendations. Source
// outages surface as empty result lists, never as errors.
type SearchHandler struct {
	searchService         *services.SearchService
	recommendationService *services.RecommendationService
	log                   *zap.Logger
}

func NewSearchHandler(searchService *services.SearchService, recommendationService *services.RecommendationService, log *zap.Logger) *SearchHandler {
	return &SearchHandler{
		searchService:         searchService,
		recommendationService: recommendationService,
		log:                   log,
	}
}

func (h *SearchHandler) SearchTrials(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results := h.searchService.Trials(r.Context(), sources.TrialQuery{
		Q:        q.Get("q"),
		Status:   q.Get("status"),
		Location: q.Get("location"),
	})
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"results": results}))
}

func (h *SearchHandler) SearchPublications(w http.ResponseWriter, r *http.Request) {
	results := h.searchService.Publications(r.Context(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"results": results}))
}

func (h *SearchHandler) SearchExperts(w http.ResponseWriter, r *http.Request) {
	results := h.searchService.Experts(r.Context(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"results": results}))
}

func (h *SearchHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	recs, err := h.recommendationService.Recommend(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err, "Failed to build recommendations")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(recs))
}
