package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/services"
)

type TrialHandler struct {
	trialService *services.TrialService
	log          *zap.Logger
}

func NewTrialHandler(trialService *services.TrialService, log *zap.Logger) *TrialHandler {
	return &TrialHandler{
		trialService: trialService,
		log:          log,
	}
}

func (h *TrialHandler) ListTrials(w http.ResponseWriter, r *http.Request) {
	trials, err := h.trialService.List(r.Context(), r.URL.Query().Get("researcherId"))
	if err != nil {
		writeError(w, h.log, err, "Failed to list trials")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"trials": trials}))
}

func (h *TrialHandler) CreateTrial(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTrialRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w)
		return
	}
	req.ResearcherID = actorID(r, req.ResearcherID)

	trial, err := h.trialService.Create(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to create trial")
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(map[string]any{"trial": trial}))
}
