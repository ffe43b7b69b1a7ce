package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/curalink/backend/internal/models"
)

// Assistant is the text model behind the AI endpoints.
type Assistant interface {
	Summarize(ctx context.Context, text string) string
	ExtractConditions(ctx context.Context, text string) []string
	ExtractExpertInfo(ctx context.Context, biography, name string) (models.ExpertInfo, error)
}

type AIHandler struct {
	assistant Assistant
	log       *zap.Logger
}

func NewAIHandler(assistant Assistant, log *zap.Logger) *AIHandler {
	return &AIHandler{
		assistant: assistant,
		log:       log,
	}
}

type textRequest struct {
	Text string `json:"text"`
}

type expertInfoRequest struct {
	Biography string `json:"biography"`
	Name      string `json:"name"`
}

func (h *AIHandler) Summary(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w)
		return
	}

	summary := h.assistant.Summarize(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"summary": summary}))
}

func (h *AIHandler) ExtractConditions(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w)
		return
	}

	conditions := h.assistant.ExtractConditions(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"conditions": conditions}))
}

// ExtractExpertInfo answers with empty fields when the model fails.
func (h *AIHandler) ExtractExpertInfo(w http.ResponseWriter, r *http.Request) {
	var req expertInfoRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w)
		return
	}

	info, err := h.assistant.ExtractExpertInfo(r.Context(), req.Biography, req.Name)
	if err != nil {
		h.log.Warn("expert info extraction failed", zap.Error(err))
		info = models.EmptyExpertInfo()
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"info": info}))
}
