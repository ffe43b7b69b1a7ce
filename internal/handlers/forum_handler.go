package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/services"
)

type ForumHandler struct {
	forumService *services.ForumService
	log          *zap.Logger
}

func NewForumHandler(forumService *services.ForumService, log *zap.Logger) *ForumHandler {
	return &ForumHandler{
		forumService: forumService,
		log:          log,
	}
}

func (h *ForumHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.forumService.ListCategories(r.Context())
	if err != nil {
		writeError(w, h.log, err, "Failed to list categories")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"categories": categories}))
}

func (h *ForumHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := h.forumService.ListThreads(r.Context(), r.URL.Query().Get("categoryId"))
	if err != nil {
		writeError(w, h.log, err, "Failed to list threads")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"threads": threads}))
}

func (h *ForumHandler) CreateThread(w http.ResponseWriter, r *http.Request) {
	var req models.CreateThreadRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w)
		return
	}
	req.AuthorUserID = actorID(r, req.AuthorUserID)
	req.AuthorRole = actorRole(r, req.AuthorRole)

	thread, err := h.forumService.CreateThread(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to create thread")
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(map[string]any{"thread": thread}))
}

func (h *ForumHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	detail, err := h.forumService.GetThread(r.Context(), chi.URLParam(r, "threadId"))
	if err != nil {
		writeError(w, h.log, err, "Failed to load thread")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(detail))
}

func (h *ForumHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReplyRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w)
		return
	}
	req.AuthorUserID = actorID(r, req.AuthorUserID)
	req.AuthorRole = actorRole(r, req.AuthorRole)

	reply, err := h.forumService.CreateReply(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to post reply")
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(map[string]any{"reply": reply}))
}

func (h *ForumHandler) VoteThread(w http.ResponseWriter, r *http.Request) {
	var req models.VoteRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w)
		return
	}
	req.UserID = actorID(r, req.UserID)

	result, err := h.forumService.VoteThread(r.Context(), chi.URLParam(r, "threadId"), &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to vote")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(result))
}

func (h *ForumHandler) VoteReply(w http.ResponseWriter, r *http.Request) {
	var req models.VoteRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w)
		return
	}
	req.UserID = actorID(r, req.UserID)

	result, err := h.forumService.VoteReply(r.Context(), chi.URLParam(r, "replyId"), &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to vote")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(result))
}
