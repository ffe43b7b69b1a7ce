package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/services"
)

type FollowHandler struct {
	followService *services.FollowService
	log           *zap.Logger
}

func NewFollowHandler(followService *services.FollowService, log *zap.Logger) *FollowHandler {
	return &FollowHandler{
		followService: followService,
		log:           log,
	}
}

func (h *FollowHandler) followRequest(r *http.Request) (*models.FollowRequest, error) {
	var req models.FollowRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	q := r.URL.Query()
	if req.FollowerID == "" {
		req.FollowerID = q.Get("followerId")
	}
	if req.FollowingID == "" {
		req.FollowingID = q.Get("followingId")
	}
	req.FollowerID = actorID(r, req.FollowerID)
	req.FollowerRole = actorRole(r, req.FollowerRole)
	return &req, nil
}

func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	req, err := h.followRequest(r)
	if err != nil {
		badBody(w)
		return
	}

	if err := h.followService.Follow(r.Context(), req); err != nil {
		writeError(w, h.log, err, "Failed to follow user")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"ok": true, "following": true}))
}

// Unfollow accepts the ids in the body or the query string.
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	req, err := h.followRequest(r)
	if err != nil {
		badBody(w)
		return
	}

	if err := h.followService.Unfollow(r.Context(), req); err != nil {
		writeError(w, h.log, err, "Failed to unfollow user")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"ok": true, "following": false}))
}

func (h *FollowHandler) Status(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	following, err := h.followService.IsFollowing(r.Context(), actorID(r, q.Get("followerId")), q.Get("followingId"))
	if err != nil {
		writeError(w, h.log, err, "Failed to check follow status")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"following": following}))
}

type MessageHandler struct {
	messageService *services.MessageService
	log            *zap.Logger
}

func NewMessageHandler(messageService *services.MessageService, log *zap.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		log:            log,
	}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w)
		return
	}
	req.SenderID = actorID(r, req.SenderID)
	req.SenderRole = actorRole(r, req.SenderRole)

	msg, err := h.messageService.Send(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to send message")
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(map[string]any{"message": msg}))
}

func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !canActFor(w, r, userID) {
		return
	}

	msgs, err := h.messageService.Thread(r.Context(), userID, r.URL.Query().Get("conversationWith"))
	if err != nil {
		writeError(w, h.log, err, "Failed to list messages")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"messages": msgs}))
}

func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !canActFor(w, r, userID) {
		return
	}

	convs, err := h.messageService.Conversations(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err, "Failed to list conversations")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"conversations": convs}))
}

func (h *MessageHandler) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !canActFor(w, r, userID) {
		return
	}

	updated, err := h.messageService.MarkConversationRead(r.Context(), userID, chi.URLParam(r, "otherUserId"))
	if err != nil {
		writeError(w, h.log, err, "Failed to mark conversation read")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"updated": updated}))
}
