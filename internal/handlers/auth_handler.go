package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/curalink/backend/internal/middleware"
	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/services"
)

type AuthHandler struct {
	userService   *services.UserService
	jwtSecret     string
	jwtExpiration time.Duration
	log           *zap.Logger
}

func NewAuthHandler(userService *services.UserService, jwtSecret string, jwtExpiration time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService:   userService,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		log:           log,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w)
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to register user")
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w)
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "Login failed")
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

// UpdateProfile replaces the caller's medical interests.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateInterestsRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w)
		return
	}
	req.UserID = actorID(r, req.UserID)

	user, err := h.userService.UpdateInterests(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "Failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]any{"user": user}))
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user *models.User) {
	token, err := middleware.IssueToken(h.jwtSecret, h.jwtExpiration, user.ID, user.Role)
	if err != nil {
		h.log.Error("sign token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to generate token"))
		return
	}

	writeJSON(w, status, models.NewSuccessResponse(models.AuthResponse{
		Token: token,
		User:  *user,
	}))
}
