package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/curalink/backend/internal/middleware"
	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/services"
	"github.com/curalink/backend/internal/storage"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeError maps service errors onto HTTP statuses. Unexpected errors are
// logged and reported with the generic message.
func writeError(w http.ResponseWriter, log *zap.Logger, err error, message string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(verr.Fields))
	case errors.Is(err, services.ErrSelfFollow):
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Cannot follow yourself"))
	case errors.Is(err, services.ErrForbidden):
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Forbidden"))
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Not found"))
	case errors.Is(err, services.ErrDuplicateUser):
		writeJSON(w, http.StatusConflict, models.NewErrorResponse("User with this email and role already exists"))
	case errors.Is(err, storage.ErrConflict):
		writeJSON(w, http.StatusConflict, models.NewErrorResponse("Concurrent update, please retry"))
	case errors.Is(err, services.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid email or password"))
	default:
		log.Error(message, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse(message))
	}
}

// actorID is the authenticated caller when there is one, otherwise the id
// the client supplied.
func actorID(r *http.Request, supplied string) string {
	if id := middleware.GetUserID(r.Context()); id != "" {
		return id
	}
	return supplied
}

func actorRole(r *http.Request, supplied models.Role) models.Role {
	if role := middleware.GetUserRole(r.Context()); role.Valid() {
		return role
	}
	return supplied
}

// canActFor rejects authenticated callers acting on another user's data.
func canActFor(w http.ResponseWriter, r *http.Request, userID string) bool {
	if id := middleware.GetUserID(r.Context()); id != "" && id != userID {
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Forbidden"))
		return false
	}
	return true
}

func badBody(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
}
