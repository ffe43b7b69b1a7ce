package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curalink/backend/internal/models"
)

const testSecret = "test-secret"

func identityHandler(t *testing.T, wantID string, wantRole models.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantID, GetUserID(r.Context()))
		assert.Equal(t, wantRole, GetUserRole(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestOptionalAuth(t *testing.T) {
	valid, err := IssueToken(testSecret, time.Hour, "u1", models.RoleResearcher)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, -time.Hour, "u1", models.RoleResearcher)
	require.NoError(t, err)
	foreign, err := IssueToken("other-secret", time.Hour, "u1", models.RoleResearcher)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantID     string
		wantRole   models.Role
	}{
		{name: "anonymous", wantStatus: http.StatusNoContent},
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusNoContent, wantID: "u1", wantRole: models.RoleResearcher},
		{name: "expired token", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized},
		{name: "bad scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			OptionalAuth(testSecret)(identityHandler(t, tt.wantID, tt.wantRole)).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestParseTokenRoundTrip(t *testing.T) {
	token, err := IssueToken(testSecret, time.Minute, "u9", models.RolePatient)
	require.NoError(t, err)

	id, role, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "u9", id)
	assert.Equal(t, models.RolePatient, role)
}
