package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewService("secret")
	token, err := svc.IssueToken("user_1", time.Hour)
	require.NoError(t, err)

	userID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", userID)
}

func TestValidateRejects(t *testing.T) {
	svc := NewService("secret")

	expired, err := svc.IssueToken("user_1", -time.Minute)
	require.NoError(t, err)
	other, err := NewService("other").IssueToken("user_1", time.Hour)
	require.NoError(t, err)
	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong secret", other},
		{"missing subject", noSub},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestDisabledService(t *testing.T) {
	svc := NewService("")
	assert.False(t, svc.Enabled())
	_, err := svc.ValidateToken("anything")
	assert.ErrorIs(t, err, ErrDisabled)

	var called bool
	h := svc.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Empty(t, UserIDFromContext(r.Context()))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/mask/composite", nil))
	assert.True(t, called)
}

func TestAuthMiddleware(t *testing.T) {
	svc := NewService("secret")
	token, err := svc.IssueToken("user_42", time.Hour)
	require.NoError(t, err)

	h := svc.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserIDFromContext(r.Context())))
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "user_42", rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), "error")
			}
		})
	}
}
