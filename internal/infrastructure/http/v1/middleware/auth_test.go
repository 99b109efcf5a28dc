package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "novaerp/internal/core/context"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*appctx.UserContext, error) {
	switch token {
	case "cashier":
		return &appctx.UserContext{UserID: "u-1", Roles: []string{"cashier"}}, nil
	case "admin":
		return &appctx.UserContext{UserID: "u-2", IsAdmin: true}, nil
	}
	return nil, errors.New("bad token")
}

func newAuthEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/me", Auth(stubValidator{}), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	r.GET("/inventory", Auth(stubValidator{}), RequireRole("inventory"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuth(t *testing.T) {
	r := newAuthEngine()

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"no header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic cashier", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ""},
		{"lowercase scheme", "bearer cashier", http.StatusOK, "u-1"},
		{"valid", "Bearer cashier", http.StatusOK, "u-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := newAuthEngine()

	tests := map[string]int{
		"cashier": http.StatusForbidden,
		"admin":   http.StatusNoContent,
	}
	for token, status := range tests {
		t.Run(token, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/inventory", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, status, w.Code)
		})
	}
}
