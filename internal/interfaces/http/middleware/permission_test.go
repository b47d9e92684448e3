package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fintrack/backend/internal/infrastructure/auth"
	"github.com/fintrack/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequireAnyPermission(t *testing.T) {
	newRouter := func(claims *auth.Claims) *gin.Engine {
		router := gin.New()
		router.Use(func(c *gin.Context) {
			if claims != nil {
				c.Set(JWTClaimsKey, claims)
			}
			c.Next()
		})
		router.Use(RequireAnyPermission(nil, auth.PermissionSyncAdmin))
		router.POST("/sync/bulk", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return router
	}

	tests := []struct {
		name     string
		claims   *auth.Claims
		expected int
		code     string
	}{
		{"admin allowed", &auth.Claims{UserID: "u1", Permissions: []string{auth.PermissionSyncAdmin}}, http.StatusOK, ""},
		{"reader denied", &auth.Claims{UserID: "u2", Permissions: []string{auth.PermissionSyncRead}}, http.StatusForbidden, dto.ErrCodeForbidden},
		{"no claims", nil, http.StatusUnauthorized, dto.ErrCodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newRouter(tt.claims).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sync/bulk", nil))

			assert.Equal(t, tt.expected, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeError(t, w).Code)
			}
		})
	}
}
