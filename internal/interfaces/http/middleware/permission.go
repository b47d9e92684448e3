package middleware

import (
	"net/http"

	"github.com/fintrack/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequireAnyPermission creates middleware that requires any of the specified
// permissions. It must run after JWT authentication.
func RequireAnyPermission(log *zap.Logger, permissions ...string) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", c.GetString(RequestIDKey)))
			return
		}

		if !claims.HasAnyPermission(permissions...) {
			log.Warn("Permission denied",
				zap.String("user_id", claims.UserID),
				zap.Strings("required_any", permissions),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Permission denied", c.GetString(RequestIDKey)))
			return
		}

		c.Next()
	}
}
