package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docchat/internal/pkg/errcode"
	"github.com/xxxsen/docchat/internal/pkg/response"
)

const ContextUserIDKey = "user_id"

// Identity binds every request to a caller identity. Authentication is
// handled upstream (gateway or reverse proxy); this service trusts the
// forwarded X-User-Id header.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if userID == "" {
			response.Error(c, errcode.ErrUnauthorized, "user identity required")
			c.Abort()
			return
		}
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}
