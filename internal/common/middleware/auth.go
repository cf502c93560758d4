package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"giveaway-bot/internal/common/errors"
)

const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken only lets through requests carrying token in
// X-Admin-Token. An empty token disables the routes it guards.
func RequireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(AdminTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			SendError(c, errors.NewForbiddenError("Admin token required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
