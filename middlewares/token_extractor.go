package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// ExtractToken pulls the table session token from the Authorization
// header or, failing that, the token query parameter. The QR flow
// uses the header; older client builds pass ?token=.
func ExtractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return c.Query("token")
}
