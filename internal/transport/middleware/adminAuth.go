package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const adminTokenHeader = "X-Admin-Token"

// AdminAuth guards the admin surface with a shared token. With no token
// configured the admin API is disabled entirely.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader(adminTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
				"errorInfo": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "missing or invalid admin token",
				},
			})
			return
		}
		c.Next()
	}
}
