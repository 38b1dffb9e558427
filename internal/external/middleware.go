package external

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenMiddleware guards the integration API with a static list of
// bearer tokens handed out to upstream systems (ERP exports and the
// like). Staff JWTs are not accepted here.
func TokenMiddleware(tokens []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}
		presented := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		for _, t := range tokens {
			if t != "" && subtle.ConstantTimeCompare([]byte(presented), []byte(t)) == 1 {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		c.Abort()
	}
}
