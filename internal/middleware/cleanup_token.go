package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/vapor-share-api/pkg/errors"
	"github.com/noah-isme/vapor-share-api/pkg/response"
)

// CleanupToken guards the sweep trigger with a static bearer token. An empty token leaves
// the endpoint open, which matches schedulers that cannot send headers.
func CleanupToken(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			c.Next()
			return
		}
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}
