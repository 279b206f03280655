package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vapor-share-api/pkg/response"
)

type attemptLimiter interface {
	Allow(ctx context.Context, clientKey string) error
	RecordFailure(ctx context.Context, clientKey string)
}

// AttemptLimit rejects clients that collected too many unknown-code responses and counts
// every 404 produced downstream against the client IP.
func AttemptLimit(limiter attemptLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		clientKey := c.ClientIP()
		if err := limiter.Allow(c.Request.Context(), clientKey); err != nil {
			response.Error(c, err)
			return
		}

		c.Next()

		if c.Writer.Status() == http.StatusNotFound {
			limiter.RecordFailure(c.Request.Context(), clientKey)
		}
	}
}
