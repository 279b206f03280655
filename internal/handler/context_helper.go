package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vapor-share-api/internal/middleware"
	"github.com/noah-isme/vapor-share-api/internal/models"
	appErrors "github.com/noah-isme/vapor-share-api/pkg/errors"
	"github.com/noah-isme/vapor-share-api/pkg/response"
)

// currentSender returns the authenticated caller. It writes a 401 and reports false
// when the JWT middleware left no usable claims behind.
func currentSender(c *gin.Context) (*models.JWTClaims, bool) {
	value, _ := c.Get(middleware.ContextUserKey)
	claims, ok := value.(*models.JWTClaims)
	if !ok || claims.UserID() == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}
