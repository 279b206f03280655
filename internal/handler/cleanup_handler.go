package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vapor-share-api/internal/dto"
	"github.com/noah-isme/vapor-share-api/internal/models"
	appErrors "github.com/noah-isme/vapor-share-api/pkg/errors"
	"github.com/noah-isme/vapor-share-api/pkg/response"
)

type cleanupService interface {
	Sweep(ctx context.Context) (*models.SweepResult, error)
}

// CleanupHandler triggers the sweeper on demand.
type CleanupHandler struct {
	service cleanupService
}

// NewCleanupHandler constructs a CleanupHandler.
func NewCleanupHandler(svc cleanupService) *CleanupHandler {
	return &CleanupHandler{service: svc}
}

// Sweep godoc
// @Summary Delete blobs of claimed or expired files
// @Tags Maintenance
// @Produce json
// @Security CleanupToken
// @Success 200 {object} dto.CleanupResponse
// @Failure 401 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /cleanup [post]
func (h *CleanupHandler) Sweep(c *gin.Context) {
	result, err := h.service.Sweep(c.Request.Context())
	if err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInternal, "Cleanup failed"))
		return
	}

	response.OK(c, dto.CleanupResponse{
		Success:               true,
		Cleaned:               result.Candidates,
		DeletedFromCloudinary: result.Deleted,
		Failed:                result.Failed,
		DurationMs:            result.Duration.Milliseconds(),
	})
}
