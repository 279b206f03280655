package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vapor-share-api/internal/dto"
	"github.com/noah-isme/vapor-share-api/internal/models"
	appErrors "github.com/noah-isme/vapor-share-api/pkg/errors"
	"github.com/noah-isme/vapor-share-api/pkg/response"
)

type retrievalService interface {
	Inspect(ctx context.Context, code string) (*models.FileMetadata, error)
	Claim(ctx context.Context, code string) (*models.ClaimResult, error)
}

// RetrievalHandler serves code holders.
type RetrievalHandler struct {
	service retrievalService
}

// NewRetrievalHandler constructs a RetrievalHandler.
func NewRetrievalHandler(svc retrievalService) *RetrievalHandler {
	return &RetrievalHandler{service: svc}
}

// Inspect godoc
// @Summary Look up the file behind an access code without consuming it
// @Tags Files
// @Accept json
// @Produce json
// @Param payload body dto.RetrieveRequest true "Access code"
// @Success 200 {object} dto.RetrieveResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Failure 429 {object} response.ErrorBody
// @Router /retrieve [post]
func (h *RetrievalHandler) Inspect(c *gin.Context) {
	var req dto.RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "Access code is required"))
		return
	}

	metadata, err := h.service.Inspect(c.Request.Context(), req.AccessCode)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.RetrieveResponse{Success: true, File: *metadata})
}

// Download godoc
// @Summary Claim a file and get redirected to it; the code stops working afterwards
// @Tags Files
// @Param code query string true "Access code"
// @Success 302
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Failure 429 {object} response.ErrorBody
// @Router /retrieve [get]
func (h *RetrievalHandler) Download(c *gin.Context) {
	result, err := h.service.Claim(c.Request.Context(), c.Query("code"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, result.DownloadURL)
}
