package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vapor-share-api/internal/dto"
	"github.com/noah-isme/vapor-share-api/internal/models"
	"github.com/noah-isme/vapor-share-api/internal/service"
	appErrors "github.com/noah-isme/vapor-share-api/pkg/errors"
	"github.com/noah-isme/vapor-share-api/pkg/response"
)

// multipartOverhead is the allowance for boundaries and form fields on top of the file.
const multipartOverhead = 1 << 20

type uploadService interface {
	Upload(ctx context.Context, claims *models.JWTClaims, in service.FileUpload, recipientEmail string) (*models.UploadResult, error)
}

// UploadHandler accepts multipart uploads.
type UploadHandler struct {
	service     uploadService
	maxFileSize int64
}

// NewUploadHandler constructs an UploadHandler.
func NewUploadHandler(svc uploadService, maxFileSize int64) *UploadHandler {
	return &UploadHandler{service: svc, maxFileSize: maxFileSize}
}

// Upload godoc
// @Summary Upload a file and receive a one-time access code
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File to share"
// @Param recipientEmail formData string false "Recipient email"
// @Success 200 {object} dto.UploadResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	claims, ok := currentSender(c)
	if !ok {
		return
	}
	if h.maxFileSize > 0 {
		limit := h.maxFileSize + multipartOverhead
		if c.Request.ContentLength > limit {
			response.Error(c, service.FileTooLargeError(h.maxFileSize))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, service.FileTooLargeError(h.maxFileSize))
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "No file provided"))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrUploadFailed, ""))
		return
	}
	defer file.Close()

	result, err := h.service.Upload(c.Request.Context(), claims, service.FileUpload{
		Filename: header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Content:  file,
	}, c.PostForm("recipientEmail"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.UploadResponse{Success: true, UploadResult: result})
}
