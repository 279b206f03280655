package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/vapor-share-api/pkg/errors"
	"github.com/noah-isme/vapor-share-api/pkg/response"
	"github.com/noah-isme/vapor-share-api/pkg/storage"
)

type blobOpener interface {
	Open(token string) (*os.File, error)
}

// BlobHandler streams blobs kept by the local provider.
type BlobHandler struct {
	store blobOpener
}

// NewBlobHandler constructs a BlobHandler.
func NewBlobHandler(store blobOpener) *BlobHandler {
	return &BlobHandler{store: store}
}

// Serve godoc
// @Summary Download a locally stored blob through a signed token
// @Tags Files
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 404 {object} response.ErrorBody
// @Router /blobs/{token} [get]
func (h *BlobHandler) Serve(c *gin.Context) {
	file, err := h.store.Open(c.Param("token"))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			response.Error(c, appErrors.ErrBlobNotFound)
			return
		}
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrBlobNotFound, ""))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInternal, ""))
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", "attachment; filename=\""+originalName(info.Name())+"\"")
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}

// originalName strips the unix timestamp prefix added by storage.ObjectKey.
func originalName(stored string) string {
	base := filepath.Base(stored)
	for i := 0; i < len(base); i++ {
		if base[i] == '_' {
			return base[i+1:]
		}
		if base[i] < '0' || base[i] > '9' {
			break
		}
	}
	return base
}
