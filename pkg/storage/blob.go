package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/noah-isme/vapor-share-api/pkg/config"
)

// ErrObjectNotFound is returned by providers that distinguish an absent object. Delete
// implementations swallow it so deletion stays idempotent.
var ErrObjectNotFound = errors.New("object not found")

// PutInput describes a blob to store.
type PutInput struct {
	Key         string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Object identifies a stored blob.
type Object struct {
	// ID is the opaque reference passed back to Delete.
	ID string
	// URL is where the recipient downloads the blob.
	URL string
}

// BlobStore is the object storage abstraction used by uploads, claims and the sweeper.
type BlobStore interface {
	Put(ctx context.Context, in PutInput) (Object, error)
	// Delete removes the blob. An already absent blob is not an error.
	Delete(ctx context.Context, objectID string) error
	Provider() string
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeFilename replaces every character outside [a-zA-Z0-9.-] with an underscore.
func SanitizeFilename(name string) string {
	return unsafeKeyChars.ReplaceAllString(name, "_")
}

// ObjectKey builds the storage key <folder>/<owner>/<record id>/<unix-ts>_<sanitized name>.
// The record id keeps two uploads of the same name in the same second apart.
func ObjectKey(folder, ownerID, recordID string, at time.Time, filename string) string {
	name := fmt.Sprintf("%d_%s", at.Unix(), SanitizeFilename(filename))
	parts := make([]string, 0, 4)
	if folder = strings.Trim(folder, "/"); folder != "" {
		parts = append(parts, folder)
	}
	parts = append(parts, SanitizeFilename(ownerID), SanitizeFilename(recordID), name)
	return strings.Join(parts, "/")
}

// NewBlobStore builds the provider selected by cfg.Blob.Provider.
func NewBlobStore(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	httpClient := &http.Client{Timeout: cfg.Blob.HTTPTimeout}

	switch cfg.Blob.Provider {
	case config.BlobProviderCloudinary:
		return NewCloudinaryStore(cfg.Blob.Cloudinary, httpClient)
	case config.BlobProviderS3:
		return NewS3Store(ctx, cfg.Blob.S3, cfg.Files.Retention, httpClient)
	case config.BlobProviderLocal:
		signer := NewSignedURLSigner(cfg.Blob.Local.SignedURLSecret, cfg.Files.Retention)
		baseURL := cfg.PublicBaseURL + strings.TrimRight(cfg.APIPrefix, "/") + "/blobs"
		return NewLocalStorage(cfg.Blob.Local.Dir, signer, baseURL)
	default:
		return nil, fmt.Errorf("unknown blob provider: %s", cfg.Blob.Provider)
	}
}
