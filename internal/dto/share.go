package dto

import "github.com/noah-isme/vapor-share-api/internal/models"

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	Success bool `json:"success"`
	*models.UploadResult
}

// RetrieveRequest asks for the metadata behind an access code.
type RetrieveRequest struct {
	AccessCode string `json:"accessCode" binding:"required"`
}

// RetrieveResponse carries the metadata of a live file.
type RetrieveResponse struct {
	Success bool                `json:"success"`
	File    models.FileMetadata `json:"file"`
}

// CleanupResponse reports a sweep. Cleaned counts candidates; DeletedFromCloudinary counts
// blobs removed, whichever provider is configured.
type CleanupResponse struct {
	Success               bool  `json:"success"`
	Cleaned               int   `json:"cleaned"`
	DeletedFromCloudinary int   `json:"deletedFromCloudinary"`
	Failed                int   `json:"failed"`
	DurationMs            int64 `json:"durationMs"`
}

// NotificationListResponse lists the caller's notifications.
type NotificationListResponse struct {
	Success       bool                  `json:"success"`
	Notifications []models.Notification `json:"notifications"`
}

// SuccessResponse acknowledges a request without a payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}
