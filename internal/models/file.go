package models

import "time"

// FileRecord is the persisted metadata of one shared file.
type FileRecord struct {
	ID               string     `db:"id" json:"id"`
	UserID           string     `db:"user_id" json:"user_id"`
	OriginalFilename string     `db:"original_filename" json:"original_filename"`
	FileSize         int64      `db:"file_size" json:"file_size"`
	MimeType         string     `db:"mime_type" json:"mime_type"`
	StorageObjectID  *string    `db:"storage_object_id" json:"-"`
	StorageURL       *string    `db:"storage_url" json:"-"`
	AccessCode       string     `db:"access_code" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt        time.Time  `db:"expires_at" json:"expires_at"`
	IsAccessed       bool       `db:"is_accessed" json:"is_accessed"`
	AccessedAt       *time.Time `db:"accessed_at" json:"accessed_at,omitempty"`
	SenderEmail      *string    `db:"sender_email" json:"sender_email,omitempty"`
	RecipientEmail   *string    `db:"recipient_email" json:"recipient_email,omitempty"`
	Deleted          bool       `db:"deleted" json:"deleted"`
}

// NewFileRecord carries the caller-supplied columns of an insert. Timestamps come from
// the database clock.
type NewFileRecord struct {
	ID               string
	UserID           string
	OriginalFilename string
	FileSize         int64
	MimeType         string
	StorageObjectID  string
	StorageURL       string
	AccessCode       string
	Retention        time.Duration
	SenderEmail      *string
	RecipientEmail   *string
}

// FileMetadata is what a code holder may see before claiming.
type FileMetadata struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mimeType"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Metadata projects the public view of the record.
func (f *FileRecord) Metadata() FileMetadata {
	return FileMetadata{
		ID:        f.ID,
		Filename:  f.OriginalFilename,
		Size:      f.FileSize,
		MimeType:  f.MimeType,
		ExpiresAt: f.ExpiresAt,
	}
}

// SweepCandidate is a terminal record that still references a blob.
type SweepCandidate struct {
	ID              string    `db:"id"`
	StorageObjectID string    `db:"storage_object_id"`
	CreatedAt       time.Time `db:"created_at"`
}

// SweepCursor marks the last candidate of a page; the zero value starts from the oldest.
type SweepCursor struct {
	CreatedAt time.Time
	ID        string
}

// UploadResult is returned to the uploader.
type UploadResult struct {
	AccessCode string    `json:"accessCode"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	FileID     string    `json:"fileId"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// ClaimResult is returned to the single successful claimant.
type ClaimResult struct {
	File        FileMetadata `json:"file"`
	DownloadURL string       `json:"downloadUrl"`
}

// SweepResult summarises one cleanup run.
type SweepResult struct {
	Candidates int           `json:"candidates"`
	Deleted    int           `json:"deleted"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
}
