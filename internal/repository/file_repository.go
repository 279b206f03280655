package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/vapor-share-api/internal/models"
)

// ErrDuplicateAccessCode is returned by Create when another unclaimed record holds the code.
var ErrDuplicateAccessCode = errors.New("access code already in use")

const uniqueViolation = "23505"

const fileColumns = `id, user_id, original_filename, file_size, mime_type, storage_object_id, storage_url, access_code, created_at, expires_at, is_accessed, accessed_at, sender_email, recipient_email, deleted`

// FileRepository persists shared file records. Every time comparison uses the database clock.
type FileRepository struct {
	db *sqlx.DB
}

// NewFileRepository creates a new instance of FileRepository.
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// CodeInUse reports whether an unclaimed record holds the code. Expired but unclaimed rows
// count because the unique index covers them too.
func (r *FileRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM files WHERE access_code = $1 AND is_accessed = FALSE)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, fmt.Errorf("check access code: %w", err)
	}
	return exists, nil
}

// Create inserts a record whose expiry is computed from NOW().
func (r *FileRepository) Create(ctx context.Context, rec models.NewFileRecord) (*models.FileRecord, error) {
	const query = `INSERT INTO files (id, user_id, original_filename, file_size, mime_type, storage_object_id, storage_url, access_code, sender_email, recipient_email, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW() + ($11 * INTERVAL '1 second'))
RETURNING ` + fileColumns
	var file models.FileRecord
	err := r.db.GetContext(ctx, &file, query,
		rec.ID,
		rec.UserID,
		rec.OriginalFilename,
		rec.FileSize,
		rec.MimeType,
		rec.StorageObjectID,
		rec.StorageURL,
		rec.AccessCode,
		rec.SenderEmail,
		rec.RecipientEmail,
		int64(rec.Retention.Seconds()),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicateAccessCode
		}
		return nil, fmt.Errorf("create file record: %w", err)
	}
	return &file, nil
}

// FindLiveByCode returns the unclaimed, unexpired record for the code or sql.ErrNoRows.
func (r *FileRepository) FindLiveByCode(ctx context.Context, code string) (*models.FileRecord, error) {
	const query = `SELECT ` + fileColumns + ` FROM files WHERE access_code = $1 AND is_accessed = FALSE AND expires_at > NOW() LIMIT 1`
	var file models.FileRecord
	if err := r.db.GetContext(ctx, &file, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find file by code: %w", err)
	}
	return &file, nil
}

// Claim flips is_accessed in a single conditional update. Of any number of concurrent
// callers at most one gets the row back; the rest get sql.ErrNoRows.
func (r *FileRepository) Claim(ctx context.Context, code string) (*models.FileRecord, error) {
	const query = `UPDATE files SET is_accessed = TRUE, accessed_at = NOW()
WHERE access_code = $1 AND is_accessed = FALSE AND expires_at > NOW()
RETURNING ` + fileColumns
	var file models.FileRecord
	if err := r.db.GetContext(ctx, &file, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("claim file: %w", err)
	}
	return &file, nil
}

// ListSweepCandidates pages through claimed or expired records that still reference a
// blob, ordered by (created_at, id) after the cursor.
func (r *FileRepository) ListSweepCandidates(ctx context.Context, after models.SweepCursor, limit int) ([]models.SweepCandidate, error) {
	var (
		rows []models.SweepCandidate
		err  error
	)
	if after.ID == "" {
		const query = `SELECT id, storage_object_id, created_at FROM files
WHERE (expires_at < NOW() OR is_accessed = TRUE) AND storage_object_id IS NOT NULL
ORDER BY created_at, id LIMIT $1`
		err = r.db.SelectContext(ctx, &rows, query, limit)
	} else {
		const query = `SELECT id, storage_object_id, created_at FROM files
WHERE (expires_at < NOW() OR is_accessed = TRUE) AND storage_object_id IS NOT NULL AND (created_at, id) > ($1, $2)
ORDER BY created_at, id LIMIT $3`
		err = r.db.SelectContext(ctx, &rows, query, after.CreatedAt, after.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list sweep candidates: %w", err)
	}
	return rows, nil
}

// ClearBlobReference scrubs the blob pointer once the blob is gone. It only touches the row
// while it still points at objectID and reports whether it did.
func (r *FileRepository) ClearBlobReference(ctx context.Context, id, objectID string) (bool, error) {
	const query = `UPDATE files SET storage_object_id = NULL, storage_url = NULL, deleted = TRUE WHERE id = $1 AND storage_object_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, objectID)
	if err != nil {
		return false, fmt.Errorf("clear blob reference: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("clear blob reference: %w", err)
	}
	return affected > 0, nil
}
