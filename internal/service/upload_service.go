package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/vapor-share-api/internal/models"
	"github.com/noah-isme/vapor-share-api/internal/repository"
	appErrors "github.com/noah-isme/vapor-share-api/pkg/errors"
	"github.com/noah-isme/vapor-share-api/pkg/storage"
)

type uploadFileStore interface {
	Create(ctx context.Context, rec models.NewFileRecord) (*models.FileRecord, error)
}

type codeIssuer interface {
	Generate(ctx context.Context) (string, error)
}

type recipientDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
}

type notificationWriter interface {
	Create(ctx context.Context, n *models.Notification) error
}

// UploadConfig bounds uploads and shapes stored records.
type UploadConfig struct {
	MaxFileSize         int64
	Retention           time.Duration
	StorageFolder       string
	CodeMaxAttempts     int
	CompensationTimeout time.Duration
}

// FileUpload is one incoming file.
type FileUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// UploadService stores a file, issues its access code and persists the record. A blob
// whose record could not be written is deleted again before returning.
type UploadService struct {
	blobs         storage.BlobStore
	files         uploadFileStore
	codes         codeIssuer
	recipients    recipientDirectory
	notifications notificationWriter
	validator     *validator.Validate
	metrics       *MetricsService
	logger        *zap.Logger
	cfg           UploadConfig
	now           func() time.Time
}

// NewUploadService constructs an UploadService.
func NewUploadService(
	blobs storage.BlobStore,
	files uploadFileStore,
	codes codeIssuer,
	recipients recipientDirectory,
	notifications notificationWriter,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg UploadConfig,
) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.CodeMaxAttempts <= 0 {
		cfg.CodeMaxAttempts = defaultCodeMaxAttempts
	}
	if cfg.CompensationTimeout <= 0 {
		cfg.CompensationTimeout = 30 * time.Second
	}
	return &UploadService{
		blobs:         blobs,
		files:         files,
		codes:         codes,
		recipients:    recipients,
		notifications: notifications,
		validator:     validate,
		metrics:       metrics,
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
	}
}

// Upload runs the full upload flow for an authenticated sender.
func (s *UploadService) Upload(ctx context.Context, claims *models.JWTClaims, in FileUpload, recipientEmail string) (*models.UploadResult, error) {
	if claims.UserID() == "" {
		s.metrics.RecordUpload(resultRejected)
		return nil, appErrors.ErrUnauthorized
	}
	recipientEmail = strings.TrimSpace(recipientEmail)
	if err := s.validate(in, recipientEmail); err != nil {
		s.metrics.RecordUpload(resultRejected)
		return nil, err
	}

	mimeType, err := s.detectMimeType(in)
	if err != nil {
		s.metrics.RecordUpload(resultRejected)
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "Unable to read file")
	}

	userID := claims.UserID()
	recordID := uuid.NewString()
	key := storage.ObjectKey(s.cfg.StorageFolder, userID, recordID, s.now(), in.Filename)
	obj, err := s.blobs.Put(ctx, storage.PutInput{
		Key:         key,
		Filename:    in.Filename,
		ContentType: mimeType,
		Size:        in.Size,
		Body:        in.Content,
	})
	if err != nil {
		s.metrics.RecordUpload(resultFailure)
		s.logger.Error("blob upload failed", zap.String("user_id", userID), zap.String("key", key), zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrUploadFailed, "")
	}

	record, err := s.persist(ctx, models.NewFileRecord{
		ID:               recordID,
		UserID:           userID,
		OriginalFilename: in.Filename,
		FileSize:         in.Size,
		MimeType:         mimeType,
		StorageObjectID:  obj.ID,
		StorageURL:       obj.URL,
		Retention:        s.cfg.Retention,
		SenderEmail:      optionalString(claims.Email),
		RecipientEmail:   optionalString(recipientEmail),
	})
	if err != nil {
		s.metrics.RecordUpload(resultFailure)
		s.compensate(ctx, obj.ID)
		return nil, err
	}

	if recipientEmail != "" {
		s.notifyRecipient(ctx, claims, record, recipientEmail)
	}

	s.metrics.RecordUpload(resultSuccess)
	s.logger.Info("file uploaded",
		zap.String("file_id", record.ID),
		zap.String("user_id", userID),
		zap.Int64("size", record.FileSize),
		zap.String("mime_type", record.MimeType),
		zap.Time("expires_at", record.ExpiresAt),
	)

	return &models.UploadResult{
		AccessCode: record.AccessCode,
		Filename:   record.OriginalFilename,
		Size:       record.FileSize,
		FileID:     record.ID,
		ExpiresAt:  record.ExpiresAt,
	}, nil
}

// FileTooLargeError reports the configured limit in human units.
func FileTooLargeError(max int64) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrFileTooLarge,
		fmt.Sprintf("File too large. Maximum size is %s.", humanize.IBytes(uint64(max))))
}

func (s *UploadService) validate(in FileUpload, recipientEmail string) error {
	if in.Content == nil || in.Size <= 0 || strings.TrimSpace(in.Filename) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "No file provided")
	}
	if in.Size > s.cfg.MaxFileSize {
		return FileTooLargeError(s.cfg.MaxFileSize)
	}
	if recipientEmail != "" {
		if err := s.validator.Var(recipientEmail, "email"); err != nil {
			return appErrors.WrapAs(err, appErrors.ErrValidation, "Invalid recipient email")
		}
	}
	return nil
}

// detectMimeType trusts a specific declared type and sniffs the content otherwise.
func (s *UploadService) detectMimeType(in FileUpload) (string, error) {
	declared := strings.TrimSpace(in.MimeType)
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}
	detected, err := mimetype.DetectReader(in.Content)
	if err != nil {
		return "", fmt.Errorf("sniff content type: %w", err)
	}
	if _, err := in.Content.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind content: %w", err)
	}
	return detected.String(), nil
}

// persist issues a code and inserts the record, drawing a fresh code whenever the insert
// loses a race for the unique index.
func (s *UploadService) persist(ctx context.Context, rec models.NewFileRecord) (*models.FileRecord, error) {
	for attempt := 0; attempt < s.cfg.CodeMaxAttempts; attempt++ {
		code, err := s.codes.Generate(ctx)
		if err != nil {
			s.logger.Error("access code generation failed", zap.String("user_id", rec.UserID), zap.Error(err))
			return nil, err
		}
		rec.AccessCode = code

		record, err := s.files.Create(ctx, rec)
		if err == nil {
			return record, nil
		}
		if errors.Is(err, repository.ErrDuplicateAccessCode) {
			s.logger.Debug("access code taken at insert, retrying", zap.Int("attempt", attempt+1))
			continue
		}
		s.logger.Error("file metadata persist failed", zap.String("user_id", rec.UserID), zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrMetadataPersist, "")
	}
	return nil, appErrors.WrapAs(fmt.Errorf("access code collided %d times", s.cfg.CodeMaxAttempts), appErrors.ErrMetadataPersist, "")
}

// compensate deletes an orphaned blob. Its outcome is only logged.
func (s *UploadService) compensate(ctx context.Context, objectID string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CompensationTimeout)
	defer cancel()

	err := s.blobs.Delete(cctx, objectID)
	s.metrics.RecordBlobDeletion(deletionSourceCompens, err)
	if err != nil {
		s.logger.Error("compensating blob delete failed", zap.String("object_id", objectID), zap.Error(err))
		return
	}
	s.logger.Info("compensating blob delete succeeded", zap.String("object_id", objectID))
}

func (s *UploadService) notifyRecipient(ctx context.Context, claims *models.JWTClaims, record *models.FileRecord, email string) {
	if s.recipients == nil || s.notifications == nil {
		return
	}
	profile, err := s.recipients.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("recipient has no account, skipping notification", zap.String("file_id", record.ID))
			return
		}
		s.logger.Warn("recipient lookup failed, skipping notification", zap.String("file_id", record.ID), zap.Error(err))
		return
	}

	notification := &models.Notification{
		ID:          uuid.NewString(),
		UserID:      profile.ID,
		SenderEmail: optionalString(claims.Email),
		FileCode:    record.AccessCode,
		Filename:    record.OriginalFilename,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Warn("notification insert failed", zap.String("file_id", record.ID), zap.Error(err))
	}
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
