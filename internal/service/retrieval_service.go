package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/vapor-share-api/internal/models"
	appErrors "github.com/noah-isme/vapor-share-api/pkg/errors"
)

type retrievalFileStore interface {
	FindLiveByCode(ctx context.Context, code string) (*models.FileRecord, error)
	Claim(ctx context.Context, code string) (*models.FileRecord, error)
}

type deletionScheduler interface {
	Schedule(fileID, objectID string) error
}

// RetrievalService lets code holders inspect a file and claim it exactly once. Every
// failure mode of a well-formed request surfaces as the same NotFound error.
type RetrievalService struct {
	files     retrievalFileStore
	deletions deletionScheduler
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewRetrievalService constructs a RetrievalService.
func NewRetrievalService(files retrievalFileStore, deletions deletionScheduler, metrics *MetricsService, logger *zap.Logger) *RetrievalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrievalService{files: files, deletions: deletions, metrics: metrics, logger: logger}
}

// Inspect returns the metadata of a live file. It has no side effects.
func (s *RetrievalService) Inspect(ctx context.Context, rawCode string) (*models.FileMetadata, error) {
	code, err := s.normalize(rawCode)
	if err != nil {
		return nil, err
	}

	record, err := s.files.FindLiveByCode(ctx, code)
	if err != nil {
		return nil, s.lookupError(err, "inspect")
	}

	metadata := record.Metadata()
	return &metadata, nil
}

// Claim consumes the file and hands back its download location. The blob is deleted in
// the background; the caller never waits for it.
func (s *RetrievalService) Claim(ctx context.Context, rawCode string) (*models.ClaimResult, error) {
	code, err := s.normalize(rawCode)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			s.metrics.RecordClaim(resultNotFound)
		}
		return nil, err
	}

	record, err := s.files.Claim(ctx, code)
	if err != nil {
		lookupErr := s.lookupError(err, "claim")
		if errors.Is(lookupErr, appErrors.ErrNotFound) {
			s.metrics.RecordClaim(resultNotFound)
		} else {
			s.metrics.RecordClaim(resultFailure)
		}
		return nil, lookupErr
	}
	if record.StorageURL == nil || record.StorageObjectID == nil {
		s.metrics.RecordClaim(resultFailure)
		s.logger.Error("claimed file has no blob reference", zap.String("file_id", record.ID))
		return nil, appErrors.Clone(appErrors.ErrUpstream, "")
	}

	s.metrics.RecordClaim(resultSuccess)
	s.logger.Info("file claimed", zap.String("file_id", record.ID), zap.String("user_id", record.UserID))

	if s.deletions != nil {
		if err := s.deletions.Schedule(record.ID, *record.StorageObjectID); err != nil {
			s.logger.Warn("blob deletion not scheduled, leaving it to the sweeper",
				zap.String("file_id", record.ID), zap.Error(err))
		}
	}

	return &models.ClaimResult{File: record.Metadata(), DownloadURL: *record.StorageURL}, nil
}

func (s *RetrievalService) normalize(rawCode string) (string, error) {
	if strings.TrimSpace(rawCode) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "Access code is required")
	}
	code := NormalizeCode(rawCode)
	if !ValidCodeFormat(code) {
		return "", appErrors.ErrNotFound
	}
	return code, nil
}

func (s *RetrievalService) lookupError(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrNotFound
	}
	s.logger.Error("file lookup failed", zap.String("op", op), zap.Error(err))
	return appErrors.WrapAs(err, appErrors.ErrUpstream, "")
}
