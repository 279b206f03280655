package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/vapor-share-api/internal/models"
	"github.com/noah-isme/vapor-share-api/pkg/storage"
)

type sweepFileStore interface {
	ListSweepCandidates(ctx context.Context, after models.SweepCursor, limit int) ([]models.SweepCandidate, error)
	ClearBlobReference(ctx context.Context, id, objectID string) (bool, error)
}

// CleanupConfig tunes the sweeper.
type CleanupConfig struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
	ItemTimeout time.Duration
}

// CleanupService deletes the blobs of claimed or expired records and scrubs their blob
// references. Rows are never deleted.
type CleanupService struct {
	blobs   storage.BlobStore
	files   sweepFileStore
	metrics *MetricsService
	logger  *zap.Logger
	cfg     CleanupConfig

	running sync.Mutex
}

// NewCleanupService constructs a CleanupService.
func NewCleanupService(blobs storage.BlobStore, files sweepFileStore, metrics *MetricsService, logger *zap.Logger, cfg CleanupConfig) *CleanupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = 30 * time.Second
	}
	return &CleanupService{blobs: blobs, files: files, metrics: metrics, logger: logger, cfg: cfg}
}

// Sweep runs one pass over every candidate. Per-item failures are counted and logged; only
// a failure to list candidates aborts the run.
func (s *CleanupService) Sweep(ctx context.Context) (*models.SweepResult, error) {
	// One sweep at a time per process.
	s.running.Lock()
	defer s.running.Unlock()

	start := time.Now()
	result := &models.SweepResult{}
	var cursor models.SweepCursor

	for {
		page, err := s.files.ListSweepCandidates(ctx, cursor, s.cfg.BatchSize)
		if err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("sweep: %w", err)
		}
		if len(page) == 0 {
			break
		}

		deleted, failed := s.sweepPage(ctx, page)
		result.Candidates += len(page)
		result.Deleted += deleted
		result.Failed += failed

		last := page[len(page)-1]
		cursor = models.SweepCursor{CreatedAt: last.CreatedAt, ID: last.ID}
		if len(page) < s.cfg.BatchSize || ctx.Err() != nil {
			break
		}
	}

	result.Duration = time.Since(start)
	s.metrics.ObserveSweep(result.Duration)
	s.logger.Info("cleanup sweep finished",
		zap.Int("candidates", result.Candidates),
		zap.Int("deleted", result.Deleted),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (s *CleanupService) sweepPage(ctx context.Context, page []models.SweepCandidate) (deleted, failed int) {
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)

	for _, candidate := range page {
		candidate := candidate
		g.Go(func() error {
			ok := s.sweepOne(ctx, candidate)
			mu.Lock()
			if ok {
				deleted++
			} else {
				failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return deleted, failed
}

func (s *CleanupService) sweepOne(ctx context.Context, candidate models.SweepCandidate) bool {
	ictx, cancel := context.WithTimeout(ctx, s.cfg.ItemTimeout)
	defer cancel()

	err := s.blobs.Delete(ictx, candidate.StorageObjectID)
	s.metrics.RecordBlobDeletion(deletionSourceSweep, err)
	if err != nil {
		s.logger.Warn("sweep blob delete failed",
			zap.String("file_id", candidate.ID),
			zap.String("object_id", candidate.StorageObjectID),
			zap.Error(err),
		)
		return false
	}

	if _, err := s.files.ClearBlobReference(ictx, candidate.ID, candidate.StorageObjectID); err != nil {
		s.logger.Warn("sweep reference scrub failed", zap.String("file_id", candidate.ID), zap.Error(err))
		return false
	}
	return true
}

// Start runs Sweep on every tick until ctx is cancelled. A non-positive interval disables
// the ticker.
func (s *CleanupService) Start(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil {
					s.logger.Warn("scheduled sweep failed", zap.Error(err))
				}
			}
		}
	}()
	s.logger.Info("cleanup sweeper scheduled", zap.Duration("interval", s.cfg.Interval))
}
