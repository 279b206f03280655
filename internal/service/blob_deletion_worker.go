package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/vapor-share-api/pkg/jobs"
	"github.com/noah-isme/vapor-share-api/pkg/storage"
)

// JobTypeBlobDelete identifies queued deletions of claimed blobs.
const JobTypeBlobDelete = "blob.delete"

// BlobDeletePayload is the payload of a JobTypeBlobDelete job.
type BlobDeletePayload struct {
	FileID   string
	ObjectID string
}

type blobReferenceStore interface {
	ClearBlobReference(ctx context.Context, id, objectID string) (bool, error)
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

// BlobDeletionWorker deletes claimed blobs off the request path and scrubs the record's
// blob reference afterwards.
type BlobDeletionWorker struct {
	blobs   storage.BlobStore
	files   blobReferenceStore
	metrics *MetricsService
	logger  *zap.Logger
}

// NewBlobDeletionWorker constructs a BlobDeletionWorker.
func NewBlobDeletionWorker(blobs storage.BlobStore, files blobReferenceStore, metrics *MetricsService, logger *zap.Logger) *BlobDeletionWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlobDeletionWorker{blobs: blobs, files: files, metrics: metrics, logger: logger}
}

// Handle implements jobs.Handler. Returning an error makes the queue retry the job.
func (w *BlobDeletionWorker) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(BlobDeletePayload)
	if !ok {
		w.logger.Error("unexpected blob deletion payload", zap.String("job_id", job.ID), zap.Any("payload", job.Payload))
		return nil
	}

	err := w.blobs.Delete(ctx, payload.ObjectID)
	w.metrics.RecordBlobDeletion(deletionSourceClaim, err)
	if err != nil {
		return fmt.Errorf("delete blob %s: %w", payload.ObjectID, err)
	}

	if _, err := w.files.ClearBlobReference(ctx, payload.FileID, payload.ObjectID); err != nil {
		return fmt.Errorf("clear blob reference %s: %w", payload.FileID, err)
	}

	w.logger.Info("claimed blob deleted", zap.String("file_id", payload.FileID), zap.Int("attempt", job.Attempt))
	return nil
}

// OnDrop logs a deletion that ran out of retries.
func (w *BlobDeletionWorker) OnDrop(job jobs.Job, err error) {
	w.logger.Warn("blob deletion abandoned, sweeper will retry", zap.String("job_id", job.ID), zap.Error(err))
}

// BlobDeletionScheduler hands claimed blobs to the deletion queue without blocking.
type BlobDeletionScheduler struct {
	queue jobEnqueuer
}

// NewBlobDeletionScheduler constructs a BlobDeletionScheduler.
func NewBlobDeletionScheduler(queue jobEnqueuer) *BlobDeletionScheduler {
	return &BlobDeletionScheduler{queue: queue}
}

// Schedule enqueues a deletion. A full or stopped queue is reported to the caller.
func (s *BlobDeletionScheduler) Schedule(fileID, objectID string) error {
	return s.queue.TryEnqueue(jobs.Job{
		Type:    JobTypeBlobDelete,
		Payload: BlobDeletePayload{FileID: fileID, ObjectID: objectID},
	})
}
