package main

import (
	"github.com/spf13/cobra"

	"github.com/noah-isme/vapor-share-api/internal/repository"
	"github.com/noah-isme/vapor-share-api/internal/service"
	"github.com/noah-isme/vapor-share-api/pkg/storage"
)

func newSweepCmd() *cobra.Command {
	var batchSize, concurrency int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete blobs of claimed or expired files once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.cfg.Validate(); err != nil {
				return err
			}
			blobs, err := storage.NewBlobStore(cmd.Context(), e.cfg)
			if err != nil {
				return err
			}

			if batchSize <= 0 {
				batchSize = e.cfg.Cleanup.BatchSize
			}
			if concurrency <= 0 {
				concurrency = e.cfg.Cleanup.Concurrency
			}
			sweeper := service.NewCleanupService(blobs, repository.NewFileRepository(e.db), nil, e.logger, service.CleanupConfig{
				BatchSize:   batchSize,
				Concurrency: concurrency,
			})

			result, err := sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("candidates=%d deleted=%d failed=%d duration=%s\n",
				result.Candidates, result.Deleted, result.Failed, result.Duration)
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "candidates per page (default from CLEANUP_BATCH_SIZE)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel deletions (default from CLEANUP_CONCURRENCY)")
	return cmd
}
