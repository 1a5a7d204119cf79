package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/video-worker/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Video{},
		&types.Job{},
		&types.Scene{},
		&types.Frame{},
		&types.TranscriptSegment{},
		&types.FrameCaption{},
	)
}

func EnsureQueueIndexes(db *gorm.DB) error {
	// Partial index keeps the FIFO claim scan cheap once done jobs pile up.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_jobs_pending_created_at
		ON jobs (created_at)
		WHERE status = 'pending';
	`).Error; err != nil {
		return fmt.Errorf("create idx_jobs_pending_created_at: %w", err)
	}
	return nil
}

func EnsureVectorIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_transcript_segments_embedding
		ON transcript_segments
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100);
	`).Error; err != nil {
		return fmt.Errorf("create idx_transcript_segments_embedding: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_frame_captions_embedding
		ON frame_captions
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100);
	`).Error; err != nil {
		return fmt.Errorf("create idx_frame_captions_embedding: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureQueueIndexes(s.db); err != nil {
		s.log.Error("Queue index migration failed", "error", err)
		return err
	}
	if err := EnsureVectorIndexes(s.db); err != nil {
		s.log.Error("Vector index migration failed", "error", err)
		return err
	}
	return nil
}
