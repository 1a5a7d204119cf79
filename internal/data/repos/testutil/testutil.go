package testutil

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("ERROR")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			dbErr = errMissingDSN
			return
		}

		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			dbErr = err
			return
		}

		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
			dbErr = err
			return
		}

		if err := autoMigrateAll(db); err != nil {
			dbErr = err
			return
		}
	})

	if errors.Is(dbErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run repo integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

// SeedVideo inserts a fresh video row and returns it. The id is unique per
// call so tests sharing a database do not collide.
func SeedVideo(tb testing.TB, tx *gorm.DB) *types.Video {
	tb.Helper()
	v := &types.Video{
		ID:           "vid_" + uuid.NewString(),
		OriginalName: "clip.mp4",
		OriginalPath: "/app/data/uploads/clip.mp4",
		Status:       types.VideoUploaded,
	}
	if err := tx.Create(v).Error; err != nil {
		tb.Fatalf("seed video: %v", err)
	}
	return v
}

// SeedJob inserts a pending job for the video. offset orders jobs by age so
// FIFO assertions are deterministic.
func SeedJob(tb testing.TB, tx *gorm.DB, videoID string, offset time.Duration) *types.Job {
	tb.Helper()
	j := &types.Job{
		ID:        fmt.Sprintf("job_%s", uuid.NewString()),
		VideoID:   videoID,
		Status:    types.JobPending,
		CreatedAt: time.Now().Add(offset),
	}
	if err := tx.Create(j).Error; err != nil {
		tb.Fatalf("seed job: %v", err)
	}
	return j
}

func autoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Video{},
		&types.Job{},
		&types.Scene{},
		&types.Frame{},
		&types.TranscriptSegment{},
		&types.FrameCaption{},
	)
}
