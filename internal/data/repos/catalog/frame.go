package catalog

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

type FrameRepo interface {
	// BulkInsert ignores rows whose id already exists. Frame IDs are
	// deterministic, so reruns collide on purpose.
	BulkInsert(dbc dbctx.Context, frames []*types.Frame) error
	ListByVideo(dbc dbctx.Context, videoID string) ([]*types.Frame, error)
	CountByVideo(dbc dbctx.Context, videoID string) (int64, error)
}

type frameRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFrameRepo(db *gorm.DB, baseLog *logger.Logger) FrameRepo {
	return &frameRepo{
		db:  db,
		log: baseLog.With("repo", "FrameRepo"),
	}
}

func (r *frameRepo) BulkInsert(dbc dbctx.Context, frames []*types.Frame) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(frames) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(&frames).Error
}

func (r *frameRepo) ListByVideo(dbc dbctx.Context, videoID string) ([]*types.Frame, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Frame
	if err := transaction.WithContext(dbc.Ctx).
		Where("video_id = ?", videoID).
		Order("t_frame ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *frameRepo) CountByVideo(dbc dbctx.Context, videoID string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Frame{}).
		Where("video_id = ?", videoID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
