package catalog

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

type SceneRepo interface {
	// BulkInsert ignores rows whose (video_id, idx) already exist, so a
	// rerun after a partial write never duplicates scenes.
	BulkInsert(dbc dbctx.Context, scenes []*types.Scene) error
	ListByVideo(dbc dbctx.Context, videoID string) ([]*types.Scene, error)
	CountByVideo(dbc dbctx.Context, videoID string) (int64, error)
}

type sceneRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSceneRepo(db *gorm.DB, baseLog *logger.Logger) SceneRepo {
	return &sceneRepo{
		db:  db,
		log: baseLog.With("repo", "SceneRepo"),
	}
}

func (r *sceneRepo) BulkInsert(dbc dbctx.Context, scenes []*types.Scene) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(scenes) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}, {Name: "idx"}},
			DoNothing: true,
		}).
		Create(&scenes).Error
}

func (r *sceneRepo) ListByVideo(dbc dbctx.Context, videoID string) ([]*types.Scene, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Scene
	if err := transaction.WithContext(dbc.Ctx).
		Where("video_id = ?", videoID).
		Order("idx ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sceneRepo) CountByVideo(dbc dbctx.Context, videoID string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Scene{}).
		Where("video_id = ?", videoID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
