package videos

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/faults"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

type VideoRepo interface {
	Create(dbc dbctx.Context, video *types.Video) error
	GetByID(dbc dbctx.Context, id string) (*types.Video, error)
	// GetSourcePath returns the path the pipeline should read from: the
	// normalized copy when one exists, the original upload otherwise.
	GetSourcePath(dbc dbctx.Context, id string) (string, error)
	SetNormalized(dbc dbctx.Context, id string, normalizedPath string, durationSec float64) error
	SetStatus(dbc dbctx.Context, id string, status types.VideoStatus) error
}

type videoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return &videoRepo{
		db:  db,
		log: baseLog.With("repo", "VideoRepo"),
	}
}

func (r *videoRepo) Create(dbc dbctx.Context, video *types.Video) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(video).Error
}

func (r *videoRepo) GetByID(dbc dbctx.Context, id string) (*types.Video, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var video types.Video
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&video).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, faults.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *videoRepo) GetSourcePath(dbc dbctx.Context, id string) (string, error) {
	video, err := r.GetByID(dbc, id)
	if err != nil {
		return "", err
	}
	if video.NormalizedPath != nil && *video.NormalizedPath != "" {
		return *video.NormalizedPath, nil
	}
	return video.OriginalPath, nil
}

func (r *videoRepo) SetNormalized(dbc dbctx.Context, id string, normalizedPath string, durationSec float64) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Video{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"normalized_path": normalizedPath,
			"duration_sec":    durationSec,
			"updated_at":      gorm.Expr("now()"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return faults.ErrNotFound
	}
	return nil
}

func (r *videoRepo) SetStatus(dbc dbctx.Context, id string, status types.VideoStatus) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Video{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": gorm.Expr("now()"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return faults.ErrNotFound
	}
	return nil
}
