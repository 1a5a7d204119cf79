package catalog

import (
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/faults"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

type CaptionRepo interface {
	// BulkInsert ignores rows whose id already exists, so re-analyzing
	// frames after a crash is a no-op.
	BulkInsert(dbc dbctx.Context, captions []*types.FrameCaption) error
	ListByVideo(dbc dbctx.Context, videoID string) ([]*types.FrameCaption, error)
	// CapturedFrameIDs returns the frame ids that already have a caption,
	// letting the vision stage skip finished frames on resume.
	CapturedFrameIDs(dbc dbctx.Context, videoID string) (map[string]bool, error)
	ListMissingEmbedding(dbc dbctx.Context, videoID string) ([]*types.FrameCaption, error)
	SetEmbedding(dbc dbctx.Context, id string, embedding pgvector.Vector) error
	CountByVideo(dbc dbctx.Context, videoID string) (int64, error)
}

type captionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCaptionRepo(db *gorm.DB, baseLog *logger.Logger) CaptionRepo {
	return &captionRepo{
		db:  db,
		log: baseLog.With("repo", "CaptionRepo"),
	}
}

func (r *captionRepo) BulkInsert(dbc dbctx.Context, captions []*types.FrameCaption) error {
	if len(captions) == 0 {
		return nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(&captions).Error
}

func (r *captionRepo) ListByVideo(dbc dbctx.Context, videoID string) ([]*types.FrameCaption, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.FrameCaption
	if err := transaction.WithContext(dbc.Ctx).
		Where("video_id = ?", videoID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *captionRepo) CapturedFrameIDs(dbc dbctx.Context, videoID string) (map[string]bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []string
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.FrameCaption{}).
		Where("video_id = ?", videoID).
		Pluck("frame_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *captionRepo) ListMissingEmbedding(dbc dbctx.Context, videoID string) ([]*types.FrameCaption, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.FrameCaption
	if err := transaction.WithContext(dbc.Ctx).
		Where("video_id = ? AND embedding IS NULL", videoID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *captionRepo) SetEmbedding(dbc dbctx.Context, id string, embedding pgvector.Vector) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.FrameCaption{}).
		Where("id = ?", id).
		Update("embedding", embedding)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return faults.ErrNotFound
	}
	return nil
}

func (r *captionRepo) CountByVideo(dbc dbctx.Context, videoID string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.FrameCaption{}).
		Where("video_id = ?", videoID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
