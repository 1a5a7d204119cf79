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

type SegmentRepo interface {
	// BulkInsert ignores rows whose (video_id, t_start, t_end) span already
	// exists. Provider segment indexes can shift between runs; the time span
	// is the stable identity.
	BulkInsert(dbc dbctx.Context, segments []*types.TranscriptSegment) error
	ListByVideo(dbc dbctx.Context, videoID string) ([]*types.TranscriptSegment, error)
	ListMissingEmbedding(dbc dbctx.Context, videoID string) ([]*types.TranscriptSegment, error)
	SetEmbedding(dbc dbctx.Context, id string, embedding pgvector.Vector) error
	CountByVideo(dbc dbctx.Context, videoID string) (int64, error)
}

type segmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSegmentRepo(db *gorm.DB, baseLog *logger.Logger) SegmentRepo {
	return &segmentRepo{
		db:  db,
		log: baseLog.With("repo", "SegmentRepo"),
	}
}

func (r *segmentRepo) BulkInsert(dbc dbctx.Context, segments []*types.TranscriptSegment) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(segments) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}, {Name: "t_start"}, {Name: "t_end"}},
			DoNothing: true,
		}).
		Create(&segments).Error
}

func (r *segmentRepo) ListByVideo(dbc dbctx.Context, videoID string) ([]*types.TranscriptSegment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.TranscriptSegment
	if err := transaction.WithContext(dbc.Ctx).
		Where("video_id = ?", videoID).
		Order("t_start ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *segmentRepo) ListMissingEmbedding(dbc dbctx.Context, videoID string) ([]*types.TranscriptSegment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.TranscriptSegment
	if err := transaction.WithContext(dbc.Ctx).
		Where("video_id = ? AND embedding IS NULL", videoID).
		Order("t_start ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *segmentRepo) SetEmbedding(dbc dbctx.Context, id string, embedding pgvector.Vector) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.TranscriptSegment{}).
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

func (r *segmentRepo) CountByVideo(dbc dbctx.Context, videoID string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.TranscriptSegment{}).
		Where("video_id = ?", videoID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
