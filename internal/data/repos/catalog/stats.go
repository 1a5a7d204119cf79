package catalog

import (
	"gorm.io/gorm"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

// Stats is the aggregate snapshot served by the diagnostic HTTP surface.
type Stats struct {
	Videos   map[string]int64 `json:"videos"`
	Jobs     map[string]int64 `json:"jobs"`
	Scenes   int64            `json:"scenes"`
	Frames   int64            `json:"frames"`
	Segments int64            `json:"segments"`
	Captions int64            `json:"captions"`
}

type StatsRepo interface {
	Snapshot(dbc dbctx.Context) (*Stats, error)
}

type statsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStatsRepo(db *gorm.DB, baseLog *logger.Logger) StatsRepo {
	return &statsRepo{
		db:  db,
		log: baseLog.With("repo", "StatsRepo"),
	}
}

type statusCount struct {
	Status string
	N      int64
}

func (r *statsRepo) Snapshot(dbc dbctx.Context) (*Stats, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	db := transaction.WithContext(dbc.Ctx)

	out := &Stats{
		Videos: map[string]int64{},
		Jobs:   map[string]int64{},
	}

	var rows []statusCount
	if err := db.Model(&types.Video{}).
		Select("status, count(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out.Videos[row.Status] = row.N
	}

	rows = rows[:0]
	if err := db.Model(&types.Job{}).
		Select("status, count(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out.Jobs[row.Status] = row.N
	}

	if err := db.Model(&types.Scene{}).Count(&out.Scenes).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&types.Frame{}).Count(&out.Frames).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&types.TranscriptSegment{}).Count(&out.Segments).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&types.FrameCaption{}).Count(&out.Captions).Error; err != nil {
		return nil, err
	}
	return out, nil
}
