package jobs

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/faults"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

// maxErrorLen caps the stored failure message so provider stack traces do
// not bloat the jobs table.
const maxErrorLen = 500

type PeekedJob struct {
	ID        string          `json:"id"`
	VideoID   string          `json:"video_id"`
	Status    types.JobStatus `json:"status"`
	Attempts  int             `json:"attempts"`
	VideoName string          `json:"video_name,omitempty"`
}

type JobRepo interface {
	Create(dbc dbctx.Context, job *types.Job) error
	GetByID(dbc dbctx.Context, id string) (*types.Job, error)
	// ClaimNext atomically moves the oldest pending job to processing,
	// increments attempts, and marks its video processing. Concurrent
	// claimers skip each other's locked rows. Returns faults.ErrQueueEmpty
	// when no pending job exists.
	ClaimNext(dbc dbctx.Context) (*types.Job, error)
	// Complete marks the job done and its video ready in one transaction.
	Complete(dbc dbctx.Context, jobID, videoID string) error
	// Fail marks the job failed with a truncated message. The video row is
	// not touched; it stays processing so an operator can retry manually.
	Fail(dbc dbctx.Context, jobID, errMsg string) error
	// Reset returns the job to pending so another claim can pick it up.
	// Attempts are preserved; the triggering error is recorded.
	Reset(dbc dbctx.Context, jobID, errMsg string) error
	// Peek lists the oldest pending jobs joined with their video names.
	Peek(dbc dbctx.Context, limit int) ([]PeekedJob, error)
	PendingCount(dbc dbctx.Context) (int64, error)
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{
		db:  db,
		log: baseLog.With("repo", "JobRepo"),
	}
}

func (r *jobRepo) Create(dbc dbctx.Context, job *types.Job) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(job).Error
}

func (r *jobRepo) GetByID(dbc dbctx.Context, id string) (*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.Job
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, faults.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) ClaimNext(dbc dbctx.Context) (*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var claimed *types.Job
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var job types.Job
		qErr := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", types.JobPending).
			Order("created_at ASC").
			First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return faults.ErrQueueEmpty
		}
		if qErr != nil {
			return qErr
		}
		if uErr := txx.Model(&types.Job{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":     types.JobProcessing,
				"attempts":   gorm.Expr("attempts + 1"),
				"updated_at": gorm.Expr("now()"),
			}).Error; uErr != nil {
			return uErr
		}
		if uErr := txx.Model(&types.Video{}).
			Where("id = ?", job.VideoID).
			Updates(map[string]interface{}{
				"status":     types.VideoProcessing,
				"updated_at": gorm.Expr("now()"),
			}).Error; uErr != nil {
			return uErr
		}
		job.Status = types.JobProcessing
		job.Attempts++
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRepo) Complete(dbc dbctx.Context, jobID, videoID string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Model(&types.Job{}).
			Where("id = ?", jobID).
			Updates(map[string]interface{}{
				"status":     types.JobDone,
				"error":      nil,
				"updated_at": gorm.Expr("now()"),
			}).Error; err != nil {
			return err
		}
		return txx.Model(&types.Video{}).
			Where("id = ?", videoID).
			Updates(map[string]interface{}{
				"status":     types.VideoReady,
				"updated_at": gorm.Expr("now()"),
			}).Error
	})
}

func (r *jobRepo) Fail(dbc dbctx.Context, jobID, errMsg string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":     types.JobFailed,
			"error":      truncate(errMsg, maxErrorLen),
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

func (r *jobRepo) Reset(dbc dbctx.Context, jobID, errMsg string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	updates := map[string]interface{}{
		"status":     types.JobPending,
		"updated_at": gorm.Expr("now()"),
	}
	if errMsg != "" {
		updates["error"] = truncate(errMsg, maxErrorLen)
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Where("id = ?", jobID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return faults.ErrNotFound
	}
	return nil
}

func (r *jobRepo) Peek(dbc dbctx.Context, limit int) ([]PeekedJob, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 10
	}
	var out []PeekedJob
	err := transaction.WithContext(dbc.Ctx).
		Table("jobs").
		Select("jobs.id, jobs.video_id, jobs.status, jobs.attempts, videos.original_name AS video_name").
		Joins("LEFT JOIN videos ON videos.id = jobs.video_id").
		Where("jobs.status = ?", types.JobPending).
		Order("jobs.created_at ASC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRepo) PendingCount(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Where("status = ?", types.JobPending).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
