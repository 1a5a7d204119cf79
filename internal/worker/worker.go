package worker

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/yungbote/video-worker/internal/data/repos/jobs"
	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/faults"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

// Runner processes one claimed job end to end.
type Runner interface {
	Run(ctx context.Context, job *types.Job) error
}

type Config struct {
	PollInterval      time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	MaxAttempts       int
}

// Worker drives the claim loop: poll with multiplicative backoff while the
// queue is empty, process claimed jobs one at a time, and map each outcome
// onto the job row.
type Worker struct {
	source Source
	jobs   jobs.JobRepo
	runner Runner
	log    *logger.Logger
	cfg    Config
}

func New(source Source, jobRepo jobs.JobRepo, runner Runner, logg *logger.Logger, cfg Config) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 1500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 12 * time.Second
	}
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = 1.5
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		source: source,
		jobs:   jobRepo,
		runner: runner,
		log:    logg.With("component", "Worker"),
		cfg:    cfg,
	}
}

// Run loops until ctx is canceled. A job in flight when cancellation hits
// is released back to pending so another worker can claim it.
func (w *Worker) Run(ctx context.Context) error {
	delay := w.cfg.PollInterval
	for {
		if ctx.Err() != nil {
			w.log.Info("worker stopped")
			return nil
		}

		job, err := w.source.Claim(ctx)
		if errors.Is(err, faults.ErrQueueEmpty) {
			if !sleepCtx(ctx, delay) {
				w.log.Info("worker stopped")
				return nil
			}
			delay = nextBackoff(delay, w.cfg.BackoffMultiplier, w.cfg.MaxBackoff)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				w.log.Info("worker stopped")
				return nil
			}
			w.log.Warn("claim failed", "error", err)
			if !sleepCtx(ctx, delay) {
				return nil
			}
			delay = nextBackoff(delay, w.cfg.BackoffMultiplier, w.cfg.MaxBackoff)
			continue
		}

		// Work arrived; poll eagerly again afterwards.
		delay = w.cfg.PollInterval
		w.log.Info("CLAIMED", "job_id", job.ID, "video_id", job.VideoID, "attempts", job.Attempts)
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *types.Job) {
	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = faults.Invariantf("panic in pipeline: %v\n%s", r, debug.Stack())
			}
		}()
		runErr = w.runner.Run(ctx, job)
	}()

	// Outcome writes use a fresh context so a canceled run can still
	// release its job.
	bg := dbctx.Context{Ctx: context.Background()}
	log := w.log.With("job_id", job.ID, "video_id", job.VideoID)

	switch {
	case runErr == nil:
		if err := w.jobs.Complete(bg, job.ID, job.VideoID); err != nil {
			log.Error("failed to mark job done", "error", err)
			return
		}
		log.Info("READY")

	case ctx.Err() != nil:
		if err := w.jobs.Reset(bg, job.ID, "released on shutdown"); err != nil {
			log.Error("failed to release job on shutdown", "error", err)
			return
		}
		log.Info("job released to pending on shutdown")

	case faults.IsFatal(runErr) || job.Attempts >= w.cfg.MaxAttempts:
		if err := w.jobs.Fail(bg, job.ID, runErr.Error()); err != nil {
			log.Error("failed to mark job failed", "error", err)
			return
		}
		log.Error("FAILED", "attempts", job.Attempts, "error", runErr)

	default:
		if err := w.jobs.Reset(bg, job.ID, runErr.Error()); err != nil {
			log.Error("failed to reset job for retry", "error", err)
			return
		}
		log.Warn("job reset for retry", "attempts", job.Attempts, "max_attempts", w.cfg.MaxAttempts, "error", runErr)
	}
}

func nextBackoff(cur time.Duration, mult float64, max time.Duration) time.Duration {
	next := time.Duration(float64(cur) * mult)
	if next > max {
		return max
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
