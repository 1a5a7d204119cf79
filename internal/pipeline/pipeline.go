package pipeline

import (
	"context"
	"fmt"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

// Pipeline runs the six stages for one claimed job. Every stage is
// idempotent: it checks persisted state before doing work, so a job that
// died mid-run resumes where it left off on the next claim.
type Pipeline struct {
	deps Deps
	log  *logger.Logger
}

func New(deps Deps) *Pipeline {
	return &Pipeline{
		deps: deps,
		log:  deps.Log.With("component", "Pipeline"),
	}
}

// Run processes the job's video through normalize, transcribe, scenes,
// frames, vision, and embeddings. The returned error carries a faults
// classification the job controller maps to retry or fail.
func (p *Pipeline) Run(ctx context.Context, job *types.Job) error {
	dbc := dbctx.Context{Ctx: ctx}
	log := p.log.With("job_id", job.ID, "video_id", job.VideoID)

	video, err := p.deps.Videos.GetByID(dbc, job.VideoID)
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}

	video, err = p.normalize(ctx, dbc, log, video)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	log.Info("NORMALIZED", "path", deref(video.NormalizedPath), "duration_sec", deref(video.DurationSec))

	if err := p.transcribe(ctx, dbc, log, video); err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	scenes, err := p.scenes(ctx, dbc, log, video)
	if err != nil {
		return fmt.Errorf("scenes: %w", err)
	}

	frames, err := p.frames(ctx, dbc, log, video, scenes)
	if err != nil {
		return fmt.Errorf("frames: %w", err)
	}

	if err := p.vision(ctx, dbc, log, video, frames); err != nil {
		return fmt.Errorf("vision: %w", err)
	}

	if err := p.embed(ctx, dbc, log, video); err != nil {
		return fmt.Errorf("embeddings: %w", err)
	}

	return nil
}

// sourcePath picks the normalized file when it exists, otherwise the
// upload, resolved against the data root.
func (p *Pipeline) sourcePath(video *types.Video) string {
	if video.NormalizedPath != nil && *video.NormalizedPath != "" {
		return p.deps.Layout.Resolve(*video.NormalizedPath)
	}
	return p.deps.Layout.Resolve(video.OriginalPath)
}

func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
