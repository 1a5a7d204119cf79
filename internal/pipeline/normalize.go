package pipeline

import (
	"context"
	"fmt"
	"os"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/faults"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

// normalize transcodes the upload into the canonical 720p/30fps mp4 and
// records the normalized path plus duration. Already-normalized videos
// pass through untouched.
func (p *Pipeline) normalize(ctx context.Context, dbc dbctx.Context, log *logger.Logger, video *types.Video) (*types.Video, error) {
	if video.NormalizedPath != nil && *video.NormalizedPath != "" && video.DurationSec != nil {
		log.Debug("normalize skipped, already done")
		return video, nil
	}

	srcPath := p.deps.Layout.Resolve(video.OriginalPath)
	if _, err := os.Stat(srcPath); err != nil {
		return nil, faults.Fatal(fmt.Errorf("original file missing at %s: %w", srcPath, err))
	}

	outPath := p.deps.Layout.NormalizedPath(video.ID)
	if err := os.MkdirAll(p.deps.Layout.ProcessedVideoDir(video.ID), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir processed dir: %w", err)
	}
	// Subprocess failures are retryable; only a missing input is fatal.
	if err := p.deps.Transcoder.Transcode(ctx, srcPath, outPath); err != nil {
		return nil, faults.Transient(err)
	}

	dur, err := p.deps.Transcoder.Duration(ctx, outPath)
	if err != nil {
		return nil, faults.Transient(err)
	}
	if dur <= 0 {
		return nil, faults.Fatal(fmt.Errorf("normalized video has non-positive duration %f", dur))
	}

	if err := p.deps.Videos.SetNormalized(dbc, video.ID, outPath, dur); err != nil {
		return nil, err
	}

	updated := *video
	updated.NormalizedPath = &outPath
	updated.DurationSec = &dur
	return &updated, nil
}
