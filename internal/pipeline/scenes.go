package pipeline

import (
	"context"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/faults"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

// scenes detects cut points and persists dense, monotonic scene rows that
// tile the video's duration. Reruns reuse the persisted rows.
func (p *Pipeline) scenes(ctx context.Context, dbc dbctx.Context, log *logger.Logger, video *types.Video) ([]*types.Scene, error) {
	existing, err := p.deps.Scenes.ListByVideo(dbc, video.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		log.Info("SCENES", "count", len(existing), "resumed", true)
		return existing, nil
	}

	duration := 0.0
	if video.DurationSec != nil {
		duration = *video.DurationSec
	}
	if duration <= 0 {
		return nil, faults.Invariantf("scene detection before duration is known for video %s", video.ID)
	}

	src := p.sourcePath(video)
	intervals, err := p.deps.SceneDetector.DetectScenes(ctx, src, duration, p.deps.Config.SceneThreshold)
	if err != nil {
		return nil, faults.Transient(err)
	}

	rows := make([]*types.Scene, 0, len(intervals))
	prevEnd := 0.0
	for i, iv := range intervals {
		if iv.Start != prevEnd || iv.End <= iv.Start {
			return nil, faults.Invariantf("scene %d of video %s is not monotonic: [%f, %f) after end %f", i, video.ID, iv.Start, iv.End, prevEnd)
		}
		prevEnd = iv.End
		rows = append(rows, &types.Scene{
			ID:      types.SceneID(video.ID, i),
			VideoID: video.ID,
			Idx:     i,
			TStart:  iv.Start,
			TEnd:    iv.End,
		})
	}

	if err := p.deps.Scenes.BulkInsert(dbc, rows); err != nil {
		return nil, err
	}

	log.Info("SCENES", "count", len(rows))
	return rows, nil
}
