package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/faults"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

const defaultVisionConcurrency = 5

var visionValidate = validator.New()

// vision captions every frame that does not have a caption yet, a bounded
// number at a time. One frame failing skips that frame; when the
// concurrent pass yields nothing, the remaining frames get one sequential
// pass before the stage is declared retryable. Captions are persisted in
// frame order as a single batch.
func (p *Pipeline) vision(ctx context.Context, dbc dbctx.Context, log *logger.Logger, video *types.Video, frames []*types.Frame) error {
	if !p.deps.Config.EnableVisionAnalysis {
		log.Info("VISION", "skipped", "disabled")
		return nil
	}
	if len(frames) == 0 {
		log.Info("VISION", "captions", 0)
		return nil
	}

	captured, err := p.deps.Captions.CapturedFrameIDs(dbc, video.ID)
	if err != nil {
		return err
	}
	var pending []*types.Frame
	for _, f := range frames {
		if !captured[f.ID] {
			pending = append(pending, f)
		}
	}
	if len(pending) == 0 {
		log.Info("VISION", "captions", len(frames), "resumed", true)
		return nil
	}

	limit := p.deps.Config.VisionMaxConcurrent
	if limit <= 0 {
		limit = defaultVisionConcurrency
	}

	// Slots are indexed by pending position so the insert below keeps
	// frame order regardless of completion order.
	results := make([]*types.FrameCaption, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, frame := range pending {
		i, frame := i, frame
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			caption, err := p.buildCaption(gctx, frame)
			if err != nil {
				log.Warn("frame analysis skipped", "frame_id", frame.ID, "error", err)
				return nil
			}
			results[i] = caption
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return faults.Transient(err)
	}

	if captionCount(results) == 0 && ctx.Err() == nil {
		log.Warn("concurrent vision dispatch produced no captions, retrying sequentially", "pending", len(pending))
		for i, frame := range pending {
			if results[i] != nil {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			caption, err := p.buildCaption(ctx, frame)
			if err != nil {
				log.Warn("frame analysis skipped", "frame_id", frame.ID, "error", err)
				continue
			}
			results[i] = caption
		}
	}

	captions := make([]*types.FrameCaption, 0, len(results))
	for _, c := range results {
		if c != nil {
			captions = append(captions, c)
		}
	}
	if len(captions) == 0 {
		return faults.Transient(fmt.Errorf("vision analysis failed for all %d pending frames", len(pending)))
	}

	if err := p.deps.Captions.BulkInsert(dbc, captions); err != nil {
		return err
	}

	log.Info("VISION", "captions", len(captions), "pending", len(pending))
	return nil
}

func captionCount(results []*types.FrameCaption) int {
	n := 0
	for _, c := range results {
		if c != nil {
			n++
		}
	}
	return n
}

// buildCaption analyzes one frame, retrying once when the payload does
// not fit the schema.
func (p *Pipeline) buildCaption(ctx context.Context, frame *types.Frame) (*types.FrameCaption, error) {
	analysis, err := p.analyzeValidated(ctx, frame.Path)
	if err != nil {
		// One local retry covers flaky structured outputs.
		analysis, err = p.analyzeValidated(ctx, frame.Path)
		if err != nil {
			return nil, err
		}
	}

	entities, err := json.Marshal(map[string]any{
		"controls":       analysis.Controls,
		"text_on_screen": analysis.TextOnScreen,
	})
	if err != nil {
		return nil, err
	}

	return &types.FrameCaption{
		ID:       types.CaptionID(frame.ID),
		FrameID:  frame.ID,
		VideoID:  frame.VideoID,
		Caption:  analysis.Caption,
		Entities: entities,
	}, nil
}

func (p *Pipeline) analyzeValidated(ctx context.Context, imagePath string) (*types.FrameAnalysis, error) {
	analysis, err := p.deps.Captioner.AnalyzeFrame(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	if err := visionValidate.Struct(analysis); err != nil {
		return nil, fmt.Errorf("frame analysis failed validation: %w", err)
	}
	return analysis, nil
}
