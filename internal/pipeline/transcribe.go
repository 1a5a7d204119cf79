package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/faults"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

// transcribe extracts the audio track, sends it for transcription, and
// persists timed segments. Reruns skip once any segment row exists.
func (p *Pipeline) transcribe(ctx context.Context, dbc dbctx.Context, log *logger.Logger, video *types.Video) error {
	if !p.deps.Config.EnableTranscription {
		log.Info("TRANSCRIBED", "skipped", "disabled")
		return nil
	}

	existing, err := p.deps.Segments.CountByVideo(dbc, video.ID)
	if err != nil {
		return err
	}
	if existing > 0 {
		log.Info("TRANSCRIBED", "segments", existing, "resumed", true)
		return nil
	}

	audioPath := p.deps.Layout.AudioPath(video.ID)
	if _, statErr := os.Stat(audioPath); statErr != nil {
		if err := os.MkdirAll(p.deps.Layout.ProcessedVideoDir(video.ID), 0o755); err != nil {
			return fmt.Errorf("mkdir processed dir: %w", err)
		}
		if err := p.deps.Transcoder.ExtractAudio(ctx, p.sourcePath(video), audioPath); err != nil {
			return faults.Transient(err)
		}
	}

	transcript, err := p.deps.Transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return err
	}

	var rows []*types.TranscriptSegment
	for _, span := range transcript.Segments {
		text := strings.TrimSpace(span.Text)
		if text == "" {
			continue
		}
		rows = append(rows, &types.TranscriptSegment{
			ID:      types.SegmentID(video.ID, len(rows)),
			VideoID: video.ID,
			TStart:  span.Start,
			TEnd:    span.End,
			Text:    text,
		})
	}

	if err := p.deps.Segments.BulkInsert(dbc, rows); err != nil {
		return err
	}

	// The SRT sidecar is a convenience artifact; losing it never fails
	// the job.
	if len(rows) > 0 {
		srtPath := p.deps.Layout.SRTPath(video.ID)
		if err := WriteSRT(srtPath, rows); err != nil {
			log.Warn("SRT sidecar write failed", "path", srtPath, "error", err)
		}
	}

	log.Info("TRANSCRIBED", "segments", len(rows))
	return nil
}
