package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"

	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/faults"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

const defaultMaxFrames = 50

// SelectCandidateIndices spreads k picks evenly across n ordered
// candidates. The first and last candidates are always included; rounding
// collisions collapse, so fewer than k indices can come back.
func SelectCandidateIndices(n, k int) []int {
	if n <= 0 || k <= 0 {
		return nil
	}
	if k >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	if k == 1 {
		return []int{0}
	}

	seen := make(map[int]bool, k)
	out := make([]int, 0, k)
	for i := 0; i < k; i++ {
		idx := int(math.Round(float64(i) * float64(n-1) / float64(k-1)))
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}

// frames samples one keyframe per selected scene midpoint, drops
// perceptual near-duplicates, and persists the survivors with dense
// indexes. Reruns reuse the persisted rows.
func (p *Pipeline) frames(ctx context.Context, dbc dbctx.Context, log *logger.Logger, video *types.Video, scenes []*types.Scene) ([]*types.Frame, error) {
	existing, err := p.deps.Frames.ListByVideo(dbc, video.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		log.Info("FRAMES", "count", len(existing), "resumed", true)
		return existing, nil
	}
	if len(scenes) == 0 {
		log.Warn("no scenes, skipping frame sampling")
		return nil, nil
	}

	src := p.sourcePath(video)

	maxFrames := p.deps.Config.MaxFramesPerVideo
	if maxFrames <= 0 {
		maxFrames = defaultMaxFrames
	}
	picks := SelectCandidateIndices(len(scenes), maxFrames)

	framesDir := p.deps.Layout.FramesDir(video.ID)
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir frames dir: %w", err)
	}

	var (
		rows     []*types.Frame
		accepted []string // phashes of kept frames
		skipped  int
	)
	threshold := p.deps.Config.HammingThreshold

	for pos, sceneIdx := range picks {
		if ctx.Err() != nil {
			return nil, faults.Transient(ctx.Err())
		}
		scene := scenes[sceneIdx]
		mid := scene.TStart + (scene.TEnd-scene.TStart)/2

		framePath := p.deps.Layout.FramePath(video.ID, scene.Idx)
		if err := p.deps.FrameExtractor.ExtractFrameAt(ctx, src, mid, framePath); err != nil {
			log.Warn("frame extraction failed, skipping candidate", "scene_idx", scene.Idx, "t", mid, "error", err)
			skipped++
			continue
		}

		hash, err := p.deps.Hasher.Hash(framePath)
		if err != nil {
			log.Warn("frame hashing failed, skipping candidate", "scene_idx", scene.Idx, "error", err)
			_ = os.Remove(framePath)
			skipped++
			continue
		}

		// First and last picks anchor the video and bypass dedup.
		anchor := pos == 0 || pos == len(picks)-1
		if !anchor && isNearDuplicate(p.deps.Hasher, hash, accepted, threshold) {
			_ = os.Remove(framePath)
			continue
		}

		idx := len(rows)
		accepted = append(accepted, hash)
		rows = append(rows, &types.Frame{
			ID:       types.FrameID(video.ID, idx),
			VideoID:  video.ID,
			SceneID:  scene.ID,
			SceneIdx: scene.Idx,
			TFrame:   mid,
			Path:     framePath,
			Phash:    hash,
		})
	}

	if len(rows) == 0 {
		if skipped > 0 {
			return nil, faults.Transient(fmt.Errorf("all %d frame candidates failed extraction", skipped))
		}
		log.Warn("no frames sampled")
		return nil, nil
	}

	if err := p.deps.Frames.BulkInsert(dbc, rows); err != nil {
		return nil, err
	}

	log.Info("FRAMES", "count", len(rows), "candidates", len(picks), "skipped", skipped)
	return rows, nil
}

// isNearDuplicate reports whether hash sits within the Hamming threshold
// of any already-accepted hash.
func isNearDuplicate(h Hasher, hash string, accepted []string, threshold int) bool {
	for _, prev := range accepted {
		d, err := h.Distance(hash, prev)
		if err != nil {
			continue
		}
		if d <= threshold {
			return true
		}
	}
	return false
}
