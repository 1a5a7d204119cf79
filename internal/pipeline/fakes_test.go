package pipeline

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/pgvector/pgvector-go"

	"github.com/yungbote/video-worker/internal/clients/openai"
	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/media"
	"github.com/yungbote/video-worker/internal/platform/dbctx"
	"github.com/yungbote/video-worker/internal/platform/faults"
)

// memStore is a conflict-ignoring in-memory stand-in for the Postgres
// repos, shared by the fake repo facades below.
type memStore struct {
	mu sync.Mutex

	videos   map[string]*types.Video
	scenes   map[string]*types.Scene             // video_id|idx
	frames   map[string]*types.Frame             // id
	segments map[string]*types.TranscriptSegment // video_id|t_start|t_end
	captions map[string]*types.FrameCaption      // id

	segmentEmbeds map[string]bool
	captionEmbeds map[string]bool

	captionBatches [][]string // insert order per BulkInsert call
}

func newMemStore() *memStore {
	return &memStore{
		videos:        map[string]*types.Video{},
		scenes:        map[string]*types.Scene{},
		frames:        map[string]*types.Frame{},
		segments:      map[string]*types.TranscriptSegment{},
		captions:      map[string]*types.FrameCaption{},
		segmentEmbeds: map[string]bool{},
		captionEmbeds: map[string]bool{},
	}
}

type memVideos struct{ s *memStore }

func (r memVideos) Create(_ dbctx.Context, v *types.Video) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.videos[v.ID] = v
	return nil
}

func (r memVideos) GetByID(_ dbctx.Context, id string) (*types.Video, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.videos[id]
	if !ok {
		return nil, faults.ErrNotFound
	}
	copied := *v
	return &copied, nil
}

func (r memVideos) GetSourcePath(dbc dbctx.Context, id string) (string, error) {
	v, err := r.GetByID(dbc, id)
	if err != nil {
		return "", err
	}
	if v.NormalizedPath != nil && *v.NormalizedPath != "" {
		return *v.NormalizedPath, nil
	}
	return v.OriginalPath, nil
}

func (r memVideos) SetNormalized(_ dbctx.Context, id, path string, dur float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.videos[id]
	if !ok {
		return faults.ErrNotFound
	}
	v.NormalizedPath = &path
	v.DurationSec = &dur
	return nil
}

func (r memVideos) SetStatus(_ dbctx.Context, id string, st types.VideoStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.videos[id]
	if !ok {
		return faults.ErrNotFound
	}
	v.Status = st
	return nil
}

type memScenes struct{ s *memStore }

func sceneKey(videoID string, idx int) string { return fmt.Sprintf("%s|%d", videoID, idx) }

func (r memScenes) BulkInsert(_ dbctx.Context, rows []*types.Scene) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range rows {
		k := sceneKey(row.VideoID, row.Idx)
		if _, exists := r.s.scenes[k]; exists {
			continue
		}
		r.s.scenes[k] = row
	}
	return nil
}

func (r memScenes) ListByVideo(_ dbctx.Context, videoID string) ([]*types.Scene, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*types.Scene
	for _, sc := range r.s.scenes {
		if sc.VideoID == videoID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Idx < out[j].Idx })
	return out, nil
}

func (r memScenes) CountByVideo(dbc dbctx.Context, videoID string) (int64, error) {
	rows, _ := r.ListByVideo(dbc, videoID)
	return int64(len(rows)), nil
}

type memFrames struct{ s *memStore }

func (r memFrames) BulkInsert(_ dbctx.Context, rows []*types.Frame) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range rows {
		if _, exists := r.s.frames[row.ID]; exists {
			continue
		}
		r.s.frames[row.ID] = row
	}
	return nil
}

func (r memFrames) ListByVideo(_ dbctx.Context, videoID string) ([]*types.Frame, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*types.Frame
	for _, f := range r.s.frames {
		if f.VideoID == videoID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TFrame < out[j].TFrame })
	return out, nil
}

func (r memFrames) CountByVideo(dbc dbctx.Context, videoID string) (int64, error) {
	rows, _ := r.ListByVideo(dbc, videoID)
	return int64(len(rows)), nil
}

type memSegments struct{ s *memStore }

func segmentKey(videoID string, start, end float64) string {
	return fmt.Sprintf("%s|%f|%f", videoID, start, end)
}

func (r memSegments) BulkInsert(_ dbctx.Context, rows []*types.TranscriptSegment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range rows {
		k := segmentKey(row.VideoID, row.TStart, row.TEnd)
		if _, exists := r.s.segments[k]; exists {
			continue
		}
		r.s.segments[k] = row
	}
	return nil
}

func (r memSegments) ListByVideo(_ dbctx.Context, videoID string) ([]*types.TranscriptSegment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*types.TranscriptSegment
	for _, seg := range r.s.segments {
		if seg.VideoID == videoID {
			out = append(out, seg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TStart < out[j].TStart })
	return out, nil
}

func (r memSegments) ListMissingEmbedding(dbc dbctx.Context, videoID string) ([]*types.TranscriptSegment, error) {
	all, _ := r.ListByVideo(dbc, videoID)
	var out []*types.TranscriptSegment
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, seg := range all {
		if !r.s.segmentEmbeds[seg.ID] {
			out = append(out, seg)
		}
	}
	return out, nil
}

func (r memSegments) SetEmbedding(_ dbctx.Context, id string, _ pgvector.Vector) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.segmentEmbeds[id] = true
	return nil
}

func (r memSegments) CountByVideo(dbc dbctx.Context, videoID string) (int64, error) {
	rows, _ := r.ListByVideo(dbc, videoID)
	return int64(len(rows)), nil
}

type memCaptions struct{ s *memStore }

func (r memCaptions) BulkInsert(_ dbctx.Context, captions []*types.FrameCaption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var batch []string
	for _, c := range captions {
		batch = append(batch, c.ID)
		if _, exists := r.s.captions[c.ID]; exists {
			continue
		}
		r.s.captions[c.ID] = c
	}
	r.s.captionBatches = append(r.s.captionBatches, batch)
	return nil
}

func (r memCaptions) ListByVideo(_ dbctx.Context, videoID string) ([]*types.FrameCaption, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*types.FrameCaption
	for _, c := range r.s.captions {
		if c.VideoID == videoID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memCaptions) CapturedFrameIDs(dbc dbctx.Context, videoID string) (map[string]bool, error) {
	rows, _ := r.ListByVideo(dbc, videoID)
	out := map[string]bool{}
	for _, c := range rows {
		out[c.FrameID] = true
	}
	return out, nil
}

func (r memCaptions) ListMissingEmbedding(dbc dbctx.Context, videoID string) ([]*types.FrameCaption, error) {
	all, _ := r.ListByVideo(dbc, videoID)
	var out []*types.FrameCaption
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range all {
		if !r.s.captionEmbeds[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r memCaptions) SetEmbedding(_ dbctx.Context, id string, _ pgvector.Vector) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.captionEmbeds[id] = true
	return nil
}

func (r memCaptions) CountByVideo(dbc dbctx.Context, videoID string) (int64, error) {
	rows, _ := r.ListByVideo(dbc, videoID)
	return int64(len(rows)), nil
}

// ---- media / client fakes ----

type fakeTranscoder struct {
	mu             sync.Mutex
	transcodes     int
	audioExtracts  int
	durationProbes int
	duration       float64
	transcodeErr   error
	audioErr       error
}

func (f *fakeTranscoder) Transcode(_ context.Context, _, outPath string) error {
	f.mu.Lock()
	f.transcodes++
	f.mu.Unlock()
	if f.transcodeErr != nil {
		return f.transcodeErr
	}
	return os.WriteFile(outPath, []byte("mp4"), 0o644)
}

func (f *fakeTranscoder) ExtractAudio(_ context.Context, _, outPath string) error {
	f.mu.Lock()
	f.audioExtracts++
	f.mu.Unlock()
	if f.audioErr != nil {
		return f.audioErr
	}
	return os.WriteFile(outPath, []byte("wav"), 0o644)
}

func (f *fakeTranscoder) Duration(_ context.Context, _ string) (float64, error) {
	f.mu.Lock()
	f.durationProbes++
	f.mu.Unlock()
	return f.duration, nil
}

type fakeDetector struct {
	calls     int
	intervals []media.Interval
}

func (f *fakeDetector) DetectScenes(_ context.Context, _ string, _, _ float64) ([]media.Interval, error) {
	f.calls++
	return f.intervals, nil
}

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	fail  map[int]bool // 0-based call index -> fail
}

func (f *fakeExtractor) ExtractFrameAt(_ context.Context, _ string, _ float64, outPath string) error {
	f.mu.Lock()
	n := f.calls
	f.calls++
	f.mu.Unlock()
	if f.fail[n] {
		return fmt.Errorf("extraction failed for candidate %d", n)
	}
	return os.WriteFile(outPath, []byte("jpg"), 0o644)
}

type fakeHasher struct {
	mu     sync.Mutex
	hashes []string
	next   int
}

func (f *fakeHasher) Hash(_ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next >= len(f.hashes) {
		return "0000000000000000", nil
	}
	h := f.hashes[f.next]
	f.next++
	return h, nil
}

func (f *fakeHasher) Distance(a, b string) (int, error) {
	return media.HammingDistanceHex(a, b)
}

type fakeTranscriber struct {
	calls      int
	transcript *openai.Transcript
	err        error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string) (*openai.Transcript, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.transcript, nil
}

type fakeCaptioner struct {
	mu        sync.Mutex
	calls     int
	failPath  map[string]bool // image path -> always fail
	failAll   bool
	failFirst int // fail this many calls before succeeding
}

func (f *fakeCaptioner) AnalyzeFrame(_ context.Context, imagePath string) (*types.FrameAnalysis, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.failAll || f.failPath[imagePath] || n <= f.failFirst {
		return nil, fmt.Errorf("vision provider error for %s", imagePath)
	}
	return &types.FrameAnalysis{
		Caption: "a frame",
		Controls: []types.UIControl{
			{Type: "button", Label: "Save", Position: "bottom-right"},
		},
		TextOnScreen: []types.TextOnScreen{
			{Text: "Settings", Position: "top"},
		},
	}, nil
}

type fakeEmbedder struct {
	mu         sync.Mutex
	calls      int
	batchSizes []int
	dims       int
}

func (f *fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.batchSizes = append(f.batchSizes, len(inputs))
	f.mu.Unlock()
	dims := f.dims
	if dims == 0 {
		dims = embedDims
	}
	out := make([][]float32, len(inputs))
	for i := range out {
		out[i] = make([]float32, dims)
		out[i][0] = float32(i + 1)
	}
	return out, nil
}
