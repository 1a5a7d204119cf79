package pipeline

import (
	"context"

	"github.com/yungbote/video-worker/internal/clients/openai"
	"github.com/yungbote/video-worker/internal/data/repos/catalog"
	"github.com/yungbote/video-worker/internal/data/repos/videos"
	types "github.com/yungbote/video-worker/internal/domain"
	"github.com/yungbote/video-worker/internal/media"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

// Transcoder covers the ffmpeg operations the normalize stage needs.
type Transcoder interface {
	Transcode(ctx context.Context, videoPath, outPath string) error
	ExtractAudio(ctx context.Context, videoPath, outPath string) error
	Duration(ctx context.Context, videoPath string) (float64, error)
}

// SceneDetector yields intervals tiling [0, duration).
type SceneDetector interface {
	DetectScenes(ctx context.Context, videoPath string, duration, threshold float64) ([]media.Interval, error)
}

// FrameExtractor grabs one frame at a timestamp.
type FrameExtractor interface {
	ExtractFrameAt(ctx context.Context, videoPath string, t float64, outPath string) error
}

// Hasher computes and compares perceptual hashes. The stored form is a
// 16-char hex string.
type Hasher interface {
	Hash(imagePath string) (string, error)
	Distance(a, b string) (int, error)
}

// Transcriber turns an audio file into timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*openai.Transcript, error)
}

// Captioner returns the structured analysis of one frame image.
type Captioner interface {
	AnalyzeFrame(ctx context.Context, imagePath string) (*types.FrameAnalysis, error)
}

// Embedder returns one vector per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Config is the per-run tuning the pipeline honors.
type Config struct {
	MaxFramesPerVideo   int
	VisionMaxConcurrent int
	SceneThreshold      float64
	HammingThreshold    int

	EnableTranscription  bool
	EnableVisionAnalysis bool
	EnableEmbeddings     bool
}

// Deps bundles everything a pipeline run touches. Tests swap in fakes.
type Deps struct {
	Videos   videos.VideoRepo
	Scenes   catalog.SceneRepo
	Frames   catalog.FrameRepo
	Segments catalog.SegmentRepo
	Captions catalog.CaptionRepo

	Transcoder     Transcoder
	SceneDetector  SceneDetector
	FrameExtractor FrameExtractor
	Hasher         Hasher
	Transcriber    Transcriber
	Captioner      Captioner
	Embedder       Embedder

	Layout media.Layout
	Log    *logger.Logger
	Config Config
}

// MediaHasher is the production Hasher backed by the media package.
type MediaHasher struct{}

func (MediaHasher) Hash(imagePath string) (string, error) {
	return media.PerceptualHash(imagePath)
}

func (MediaHasher) Distance(a, b string) (int, error) {
	return media.HammingDistanceHex(a, b)
}
