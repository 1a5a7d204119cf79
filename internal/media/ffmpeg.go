package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/video-worker/internal/platform/ctxutil"
	"github.com/yungbote/video-worker/internal/platform/logger"
)

// FFmpegError carries the tool's combined output so failures are
// debuggable from the job error alone.
type FFmpegError struct {
	Op     string
	Err    error
	Output string
}

func (e *FFmpegError) Error() string {
	out := e.Output
	if len(out) > 400 {
		out = out[len(out)-400:]
	}
	return fmt.Sprintf("%s: %v; out=%s", e.Op, e.Err, out)
}

func (e *FFmpegError) Unwrap() error { return e.Err }

// Tools wraps the ffmpeg and ffprobe binaries. Synchronous; call from the
// worker, never from request handlers.
type Tools struct {
	log *logger.Logger

	ffmpegPath  string
	ffprobePath string

	defaultTimeout time.Duration
}

func NewTools(log *logger.Logger) *Tools {
	return &Tools{
		log:            log.With("service", "MediaTools"),
		ffmpegPath:     "ffmpeg",
		ffprobePath:    "ffprobe",
		defaultTimeout: 10 * time.Minute,
	}
}

func (m *Tools) AssertReady(ctx context.Context) error {
	for _, bin := range []string{m.ffmpegPath, m.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	return nil
}

// Transcode writes a normalized copy: capped at 720p height, 30 fps,
// libx264 crf 22, aac audio. Width stays even for the encoder.
func (m *Tools) Transcode(ctx context.Context, videoPath, outPath string) error {
	ctx = ctxutil.Default(ctx)
	if videoPath == "" || outPath == "" {
		return fmt.Errorf("videoPath and outPath required")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("mkdir outPath dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	args := []string{
		"-y",
		"-i", videoPath,
		"-vf", "scale=-2:'min(720,ih)'",
		"-r", "30",
		"-c:v", "libx264",
		"-crf", "22",
		"-preset", "veryfast",
		"-c:a", "aac",
		"-movflags", "+faststart",
		outPath,
	}
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &FFmpegError{Op: "ffmpeg transcode", Err: err, Output: string(out)}
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("normalized output missing at %s", outPath)
	}
	return nil
}

// ExtractAudio writes a 16 kHz mono pcm_s16le WAV, the shape the
// transcription API expects.
func (m *Tools) ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	ctx = ctxutil.Default(ctx)
	if videoPath == "" || outPath == "" {
		return fmt.Errorf("videoPath and outPath required")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("mkdir outPath dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-acodec", "pcm_s16le",
		"-f", "wav",
		outPath,
	}
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &FFmpegError{Op: "ffmpeg extract audio", Err: err, Output: string(out)}
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("audio output missing at %s", outPath)
	}
	return nil
}

// Duration probes the container duration in seconds.
func (m *Tools) Duration(ctx context.Context, videoPath string) (float64, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	}
	cmd := exec.CommandContext(ctx, m.ffprobePath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, &FFmpegError{Op: "ffprobe duration", Err: err, Output: string(out)}
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return dur, nil
}

// ExtractFrameAt grabs a single frame at timestamp t into outPath.
func (m *Tools) ExtractFrameAt(ctx context.Context, videoPath string, t float64, outPath string) error {
	ctx = ctxutil.Default(ctx)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("mkdir outPath dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", t),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		outPath,
	}
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &FFmpegError{Op: "ffmpeg extract frame", Err: err, Output: string(out)}
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("frame output missing at %s", outPath)
	}
	return nil
}
