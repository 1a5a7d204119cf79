package media

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout is the on-disk tree under the data root:
//
//	uploads/              original files
//	processed/<video_id>/ normalized.mp4 + audio.wav
//	frames/<video_id>/    sampled keyframes, named by scene index
//	subs/                 SRT sidecars
type Layout struct {
	Root string
}

func NewLayout(root string) Layout {
	return Layout{Root: root}
}

func (l Layout) UploadsDir() string   { return filepath.Join(l.Root, "uploads") }
func (l Layout) ProcessedDir() string { return filepath.Join(l.Root, "processed") }
func (l Layout) SubsDir() string      { return filepath.Join(l.Root, "subs") }

func (l Layout) ProcessedVideoDir(videoID string) string {
	return filepath.Join(l.ProcessedDir(), videoID)
}

func (l Layout) FramesDir(videoID string) string {
	return filepath.Join(l.Root, "frames", videoID)
}

func (l Layout) NormalizedPath(videoID string) string {
	return filepath.Join(l.ProcessedVideoDir(videoID), "normalized.mp4")
}

func (l Layout) AudioPath(videoID string) string {
	return filepath.Join(l.ProcessedVideoDir(videoID), "audio.wav")
}

func (l Layout) FramePath(videoID string, sceneIdx int) string {
	return filepath.Join(l.FramesDir(videoID), fmt.Sprintf("scene_%03d.jpg", sceneIdx))
}

func (l Layout) SRTPath(videoID string) string {
	return filepath.Join(l.SubsDir(), videoID+".srt")
}

// Resolve maps a stored path onto the data root. Database rows carry
// root-relative paths; absolute paths pass through unchanged.
func (l Layout) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.Root, path)
}

// EnsureBase creates the fixed directories. Per-video frame dirs are
// created when frames are written.
func (l Layout) EnsureBase() error {
	for _, dir := range []string{l.UploadsDir(), l.ProcessedDir(), l.SubsDir(), filepath.Join(l.Root, "frames")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return nil
}
