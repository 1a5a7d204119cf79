package media

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strconv"

	"github.com/yungbote/video-worker/internal/platform/ctxutil"
)

// Interval is a half-open span [Start, End) in seconds.
type Interval struct {
	Start float64
	End   float64
}

// DefaultSceneThreshold matches ffmpeg's scene score scale (0..1).
const DefaultSceneThreshold = 0.30

// minSceneLen drops cut points that would create a sliver segment.
const minSceneLen = 1.0

var showinfoPtsTime = regexp.MustCompile(`pts_time:([0-9]+(?:\.[0-9]+)?)`)

// DetectScenes runs ffmpeg scene detection and converts the cut timestamps
// into intervals that tile [0, duration). A video with no detected cuts
// yields a single interval covering the whole duration.
func (m *Tools) DetectScenes(ctx context.Context, videoPath string, duration float64, threshold float64) ([]Interval, error) {
	ctx = ctxutil.Default(ctx)
	if duration <= 0 {
		return nil, fmt.Errorf("non-positive duration %f", duration)
	}
	if threshold <= 0 {
		threshold = DefaultSceneThreshold
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	args := []string{
		"-i", videoPath,
		"-vf", fmt.Sprintf("select='gt(scene\\,%0.3f)',showinfo", threshold),
		"-f", "null", "-",
	}
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	// showinfo writes to stderr; a nonzero exit with parseable output is
	// still a failure.
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &FFmpegError{Op: "ffmpeg scene detect", Err: err, Output: string(out)}
	}

	cuts := parseShowinfoTimes(string(out))
	return BuildIntervals(cuts, duration), nil
}

func parseShowinfoTimes(out string) []float64 {
	matches := showinfoPtsTime.FindAllStringSubmatch(out, -1)
	cuts := make([]float64, 0, len(matches))
	for _, m := range matches {
		t, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		cuts = append(cuts, t)
	}
	sort.Float64s(cuts)
	return cuts
}

// BuildIntervals turns sorted cut timestamps into half-open intervals that
// exactly tile [0, duration). Cuts outside (0, duration) and cuts that
// would create a segment shorter than minSceneLen are dropped.
func BuildIntervals(cuts []float64, duration float64) []Interval {
	bounds := []float64{0}
	for _, c := range cuts {
		if c <= 0 || c >= duration {
			continue
		}
		if c-bounds[len(bounds)-1] < minSceneLen {
			continue
		}
		bounds = append(bounds, c)
	}
	// The tail must stay a real segment too.
	if len(bounds) > 1 && duration-bounds[len(bounds)-1] < minSceneLen {
		bounds = bounds[:len(bounds)-1]
	}
	bounds = append(bounds, duration)

	out := make([]Interval, 0, len(bounds)-1)
	for i := 0; i < len(bounds)-1; i++ {
		out = append(out, Interval{Start: bounds[i], End: bounds[i+1]})
	}
	return out
}

// Midpoint is the representative timestamp for a scene.
func (iv Interval) Midpoint() float64 {
	return iv.Start + (iv.End-iv.Start)/2
}
