package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	types "github.com/yungbote/video-worker/internal/domain"
)

// WriteSRT renders the segments as a SubRip sidecar file.
func WriteSRT(path string, segments []*types.TranscriptSegment) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir subs dir: %w", err)
	}

	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", SRTTimestamp(seg.TStart), SRTTimestamp(seg.TEnd))
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteString("\n\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// SRTTimestamp formats seconds as HH:MM:SS,mmm.
func SRTTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	totalMillis := int64(sec*1000 + 0.5)
	h := totalMillis / 3600000
	m := (totalMillis % 3600000) / 60000
	s := (totalMillis % 60000) / 1000
	ms := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
