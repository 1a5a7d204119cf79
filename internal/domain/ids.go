package domain

import "fmt"

// Derived-entity IDs are pure functions of the parent ID and a dense index.
// That determinism is what makes conflict-ignore re-insertion idempotent:
// a rerun derives the same IDs and the duplicates are dropped at the store.

// SceneID returns "{videoID}_scene_{idx:03d}".
func SceneID(videoID string, idx int) string {
	return fmt.Sprintf("%s_scene_%03d", videoID, idx)
}

// FrameID returns "{videoID}_frame_{idx:03d}".
func FrameID(videoID string, idx int) string {
	return fmt.Sprintf("%s_frame_%03d", videoID, idx)
}

// SegmentID returns "{videoID}_segment_{idx:03d}".
func SegmentID(videoID string, idx int) string {
	return fmt.Sprintf("%s_segment_%03d", videoID, idx)
}

// CaptionID returns "{frameID}_caption".
func CaptionID(frameID string) string {
	return frameID + "_caption"
}
