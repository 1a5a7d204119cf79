package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	types "github.com/yungbote/video-worker/internal/domain"
)

const visionSystemPrompt = "You are analyzing a single frame from a screen recording or product video. " +
	"Describe what is visible. Report interactive UI controls and any legible on-screen text. " +
	"Positions are coarse: top-left, top, top-right, left, center, right, bottom-left, bottom, bottom-right."

const visionUserPrompt = "Analyze this frame."

// frameAnalysisSchema is the strict json_schema contract for one frame.
// Every property is required; strict mode rejects extras.
var frameAnalysisSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"caption": map[string]any{"type": "string"},
		"controls": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type":     map[string]any{"type": "string"},
					"label":    map[string]any{"type": "string"},
					"position": map[string]any{"type": "string"},
				},
				"required":             []string{"type", "label", "position"},
				"additionalProperties": false,
			},
		},
		"text_on_screen": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text":     map[string]any{"type": "string"},
					"position": map[string]any{"type": "string"},
				},
				"required":             []string{"text", "position"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"caption", "controls", "text_on_screen"},
	"additionalProperties": false,
}

// Vision analyzes single frames with the structured-output vision model.
type Vision struct {
	client Client
}

func NewVision(client Client) *Vision {
	return &Vision{client: client}
}

// AnalyzeFrame reads the image from disk, sends it as a data URL, and
// returns the decoded structured analysis.
func (v *Vision) AnalyzeFrame(ctx context.Context, imagePath string) (*types.FrameAnalysis, error) {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("read frame image: %w", err)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", imageMime(imagePath), base64.StdEncoding.EncodeToString(raw))

	obj, err := v.client.GenerateJSONWithImages(
		ctx,
		visionSystemPrompt,
		visionUserPrompt,
		[]ImageInput{{ImageURL: dataURL, Detail: "low"}},
		"frame_analysis",
		frameAnalysisSchema,
	)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var out types.FrameAnalysis
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, fmt.Errorf("frame analysis shape mismatch: %w", err)
	}
	return &out, nil
}

func imageMime(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
