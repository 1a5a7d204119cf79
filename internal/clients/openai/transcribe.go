package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/yungbote/video-worker/internal/platform/httpx"
)

// Transcript is the timed transcription of one audio track.
type Transcript struct {
	Text     string
	Segments []TranscriptSpan
}

// TranscriptSpan is a single timed span of speech.
type TranscriptSpan struct {
	Start float64
	End   float64
	Text  string
}

type verboseTranscription struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the audio file and requests verbose_json so segment
// timestamps come back alongside the text.
func (c *client) Transcribe(ctx context.Context, audioPath string) (*Transcript, error) {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, raw, err := c.transcribeOnce(ctx, audioPath)
		if err == nil {
			var decoded verboseTranscription
			if uErr := json.Unmarshal(raw, &decoded); uErr != nil {
				return nil, fmt.Errorf("openai decode error: %w; raw=%s", uErr, string(raw))
			}
			out := &Transcript{Text: decoded.Text}
			for _, s := range decoded.Segments {
				out.Segments = append(out.Segments, TranscriptSpan{
					Start: s.Start,
					End:   s.End,
					Text:  s.Text,
				})
			}
			return out, nil
		}

		if !httpx.IsRetryableError(err) {
			return nil, err
		}
		if attempt == c.maxRetries {
			return nil, err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.Jitter(sleepFor)

		c.log.Warn("OpenAI transcription retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return nil, fmt.Errorf("unreachable retry loop")
}

func (c *client) transcribeOnce(ctx context.Context, audioPath string) (*http.Response, []byte, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, nil, err
	}
	if err := mw.WriteField("model", c.transcribeModel); err != nil {
		return nil, nil, err
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
