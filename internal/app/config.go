package app

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config is the full environment surface of the worker.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL, required"`

	OpenAIAPIKey          string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL         string `env:"OPENAI_BASE_URL"`
	OpenAIModel           string `env:"OPENAI_MODEL, default=gpt-4o-mini"`
	OpenAIEmbedModel      string `env:"OPENAI_EMBED_MODEL, default=text-embedding-3-small"`
	OpenAITranscribeModel string `env:"OPENAI_TRANSCRIBE_MODEL, default=whisper-1"`
	OpenAITimeoutSec      int    `env:"OPENAI_TIMEOUT_SECONDS, default=180"`
	OpenAIMaxRetries      int    `env:"OPENAI_MAX_RETRIES, default=4"`

	DataDir  string `env:"DATA_DIR, default=/app/data"`
	LogLevel string `env:"LOG_LEVEL, default=INFO"`
	LogFile  string `env:"LOG_FILE"`

	PollMS            int     `env:"WORKER_POLL_MS, default=1500"`
	MaxAttempts       int     `env:"WORKER_MAX_ATTEMPTS, default=3"`
	BackoffMultiplier float64 `env:"WORKER_BACKOFF_MULTIPLIER, default=1.5"`
	MaxBackoffMS      int     `env:"WORKER_MAX_BACKOFF_MS, default=12000"`

	MaxFramesPerVideo   int     `env:"MAX_FRAMES_PER_VIDEO, default=50"`
	VisionMaxConcurrent int     `env:"VISION_MAX_CONCURRENT, default=5"`
	SceneThreshold      float64 `env:"SCENE_THRESHOLD, default=0.3"`
	HammingThreshold    int     `env:"PHASH_HAMMING_THRESHOLD, default=6"`

	EnableTranscription  bool `env:"ENABLE_TRANSCRIPTION, default=true"`
	EnableVisionAnalysis bool `env:"ENABLE_VISION_ANALYSIS, default=true"`
	EnableEmbeddings     bool `env:"ENABLE_EMBEDDINGS, default=true"`

	DevHTTP  bool `env:"WORKER_DEV_HTTP, default=false"`
	HTTPPort int  `env:"WORKER_HTTP_PORT, default=8000"`

	JobSourceType string `env:"JOB_SOURCE_TYPE, default=postgres"`
	SQSQueueURL   string `env:"SQS_QUEUE_URL"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the cross-field rules envconfig tags cannot express.
func (c *Config) Validate() error {
	needsOpenAI := c.EnableTranscription || c.EnableVisionAnalysis || c.EnableEmbeddings
	if needsOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required while transcription, vision, or embeddings are enabled")
	}
	switch c.JobSourceType {
	case "postgres":
	case "sqs":
		if c.SQSQueueURL == "" {
			return fmt.Errorf("SQS_QUEUE_URL is required when JOB_SOURCE_TYPE=sqs")
		}
	default:
		return fmt.Errorf("unknown JOB_SOURCE_TYPE %q", c.JobSourceType)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("WORKER_MAX_ATTEMPTS must be positive")
	}
	return nil
}
