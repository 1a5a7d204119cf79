package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yungbote/video-worker/internal/clients/openai"
	sqssource "github.com/yungbote/video-worker/internal/clients/sqs"
	"github.com/yungbote/video-worker/internal/data/db"
	"github.com/yungbote/video-worker/internal/data/repos/catalog"
	"github.com/yungbote/video-worker/internal/data/repos/jobs"
	"github.com/yungbote/video-worker/internal/data/repos/videos"
	"github.com/yungbote/video-worker/internal/media"
	"github.com/yungbote/video-worker/internal/pipeline"
	"github.com/yungbote/video-worker/internal/platform/logger"
	"github.com/yungbote/video-worker/internal/worker"
)

// App wires config, storage, clients, the pipeline, and the worker loop.
type App struct {
	Log *logger.Logger
	Cfg *Config

	pg     *db.PostgresService
	jobs   jobs.JobRepo
	stats  catalog.StatsRepo
	worker *worker.Worker
	layout media.Layout
}

func New(ctx context.Context, cfg *Config) (*App, error) {
	logg, err := logger.NewWithFile(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := db.NewPostgresService(cfg.DatabaseURL, logg)
	if err != nil {
		logg.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		logg.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	layout := media.NewLayout(cfg.DataDir)
	if err := layout.EnsureBase(); err != nil {
		logg.Sync()
		return nil, fmt.Errorf("prepare data dir: %w", err)
	}

	tools := media.NewTools(logg)
	if err := tools.AssertReady(ctx); err != nil {
		logg.Sync()
		return nil, fmt.Errorf("media tools: %w", err)
	}

	videoRepo := videos.NewVideoRepo(theDB, logg)
	jobRepo := jobs.NewJobRepo(theDB, logg)
	sceneRepo := catalog.NewSceneRepo(theDB, logg)
	frameRepo := catalog.NewFrameRepo(theDB, logg)
	segmentRepo := catalog.NewSegmentRepo(theDB, logg)
	captionRepo := catalog.NewCaptionRepo(theDB, logg)
	statsRepo := catalog.NewStatsRepo(theDB, logg)

	deps := pipeline.Deps{
		Videos:         videoRepo,
		Scenes:         sceneRepo,
		Frames:         frameRepo,
		Segments:       segmentRepo,
		Captions:       captionRepo,
		Transcoder:     tools,
		SceneDetector:  tools,
		FrameExtractor: tools,
		Hasher:         pipeline.MediaHasher{},
		Layout:         layout,
		Log:            logg,
		Config: pipeline.Config{
			MaxFramesPerVideo:    cfg.MaxFramesPerVideo,
			VisionMaxConcurrent:  cfg.VisionMaxConcurrent,
			SceneThreshold:       cfg.SceneThreshold,
			HammingThreshold:     cfg.HammingThreshold,
			EnableTranscription:  cfg.EnableTranscription,
			EnableVisionAnalysis: cfg.EnableVisionAnalysis,
			EnableEmbeddings:     cfg.EnableEmbeddings,
		},
	}

	if cfg.EnableTranscription || cfg.EnableVisionAnalysis || cfg.EnableEmbeddings {
		ai, err := openai.NewClient(openai.Config{
			APIKey:          cfg.OpenAIAPIKey,
			BaseURL:         cfg.OpenAIBaseURL,
			Model:           cfg.OpenAIModel,
			EmbedModel:      cfg.OpenAIEmbedModel,
			TranscribeModel: cfg.OpenAITranscribeModel,
			TimeoutSec:      cfg.OpenAITimeoutSec,
			MaxRetries:      cfg.OpenAIMaxRetries,
		}, logg)
		if err != nil {
			logg.Sync()
			return nil, fmt.Errorf("init openai client: %w", err)
		}
		deps.Transcriber = ai
		deps.Captioner = openai.NewVision(ai)
		deps.Embedder = ai
	}

	pipe := pipeline.New(deps)

	var source worker.Source = worker.PostgresSource{Jobs: jobRepo}
	if cfg.JobSourceType == "sqs" {
		source, err = sqssource.NewSource(ctx, cfg.SQSQueueURL, worker.PostgresSource{Jobs: jobRepo}, logg)
		if err != nil {
			logg.Sync()
			return nil, fmt.Errorf("init sqs source: %w", err)
		}
	}

	wrk := worker.New(source, jobRepo, pipe, logg, worker.Config{
		PollInterval:      time.Duration(cfg.PollMS) * time.Millisecond,
		MaxBackoff:        time.Duration(cfg.MaxBackoffMS) * time.Millisecond,
		BackoffMultiplier: cfg.BackoffMultiplier,
		MaxAttempts:       cfg.MaxAttempts,
	})

	return &App{
		Log:    logg,
		Cfg:    cfg,
		pg:     pg,
		jobs:   jobRepo,
		stats:  statsRepo,
		worker: wrk,
		layout: layout,
	}, nil
}

// Run blocks until ctx is canceled, then drains and closes cleanly.
func (a *App) Run(ctx context.Context) error {
	if a.Cfg.DevHTTP {
		srv := a.newHTTPServer()
		go func() {
			a.Log.Info("diagnostic http listening", "port", a.Cfg.HTTPPort)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Log.Error("diagnostic http failed", "error", err)
			}
		}()
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()
	}

	err := a.worker.Run(ctx)

	if cerr := a.pg.Close(); cerr != nil {
		a.Log.Warn("closing postgres pool", "error", cerr)
	}
	a.Log.Sync()
	return err
}
