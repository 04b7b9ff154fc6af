package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-interview-intake/config"
	_ "go-interview-intake/docs" // Important for Swagger
	"go-interview-intake/internal/capture"
	v1 "go-interview-intake/internal/delivery/http/v1"
	"go-interview-intake/internal/domain"
	"go-interview-intake/internal/extraction"
	"go-interview-intake/internal/media"
	"go-interview-intake/internal/repository/objectstore"
	"go-interview-intake/internal/repository/postgres"
	sbrepo "go-interview-intake/internal/repository/supabase"
	"go-interview-intake/internal/usecase"
	"go-interview-intake/pkg/database"
	"go-interview-intake/pkg/logger"
	"go-interview-intake/pkg/redis"
	"go-interview-intake/pkg/storage"
	"go-interview-intake/pkg/supabase"

	"github.com/jackc/pgx/v5/pgxpool"
)

// @title           Interview Intake API
// @version         1.0
// @description     Records a short video interview, extracts a candidate profile, renders a CV and saves both.
// @host            localhost:8080
// @BasePath        /v1
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting interview intake backend", "port", cfg.Port, "storage", cfg.StorageDriver, "records", cfg.RecordDriver)

	ctx := context.Background()

	// 3. Setup Redis (optional; rate limiting falls back to memory)
	probes := map[string]usecase.HealthProbe{}
	if cfg.UpstashRedisURL != "" {
		if err := redis.Initialize(redis.Config{URL: cfg.UpstashRedisURL, Password: cfg.UpstashRedisPassword}); err != nil {
			logger.Log.Warn("Redis unavailable, using in-memory rate limiting", "error", err)
		}
		defer redis.Close()
		probes["redis"] = redis.HealthCheck
	}

	// 4. Setup Repositories
	sbClient := supabase.NewClient(cfg.SupabaseUrl, cfg.SupabaseKey)

	var store domain.ArtifactStore
	switch cfg.StorageDriver {
	case "s3":
		s3cfg := storage.S3ClientConfig{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.StorageBucket,
			Endpoint:        cfg.S3Endpoint,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		}
		if err := s3cfg.Validate(); err != nil {
			logger.Log.Error("Invalid S3 storage configuration", "error", err)
			os.Exit(1)
		}
		s3Client, err := storage.NewS3Client(ctx, s3cfg)
		if err != nil {
			logger.Log.Error("Failed to create S3 client", "error", err)
			os.Exit(1)
		}
		store = objectstore.NewArtifactRepository(s3Client, s3cfg, cfg.StorageCacheSeconds)
		probes["storage"] = func(ctx context.Context) error { return storage.CheckBucket(ctx, s3Client, s3cfg.Bucket) }
	default:
		store = sbrepo.NewStorageRepository(sbClient, cfg.StorageBucket, cfg.StorageCacheSeconds)
		probes["storage"] = func(context.Context) error { return sbClient.CheckCredential() }
	}

	var records domain.InterviewRepository
	switch cfg.RecordDriver {
	case "postgres":
		var pool *pgxpool.Pool
		if cfg.DBUrl != "" {
			pool, err = database.NewPostgresConnection(ctx, cfg.DBUrl)
			if err != nil {
				logger.Log.Error("Failed to connect to database", "error", err)
				os.Exit(1)
			}
			defer pool.Close()
			probes["database"] = pool.Ping
		}
		records = postgres.NewInterviewRepository(pool, cfg.RecordTable)
	default:
		records = sbrepo.NewInterviewRepository(sbClient, cfg.RecordTable)
	}

	// 5. Setup capture and media
	source := capture.NewPushSource(0)
	recorder := capture.NewController(source, capture.Config{
		Budget:   cfg.CaptureBudgetSeconds,
		Unit:     time.Second,
		MaxBytes: cfg.CaptureMaxBytes,
		Logger:   logger.Log,
	})

	clips := media.NewFFmpegClips(cfg.FFmpegPath, cfg.FFprobePath)
	var frames domain.FrameCapturer
	if err := clips.Available(); err != nil {
		logger.Log.Warn("ffmpeg not found, CVs will be rendered without a photo", "error", err)
	} else {
		frames = media.NewFrameExtractor(clips, media.FrameOptions{
			Timeout:      cfg.FrameTimeout,
			MaxDimension: cfg.FrameMaxDimension,
			Quality:      cfg.FrameJPEGQuality,
		})
	}
	probes["ffmpeg"] = func(context.Context) error { return clips.Available() }

	analyzer, err := extraction.NewClient(extraction.NewGeminiModel(cfg.GeminiAPIKey, cfg.GeminiModel), cfg.GeminiAPIKey, logger.Log)
	if err != nil {
		logger.Log.Error("Failed to build extraction client", "error", err)
		os.Exit(1)
	}

	// 6. Setup UseCases
	persistenceUC := usecase.NewPersistenceUsecase(store, records, logger.Log)
	interviewUC := usecase.NewInterviewUsecase(recorder, analyzer, frames, media.NewCVSynthesizer(logger.Log), persistenceUC, usecase.InterviewConfig{
		FrameTimestamp:  cfg.FrameTimestampSeconds,
		AnalysisTimeout: cfg.AnalysisTimeout,
		SaveTimeout:     cfg.SaveTimeout,
		Logger:          logger.Log,
	})
	exportUC := usecase.NewExportUsecase(records)
	healthUC := usecase.NewHealthUsecase(probes)

	// 7. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		InterviewUC: interviewUC,
		ExportUC:    exportUC,
		HealthUC:    healthUC,
		Fragments:   source,
		Config:      cfg,
	})

	// 8. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}
	if err := interviewUC.Close(); err != nil {
		logger.Log.Warn("Releasing capture device failed", "error", err)
	}

	logger.Log.Info("Server exiting")
}
