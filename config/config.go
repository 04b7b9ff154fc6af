package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	LogLevel    string
	FrontendURL string
	// Extraction service (Gemini)
	GeminiAPIKey    string
	GeminiModel     string
	AnalysisTimeout time.Duration
	// Supabase storage / records
	SupabaseUrl string
	SupabaseKey string
	// Artifact storage
	StorageDriver       string // "supabase" or "s3"
	StorageBucket       string
	StorageCacheSeconds int
	S3Endpoint          string
	S3Region            string
	S3AccessKeyID       string
	S3SecretAccessKey   string
	S3PublicBaseURL     string
	// Interview records
	RecordDriver string // "supabase" or "postgres"
	RecordTable  string
	DBUrl        string
	// Redis/Upstash Configuration
	UpstashRedisURL      string
	UpstashRedisPassword string
	// Rate Limiting Configuration
	RateLimitWindowSeconds    int
	RateLimitAnalyzeThreshold int
	RateLimitGlobalThreshold  int
	// Capture and media
	CaptureBudgetSeconds  int
	CaptureMaxBytes       int
	FrameTimestampSeconds float64
	FrameTimeout          time.Duration
	FrameMaxDimension     int
	FrameJPEGQuality      int
	FFmpegPath            string
	FFprobePath           string
	SaveTimeout           time.Duration
}

func LoadConfig() (*Config, error) {
	// Load .env file; ignored when absent (production injects env directly)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		// Extraction
		GeminiAPIKey:    strings.TrimSpace(getEnv("GEMINI_API_KEY", getEnv("API_KEY", ""))),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AnalysisTimeout: getEnvDuration("ANALYSIS_TIMEOUT", 120*time.Second),
		// Strip the trailing slash to avoid double slashes in built URLs (.co//storage)
		SupabaseUrl: strings.TrimRight(strings.TrimSpace(getEnv("SUPABASE_URL", "")), "/"),
		SupabaseKey: strings.TrimSpace(getEnv("SUPABASE_KEY", getEnv("SUPABASE_ANON_KEY", ""))),
		// Storage
		StorageDriver:       strings.ToLower(getEnv("STORAGE_DRIVER", "supabase")),
		StorageBucket:       getEnv("STORAGE_BUCKET", "videos"),
		StorageCacheSeconds: getEnvInt("STORAGE_CACHE_SECONDS", 3600),
		S3Endpoint:          strings.TrimRight(getEnv("S3_ENDPOINT", ""), "/"),
		S3Region:            getEnv("S3_REGION", "us-east-1"),
		S3AccessKeyID:       getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey:   getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3PublicBaseURL:     strings.TrimRight(getEnv("S3_PUBLIC_BASE_URL", ""), "/"),
		// Records
		RecordDriver: strings.ToLower(getEnv("RECORD_DRIVER", "supabase")),
		RecordTable:  getEnv("RECORD_TABLE", "interviews"),
		DBUrl:        getEnv("DATABASE_URL", ""),
		// Redis/Upstash Configuration
		UpstashRedisURL:      getEnv("UPSTASH_REDIS_URL", ""),
		UpstashRedisPassword: getEnv("UPSTASH_REDIS_PASSWORD", ""),
		// Rate Limiting Configuration (with sensible defaults)
		RateLimitWindowSeconds:    getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitAnalyzeThreshold: getEnvInt("RATE_LIMIT_ANALYZE_THRESHOLD", 10),
		RateLimitGlobalThreshold:  getEnvInt("RATE_LIMIT_GLOBAL_THRESHOLD", 600),
		// Capture and media
		CaptureBudgetSeconds:  getEnvInt("CAPTURE_BUDGET_SECONDS", 30),
		CaptureMaxBytes:       getEnvInt("CAPTURE_MAX_BYTES", 100<<20),
		FrameTimestampSeconds: getEnvFloat("FRAME_TIMESTAMP_SECONDS", 1.0),
		FrameTimeout:          getEnvDuration("FRAME_TIMEOUT", 3*time.Second),
		FrameMaxDimension:     getEnvInt("FRAME_MAX_DIMENSION", 640),
		FrameJPEGQuality:      getEnvInt("FRAME_JPEG_QUALITY", 80),
		FFmpegPath:            getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:           getEnv("FFPROBE_PATH", "ffprobe"),
		SaveTimeout:           getEnvDuration("SAVE_TIMEOUT", 120*time.Second),
	}

	// Credentials are checked again at call time; these are early hints for operators.
	if cfg.GeminiAPIKey == "" {
		log.Println("WARNING: GEMINI_API_KEY is missing. Analysis requests will fail with a configuration error.")
	}
	if cfg.SupabaseKey == "" && (cfg.StorageDriver == "supabase" || cfg.RecordDriver == "supabase") {
		log.Println("WARNING: SUPABASE_KEY is missing. Saving interviews will fail with a configuration error.")
	}
	if cfg.RecordDriver == "postgres" && cfg.DBUrl == "" {
		log.Println("WARNING: DATABASE_URL is missing while RECORD_DRIVER=postgres.")
	}
	if cfg.UpstashRedisURL == "" {
		log.Println("WARNING: UPSTASH_REDIS_URL not configured. Rate limiting will use in-memory fallback.")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("3s") or plain seconds ("3").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
