package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"photo-classifier/internal/domain/entity"
)

// Engine движок инференса для классификатора
type Engine string

const (
	EngineGoCV Engine = "gocv"
	EngineONNX Engine = "onnx"
)

type Config struct {
	TelegramToken    string
	HTTPAddr         string
	MetricsAddr      string
	ModelsConfig     string
	Engine           Engine
	ORTLibraryPath   string
	MaxUploadBytes   int64
	DefaultModel     entity.ModelChoice
	InferenceTimeout time.Duration
	SessionTTL       time.Duration
	MaxSessions      int
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr:    getEnv("METRICS_ADDR", ":9090"),
		ModelsConfig:   getEnv("MODELS_CONFIG", "models.yaml"),
		Engine:         Engine(getEnv("INFERENCE_ENGINE", string(EngineGoCV))),
		ORTLibraryPath: os.Getenv("ORT_LIBRARY_PATH"),
	}

	if cfg.Engine != EngineGoCV && cfg.Engine != EngineONNX {
		return nil, fmt.Errorf("INFERENCE_ENGINE must be %q or %q, got %q", EngineGoCV, EngineONNX, cfg.Engine)
	}

	maxMB, err := getInt("MAX_UPLOAD_MB", 10)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxMB) << 20

	timeoutSec, err := getInt("INFERENCE_TIMEOUT", 30)
	if err != nil {
		return nil, err
	}
	cfg.InferenceTimeout = time.Duration(timeoutSec) * time.Second

	ttlMin, err := getInt("SESSION_TTL", 30)
	if err != nil {
		return nil, err
	}
	cfg.SessionTTL = time.Duration(ttlMin) * time.Minute

	if cfg.MaxSessions, err = getInt("MAX_SESSIONS", 10000); err != nil {
		return nil, err
	}

	cfg.DefaultModel = entity.DefaultModel
	if v := os.Getenv("DEFAULT_MODEL"); v != "" {
		model, err := entity.ParseModelChoice(v)
		if err != nil {
			return nil, fmt.Errorf("DEFAULT_MODEL: %w", err)
		}
		cfg.DefaultModel = model
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}
