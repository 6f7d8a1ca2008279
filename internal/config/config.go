// Package config loads process settings from the environment and the
// screening policy from YAML.
package config

import (
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	defaultHTTPAddr          = ":8000"
	defaultReportCacheTTL    = 10 * time.Minute
	defaultClassifierTimeout = 30 * time.Second
	defaultWorkerConcurrency = 5
)

// Env holds the process settings shared by the service binaries.
type Env struct {
	DatabaseURL        string
	RedisAddr          string
	MinioEndpoint      string
	MinioBucket        string
	MinioAccessKey     string
	MinioSecretKey     string
	APIToken           string
	HTTPAddr           string
	FaceClassifierURL  string
	VoiceClassifierURL string
	ScreeningConfig    string
	LogLevel           string
	LogFormat          string
	ReportCacheTTL     time.Duration
	ClassifierTimeout  time.Duration
	WorkerConcurrency  int
}

// LoadEnv reads a .env file from the working directory when present and
// then the process environment. Real environment variables win.
func LoadEnv() (Env, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Env{}, errors.Wrap(err, "failed to load .env")
	}

	e := Env{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		MinioEndpoint:      os.Getenv("MINIO_ENDPOINT"),
		MinioBucket:        os.Getenv("MINIO_BUCKET"),
		MinioAccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		APIToken:           os.Getenv("API_TOKEN"),
		HTTPAddr:           getEnvOrDefault("HTTP_ADDR", defaultHTTPAddr),
		FaceClassifierURL:  os.Getenv("FACE_CLASSIFIER_URL"),
		VoiceClassifierURL: os.Getenv("VOICE_CLASSIFIER_URL"),
		ScreeningConfig:    os.Getenv("SCREENING_CONFIG"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "text"),
	}

	var err error
	if e.ReportCacheTTL, err = durationEnv("REPORT_CACHE_TTL", defaultReportCacheTTL); err != nil {
		return Env{}, err
	}
	if e.ClassifierTimeout, err = durationEnv("CLASSIFIER_TIMEOUT", defaultClassifierTimeout); err != nil {
		return Env{}, err
	}
	if e.WorkerConcurrency, err = intEnv("WORKER_CONCURRENCY", defaultWorkerConcurrency); err != nil {
		return Env{}, err
	}
	return e, nil
}

// Require returns an error naming the first empty setting among keys.
func (e Env) Require(keys ...string) error {
	values := map[string]string{
		"DATABASE_URL":     e.DatabaseURL,
		"REDIS_ADDR":       e.RedisAddr,
		"MINIO_ENDPOINT":   e.MinioEndpoint,
		"MINIO_BUCKET":     e.MinioBucket,
		"MINIO_ACCESS_KEY": e.MinioAccessKey,
		"MINIO_SECRET_KEY": e.MinioSecretKey,
		"API_TOKEN":        e.APIToken,
	}
	for _, k := range keys {
		if values[k] == "" {
			return errors.Errorf("%s is not set", k)
		}
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	if d < 0 {
		return 0, errors.Errorf("invalid %s: negative duration", key)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, errors.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}
