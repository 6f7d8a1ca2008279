package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"HTTP_ADDR", "REPORT_CACHE_TTL", "CLASSIFIER_TIMEOUT", "LOG_LEVEL", "REDIS_ADDR", "WORKER_CONCURRENCY"} {
		t.Setenv(k, "")
	}
	t.Setenv("API_TOKEN", "secret")

	e, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8000", e.HTTPAddr)
	assert.Equal(t, "info", e.LogLevel)
	assert.Equal(t, "localhost:6379", e.RedisAddr)
	assert.Equal(t, 10*time.Minute, e.ReportCacheTTL)
	assert.Equal(t, 30*time.Second, e.ClassifierTimeout)
	assert.Equal(t, "secret", e.APIToken)
	assert.Equal(t, 5, e.WorkerConcurrency)
}

func TestLoadEnv_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FACE_CLASSIFIER_URL=http://face:5000\nREPORT_CACHE_TTL=90s\n"), 0o600))
	t.Setenv("FACE_CLASSIFIER_URL", "")
	t.Setenv("REPORT_CACHE_TTL", "")
	os.Unsetenv("FACE_CLASSIFIER_URL")
	os.Unsetenv("REPORT_CACHE_TTL")

	e, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://face:5000", e.FaceClassifierURL)
	assert.Equal(t, 90*time.Second, e.ReportCacheTTL)
}

func TestLoadEnv_BadDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REPORT_CACHE_TTL", "soon")
	_, err := LoadEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPORT_CACHE_TTL")

	t.Setenv("REPORT_CACHE_TTL", "-1s")
	_, err = LoadEnv()
	require.Error(t, err)
}

func TestLoadEnv_BadConcurrency(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, v := range []string{"many", "0"} {
		t.Setenv("WORKER_CONCURRENCY", v)
		_, err := LoadEnv()
		require.Error(t, err, v)
		assert.Contains(t, err.Error(), "WORKER_CONCURRENCY")
	}
}

func TestEnv_Require(t *testing.T) {
	e := Env{DatabaseURL: "postgres://x"}
	assert.NoError(t, e.Require("DATABASE_URL"))

	err := e.Require("DATABASE_URL", "API_TOKEN")
	require.Error(t, err)
	assert.Equal(t, "API_TOKEN is not set", err.Error())
}
