package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := Load()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "local", cfg.ObjectStoreType)
	assert.Equal(t, "pgx", cfg.DBDriver)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowOrigin)
	assert.Equal(t, 60, cfg.JWTAccessTTLMinutes)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.True(t, cfg.IsDevLike())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("OBJECT_STORE", "S3")
	t.Setenv("DB_DRIVER", "pq")
	t.Setenv("OPENROUTER_API_KEY", "sk-or")
	t.Setenv("RA_WORKER_CONCURRENCY", "8")

	cfg := Load()

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigin)
	assert.Equal(t, "s3", cfg.ObjectStoreType)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "sk-or", cfg.LLMAPIKey)
	assert.Equal(t, 8, cfg.WorkerConcurrency)
	assert.False(t, cfg.IsDevLike())

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "S3_BUCKET")
}

func TestLoadFileAndDotenv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(".env", []byte("LLM_MODEL=from-dotenv\n"), 0o600))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7070\"\nllm_provider: Gemini\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("LLM_MODEL") })

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, "from-dotenv", cfg.LLMModel)
}

func TestLoadFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadFile("does-not-exist.yaml")
	require.Error(t, err)
	assert.Equal(t, "8080", cfg.Port)
}
