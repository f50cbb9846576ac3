package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"HOST", "PORT", "MAX_BODY_BYTES", "OCR_PROVIDER", "OCR_MODEL", "OCR_MODEL_PATH",
		"OCR_CHARSET_PATH", "OCR_TIMEOUT", "CACHE_TYPE", "CACHE_TTL", "REDIS_ADDR",
		"REDIS_PASSWORD", "REDIS_DB", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 80, cfg.Server.Port)
	require.Equal(t, "0.0.0.0:80", cfg.Server.Addr())
	require.Equal(t, "tesseract", cfg.OCR.Provider)
	require.Equal(t, "models/charsets.json", cfg.OCR.CharsetPath)
	require.Equal(t, "none", cfg.Cache.Type)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ocrserver.yaml")
	content := `
server:
  port: 8080
ocr:
  provider: ollama
  model: llava
  timeout: 5s
cache:
  type: redis
  ttl: 10m
  redis:
    addr: localhost:6379
    namespace: captcha
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, "ollama", cfg.OCR.Provider)
	require.Equal(t, "llava", cfg.OCR.Model)
	require.Equal(t, 5*time.Second, cfg.OCR.Timeout)
	require.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	require.Equal(t, "captcha", cfg.Cache.Redis.Namespace)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ocrserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0644))

	t.Setenv("PORT", "9000")
	t.Setenv("OCR_TIMEOUT", "2s")
	t.Setenv("CACHE_TYPE", "memory")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, 2*time.Second, cfg.OCR.Timeout)
	require.Equal(t, "memory", cfg.Cache.Type)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	t.Setenv("PORT", "eighty")
	_, err = Load("")
	require.ErrorContains(t, err, "invalid PORT")

	t.Setenv("PORT", "70000")
	_, err = Load("")
	require.ErrorContains(t, err, "invalid port")

	t.Setenv("PORT", "")
	t.Setenv("OCR_TIMEOUT", "soon")
	_, err = Load("")
	require.ErrorContains(t, err, "invalid OCR_TIMEOUT")
}
