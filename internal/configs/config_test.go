package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadConfigMemoryDriverDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := LoadConfig(missingEnv(t))
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, "8080", cfg.Rest.PORT)
	assert.Equal(t, []string{"*"}, cfg.Rest.AllowedOrigins)
	assert.Equal(t, 3, cfg.Retry.MaxTries)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.InitialInterval)
	assert.Equal(t, 1920, cfg.Media.MaxDimension)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadConfigPostgresRequiresURLs(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := LoadConfig(missingEnv(t))
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")

	_, err := LoadConfig(missingEnv(t))
	assert.Error(t, err)
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "STORAGE_DRIVER=memory\nPORT=9090\nCORS_ALLOWED_ORIGINS=https://a.test, https://b.test\nREDIS_ENABLED=true\nREDIS_ANALYTICS_TTL=30s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	for _, k := range []string{"STORAGE_DRIVER", "PORT", "CORS_ALLOWED_ORIGINS", "REDIS_ENABLED", "REDIS_ANALYTICS_TTL"} {
		k := k
		old, had := os.LookupEnv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			} else {
				os.Unsetenv(k)
			}
		})
		os.Unsetenv(k)
	}

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Rest.PORT)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Rest.AllowedOrigins)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Redis.AnalyticsTTL)
}

func TestEnvHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DUR", "soon")

	assert.Equal(t, 7, getEnvAsInt("X_INT", 7))
	assert.True(t, getEnvAsBool("X_BOOL", true))
	assert.Equal(t, time.Second, getEnvAsDuration("X_DUR", time.Second))
}
