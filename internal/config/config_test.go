package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{APIKeyEnv, "PORT", "BIND_ADDRESS", "GEMINI_MODEL", "TEMP_DIR", "POLL_TIMEOUT"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, "video-summary-agent", cfg.Agent.Name)
	assert.True(t, cfg.Agent.EnableWebSearch)
	assert.Equal(t, time.Second, cfg.GetPollInterval())
	assert.Equal(t, 5*time.Minute, cfg.GetPollTimeout())
	assert.Equal(t, os.TempDir(), cfg.Staging.TempDirectory)
	assert.Equal(t, 10*time.Minute, cfg.GetReadTimeout(), "a full-size upload must fit in the read timeout")
	assert.Equal(t, "200M", cfg.Server.BodyLimit)
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "video-summary.yaml")
	content := `
server:
  port: 9000
gemini:
  model: gemini-1.5-pro
polling:
  intervalMillis: 250
  timeoutSeconds: 30
staging:
  tempDirectory: uploads
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.Model)
	assert.Equal(t, 250*time.Millisecond, cfg.GetPollInterval())
	assert.Equal(t, 30*time.Second, cfg.GetPollTimeout())
	assert.Equal(t, filepath.Join(dir, "uploads"), cfg.Staging.TempDirectory)
	// untouched sections keep their defaults
	assert.Equal(t, "video-summary-agent", cfg.Agent.Name)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(APIKeyEnv, "  secret-key  ")
	t.Setenv("PORT", "8080")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-flash")
	t.Setenv("POLL_TIMEOUT", "12")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "secret-key", cfg.Gemini.APIKey)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, 12*time.Second, cfg.GetPollTimeout())
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddr())
}

func TestValidate(t *testing.T) {
	t.Run("missing key is fatal", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
	})

	t.Run("blank key is fatal", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Gemini.APIKey = "   "
		assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
	})

	t.Run("non-positive poll interval", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Gemini.APIKey = "key"
		cfg.Polling.IntervalMillis = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("valid", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Gemini.APIKey = "key"
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)

	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("loads key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("GOOGLE_API_KEY=from-dotenv\n"), 0644))
		// godotenv never overrides variables that are already set
		require.NoError(t, os.Unsetenv(APIKeyEnv))

		require.NoError(t, LoadEnvFile(path))
		assert.Equal(t, "from-dotenv", os.Getenv(APIKeyEnv))
	})
}
