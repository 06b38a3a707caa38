// Package config provides YAML-based configuration with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// APIKeyEnv is the environment variable holding the remote model credential.
const APIKeyEnv = "GOOGLE_API_KEY"

// ErrMissingAPIKey is returned by Validate when no credential is configured.
var ErrMissingAPIKey = errors.New("google API key not found: set " + APIKeyEnv + " in the environment or .env file")

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Agent    AgentConfig    `yaml:"agent"`
	Polling  PollingConfig  `yaml:"polling"`
	Staging  StagingConfig  `yaml:"staging"`
	Search   SearchConfig   `yaml:"search"`
	Advanced AdvancedConfig `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bindAddress"`
	EnableCORS   bool   `yaml:"enableCORS"`
	AllowOrigins string `yaml:"allowOrigins"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"` // covers the whole upload body, size it with bodyLimit
	WriteTimeout int    `yaml:"writeTimeoutSeconds"` // analysis runs inside one request, keep this long
	IdleTimeout  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit"`
}

// GeminiConfig contains remote model settings
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// AgentConfig describes the analysis agent
type AgentConfig struct {
	Name             string `yaml:"name"`
	Markdown         bool   `yaml:"markdown"`
	EnableWebSearch  bool   `yaml:"enableWebSearch"`
	MaxToolRounds    int    `yaml:"maxToolRounds"`
	DeleteRemoteCopy bool   `yaml:"deleteRemoteCopy"`
}

// PollingConfig controls the wait for remote file processing
type PollingConfig struct {
	IntervalMillis int `yaml:"intervalMillis"`
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

// StagingConfig contains temp file settings
type StagingConfig struct {
	TempDirectory          string `yaml:"tempDirectory"`
	MaxAgeMinutes          int    `yaml:"maxAgeMinutes"`
	CleanupIntervalMinutes int    `yaml:"cleanupIntervalMinutes"`
}

// SearchConfig contains web search tool settings
type SearchConfig struct {
	Endpoint       string `yaml:"endpoint"`
	MaxResults     int    `yaml:"maxResults"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `yaml:"logLevel"`
	EnableRequestLogging bool   `yaml:"enableRequestLogging"`
	ShowErrorDetails     bool   `yaml:"showErrorDetails"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8501,
			BindAddress:  "0.0.0.0",
			EnableCORS:   false,
			AllowOrigins: "*",
			ReadTimeout:  600, // 200M at roughly 350 KB/s
			WriteTimeout: 900,
			IdleTimeout:  120,
			BodyLimit:    "200M",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Agent: AgentConfig{
			Name:             "video-summary-agent",
			Markdown:         true,
			EnableWebSearch:  true,
			MaxToolRounds:    5,
			DeleteRemoteCopy: true,
		},
		Polling: PollingConfig{
			IntervalMillis: 1000,
			TimeoutSeconds: 300,
		},
		Staging: StagingConfig{
			TempDirectory:          os.TempDir(),
			MaxAgeMinutes:          60,
			CleanupIntervalMinutes: 10,
		},
		Search: SearchConfig{
			Endpoint:       "https://html.duckduckgo.com/html/",
			MaxResults:     5,
			TimeoutSeconds: 15,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			ShowErrorDetails:     true,
		},
	}
}

// LoadEnvFile loads variables from .env files into the process environment.
// A missing file is not an error.
func LoadEnvFile(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// LoadConfig loads configuration from a YAML file. A missing file yields the defaults.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()

	if config.Staging.TempDirectory == "" {
		config.Staging.TempDirectory = os.TempDir()
	} else if !filepath.IsAbs(config.Staging.TempDirectory) {
		config.Staging.TempDirectory = filepath.Join(filepath.Dir(configPath), config.Staging.TempDirectory)
	}

	return config, nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		c.Gemini.APIKey = key
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		c.Server.BindAddress = addr
	}

	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		c.Gemini.Model = model
	}

	if tempDir := os.Getenv("TEMP_DIR"); tempDir != "" {
		c.Staging.TempDirectory = tempDir
	}

	// POLL_TIMEOUT is in seconds
	if timeout := os.Getenv("POLL_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			c.Polling.TimeoutSeconds = t
		}
	}
}

// Validate checks settings without which the server must not start.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.Gemini.Model == "" {
		return errors.New("gemini model id must not be empty")
	}
	if c.Polling.IntervalMillis <= 0 {
		return fmt.Errorf("polling interval must be positive, got %dms", c.Polling.IntervalMillis)
	}
	return nil
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetReadTimeout returns the time allowed to read a whole request, body included
func (c *AppConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeout) * time.Second
}

// GetPollInterval returns the delay between two status refreshes
func (c *AppConfig) GetPollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalMillis) * time.Millisecond
}

// GetPollTimeout returns the processing deadline; zero disables it
func (c *AppConfig) GetPollTimeout() time.Duration {
	return time.Duration(c.Polling.TimeoutSeconds) * time.Second
}

// GetStagingMaxAge returns how long an unanalysed upload may stay on disk
func (c *AppConfig) GetStagingMaxAge() time.Duration {
	return time.Duration(c.Staging.MaxAgeMinutes) * time.Minute
}

// GetCleanupInterval returns the period of the stale upload sweep
func (c *AppConfig) GetCleanupInterval() time.Duration {
	return time.Duration(c.Staging.CleanupIntervalMinutes) * time.Minute
}

// GetSearchTimeout returns the per-request timeout of the web search tool
func (c *AppConfig) GetSearchTimeout() time.Duration {
	return time.Duration(c.Search.TimeoutSeconds) * time.Second
}
