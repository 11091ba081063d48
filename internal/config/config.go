package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	// DataDir is the writable root for sessions, themes and the renderer
	// binary. On read-only deployment targets only a scratch directory
	// (e.g. /tmp) is writable.
	DataDir string `env:"DATA_DIR" envDefault:"/tmp/cvwonder-studio"`

	CVWonderVersion         string `env:"CVWONDER_VERSION" envDefault:"v0.3.0"`
	CVWonderDownloadBaseURL string `env:"CVWONDER_DOWNLOAD_BASE_URL" envDefault:"https://github.com/germainlefebvre4/cvwonder/releases"`

	DefaultTheme         string `env:"DEFAULT_THEME" envDefault:"default"`
	MaxRetentionDays     int    `env:"MAX_RETENTION_DAYS" envDefault:"7"`
	DefaultRetentionDays int    `env:"DEFAULT_RETENTION_DAYS" envDefault:"7"`
	RenderTimeoutSeconds int    `env:"RENDER_TIMEOUT_SECONDS" envDefault:"60"`

	// ThemeStrictMode disables the fallback to the default theme when a
	// requested theme fails to install; the render fails instead.
	ThemeStrictMode bool `env:"THEME_STRICT_MODE" envDefault:"false"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutSeconds) * time.Second
}

// BinaryDownloadURL returns the release asset URL for the configured
// cvwonder version on the current platform.
func (c *Config) BinaryDownloadURL() string {
	return fmt.Sprintf("%s/download/%s/cvwonder_%s_%s",
		c.CVWonderDownloadBaseURL, c.CVWonderVersion, runtime.GOOS, runtime.GOARCH)
}

func (c *Config) BinaryPath() string {
	return filepath.Join(c.DataDir, "bin", "cvwonder")
}

func (c *Config) ThemesDir() string {
	return filepath.Join(c.DataDir, "themes")
}

func (c *Config) SessionsDir() string {
	return filepath.Join(c.DataDir, "sessions")
}

func (c *Config) Validate() error {
	if c.MaxRetentionDays < 1 {
		return fmt.Errorf("MAX_RETENTION_DAYS must be at least 1, got %d", c.MaxRetentionDays)
	}
	if c.DefaultRetentionDays < 1 || c.DefaultRetentionDays > c.MaxRetentionDays {
		return fmt.Errorf("DEFAULT_RETENTION_DAYS must be within [1, %d], got %d",
			c.MaxRetentionDays, c.DefaultRetentionDays)
	}
	if c.RenderTimeoutSeconds < 1 {
		return fmt.Errorf("RENDER_TIMEOUT_SECONDS must be at least 1, got %d", c.RenderTimeoutSeconds)
	}
	if c.MaxRetentionDays > 30 {
		log.Warn().Int("maxRetentionDays", c.MaxRetentionDays).
			Msg("MAX_RETENTION_DAYS is unusually high: anonymous sessions are meant to be short-lived")
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
