// Package config maps environment variables onto the runtime settings of the
// render server.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/thereceipt/receipt-renderer/internal/logo"
)

// Store backends
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all runtime configuration for the render server.
type Config struct {
	// Server settings
	ServerPort string `env:"SERVER_PORT" envDefault:"12212"`
	LogLevel   string `env:"LOG_LEVEL"   envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT"  envDefault:"json"`

	// Logo persistence
	StoreBackend string `env:"STORE_BACKEND" envDefault:"file"`
	StorePath    string `env:"STORE_PATH"    envDefault:"./data/logos.json"`
	RedisURL     string `env:"REDIS_URL"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// Rasterizer
	LogoMaxUploadBytes int64 `env:"LOGO_MAX_UPLOAD_BYTES" envDefault:"2097152"`
	LogoThreshold      uint8 `env:"LOGO_THRESHOLD"        envDefault:"128"`
	LogoChunkSize      int   `env:"LOGO_CHUNK_SIZE"       envDefault:"32"`
	LogoInvertInk      bool  `env:"LOGO_INVERT_INK"       envDefault:"false"`

	Logo58Width   int `env:"LOGO_58MM_MAX_WIDTH"  envDefault:"200"`
	Logo58Height  int `env:"LOGO_58MM_MAX_HEIGHT" envDefault:"100"`
	Logo80Width   int `env:"LOGO_80MM_MAX_WIDTH"  envDefault:"300"`
	Logo80Height  int `env:"LOGO_80MM_MAX_HEIGHT" envDefault:"150"`
	LogoWebWidth  int `env:"LOGO_WEB_MAX_WIDTH"   envDefault:"600"`
	LogoWebHeight int `env:"LOGO_WEB_MAX_HEIGHT"  envDefault:"300"`

	// UploadRatePerMinute limits logo uploads per tenant. Zero disables it.
	UploadRatePerMinute int `env:"UPLOAD_RATE_PER_MINUTE" envDefault:"30"`

	// Cross-Origin Resource Sharing
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load parses environment variables into a [Config].
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendFile:
		if c.StorePath == "" {
			return fmt.Errorf("STORE_PATH is required for the file backend")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.LogoMaxUploadBytes <= 0 {
		return fmt.Errorf("LOGO_MAX_UPLOAD_BYTES must be positive")
	}
	if c.LogoThreshold == 0 {
		return fmt.Errorf("LOGO_THRESHOLD must be between 1 and 255")
	}
	if c.LogoChunkSize <= 0 {
		return fmt.Errorf("LOGO_CHUNK_SIZE must be positive")
	}
	if c.UploadRatePerMinute < 0 {
		return fmt.Errorf("UPLOAD_RATE_PER_MINUTE must not be negative")
	}
	return nil
}

// LogoOptions converts the rasterizer settings.
func (c *Config) LogoOptions() logo.Options {
	return logo.Options{
		MaxUploadBytes: c.LogoMaxUploadBytes,
		Threshold:      c.LogoThreshold,
		ChunkSize:      c.LogoChunkSize,
		InvertInk:      c.LogoInvertInk,
		Sizes: map[logo.Class]logo.Size{
			logo.Class58:  {Width: c.Logo58Width, Height: c.Logo58Height},
			logo.Class80:  {Width: c.Logo80Width, Height: c.Logo80Height},
			logo.ClassWeb: {Width: c.LogoWebWidth, Height: c.LogoWebHeight},
		},
	}
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
