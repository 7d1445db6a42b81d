package config

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// MaxEngineRetries caps the retry counts handed to the extraction engine.
const MaxEngineRetries = 10

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Worker    WorkerConfig    `yaml:"worker"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `yaml:"port" envconfig:"SERVER_PORT" default:"5000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"30m"`
	MetadataTimeout time.Duration `yaml:"metadata_timeout" envconfig:"SERVER_METADATA_TIMEOUT" default:"2m"`
	CORSOrigin      string        `yaml:"cors_origin" envconfig:"CORS_ORIGIN" default:"*"`
}

// StorageConfig holds scratch directory configuration.
type StorageConfig struct {
	ScratchPath  string `yaml:"scratch_path" envconfig:"SCRATCH_PATH" default:"/data/downloads"`
	SweepOnStart bool   `yaml:"sweep_on_start" envconfig:"SCRATCH_SWEEP_ON_START" default:"true"`
}

// ExtractorConfig holds extraction engine and remux binary configuration.
type ExtractorConfig struct {
	YTDLPPath       string        `yaml:"ytdlp_path" envconfig:"YTDLP_PATH"`
	FFmpegPath      string        `yaml:"ffmpeg_path" envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	DefaultFormat   string        `yaml:"default_format" envconfig:"EXTRACTOR_DEFAULT_FORMAT" default:"bestvideo+bestaudio/best"`
	MergeFormat     string        `yaml:"merge_format" envconfig:"EXTRACTOR_MERGE_FORMAT" default:"mp4"`
	Retries         int           `yaml:"retries" envconfig:"EXTRACTOR_RETRIES" default:"3"`
	FragmentRetries int           `yaml:"fragment_retries" envconfig:"EXTRACTOR_FRAGMENT_RETRIES" default:"3"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"EXTRACTOR_TIMEOUT" default:"15m"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout" envconfig:"EXTRACTOR_PROBE_TIMEOUT" default:"10s"`
}

// WorkerConfig holds extraction concurrency configuration.
type WorkerConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" envconfig:"WORKER_MAX_CONCURRENT" default:"4"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL" default:"info"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads configuration from defaults, file and environment variables.
// Environment variables override file values, which override defaults.
func Load(configPath string) (*Config, error) {
	// Defaults plus environment
	env := &Config{}
	if err := envconfig.Process("", env); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	cfg := *env

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		// Variables that are actually set win over the file
		overlayEnv(reflect.ValueOf(&cfg).Elem(), reflect.ValueOf(env).Elem())
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// overlayEnv copies every field whose environment variable is set from src
// into dst.
func overlayEnv(dst, src reflect.Value) {
	for i := 0; i < dst.NumField(); i++ {
		field := dst.Type().Field(i)
		if field.Type.Kind() == reflect.Struct {
			overlayEnv(dst.Field(i), src.Field(i))
			continue
		}
		key := field.Tag.Get("envconfig")
		if key == "" {
			continue
		}
		if _, ok := os.LookupEnv(key); ok {
			dst.Field(i).Set(src.Field(i))
		}
	}
}

// Validate checks that required configuration values are set and sane.
func (c *Config) Validate() error {
	if c.Storage.ScratchPath == "" {
		return fmt.Errorf("SCRATCH_PATH is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Extractor.Retries < 1 || c.Extractor.Retries > MaxEngineRetries {
		return fmt.Errorf("EXTRACTOR_RETRIES must be between 1 and %d, got %d", MaxEngineRetries, c.Extractor.Retries)
	}
	if c.Extractor.FragmentRetries < 1 || c.Extractor.FragmentRetries > MaxEngineRetries {
		return fmt.Errorf("EXTRACTOR_FRAGMENT_RETRIES must be between 1 and %d, got %d", MaxEngineRetries, c.Extractor.FragmentRetries)
	}
	if c.Extractor.DefaultFormat == "" {
		return fmt.Errorf("EXTRACTOR_DEFAULT_FORMAT is required")
	}
	if c.Worker.MaxConcurrent < 1 {
		return fmt.Errorf("WORKER_MAX_CONCURRENT must be at least 1, got %d", c.Worker.MaxConcurrent)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SlogLevel parses the configured level.
func (c *LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
