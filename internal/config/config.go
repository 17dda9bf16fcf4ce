package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "RAGCHAT"

// DefaultSearchPaths are tried in order when no explicit config file is given.
var DefaultSearchPaths = []string{
	"config.yaml",
	"config/config.yaml",
}

type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Model      ModelConfig      `yaml:"model" envconfig:"MODEL"`
	Embedding  EmbeddingConfig  `yaml:"embedding" envconfig:"EMBEDDING"`
	Processing ProcessingConfig `yaml:"processing" envconfig:"PROCESSING"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	IO         IOConfig         `yaml:"io" envconfig:"IO"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOG"`
	History    HistoryConfig    `yaml:"history" envconfig:"HISTORY"`

	DatabaseURL string `yaml:"database_url" envconfig:"DATABASE_URL"`

	S3Endpoint  string `yaml:"s3_endpoint" envconfig:"S3_ENDPOINT"`
	S3AccessKey string `yaml:"s3_access_key_id" envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `yaml:"s3_secret_access_key" envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `yaml:"s3_bucket" envconfig:"S3_BUCKET"`
	S3Region    string `yaml:"s3_region" envconfig:"S3_REGION"`

	SentryDSN   string `yaml:"sentry_dsn" envconfig:"SENTRY_DSN"`
	Environment string `yaml:"environment" envconfig:"ENVIRONMENT"`
}

type ServerConfig struct {
	Host    string `yaml:"host" envconfig:"HOST"`
	Port    string `yaml:"port" envconfig:"PORT"`
	Debug   bool   `yaml:"debug" envconfig:"DEBUG"`
	Workers int    `yaml:"workers" envconfig:"WORKERS"`
	// TrustProxy makes the rate limiter key on X-Forwarded-For / X-Real-IP.
	TrustProxy bool `yaml:"trust_proxy" envconfig:"TRUST_PROXY"`
}

type ModelConfig struct {
	APIKey         string  `yaml:"api_key" envconfig:"API_KEY"`
	BaseURL        string  `yaml:"base_url" envconfig:"BASE_URL"`
	Name           string  `yaml:"name" envconfig:"NAME"`
	ExtractName    string  `yaml:"extract_name" envconfig:"EXTRACT_NAME"`
	Temperature    float32 `yaml:"temperature" envconfig:"TEMPERATURE"`
	TimeoutSeconds int     `yaml:"timeout_seconds" envconfig:"TIMEOUT_SECONDS"`
	Streaming      bool    `yaml:"streaming" envconfig:"STREAMING"`
}

type EmbeddingConfig struct {
	Model      string `yaml:"model" envconfig:"MODEL"`
	Dimensions int    `yaml:"dimensions" envconfig:"DIMENSIONS"`
}

type ProcessingConfig struct {
	BatchSize    int    `yaml:"batch_size" envconfig:"BATCH_SIZE"`
	ChunkSize    int    `yaml:"chunk_size" envconfig:"CHUNK_SIZE"`
	ChunkOverlap int    `yaml:"chunk_overlap" envconfig:"CHUNK_OVERLAP"`
	TopK         int    `yaml:"top_k" envconfig:"TOP_K"`
	Collection   string `yaml:"collection" envconfig:"COLLECTION"`
}

type RateLimitConfig struct {
	MaxRequests   int `yaml:"max_requests" envconfig:"MAX_REQUESTS"`
	WindowSeconds int `yaml:"window_seconds" envconfig:"WINDOW_SECONDS"`
	SweepSeconds  int `yaml:"sweep_seconds" envconfig:"SWEEP_SECONDS"`
}

type IOConfig struct {
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR"`
	SourceFile    string `yaml:"source_file" envconfig:"SOURCE_FILE"`
	ProcessedFile string `yaml:"processed_file" envconfig:"PROCESSED_FILE"`
	PromptDir     string `yaml:"prompt_dir" envconfig:"PROMPT_DIR"`
	PromptVersion string `yaml:"prompt_version" envconfig:"PROMPT_VERSION"`
}

type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LEVEL"`
	File  string `yaml:"file" envconfig:"FILE"`
}

type HistoryConfig struct {
	// Backend is "memory" (process lifetime) or "postgres".
	Backend string `yaml:"backend" envconfig:"BACKEND"`
}

// Default returns the built-in configuration used before any file or environment layer.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    "8000",
			Workers: 4,
		},
		Model: ModelConfig{
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta/openai/",
			Name:           "gemini-2.5-flash",
			ExtractName:    "gemini-2.5-pro",
			Temperature:    0.7,
			TimeoutSeconds: 60,
			Streaming:      true,
		},
		Embedding: EmbeddingConfig{
			Model:      "gemini-embedding-001",
			Dimensions: 3072,
		},
		Processing: ProcessingConfig{
			BatchSize:    100,
			ChunkSize:    1000,
			ChunkOverlap: 100,
			TopK:         2,
			Collection:   "assignment",
		},
		RateLimit: RateLimitConfig{
			MaxRequests:   100,
			WindowSeconds: 3600,
			SweepSeconds:  60,
		},
		IO: IOConfig{
			DataDir:       "data",
			SourceFile:    "raw.pdf",
			ProcessedFile: "processed.txt",
			PromptDir:     "prompts",
			PromptVersion: "v250718",
		},
		Logging: LoggingConfig{
			Level: "INFO",
			File:  "logs/log.txt",
		},
		History: HistoryConfig{
			Backend: "memory",
		},
		S3Bucket:    "ragchat-documents",
		S3Region:    "us-east-1",
		Environment: "development",
	}
}

// Load builds the configuration from defaults, an optional YAML file, .env and the environment.
// An empty path searches DefaultSearchPaths; a missing file is not an error.
func Load(path string) (*Config, error) {
	return load(path, (*Config).Validate)
}

// LoadDatabase loads the same layers as Load but only requires the database
// settings. Migrations use it.
func LoadDatabase(path string) (*Config, error) {
	return load(path, (*Config).ValidateDatabase)
}

func load(path string, validate func(*Config) error) (*Config, error) {
	cfg := Default()

	file, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	if file != "" {
		if err := loadYAML(file, cfg); err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file %s: %w", path, err)
		}
		return path, nil
	}
	for _, candidate := range DefaultSearchPaths {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ValidateDatabase reports missing database settings.
func (c *Config) ValidateDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s_DATABASE_URL is required", EnvPrefix)
	}
	return nil
}

// Validate reports settings that must be present before serving traffic.
func (c *Config) Validate() error {
	var errs []error
	if err := c.ValidateDatabase(); err != nil {
		errs = append(errs, err)
	}
	if c.Model.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s_MODEL_API_KEY is required", EnvPrefix))
	}
	if c.Processing.BatchSize <= 0 {
		errs = append(errs, errors.New("processing.batch_size must be positive"))
	}
	if c.Processing.ChunkOverlap >= c.Processing.ChunkSize {
		errs = append(errs, errors.New("processing.chunk_overlap must be smaller than chunk_size"))
	}
	if c.RateLimit.MaxRequests <= 0 || c.RateLimit.WindowSeconds <= 0 {
		errs = append(errs, errors.New("rate_limit.max_requests and window_seconds must be positive"))
	}
	if c.History.Backend != "memory" && c.History.Backend != "postgres" {
		errs = append(errs, fmt.Errorf("history.backend must be memory or postgres, got %q", c.History.Backend))
	}
	return errors.Join(errs...)
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

func (c *Config) RateLimitSweepInterval() time.Duration {
	if c.RateLimit.SweepSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimit.SweepSeconds) * time.Second
}

func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.Model.TimeoutSeconds) * time.Second
}
