package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Storage    StorageConfig    `toml:"storage"`
	Logging    LoggingConfig    `toml:"logging"`
	Sources    SourcesConfig    `toml:"sources"`
	Classifier ClassifierConfig `toml:"classifier"`
	Scheduler  SchedulerConfig  `toml:"scheduler"`
	XAI        XAIConfig        `toml:"xai"`
	Claude     ClaudeConfig     `toml:"claude"`
	Gemini     GeminiConfig     `toml:"gemini"`
	ZeroShot   ZeroShotConfig   `toml:"zeroshot"`
}

type ServerConfig struct {
	Port      int    `toml:"port" validate:"min=1,max=65535"`
	Host      string `toml:"host"`
	StaticDir string `toml:"static_dir"` // Optional front-end directory served at "/"
}

type StorageConfig struct {
	Type   string       `toml:"type" validate:"oneof=badger file"`
	Badger BadgerConfig `toml:"badger"`
	File   FileConfig   `toml:"file"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// FileConfig configures the flat-file store
type FileConfig struct {
	Dir string `toml:"dir"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output"` // "stdout", "file"
	File   string   `toml:"file"`   // Log file path when "file" output is enabled
}

// SourcesConfig describes the imageboard endpoints and fetch pacing
type SourcesConfig struct {
	Boards         []string `toml:"boards" validate:"min=1,dive,required"`
	BaseURL        string   `toml:"base_url" validate:"required,url"`
	UserAgent      string   `toml:"user_agent"`
	CatalogDelay   string   `toml:"catalog_delay"`   // Minimum gap between catalog requests, e.g. "1s"
	ThreadDelay    string   `toml:"thread_delay"`    // Minimum gap between thread requests, e.g. "2s"
	RequestTimeout string   `toml:"request_timeout"` // HTTP client timeout
	ThreadLimit    int      `toml:"thread_limit" validate:"min=1"`
	QuoteThreshold int      `toml:"quote_threshold" validate:"min=1"`
	MaxRetries     int      `toml:"max_retries" validate:"min=0"`
}

// ClassifierConfig selects the scoring backend and how chunks are scored
type ClassifierConfig struct {
	Backend        string `toml:"backend" validate:"oneof=xai claude gemini zeroshot"`
	Mode           string `toml:"mode" validate:"oneof=catalog all replies"`
	Chunks         int    `toml:"chunks" validate:"min=1"`
	FallbackPolicy string `toml:"fallback_policy" validate:"omitempty,oneof=neutral omit"` // Empty = backend default
	Narrative      bool   `toml:"narrative"`                                               // Extra synthesis call over chunk explanations
	PromptsFile    string `toml:"prompts_file"`                                            // Optional YAML prompt overrides
}

type SchedulerConfig struct {
	Schedule     string `toml:"schedule" validate:"required"` // "@every 30m", a cron expression or a bare duration
	RunOnStartup bool   `toml:"run_on_startup"`
}

// XAIConfig configures the OpenAI-compatible x.ai backend
type XAIConfig struct {
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	MaxRetries  int     `toml:"max_retries"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig configures the Anthropic backend
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	MaxRetries  int     `toml:"max_retries"`
	Temperature float32 `toml:"temperature"`
}

// GeminiConfig configures the Google Gemini backend
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	MaxRetries  int     `toml:"max_retries"`
	Temperature float32 `toml:"temperature"`
}

// ZeroShotConfig configures the local zero-shot classification server
type ZeroShotConfig struct {
	Endpoint      string   `toml:"endpoint"`
	Labels        []string `toml:"labels"`
	NegativeLabel string   `toml:"negative_label"` // Top label that flips the score sign
	NeutralLabel  string   `toml:"neutral_label"`  // Top label that carries no signal
	BatchSize     int      `toml:"batch_size"`
	Timeout       string   `toml:"timeout"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 3000,
			Host: "0.0.0.0",
		},
		Storage: StorageConfig{
			Type: "badger",
			Badger: BadgerConfig{
				Path: "./data/portent",
			},
			File: FileConfig{
				Dir: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
			File:   "./logs/portent.log",
		},
		Sources: SourcesConfig{
			Boards:         []string{"x", "pol"},
			BaseURL:        "https://a.4cdn.org",
			UserAgent:      "portent/" + GetVersion(),
			CatalogDelay:   "1s",
			ThreadDelay:    "2s",
			RequestTimeout: "30s",
			ThreadLimit:    20,
			QuoteThreshold: 5,
			MaxRetries:     2,
		},
		Classifier: ClassifierConfig{
			Backend: "xai",
			Mode:    "catalog",
			Chunks:  10,
		},
		Scheduler: SchedulerConfig{
			Schedule:     "@every 30m",
			RunOnStartup: true,
		},
		XAI: XAIConfig{
			BaseURL:    "https://api.x.ai/v1",
			Model:      "grok-4-fast-reasoning",
			Timeout:    "5m",
			MaxRetries: 2,
		},
		Claude: ClaudeConfig{
			Model:      "claude-sonnet-4-20250514",
			MaxTokens:  2048,
			Timeout:    "5m",
			MaxRetries: 2,
		},
		Gemini: GeminiConfig{
			Model:      "gemini-2.5-flash",
			Timeout:    "5m",
			MaxRetries: 2,
		},
		ZeroShot: ZeroShotConfig{
			Endpoint:      "http://127.0.0.1:8089/classify",
			Labels:        []string{"bad news", "good news", "not news"},
			NegativeLabel: "bad news",
			NeutralLabel:  "not news",
			BatchSize:     20,
			Timeout:       "5m",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier ones. CLI flags are applied separately via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies PORTENT_* environment variables to config
func applyEnvOverrides(config *Config) {
	// Server configuration
	if port := os.Getenv("PORTENT_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	} else if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PORTENT_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if staticDir := os.Getenv("PORTENT_STATIC_DIR"); staticDir != "" {
		config.Server.StaticDir = staticDir
	}

	// Storage configuration
	if storageType := os.Getenv("PORTENT_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}
	if badgerPath := os.Getenv("PORTENT_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if dataDir := os.Getenv("PORTENT_DATA_DIR"); dataDir != "" {
		config.Storage.File.Dir = dataDir
	}

	// Logging configuration
	if level := os.Getenv("PORTENT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PORTENT_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Sources configuration
	if boards := os.Getenv("PORTENT_BOARDS"); boards != "" {
		if list := splitList(boards); len(list) > 0 {
			config.Sources.Boards = list
		}
	}
	if baseURL := os.Getenv("PORTENT_SOURCES_BASE_URL"); baseURL != "" {
		config.Sources.BaseURL = baseURL
	}
	if limit := os.Getenv("PORTENT_THREAD_LIMIT"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			config.Sources.ThreadLimit = l
		}
	}

	// Classifier configuration
	if backend := os.Getenv("PORTENT_CLASSIFIER_BACKEND"); backend != "" {
		config.Classifier.Backend = backend
	}
	if mode := os.Getenv("PORTENT_CLASSIFIER_MODE"); mode != "" {
		config.Classifier.Mode = mode
	}
	if chunks := os.Getenv("PORTENT_CLASSIFIER_CHUNKS"); chunks != "" {
		if c, err := strconv.Atoi(chunks); err == nil {
			config.Classifier.Chunks = c
		}
	}
	if policy := os.Getenv("PORTENT_FALLBACK_POLICY"); policy != "" {
		config.Classifier.FallbackPolicy = policy
	}
	if narrative := os.Getenv("PORTENT_NARRATIVE"); narrative != "" {
		if n, err := strconv.ParseBool(narrative); err == nil {
			config.Classifier.Narrative = n
		}
	}

	// Scheduler configuration
	if schedule := os.Getenv("PORTENT_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}

	// Backend credentials (GROK_API_KEY kept for existing deployments)
	if apiKey := os.Getenv("PORTENT_XAI_API_KEY"); apiKey != "" {
		config.XAI.APIKey = apiKey
	} else if apiKey := os.Getenv("GROK_API_KEY"); apiKey != "" {
		config.XAI.APIKey = apiKey
	}
	if model := os.Getenv("PORTENT_XAI_MODEL"); model != "" {
		config.XAI.Model = model
	}
	if apiKey := os.Getenv("PORTENT_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	} else if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("PORTENT_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if endpoint := os.Getenv("PORTENT_ZEROSHOT_ENDPOINT"); endpoint != "" {
		config.ZeroShot.Endpoint = endpoint
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
// Flags have the highest priority.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks struct constraints and the scheduler expression
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := ParseSchedule(c.Scheduler.Schedule); err != nil {
		return fmt.Errorf("invalid scheduler.schedule %q: %w", c.Scheduler.Schedule, err)
	}
	for name, value := range map[string]string{
		"sources.catalog_delay":   c.Sources.CatalogDelay,
		"sources.thread_delay":    c.Sources.ThreadDelay,
		"sources.request_timeout": c.Sources.RequestTimeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}
	return nil
}

// ParseSchedule parses a scheduler expression. Accepts cron descriptors
// ("@every 30m", "@hourly"), standard 5-field cron, or a bare duration ("45m").
func ParseSchedule(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if d, err := time.ParseDuration(expr); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("interval must be positive")
		}
		return cron.Every(d), nil
	}
	return cron.ParseStandard(expr)
}

// ParseDuration parses s, returning fallback when s is empty or invalid
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
