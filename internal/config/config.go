package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Prompt   PromptConfig   `mapstructure:"prompt"`
	Search   SearchConfig   `mapstructure:"search"`
	Memory   MemoryConfig   `mapstructure:"memory"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `envconfig:"SERVER_PORT" mapstructure:"port"`
	Host            string        `envconfig:"SERVER_HOST" mapstructure:"host"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" mapstructure:"shutdown_timeout"`
}

type OpenAIConfig struct {
	Provider    string  `envconfig:"OPENAI_PROVIDER" mapstructure:"provider"`
	APIKey      string  `envconfig:"OPENAI_API_KEY" mapstructure:"api_key"`
	APIEndpoint string  `envconfig:"OPENAI_ENDPOINT" mapstructure:"endpoint"`
	Model       string  `envconfig:"OPENAI_MODEL" mapstructure:"model"`
	APIVersion  string  `envconfig:"OPENAI_API_VERSION" mapstructure:"api_version"`
	Temperature float64 `envconfig:"OPENAI_TEMPERATURE" mapstructure:"temperature"`
	MaxTokens   int64   `envconfig:"OPENAI_MAX_TOKENS" mapstructure:"max_tokens"`
}

type PromptConfig struct {
	// SystemTemplate is a text/template; {{.Language}} is the requested language.
	SystemTemplate  string `envconfig:"PROMPT_SYSTEM_TEMPLATE" mapstructure:"system_template"`
	DefaultLanguage string `envconfig:"PROMPT_DEFAULT_LANGUAGE" mapstructure:"default_language"`
}

type SearchConfig struct {
	Enabled    bool    `envconfig:"SEARCH_ENABLED" mapstructure:"enabled"`
	Provider   string  `envconfig:"SEARCH_PROVIDER" mapstructure:"provider"`
	APIKey     string  `envconfig:"SEARCH_API_KEY" mapstructure:"api_key"`
	Endpoint   string  `envconfig:"SEARCH_ENDPOINT" mapstructure:"endpoint"`
	MaxResults int     `envconfig:"SEARCH_MAX_RESULTS" mapstructure:"max_results"`
	QPS        float64 `envconfig:"SEARCH_QPS" mapstructure:"qps"`
}

type MemoryConfig struct {
	Backend          string        `envconfig:"MEMORY_BACKEND" mapstructure:"backend"`
	Size             int           `envconfig:"MEMORY_SIZE" mapstructure:"size"`
	TTL              time.Duration `envconfig:"MEMORY_TTL" mapstructure:"ttl"`
	MaxHistoryTokens int           `envconfig:"MEMORY_MAX_HISTORY_TOKENS" mapstructure:"max_history_tokens"`
	RedisAddr        string        `envconfig:"REDIS_ADDR" mapstructure:"redis_addr"`
	RedisPassword    string        `envconfig:"REDIS_PASSWORD" mapstructure:"redis_password"`
	RedisDB          int           `envconfig:"REDIS_DB" mapstructure:"redis_db"`
}

type StorageConfig struct {
	OutputDir    string `envconfig:"STORAGE_OUTPUT_DIR" mapstructure:"output_dir"`
	FilenameMode string `envconfig:"STORAGE_FILENAME_MODE" mapstructure:"filename_mode"`
	// Root confines request-supplied output folders. Empty means unrestricted.
	Root string `envconfig:"STORAGE_ROOT" mapstructure:"root"`
}

type UpstreamConfig struct {
	Timeout  time.Duration `envconfig:"UPSTREAM_TIMEOUT" mapstructure:"timeout"`
	Attempts uint          `envconfig:"UPSTREAM_ATTEMPTS" mapstructure:"attempts"`
	Delay    time.Duration `envconfig:"UPSTREAM_DELAY" mapstructure:"delay"`
	MaxDelay time.Duration `envconfig:"UPSTREAM_MAX_DELAY" mapstructure:"max_delay"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" mapstructure:"level"`
	Format string `envconfig:"LOG_FORMAT" mapstructure:"format"`
}

const DefaultSystemTemplate = "You are an AI assistant specialized in providing accurate and detailed information " +
	"on various topics, especially in technology and blockchain. Please respond in {{.Language}}."

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "5000",
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    150 * time.Second,
			RequestTimeout:  120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		OpenAI: OpenAIConfig{
			Provider:    "openai",
			APIEndpoint: "https://api.openai.com/v1/",
			Model:       "gpt-4",
			APIVersion:  "2023-05-15",
			Temperature: 0.7,
			MaxTokens:   1000,
		},
		Prompt: PromptConfig{
			SystemTemplate:  DefaultSystemTemplate,
			DefaultLanguage: "en",
		},
		Search: SearchConfig{
			Provider:   "duckduckgo",
			MaxResults: 5,
			QPS:        1,
		},
		Memory: MemoryConfig{
			Backend:          "memory",
			Size:             1024,
			TTL:              time.Hour,
			MaxHistoryTokens: 2000,
			RedisAddr:        "localhost:6379",
		},
		Storage: StorageConfig{
			OutputDir:    "./cheatsheets/",
			FilenameMode: "timestamped",
		},
		Upstream: UpstreamConfig{
			Timeout:  60 * time.Second,
			Attempts: 3,
			Delay:    500 * time.Millisecond,
			MaxDelay: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load layers defaults, the optional config file at path and the environment,
// in that order of increasing precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, fmt.Errorf("decoding config file %s: %w", path, err)
		}
		slog.Debug("config file applied", "path", v.ConfigFileUsed())
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Info("configuration loaded successfully")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	switch c.OpenAI.Provider {
	case "openai", "azure":
	default:
		errs = append(errs, fmt.Errorf("unknown OPENAI_PROVIDER %q", c.OpenAI.Provider))
	}
	switch c.Search.Provider {
	case "duckduckgo", "tavily", "brave":
	default:
		errs = append(errs, fmt.Errorf("unknown SEARCH_PROVIDER %q", c.Search.Provider))
	}
	if c.Search.Enabled && c.Search.Provider != "duckduckgo" && c.Search.APIKey == "" {
		errs = append(errs, fmt.Errorf("SEARCH_API_KEY is required for provider %s", c.Search.Provider))
	}
	switch c.Memory.Backend {
	case "none", "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown MEMORY_BACKEND %q", c.Memory.Backend))
	}
	switch c.Storage.FilenameMode {
	case "timestamped", "fixed":
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_FILENAME_MODE %q", c.Storage.FilenameMode))
	}
	if c.Upstream.Attempts == 0 {
		errs = append(errs, errors.New("UPSTREAM_ATTEMPTS must be at least 1"))
	}

	return errors.Join(errs...)
}
