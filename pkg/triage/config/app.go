package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderClaudeCLI = "claude-cli"
	ProviderMock      = "mock"
)

// Journal backends.
const (
	JournalNone     = "none"
	JournalMemory   = "memory"
	JournalSQLite   = "sqlite"
	JournalRedis    = "redis"
	JournalPostgres = "postgres"
)

// AppConfig is the complete service configuration.
type AppConfig struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Journal JournalConfig `mapstructure:"journal"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// ServerConfig configures the HTTP front door.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RunTimeout bounds a single graph run started by a request.
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

// LLMConfig selects and configures the chat model.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	TopP        float64       `mapstructure:"top_p"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	ClaudePath  string        `mapstructure:"claude_path"`
	// MockResponses are returned in order by the mock provider.
	MockResponses []string `mapstructure:"mock_responses"`
}

// JournalConfig selects where run records are kept.
type JournalConfig struct {
	Backend       string        `mapstructure:"backend"`
	Path          string        `mapstructure:"path"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	PostgresDSN   string        `mapstructure:"postgres_dsn"`
	TTL           time.Duration `mapstructure:"ttl"`
	// Capacity bounds the memory backend.
	Capacity int `mapstructure:"capacity"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Stdout writes spans as JSON to stderr.
	Stdout bool `mapstructure:"stdout"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RunTimeout:      60 * time.Second,
		},
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			BaseURL:     "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Model:       "qwen-plus",
			Timeout:     30 * time.Second,
			MaxAttempts: 3,
			ClaudePath:  "claude",
		},
		Journal: JournalConfig{
			Backend:   JournalMemory,
			Path:      "triage.db",
			RedisAddr: "localhost:6379",
			TTL:       7 * 24 * time.Hour,
			Capacity:  10_000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, then the file at path
// (skipped when empty), then environment variables. envFiles are loaded
// into the environment first without overriding variables already set;
// with no envFiles, ./.env is loaded if present.
func Load(path string, envFiles ...string) (AppConfig, error) {
	cfg := Defaults()

	if path != "" {
		file, err := FromFile(path)
		if err != nil {
			return AppConfig{}, err
		}
		if err := file.Decode(&cfg); err != nil {
			return AppConfig{}, err
		}
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return AppConfig{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return AppConfig{}, err
	}

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// applyEnv overlays TRIAGE_* variables. The API key also falls back to
// OPENAI_API_KEY and DASHSCOPE_API_KEY.
func applyEnv(cfg *AppConfig) error {
	setString(&cfg.Server.Addr, "TRIAGE_SERVER_ADDR")
	setString(&cfg.LLM.Provider, "TRIAGE_LLM_PROVIDER")
	setString(&cfg.LLM.BaseURL, "TRIAGE_LLM_BASE_URL")
	setString(&cfg.LLM.Model, "TRIAGE_LLM_MODEL")
	setString(&cfg.LLM.ClaudePath, "TRIAGE_CLAUDE_PATH")
	setString(&cfg.Journal.Backend, "TRIAGE_JOURNAL_BACKEND")
	setString(&cfg.Journal.Path, "TRIAGE_JOURNAL_PATH")
	setString(&cfg.Journal.RedisAddr, "TRIAGE_REDIS_ADDR")
	setString(&cfg.Journal.RedisPassword, "TRIAGE_REDIS_PASSWORD")
	setString(&cfg.Journal.PostgresDSN, "TRIAGE_POSTGRES_DSN")
	setString(&cfg.Log.Level, "TRIAGE_LOG_LEVEL")
	setString(&cfg.Log.Format, "TRIAGE_LOG_FORMAT")

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = firstEnv("TRIAGE_LLM_API_KEY", "OPENAI_API_KEY", "DASHSCOPE_API_KEY")
	} else {
		setString(&cfg.LLM.APIKey, "TRIAGE_LLM_API_KEY")
	}

	if v := os.Getenv("TRIAGE_LLM_TOP_P"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TRIAGE_LLM_TOP_P: %w", err)
		}
		cfg.LLM.TopP = f
	}
	if v := os.Getenv("TRIAGE_RUN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TRIAGE_RUN_TIMEOUT: %w", err)
		}
		cfg.Server.RunTimeout = d
	}
	if v := os.Getenv("TRIAGE_TRACING_STDOUT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRIAGE_TRACING_STDOUT: %w", err)
		}
		cfg.Tracing.Stdout = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks value ranges and enumerations.
// A missing API key is not an error here; the openai provider reports it
// when the client is built.
func (c AppConfig) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if !slices.Contains([]string{ProviderOpenAI, ProviderClaudeCLI, ProviderMock}, c.LLM.Provider) {
		errs = append(errs, fmt.Errorf("llm.provider %q is not one of openai, claude-cli, mock", c.LLM.Provider))
	}
	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		errs = append(errs, fmt.Errorf("llm.top_p %v must be between 0 and 1", c.LLM.TopP))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %v must be between 0 and 2", c.LLM.Temperature))
	}
	if c.LLM.MaxAttempts < 1 {
		errs = append(errs, errors.New("llm.max_attempts must be at least 1"))
	}
	backends := []string{JournalNone, JournalMemory, JournalSQLite, JournalRedis, JournalPostgres}
	if !slices.Contains(backends, c.Journal.Backend) {
		errs = append(errs, fmt.Errorf("journal.backend %q is not one of %v", c.Journal.Backend, backends))
	}
	if c.Journal.Capacity < 0 {
		errs = append(errs, fmt.Errorf("journal.capacity %d must not be negative", c.Journal.Capacity))
	}
	if c.Journal.Backend == JournalPostgres && c.Journal.PostgresDSN == "" {
		errs = append(errs, errors.New("journal.postgres_dsn is required for the postgres backend"))
	}
	return errors.Join(errs...)
}
