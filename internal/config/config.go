package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "MIC_DATASET_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	llmModelEnv       = "LLM_MODEL"
	llmBaseURLEnv     = "LLM_BASE_URL"
	llmBackendEnv     = "LLM_BACKEND"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Rules         RulesConfig        `yaml:"rules"`
	Dates         DatesConfig        `yaml:"dates"`
	Prompt        PromptConfig       `yaml:"prompt"`
	LLM           LLMConfig          `yaml:"llm"`
	Output        OutputConfig       `yaml:"output"`
	Sample        SampleConfig       `yaml:"sample"`
	Resume        ResumeConfig       `yaml:"resume"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes where raw articles are read from.
type DatabaseConfig struct {
	Driver          string `yaml:"driver"`
	DSN             string `yaml:"dsn"`
	Table           string `yaml:"table"`
	BatchSize       int    `yaml:"batchSize"`
	DisablePushDown bool   `yaml:"disablePushDown"`
}

// RulesConfig holds the relevance rule sets, inline or in a separate YAML file.
type RulesConfig struct {
	Path               string   `yaml:"path"`
	CategoryMarker     string   `yaml:"categoryMarker"`
	ExcludableSubjects []string `yaml:"excludable_subjects"`
	RelevantSubjects   []string `yaml:"relevant_subjects"`
	DomesticLocations  []string `yaml:"domestic_locations"`
}

// DatesConfig controls parsing and display of publication dates.
type DatesConfig struct {
	SourceLayouts []string `yaml:"sourceLayouts"`
	DisplayLayout string   `yaml:"displayLayout"`
}

// PromptConfig points at instruction templates; empty paths use the built-in ones.
type PromptConfig struct {
	SystemPath         string `yaml:"systemPath"`
	UserPath           string `yaml:"userPath"`
	DisableHTMLCleanup bool   `yaml:"disableHtmlCleanup"`
}

// LLMConfig defines how to contact the classification backend.
type LLMConfig struct {
	Backend             string        `yaml:"backend"`
	BaseURL             string        `yaml:"baseUrl"`
	Model               string        `yaml:"model"`
	APIKey              string        `yaml:"apiKey"`
	Temperature         *float32      `yaml:"temperature"`
	MaxTextChars        int           `yaml:"maxTextChars"`
	Workers             int           `yaml:"workers"`
	RatePerSecond       float64       `yaml:"ratePerSecond"`
	Timeout             time.Duration `yaml:"timeout"`
	DisableStrictSchema bool          `yaml:"disableStrictSchema"`
	Retry               RetryConfig   `yaml:"retry"`
	Breaker             BreakerConfig `yaml:"breaker"`
}

// RetryConfig bounds retries of failed classifier calls.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"maxAttempts"`
	InitialBackoff time.Duration `yaml:"initialBackoff"`
	MaxBackoff     time.Duration `yaml:"maxBackoff"`
	Multiplier     float64       `yaml:"multiplier"`
}

// BreakerConfig tunes the circuit breaker around the backend.
type BreakerConfig struct {
	Disabled     bool          `yaml:"disabled"`
	MinRequests  uint32        `yaml:"minRequests"`
	FailureRatio float64       `yaml:"failureRatio"`
	OpenTimeout  time.Duration `yaml:"openTimeout"`
}

// OutputConfig lists artifact paths. Empty optional paths disable the artifact.
type OutputConfig struct {
	Responses  string `yaml:"responses"`
	Rejections string `yaml:"rejections"`
	Dataset    string `yaml:"dataset"`
	Sample     string `yaml:"sample"`
	PromptsDir string `yaml:"promptsDir"`
	Review     string `yaml:"review"`
	Metrics    string `yaml:"metrics"`
}

// SampleConfig fixes the size and seed of the review sample.
type SampleConfig struct {
	Size int    `yaml:"size"`
	Seed uint64 `yaml:"seed"`
}

// ResumeConfig controls which earlier outcomes are skipped.
type ResumeConfig struct {
	RetryRejected bool `yaml:"retryRejected"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	APIBase  string `yaml:"apiBase"`
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads the YAML file named by MIC_DATASET_CONFIG (if present) and applies environment overrides.
func Load() Config {
	return LoadFrom(os.Getenv(configPathEnv))
}

// LoadFrom is Load with an explicit file path; an empty path means defaults plus environment.
func LoadFrom(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(llmBaseURLEnv); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv(llmBackendEnv); v != "" {
		c.LLM.Backend = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	if override.Database.Table != "" {
		base.Database.Table = override.Database.Table
	}
	if override.Database.BatchSize > 0 {
		base.Database.BatchSize = override.Database.BatchSize
	}
	if override.Database.DisablePushDown {
		base.Database.DisablePushDown = true
	}

	if override.Rules.Path != "" {
		base.Rules.Path = override.Rules.Path
	}
	if override.Rules.CategoryMarker != "" {
		base.Rules.CategoryMarker = override.Rules.CategoryMarker
	}
	if len(override.Rules.ExcludableSubjects) > 0 {
		base.Rules.ExcludableSubjects = override.Rules.ExcludableSubjects
	}
	if len(override.Rules.RelevantSubjects) > 0 {
		base.Rules.RelevantSubjects = override.Rules.RelevantSubjects
	}
	if len(override.Rules.DomesticLocations) > 0 {
		base.Rules.DomesticLocations = override.Rules.DomesticLocations
	}

	if len(override.Dates.SourceLayouts) > 0 {
		base.Dates.SourceLayouts = override.Dates.SourceLayouts
	}
	if override.Dates.DisplayLayout != "" {
		base.Dates.DisplayLayout = override.Dates.DisplayLayout
	}

	if override.Prompt.SystemPath != "" {
		base.Prompt.SystemPath = override.Prompt.SystemPath
	}
	if override.Prompt.UserPath != "" {
		base.Prompt.UserPath = override.Prompt.UserPath
	}
	if override.Prompt.DisableHTMLCleanup {
		base.Prompt.DisableHTMLCleanup = true
	}

	base.LLM = mergeLLM(base.LLM, override.LLM)

	if override.Output.Responses != "" {
		base.Output.Responses = override.Output.Responses
	}
	if override.Output.Rejections != "" {
		base.Output.Rejections = override.Output.Rejections
	}
	if override.Output.Dataset != "" {
		base.Output.Dataset = override.Output.Dataset
	}
	if override.Output.Sample != "" {
		base.Output.Sample = override.Output.Sample
	}
	if override.Output.PromptsDir != "" {
		base.Output.PromptsDir = override.Output.PromptsDir
	}
	if override.Output.Review != "" {
		base.Output.Review = override.Output.Review
	}
	if override.Output.Metrics != "" {
		base.Output.Metrics = override.Output.Metrics
	}

	if override.Sample.Size > 0 {
		base.Sample.Size = override.Sample.Size
	}
	if override.Sample.Seed != 0 {
		base.Sample.Seed = override.Sample.Seed
	}

	if override.Resume.RetryRejected {
		base.Resume.RetryRejected = true
	}

	if override.Notifications.Telegram.APIBase != "" {
		base.Notifications.Telegram.APIBase = override.Notifications.Telegram.APIBase
	}
	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func mergeLLM(base, override LLMConfig) LLMConfig {
	if override.Backend != "" {
		base.Backend = override.Backend
	}
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.Model != "" {
		base.Model = override.Model
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	if override.Temperature != nil {
		base.Temperature = override.Temperature
	}
	if override.MaxTextChars != 0 {
		base.MaxTextChars = override.MaxTextChars
	}
	if override.Workers > 0 {
		base.Workers = override.Workers
	}
	if override.RatePerSecond != 0 {
		base.RatePerSecond = override.RatePerSecond
	}
	if override.Timeout > 0 {
		base.Timeout = override.Timeout
	}
	if override.DisableStrictSchema {
		base.DisableStrictSchema = true
	}

	if override.Retry.MaxAttempts > 0 {
		base.Retry.MaxAttempts = override.Retry.MaxAttempts
	}
	if override.Retry.InitialBackoff > 0 {
		base.Retry.InitialBackoff = override.Retry.InitialBackoff
	}
	if override.Retry.MaxBackoff > 0 {
		base.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	if override.Retry.Multiplier > 0 {
		base.Retry.Multiplier = override.Retry.Multiplier
	}

	if override.Breaker.Disabled {
		base.Breaker.Disabled = true
	}
	if override.Breaker.MinRequests > 0 {
		base.Breaker.MinRequests = override.Breaker.MinRequests
	}
	if override.Breaker.FailureRatio > 0 {
		base.Breaker.FailureRatio = override.Breaker.FailureRatio
	}
	if override.Breaker.OpenTimeout > 0 {
		base.Breaker.OpenTimeout = override.Breaker.OpenTimeout
	}
	return base
}

// TemperatureValue returns the configured sampling temperature.
func (l LLMConfig) TemperatureValue() float32 {
	if l.Temperature == nil {
		return defaultTemperature
	}
	return *l.Temperature
}

const defaultTemperature float32 = 0.2

func defaultConfig() Config {
	temperature := defaultTemperature
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{
			Driver:    "duckdb",
			DSN:       "data/mic.duckdb",
			Table:     "raw.articles",
			BatchSize: 500,
		},
		Rules: RulesConfig{CategoryMarker: "Fore"},
		Dates: DatesConfig{
			SourceLayouts: []string{"Jan 2, 2006", "2006-01-02"},
			DisplayLayout: "Mon, Jan 2, 2006",
		},
		LLM: LLMConfig{
			Backend:       "openai",
			Model:         "gpt-4o-mini",
			Temperature:   &temperature,
			MaxTextChars:  18000,
			Workers:       4,
			RatePerSecond: 2,
			Timeout:       120 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:    4,
				InitialBackoff: 2 * time.Second,
				MaxBackoff:     30 * time.Second,
				Multiplier:     2,
			},
			Breaker: BreakerConfig{
				MinRequests:  10,
				FailureRatio: 0.5,
				OpenTimeout:  60 * time.Second,
			},
		},
		Output: OutputConfig{
			Responses:  "data/processed/responses.jsonl",
			Rejections: "data/processed/rejections.jsonl",
			Dataset:    "data/processed/mic_dataset.jsonl",
			Sample:     "data/processed/mic_sample.jsonl",
		},
		Sample: SampleConfig{Size: 100, Seed: 42},
	}
}
