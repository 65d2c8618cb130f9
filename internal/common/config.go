package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Browser     BrowserConfig `toml:"browser"`
	Scrape      ScrapeConfig  `toml:"scrape"`
	Retry       RetryConfig   `toml:"retry"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
	Schedule    string        `toml:"schedule"` // Optional cron expression; empty runs the crawl once
}

// BrowserConfig controls the chromedp automation session
type BrowserConfig struct {
	Headless     bool              `toml:"headless"`
	UserAgent    string            `toml:"user_agent"`
	NoSandbox    bool              `toml:"no_sandbox"`
	DisableGPU   bool              `toml:"disable_gpu"`
	PageTimeout  time.Duration     `toml:"page_timeout"`  // Per navigate/wait call, not global
	PollInterval time.Duration     `toml:"poll_interval"` // Predicate poll cadence for WaitFor
	ExtraHeaders map[string]string `toml:"extra_headers"` // Spoofed request headers
}

// ScrapeConfig controls the season/gameweek pipeline
type ScrapeConfig struct {
	FromYear                   int           `toml:"from_year" validate:"gte=1900"`
	ToYear                     int           `toml:"to_year" validate:"gtefield=FromYear"`
	LeagueOnly                 bool          `toml:"league_only"`                    // Skip tournaments without gameweek navigation
	GameweekRetries            int           `toml:"gameweek_retries"`               // Anomaly retries per gameweek before skipping
	MaxRescrapeCount           int           `toml:"max_rescrape_count"`             // Season-level rescrape attempts after an errored crawl
	SeasonDelay                time.Duration `toml:"season_delay"`                   // Politeness delay between seasons
	GameweekDelay              time.Duration `toml:"gameweek_delay"`                 // Politeness delay between gameweeks
	RandomDelay                time.Duration `toml:"random_delay"`                   // Jitter added to politeness delays
	ExpectedMatchesPerGameweek int           `toml:"expected_matches_per_gameweek"`  // 0 = derive from gameweek count (double round-robin)
	SkipCompleted              bool          `toml:"skip_completed"`                 // Skip seasons already marked complete in metadata
}

// RetryConfig controls the retry orchestrator around network-facing calls
type RetryConfig struct {
	MaxAttempts        int           `toml:"max_attempts"`
	BackoffBase        float64       `toml:"backoff_base"` // Exponential backoff base, seconds (base^attempt)
	ReconnectURL       string        `toml:"reconnect_url" validate:"omitempty,url"`
	ReconnectInterval  time.Duration `toml:"reconnect_interval"`
	ReconnectMaxWait   time.Duration `toml:"reconnect_max_wait"`
}

// StorageConfig configures artifact output and the metadata store
type StorageConfig struct {
	OutputDir string       `toml:"output_dir" validate:"required"`
	Badger    BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Output     []string `toml:"output"` // "stdout", "file"
	TimeFormat string   `toml:"time_format"`
}

// NewDefaultConfig returns the baseline configuration before any file, env
// or flag overrides are applied.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Browser: BrowserConfig{
			Headless:     true,
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			NoSandbox:    true,
			DisableGPU:   true,
			PageTimeout:  30 * time.Second,
			PollInterval: 500 * time.Millisecond,
		},
		Scrape: ScrapeConfig{
			FromYear:         2010,
			ToYear:           time.Now().Year(),
			LeagueOnly:       true,
			GameweekRetries:  3,
			MaxRescrapeCount: 2,
			SeasonDelay:      8 * time.Second,
			GameweekDelay:    2 * time.Second,
			RandomDelay:      2 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:       4,
			BackoffBase:       2.0,
			ReconnectURL:      "https://www.google.com",
			ReconnectInterval: 5 * time.Second,
			ReconnectMaxWait:  5 * time.Minute,
		},
		Storage: StorageConfig{
			OutputDir: "./data",
			Badger: BadgerConfig{
				Path: "./data/meta",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration from files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier ones.
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

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural constraints on the resolved configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MATCHDAY_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if dir := os.Getenv("MATCHDAY_OUTPUT_DIR"); dir != "" {
		config.Storage.OutputDir = dir
	}
	if path := os.Getenv("MATCHDAY_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if level := os.Getenv("MATCHDAY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if ua := os.Getenv("MATCHDAY_USER_AGENT"); ua != "" {
		config.Browser.UserAgent = ua
	}
	if headless := os.Getenv("MATCHDAY_HEADLESS"); headless != "" {
		if b, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = b
		}
	}

	if from := os.Getenv("MATCHDAY_FROM_YEAR"); from != "" {
		if y, err := strconv.Atoi(from); err == nil {
			config.Scrape.FromYear = y
		}
	}
	if to := os.Getenv("MATCHDAY_TO_YEAR"); to != "" {
		if y, err := strconv.Atoi(to); err == nil {
			config.Scrape.ToYear = y
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, outputDir string, headless *bool) {
	if outputDir != "" {
		config.Storage.OutputDir = outputDir
	}
	if headless != nil {
		config.Browser.Headless = *headless
	}
}

// IsProduction returns true when running with a production configuration.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
