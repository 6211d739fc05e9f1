package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces environment overrides: LIFEOS_AI_API_KEY -> ai.api_key.
const EnvPrefix = "LIFEOS_"

const maxConfigFileSize = 1024 * 1024

// Config keeps runtime settings for the pipeline and its channels.
type Config struct {
	Timezone  string          `koanf:"timezone"`
	Store     StoreConfig     `koanf:"store"`
	AI        AIConfig        `koanf:"ai"`
	Calendar  CalendarConfig  `koanf:"calendar"`
	Processor ProcessorConfig `koanf:"processor"`
	Server    ServerConfig    `koanf:"server"`
	Telegram  TelegramConfig  `koanf:"telegram"`
	Schedule  ScheduleConfig  `koanf:"schedule"`
	Log       LogConfig       `koanf:"log"`
}

type StoreConfig struct {
	// Backend is "sqlite" or "sheets".
	Backend         string        `koanf:"backend"`
	Path            string        `koanf:"path"`
	SheetID         string        `koanf:"sheet_id"`
	CredentialsFile string        `koanf:"credentials_file"`
	MaxRetries      int           `koanf:"max_retries"`
	RetryInitial    time.Duration `koanf:"retry_initial"`
}

type AIConfig struct {
	Provider   string        `koanf:"provider"`
	APIKey     string        `koanf:"api_key"`
	// Model empty selects the provider default.
	Model      string        `koanf:"model"`
	BaseURL    string        `koanf:"base_url"`
	Timeout    time.Duration `koanf:"timeout"`
	RepairJSON bool          `koanf:"repair_json"`
}

type CalendarConfig struct {
	// Backend is "none", "local" or "google".
	Backend         string `koanf:"backend"`
	CalendarID      string `koanf:"calendar_id"`
	CredentialsFile string `koanf:"credentials_file"`
}

type ProcessorConfig struct {
	MaxRetries int           `koanf:"max_retries"`
	RetryDelay time.Duration `koanf:"retry_delay"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	APIKey          string        `koanf:"api_key"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type TelegramConfig struct {
	Token        string  `koanf:"token"`
	AllowedChats []int64 `koanf:"allowed_chats"`
}

type ScheduleConfig struct {
	ProcessInterval time.Duration `koanf:"process_interval"`
	MorningBrief    string        `koanf:"morning_brief"`
	NightBrief      string        `koanf:"night_brief"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Timezone: "Local",
		Store: StoreConfig{
			Backend:      "sqlite",
			Path:         "life_os.db",
			MaxRetries:   3,
			RetryInitial: time.Second,
		},
		AI: AIConfig{
			Provider:   "gemini",
			Timeout:    30 * time.Second,
			RepairJSON: true,
		},
		Calendar: CalendarConfig{
			Backend:    "none",
			CalendarID: "primary",
		},
		Processor: ProcessorConfig{
			MaxRetries: 3,
			RetryDelay: 2 * time.Second,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Schedule: ScheduleConfig{
			ProcessInterval: 15 * time.Minute,
			MorningBrief:    "07:00",
			NightBrief:      "21:00",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the optional YAML file at path, then LIFEOS_* environment
// variables, over Default.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// envKey maps LIFEOS_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return content, nil
}

// Validate checks backend-specific settings.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	switch c.Store.Backend {
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite backend"))
		}
	case "sheets":
		if c.Store.SheetID == "" {
			errs = append(errs, errors.New("store.sheet_id is required for the sheets backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q must be sqlite or sheets", c.Store.Backend))
	}
	if c.Store.MaxRetries < 0 {
		errs = append(errs, errors.New("store.max_retries must not be negative"))
	}

	switch c.AI.Provider {
	case "gemini", "openai":
	default:
		errs = append(errs, fmt.Errorf("ai.provider %q must be gemini or openai", c.AI.Provider))
	}

	switch c.Calendar.Backend {
	case "none", "local":
	case "google":
		if c.Calendar.CalendarID == "" {
			errs = append(errs, errors.New("calendar.calendar_id is required for the google backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("calendar.backend %q must be none, local or google", c.Calendar.Backend))
	}
	if c.Calendar.Backend == "local" && c.Store.Backend != "sqlite" {
		errs = append(errs, errors.New("calendar.backend local needs the sqlite store"))
	}

	if c.Processor.MaxRetries < 1 {
		errs = append(errs, errors.New("processor.max_retries must be at least 1"))
	}
	if c.Telegram.Token != "" && len(c.Telegram.AllowedChats) == 0 {
		errs = append(errs, errors.New("telegram.allowed_chats is required when telegram.token is set"))
	}
	if c.Schedule.ProcessInterval < time.Second {
		errs = append(errs, errors.New("schedule.process_interval must be at least 1s"))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}

	return errors.Join(errs...)
}

// RequireAI reports whether model access is configured.
func (c *Config) RequireAI() error {
	if c.AI.APIKey == "" {
		return errors.New("ai.api_key is required (set LIFEOS_AI_API_KEY)")
	}
	return nil
}

// Location resolves Timezone, "Local" meaning the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
