package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. COUNTDOWN_TELEGRAM_BOT_TOKEN
const EnvPrefix = "COUNTDOWN"

// Calendar types
const (
	CalendarPublic   = "public"
	CalendarIsDayOff = "isdayoff"
	CalendarFile     = "file"
)

// Config represents application configuration
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Planner  PlannerConfig  `mapstructure:"planner"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	State    StateConfig    `mapstructure:"state"`
}

// TelegramConfig represents Bot API configuration
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	APIURL   string `mapstructure:"api_url"`
}

// RedisConfig represents countdown storage configuration.
// An empty URL keeps records in memory.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// CalendarConfig represents day-off calendar configuration
type CalendarConfig struct {
	Type         string `mapstructure:"type"` // "public", "isdayoff" or "file"
	Country      string `mapstructure:"country"`
	APIURL       string `mapstructure:"api_url"`       // isdayoff base URL
	FallbackFile string `mapstructure:"fallback_file"` // YAML day-off file used when the primary source fails
	CacheTTL     string `mapstructure:"cache_ttl"`
	HolidaysFile string `mapstructure:"holidays_file"` // user holidays, .yaml or .ics
}

// DispatchConfig represents reminder dispatch configuration
type DispatchConfig struct {
	Schedule    string `mapstructure:"schedule"`
	Timezone    string `mapstructure:"timezone"`
	SendTimeout string `mapstructure:"send_timeout"`
	RunOnStart  bool   `mapstructure:"run_on_start"`
	DryRun      bool   `mapstructure:"dry_run"`
}

// PlannerConfig represents long-weekend planner configuration
type PlannerConfig struct {
	LookaheadMonths int `mapstructure:"lookahead_months"`
	TotalLeaveDays  int `mapstructure:"total_leave_days"`
}

// ServerConfig represents the HTTP API configuration
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// StateConfig represents state storage configuration
type StateConfig struct {
	PlannerFile string `mapstructure:"planner_file"`
}

var defaults = map[string]interface{}{
	"telegram.bot_token":       "",
	"telegram.api_url":         "https://api.telegram.org",
	"redis.url":                "",
	"calendar.type":            CalendarPublic,
	"calendar.country":         "us",
	"calendar.api_url":         "",
	"calendar.fallback_file":   "",
	"calendar.cache_ttl":       "24h",
	"calendar.holidays_file":   "holidays.yaml",
	"dispatch.schedule":        "0 9 * * *",
	"dispatch.timezone":        "Local",
	"dispatch.send_timeout":    "10s",
	"dispatch.run_on_start":    false,
	"dispatch.dry_run":         false,
	"planner.lookahead_months": 12,
	"planner.total_leave_days": 20,
	"server.addr":              ":8080",
	"log.file":                 "",
	"log.level":                "info",
	"state.planner_file":       "data/planner_state.json",
}

// Load loads configuration from file, .env and the environment.
// With an empty configPath the file is optional and searched in the usual places.
func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.holiday-countdown")
		v.AddConfigPath("/etc/holiday-countdown")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Calendar.Type {
	case CalendarPublic, CalendarIsDayOff:
	case CalendarFile:
		if c.Calendar.FallbackFile == "" {
			return fmt.Errorf("calendar.fallback_file is required for file type")
		}
	default:
		return fmt.Errorf("calendar.type must be 'public', 'isdayoff' or 'file', got '%s'", c.Calendar.Type)
	}

	if _, err := time.LoadLocation(c.Dispatch.Timezone); err != nil {
		return fmt.Errorf("dispatch.timezone: %w", err)
	}
	if c.Dispatch.Schedule == "" {
		return fmt.Errorf("dispatch.schedule is required")
	}
	if c.Planner.LookaheadMonths <= 0 {
		return fmt.Errorf("planner.lookahead_months must be positive")
	}
	if c.Planner.TotalLeaveDays < 0 {
		return fmt.Errorf("planner.total_leave_days must not be negative")
	}

	return nil
}

// RequireTelegram checks that a bot token is configured
func (c *Config) RequireTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required (or set %s_TELEGRAM_BOT_TOKEN)", EnvPrefix)
	}
	return nil
}

// GetCacheTTL returns cache TTL duration
func (c *CalendarConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 24*time.Hour)
}

// GetSendTimeout returns the per-message send timeout
func (c *DispatchConfig) GetSendTimeout() time.Duration {
	return parseDuration(c.SendTimeout, 10*time.Second)
}

// GetLocation returns the dispatch timezone
func (c *DispatchConfig) GetLocation() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
