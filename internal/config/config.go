package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "Asia/Almaty"
	defaultConfigPath = "config.yaml"
	configPathEnv     = "FEEDBACKBOT_CONFIG"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	towecoUserEnv     = "TOWECO_USERNAME"
	towecoPasswordEnv = "TOWECO_PASSWORD"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	openAIModelEnv    = "OPENAI_MODEL"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	redisURLEnv       = "REDIS_URL"
	staffSecretEnv    = "STAFF_SECRET"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Telegram TelegramConfig `yaml:"telegram"`
	Reports  ReportsConfig  `yaml:"reports"`
	Toweco   TowecoConfig   `yaml:"toweco"`
	LLM      LLMConfig      `yaml:"llm"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Ops      OpsConfig      `yaml:"ops"`
}

// LoggingConfig selects verbosity and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelegramConfig wires the bot and its audience.
type TelegramConfig struct {
	BotToken    string  `yaml:"botToken"`
	ChannelID   int64   `yaml:"channelId"`
	ChannelLink string  `yaml:"channelLink"`
	Admins      []int64 `yaml:"admins"`
	StaffSecret string  `yaml:"staffSecret"`
	// APIEndpoint points at a self-hosted Bot API server; empty uses api.telegram.org.
	APIEndpoint string `yaml:"apiEndpoint"`
}

// Recipients returns the broadcast channel followed by admins, in delivery order.
func (t TelegramConfig) Recipients() []int64 {
	out := make([]int64, 0, len(t.Admins)+1)
	if t.ChannelID != 0 {
		out = append(out, t.ChannelID)
	}
	return append(out, t.Admins...)
}

// IsAdmin reports whether the telegram user is configured as admin.
func (t TelegramConfig) IsAdmin(id int64) bool {
	for _, admin := range t.Admins {
		if admin == id {
			return true
		}
	}
	return false
}

// ReportsConfig controls both report schedules and their retry policy.
type ReportsConfig struct {
	DailyTime         string        `yaml:"dailyTime"`
	PeriodDays        int           `yaml:"periodDays"`
	Timezone          string        `yaml:"timezone"`
	SummaryHour       int           `yaml:"summaryHour"`
	SummaryMinute     int           `yaml:"summaryMinute"`
	FetchAttempts     int           `yaml:"fetchAttempts"`
	FetchDelay        time.Duration `yaml:"fetchDelay"`
	DeliveryAttempts  int           `yaml:"deliveryAttempts"`
	DailyRetryDelay   time.Duration `yaml:"dailyRetryDelay"`
	SummaryRetryDelay time.Duration `yaml:"summaryRetryDelay"`
	DailyPacing       time.Duration `yaml:"dailyPacing"`
	SummaryPacing     time.Duration `yaml:"summaryPacing"`
	StartupDelay      time.Duration `yaml:"startupDelay"`

	location *time.Location `yaml:"-"`
}

// Location resolves the business timezone.
func (r ReportsConfig) Location() *time.Location {
	if r.location != nil {
		return r.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DailyClock parses the daily report time; ok is false when the daily report is disabled.
func (r ReportsConfig) DailyClock() (ClockTime, bool, error) {
	if strings.TrimSpace(r.DailyTime) == "" {
		return ClockTime{}, false, nil
	}
	ct, err := ParseClockTime(r.DailyTime)
	if err != nil {
		return ClockTime{}, false, err
	}
	return ct, true, nil
}

// ClockTime is a wall-clock hour and minute.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM".
func ParseClockTime(value string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return ClockTime{}, fmt.Errorf("clock time %q: expected HH:MM", value)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("clock time %q: invalid hour", value)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("clock time %q: invalid minute", value)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// TowecoConfig describes the review aggregator account.
type TowecoConfig struct {
	BaseURL  string        `yaml:"baseUrl"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LLMConfig defines how to contact the completion and transcription APIs.
type LLMConfig struct {
	Provider              string        `yaml:"provider"`
	Endpoint              string        `yaml:"endpoint"`
	Model                 string        `yaml:"model"`
	APIKey                string        `yaml:"apiKey"`
	Timeout               time.Duration `yaml:"timeout"`
	TranscriptionEndpoint string        `yaml:"transcriptionEndpoint"`
	TranscriptionModel    string        `yaml:"transcriptionModel"`
	BedrockModel          string        `yaml:"bedrockModel"`
	BedrockRegion         string        `yaml:"bedrockRegion"`
	AdvicePrompt          string        `yaml:"advicePrompt"`
	SummaryPrompt         string        `yaml:"summaryPrompt"`
}

// DatabaseConfig picks the SQL backend for staff data.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig enables shared dialog state when URL is set.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// OpsConfig configures the health/metrics listener; empty Listen disables it.
type OpsConfig struct {
	Listen string `yaml:"listen"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	return LoadPath("")
}

// LoadPath is Load with an explicit file; an empty path falls back to
// $FEEDBACKBOT_CONFIG and then config.yaml.
func LoadPath(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path == "" {
		path = defaultConfigPath
	}
	if raw, err := os.ReadFile(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		}
	} else {
		fileCfg, err := Parse(raw)
		if err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Parse decodes a YAML document without applying defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate reports settings the bot cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.Telegram.BotToken == "" {
		errs = append(errs, errors.New("telegram.botToken is required"))
	}
	if _, _, err := c.Reports.DailyClock(); err != nil {
		errs = append(errs, fmt.Errorf("reports.dailyTime: %w", err))
	}
	if c.Reports.SummaryHour < 0 || c.Reports.SummaryHour > 23 {
		errs = append(errs, errors.New("reports.summaryHour must be within 0..23"))
	}
	if c.Reports.PeriodDays <= 0 {
		errs = append(errs, errors.New("reports.periodDays must be positive"))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	switch c.LLM.Provider {
	case "openai", "bedrock", "":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider))
	}
	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv(towecoUserEnv); v != "" {
		c.Toweco.Username = v
	}
	if v := os.Getenv(towecoPasswordEnv); v != "" {
		c.Toweco.Password = v
	}
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(redisURLEnv); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv(staffSecretEnv); v != "" {
		c.Telegram.StaffSecret = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Reports.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Reports.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	if override.Telegram.ChannelID != 0 {
		base.Telegram.ChannelID = override.Telegram.ChannelID
	}
	if override.Telegram.ChannelLink != "" {
		base.Telegram.ChannelLink = override.Telegram.ChannelLink
	}
	if len(override.Telegram.Admins) > 0 {
		base.Telegram.Admins = override.Telegram.Admins
	}
	if override.Telegram.StaffSecret != "" {
		base.Telegram.StaffSecret = override.Telegram.StaffSecret
	}
	if override.Telegram.APIEndpoint != "" {
		base.Telegram.APIEndpoint = override.Telegram.APIEndpoint
	}

	base.Reports = mergeReports(base.Reports, override.Reports)

	if override.Toweco.BaseURL != "" {
		base.Toweco.BaseURL = override.Toweco.BaseURL
	}
	if override.Toweco.Username != "" {
		base.Toweco.Username = override.Toweco.Username
	}
	if override.Toweco.Password != "" {
		base.Toweco.Password = override.Toweco.Password
	}
	if override.Toweco.Timeout > 0 {
		base.Toweco.Timeout = override.Toweco.Timeout
	}

	base.LLM = mergeLLM(base.LLM, override.LLM)

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	if override.Redis.URL != "" {
		base.Redis.URL = override.Redis.URL
	}
	if override.Ops.Listen != "" {
		base.Ops.Listen = override.Ops.Listen
	}

	return base
}

func mergeReports(base, override ReportsConfig) ReportsConfig {
	if override.DailyTime != "" {
		base.DailyTime = override.DailyTime
	}
	if override.PeriodDays > 0 {
		base.PeriodDays = override.PeriodDays
	}
	if override.Timezone != "" {
		base.Timezone = override.Timezone
	}
	if override.SummaryHour > 0 {
		base.SummaryHour = override.SummaryHour
	}
	if override.SummaryMinute > 0 {
		base.SummaryMinute = override.SummaryMinute
	}
	if override.FetchAttempts > 0 {
		base.FetchAttempts = override.FetchAttempts
	}
	if override.FetchDelay > 0 {
		base.FetchDelay = override.FetchDelay
	}
	if override.DeliveryAttempts > 0 {
		base.DeliveryAttempts = override.DeliveryAttempts
	}
	if override.DailyRetryDelay > 0 {
		base.DailyRetryDelay = override.DailyRetryDelay
	}
	if override.SummaryRetryDelay > 0 {
		base.SummaryRetryDelay = override.SummaryRetryDelay
	}
	if override.DailyPacing > 0 {
		base.DailyPacing = override.DailyPacing
	}
	if override.SummaryPacing > 0 {
		base.SummaryPacing = override.SummaryPacing
	}
	if override.StartupDelay > 0 {
		base.StartupDelay = override.StartupDelay
	}
	return base
}

func mergeLLM(base, override LLMConfig) LLMConfig {
	if override.Provider != "" {
		base.Provider = override.Provider
	}
	if override.Endpoint != "" {
		base.Endpoint = override.Endpoint
	}
	if override.Model != "" {
		base.Model = override.Model
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	if override.Timeout > 0 {
		base.Timeout = override.Timeout
	}
	if override.TranscriptionEndpoint != "" {
		base.TranscriptionEndpoint = override.TranscriptionEndpoint
	}
	if override.TranscriptionModel != "" {
		base.TranscriptionModel = override.TranscriptionModel
	}
	if override.BedrockModel != "" {
		base.BedrockModel = override.BedrockModel
	}
	if override.BedrockRegion != "" {
		base.BedrockRegion = override.BedrockRegion
	}
	if override.AdvicePrompt != "" {
		base.AdvicePrompt = override.AdvicePrompt
	}
	if override.SummaryPrompt != "" {
		base.SummaryPrompt = override.SummaryPrompt
	}
	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Reports: ReportsConfig{
			PeriodDays:        14,
			Timezone:          defaultTimezone,
			SummaryHour:       10,
			SummaryMinute:     0,
			FetchAttempts:     5,
			FetchDelay:        100 * time.Second,
			DeliveryAttempts:  3,
			DailyRetryDelay:   100 * time.Second,
			SummaryRetryDelay: 30 * time.Second,
			DailyPacing:       time.Second,
			SummaryPacing:     2 * time.Second,
			StartupDelay:      10 * time.Second,
			location:          tz,
		},
		Toweco: TowecoConfig{
			BaseURL: "https://api-v4.toweco.ru/",
			Timeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Provider:              "openai",
			Endpoint:              "https://api.openai.com/v1/chat/completions",
			Model:                 "gpt-4o",
			Timeout:               60 * time.Second,
			TranscriptionEndpoint: "https://api.openai.com/v1/audio/transcriptions",
			TranscriptionModel:    "whisper-1",
			BedrockModel:          "anthropic.claude-3-sonnet-20240229-v1:0",
			BedrockRegion:         "us-east-1",
		},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "./data/sqlite.db"},
	}
}
