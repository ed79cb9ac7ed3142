package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "STUDY_PLANNER_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	feedURLEnv       = "STUDY_PLANNER_FEED_URL"
	oracleURLEnv     = "OLLAMA_URL"
	oracleModelEnv   = "OLLAMA_MODEL"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Feeds         []FeedConfig       `yaml:"feeds"`
	Planner       PlannerConfig      `yaml:"planner"`
	Oracle        OracleConfig       `yaml:"oracle"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// FeedConfig describes one subscribed calendar export.
type FeedConfig struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// PlannerConfig carries the normalization and scoring constants.
type PlannerConfig struct {
	HorizonDays             int     `yaml:"horizonDays"`
	DeadlineWindowDays      int     `yaml:"deadlineWindowDays"`
	EffortNormalizerMinutes int     `yaml:"effortNormalizerMinutes"`
	UrgencyWeight           float64 `yaml:"urgencyWeight"`
	EffortWeight            float64 `yaml:"effortWeight"`
	// DefaultTimezone interprets feed times that carry no zone.
	DefaultTimezone string `yaml:"defaultTimezone"`
}

// OracleConfig describes the local effort-estimation service.
type OracleConfig struct {
	Endpoint           string `yaml:"endpoint"`
	Model              string `yaml:"model"`
	TimeoutSeconds     int    `yaml:"oracleTimeoutSeconds"`
	Concurrency        int    `yaml:"oracleConcurrency"`
	RunDeadlineSeconds int    `yaml:"runDeadlineSeconds"`
	CacheSize          int    `yaml:"cacheSize"`
}

// DatabaseConfig describes Postgres connection details; an empty DSN keeps
// snapshots in memory.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when the pipeline should run. An empty cron
// expression means a single run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultZone resolves the planner default timezone.
func (p PlannerConfig) DefaultZone() *time.Location {
	loc, err := time.LoadLocation(p.DefaultTimezone)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", p.DefaultTimezone, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	return loc
}

// Horizon converts HorizonDays to a duration.
func (p PlannerConfig) Horizon() time.Duration {
	return time.Duration(p.HorizonDays) * 24 * time.Hour
}

// DeadlineWindow converts DeadlineWindowDays to a duration.
func (p PlannerConfig) DeadlineWindow() time.Duration {
	return time.Duration(p.DeadlineWindowDays) * 24 * time.Hour
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
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
	cfg.bindTimezone()
	cfg.normalize()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(feedURLEnv); v != "" {
		c.Feeds = []FeedConfig{{ID: "default", URL: v}}
	}
	if v := os.Getenv(oracleURLEnv); v != "" {
		c.Oracle.Endpoint = v
	}
	if v := os.Getenv(oracleModelEnv); v != "" {
		c.Oracle.Model = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// normalize fills zero values so partially-filled configs behave correctly.
func (c *Config) normalize() {
	d := defaultConfig()
	if c.Planner.HorizonDays <= 0 {
		c.Planner.HorizonDays = d.Planner.HorizonDays
	}
	if c.Planner.DeadlineWindowDays <= 0 {
		c.Planner.DeadlineWindowDays = d.Planner.DeadlineWindowDays
	}
	if c.Planner.EffortNormalizerMinutes <= 0 {
		c.Planner.EffortNormalizerMinutes = d.Planner.EffortNormalizerMinutes
	}
	if c.Planner.UrgencyWeight <= 0 {
		c.Planner.UrgencyWeight = d.Planner.UrgencyWeight
	}
	if c.Planner.EffortWeight <= 0 {
		c.Planner.EffortWeight = d.Planner.EffortWeight
	}
	if c.Planner.DefaultTimezone == "" {
		c.Planner.DefaultTimezone = d.Planner.DefaultTimezone
	}
	if c.Oracle.TimeoutSeconds <= 0 {
		c.Oracle.TimeoutSeconds = d.Oracle.TimeoutSeconds
	}
	if c.Oracle.Concurrency <= 0 {
		c.Oracle.Concurrency = d.Oracle.Concurrency
	}
	if c.Oracle.RunDeadlineSeconds <= 0 {
		c.Oracle.RunDeadlineSeconds = d.Oracle.RunDeadlineSeconds
	}
	if c.Oracle.CacheSize <= 0 {
		c.Oracle.CacheSize = d.Oracle.CacheSize
	}
}

func mergeConfig(base, override Config) Config {
	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	if override.Planner.HorizonDays > 0 {
		base.Planner.HorizonDays = override.Planner.HorizonDays
	}
	if override.Planner.DeadlineWindowDays > 0 {
		base.Planner.DeadlineWindowDays = override.Planner.DeadlineWindowDays
	}
	if override.Planner.EffortNormalizerMinutes > 0 {
		base.Planner.EffortNormalizerMinutes = override.Planner.EffortNormalizerMinutes
	}
	if override.Planner.UrgencyWeight > 0 {
		base.Planner.UrgencyWeight = override.Planner.UrgencyWeight
	}
	if override.Planner.EffortWeight > 0 {
		base.Planner.EffortWeight = override.Planner.EffortWeight
	}
	if override.Planner.DefaultTimezone != "" {
		base.Planner.DefaultTimezone = override.Planner.DefaultTimezone
	}

	if override.Oracle.Endpoint != "" {
		base.Oracle.Endpoint = override.Oracle.Endpoint
	}
	if override.Oracle.Model != "" {
		base.Oracle.Model = override.Oracle.Model
	}
	if override.Oracle.TimeoutSeconds > 0 {
		base.Oracle.TimeoutSeconds = override.Oracle.TimeoutSeconds
	}
	if override.Oracle.Concurrency > 0 {
		base.Oracle.Concurrency = override.Oracle.Concurrency
	}
	if override.Oracle.RunDeadlineSeconds > 0 {
		base.Oracle.RunDeadlineSeconds = override.Oracle.RunDeadlineSeconds
	}
	if override.Oracle.CacheSize > 0 {
		base.Oracle.CacheSize = override.Oracle.CacheSize
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Feeds: nil,
		Planner: PlannerConfig{
			HorizonDays:             60,
			DeadlineWindowDays:      14,
			EffortNormalizerMinutes: 240,
			UrgencyWeight:           0.7,
			EffortWeight:            0.3,
			DefaultTimezone:         "Europe/Helsinki",
		},
		Oracle: OracleConfig{
			Endpoint:           "http://localhost:11434",
			Model:              "gemma3",
			TimeoutSeconds:     10,
			Concurrency:        4,
			RunDeadlineSeconds: 30,
			CacheSize:          1024,
		},
		Database:  DatabaseConfig{DSN: ""},
		Scheduler: SchedulerConfig{CronExpression: "", Timezone: defaultTimezone, location: tz},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
