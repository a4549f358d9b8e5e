package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone    = "Europe/Berlin"
	defaultInstitution = "DE-24"
	configPathEnv      = "K10PLUS_CONFIG"
	databaseDSNEnv     = "DATABASE_DSN"
	logLevelEnv        = "K10PLUS_LOG_LEVEL"
	exportDirEnv       = "K10PLUS_EXPORT_DIR"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Export        ExportConfig       `yaml:"export"`
	Deposit       DepositConfig      `yaml:"deposit"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes Postgres connection details. The DSN is required.
type DatabaseConfig struct {
	DSN          string        `yaml:"dsn"`
	QueryTimeout time.Duration `yaml:"queryTimeout"`
}

// SchedulerConfig defines when scheduled registration runs.
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
	return loadLocation(defaultTimezone)
}

// ExportConfig controls record derivation and temporary files.
type ExportConfig struct {
	// Institution is the ISIL written into every record.
	Institution string `yaml:"institution"`
	// Timezone of the 005/008 dates and of export file names.
	Timezone string `yaml:"timezone"`
	// WorkDir receives temporary record files; empty means the OS default.
	WorkDir string `yaml:"workDir"`
	// Packager is "native" or "tar".
	Packager string         `yaml:"packager"`
	location *time.Location `yaml:"-"`
}

// Location resolves the record timezone.
func (e ExportConfig) Location() *time.Location {
	if e.location != nil {
		return e.location
	}
	return loadLocation(defaultTimezone)
}

// DepositConfig tunes the SFTP deposit.
type DepositConfig struct {
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"`
	// InsecureIgnoreHostKey defaults to true when unset.
	InsecureIgnoreHostKey *bool  `yaml:"insecureIgnoreHostKey"`
	KnownHostsFile        string `yaml:"knownHostsFile"`
}

// IgnoreHostKey reports whether server host keys are accepted unchecked.
func (d DepositConfig) IgnoreHostKey() bool {
	return d.InsecureIgnoreHostKey == nil || *d.InsecureIgnoreHostKey
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
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
	cfg.bindTimezones()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(exportDirEnv); v != "" {
		c.Export.WorkDir = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezones() {
	c.Scheduler.location = bindLocation("scheduler", c.Scheduler.Timezone)
	c.Export.location = bindLocation("export", c.Export.Timezone)
}

func bindLocation(section, tz string) *time.Location {
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown %s timezone %s, reverting to %s", section, tz, defaultTimezone)
		return loadLocation(defaultTimezone)
	}
	return loc
}

func loadLocation(tz string) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	if override.Database.QueryTimeout > 0 {
		base.Database.QueryTimeout = override.Database.QueryTimeout
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Export.Institution != "" {
		base.Export.Institution = override.Export.Institution
	}
	if override.Export.Timezone != "" {
		base.Export.Timezone = override.Export.Timezone
	}
	if override.Export.WorkDir != "" {
		base.Export.WorkDir = override.Export.WorkDir
	}
	if override.Export.Packager != "" {
		base.Export.Packager = override.Export.Packager
	}

	if override.Deposit.Workers > 0 {
		base.Deposit.Workers = override.Deposit.Workers
	}
	if override.Deposit.Timeout > 0 {
		base.Deposit.Timeout = override.Deposit.Timeout
	}
	if override.Deposit.InsecureIgnoreHostKey != nil {
		base.Deposit.InsecureIgnoreHostKey = override.Deposit.InsecureIgnoreHostKey
	}
	if override.Deposit.KnownHostsFile != "" {
		base.Deposit.KnownHostsFile = override.Deposit.KnownHostsFile
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Database:  DatabaseConfig{QueryTimeout: 5 * time.Second},
		Scheduler: SchedulerConfig{CronExpression: "0 3 * * *", Timezone: defaultTimezone},
		Export: ExportConfig{
			Institution: defaultInstitution,
			Timezone:    defaultTimezone,
			Packager:    "native",
		},
		Deposit: DepositConfig{Workers: 1, Timeout: 30 * time.Second},
	}
}
