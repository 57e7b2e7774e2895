package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Backup  BackupConfig  `mapstructure:"backup"`
	Storage StorageConfig `mapstructure:"storage"`
	Notify  NotifyConfig  `mapstructure:"notify"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type BackupConfig struct {
	// Pipe-delimited, positionally aligned lists.
	DatabaseURLs string `mapstructure:"database_urls"`
	ProjectNames string `mapstructure:"project_names"`

	Concurrency      int    `mapstructure:"concurrency"`
	TempDir          string `mapstructure:"temp_dir"`
	CompressionLevel int    `mapstructure:"compression_level"`
	Schedule         string `mapstructure:"schedule"`
	RunOnStartup     bool   `mapstructure:"run_on_startup"`
	RetentionDays    int    `mapstructure:"retention_days"`
}

type StorageConfig struct {
	Type   string       `mapstructure:"type"`
	S3     S3Config     `mapstructure:"s3"`
	Local  LocalConfig  `mapstructure:"local"`
	GDrive GDriveConfig `mapstructure:"gdrive"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type LocalConfig struct {
	Path string `mapstructure:"path"`
}

type GDriveConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

const (
	StorageS3     = "s3"
	StorageLocal  = "local"
	StorageGDrive = "gdrive"
)

var envBindings = map[string]string{
	"app.log_level":                   "LOG_LEVEL",
	"app.log_file":                    "LOG_FILE",
	"backup.database_urls":            "BACKUP_DATABASE_URLS",
	"backup.project_names":            "PROJECT_NAMES",
	"backup.concurrency":              "BACKUP_CONCURRENCY",
	"backup.temp_dir":                 "BACKUP_TEMP_DIR",
	"backup.compression_level":        "BACKUP_COMPRESSION_LEVEL",
	"backup.schedule":                 "BACKUP_CRON_SCHEDULE",
	"backup.run_on_startup":           "BACKUP_RUN_ON_STARTUP",
	"backup.retention_days":           "BACKUP_RETENTION_DAYS",
	"storage.type":                    "STORAGE_TYPE",
	"storage.s3.bucket":               "AWS_S3_BUCKET",
	"storage.s3.region":               "AWS_S3_REGION",
	"storage.s3.endpoint":             "AWS_S3_ENDPOINT",
	"storage.s3.prefix":               "AWS_S3_PREFIX",
	"storage.s3.access_key":           "AWS_ACCESS_KEY_ID",
	"storage.s3.secret_key":           "AWS_SECRET_ACCESS_KEY",
	"storage.local.path":              "LOCAL_STORAGE_PATH",
	"storage.gdrive.credentials_file": "GDRIVE_CREDENTIALS_FILE",
	"storage.gdrive.folder_id":        "GDRIVE_FOLDER_ID",
	"notify.telegram.bot_token":       "TELEGRAM_BOT_TOKEN",
	"notify.telegram.chat_id":         "TELEGRAM_CHAT_ID",
}

// Load reads the optional YAML file at path, then lets the environment override it.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("app.name", "dbackup")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("backup.concurrency", 0)
	v.SetDefault("backup.compression_level", -1)
	v.SetDefault("backup.run_on_startup", false)
	v.SetDefault("backup.retention_days", 0)
	v.SetDefault("storage.type", StorageS3)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backup.ProjectNames) == "" {
		return fmt.Errorf("PROJECT_NAMES is required")
	}
	if strings.TrimSpace(c.Backup.DatabaseURLs) == "" {
		return fmt.Errorf("BACKUP_DATABASE_URLS is required")
	}
	if c.Backup.Concurrency < 0 {
		return fmt.Errorf("BACKUP_CONCURRENCY must not be negative, got %d", c.Backup.Concurrency)
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must not be negative, got %d", c.Backup.RetentionDays)
	}

	seen := make(map[string]bool)
	for i, p := range c.Projects() {
		if p == "" {
			return fmt.Errorf("project[%d]: name is empty", i)
		}
		if seen[p] {
			return fmt.Errorf("project[%d]: duplicate name %q", i, p)
		}
		seen[p] = true
	}

	switch c.Storage.Type {
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required for s3 storage")
		}
		if c.Storage.S3.Region == "" {
			return fmt.Errorf("AWS_S3_REGION is required for s3 storage")
		}
		if (c.Storage.S3.AccessKey == "") != (c.Storage.S3.SecretKey == "") {
			return fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
		}
	case StorageLocal:
		if c.Storage.Local.Path == "" {
			return fmt.Errorf("LOCAL_STORAGE_PATH is required for local storage")
		}
	case StorageGDrive:
		if c.Storage.GDrive.CredentialsFile == "" || c.Storage.GDrive.FolderID == "" {
			return fmt.Errorf("GDRIVE_CREDENTIALS_FILE and GDRIVE_FOLDER_ID are required for gdrive storage")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}

	if (c.Notify.Telegram.BotToken == "") != (c.Notify.Telegram.ChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	return nil
}

// Projects returns the project names in configured order.
func (c *Config) Projects() []string {
	return splitList(c.Backup.ProjectNames)
}

// DatabaseURLs returns the connection strings aligned with Projects. Entries
// may be empty; those projects are skipped.
func (c *Config) DatabaseURLs() []string {
	return splitList(c.Backup.DatabaseURLs)
}

func (c *Config) TelegramEnabled() bool {
	return c.Notify.Telegram.BotToken != ""
}

func splitList(s string) []string {
	parts := strings.Split(s, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
