package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig      `mapstructure:"app"`
	Store       StoreConfig    `mapstructure:"store"`
	Backup      BackupConfig   `mapstructure:"backup"`
	Schedule    ScheduleConfig `mapstructure:"schedule"`
	Channels    []Channel      `mapstructure:"channels"`
	API         APIConfig      `mapstructure:"api"`
	GDriveOAuth OAuthConfig    `mapstructure:"gdrive_oauth"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`

	// Badger
	Path string `mapstructure:"path"`

	// MySQL
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

type BackupConfig struct {
	MaxSizeMB      int      `mapstructure:"max_size_mb"`
	StrictChecksum bool     `mapstructure:"strict_checksum"`
	ExportDir      string   `mapstructure:"export_dir"`
	MirrorChannels []string `mapstructure:"mirror_channels"`
	OpenBrowser    bool     `mapstructure:"open_browser"`
}

// MaxSizeBytes is the creation and import cap.
func (b BackupConfig) MaxSizeBytes() int64 {
	return int64(b.MaxSizeMB) * 1024 * 1024
}

type ScheduleConfig struct {
	MaintenanceCron string `mapstructure:"maintenance_cron"`
	RunMissed       bool   `mapstructure:"run_missed"`
}

type Channel struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`
	// Destination overrides the page opened when a share falls back to a
	// manual attachment.
	Destination string `mapstructure:"destination"`

	// Google Drive
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`

	// AWS S3, Google Cloud Storage
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`

	// Azure Blob Storage
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
	Container   string `mapstructure:"container"`

	// Telegram
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`

	Breaker BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type OAuthConfig struct {
	ClientSecretFile string `mapstructure:"client_secret_file"`
	Addr             string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "omran-backup")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("store.driver", "badger")
	v.SetDefault("store.path", "./data/store")
	v.SetDefault("store.table", "omran_store")
	v.SetDefault("backup.max_size_mb", 50)
	v.SetDefault("backup.strict_checksum", false)
	v.SetDefault("backup.export_dir", "./exports")
	v.SetDefault("backup.open_browser", false)
	v.SetDefault("schedule.maintenance_cron", "0 0 3 * * *")
	v.SetDefault("schedule.run_missed", true)
	v.SetDefault("api.enabled", false)
	v.SetDefault("api.addr", ":8080")
	v.SetDefault("gdrive_oauth.addr", "localhost:8085")
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("OMRAN")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
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

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "badger":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the badger driver")
		}
	case "mysql":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the mysql driver")
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}

	if c.Backup.MaxSizeMB <= 0 {
		return fmt.Errorf("backup.max_size_mb must be positive")
	}
	if c.Backup.ExportDir == "" {
		return fmt.Errorf("backup.export_dir is required")
	}

	known := map[string]bool{"file": true}
	for i, ch := range c.Channels {
		if ch.Type == "" {
			return fmt.Errorf("channels[%d]: type is required", i)
		}
		if !ch.Enabled {
			continue
		}
		known[ch.Type] = true

		switch ch.Type {
		case "s3", "gcs":
			if ch.Bucket == "" {
				return fmt.Errorf("channels[%d]: bucket is required for %s", i, ch.Type)
			}
		case "azure":
			if ch.AccountName == "" || ch.Container == "" {
				return fmt.Errorf("channels[%d]: account_name and container are required for azure", i)
			}
		case "telegram":
			if ch.BotToken == "" || ch.ChatID == "" {
				return fmt.Errorf("channels[%d]: bot_token and chat_id are required for telegram", i)
			}
		}
	}

	for _, name := range c.Backup.MirrorChannels {
		if !known[name] {
			return fmt.Errorf("backup.mirror_channels: %q is not an enabled channel", name)
		}
	}

	return nil
}

func (c *Config) GetEnabledChannels() []Channel {
	var enabled []Channel
	for _, ch := range c.Channels {
		if ch.Enabled {
			enabled = append(enabled, ch)
		}
	}
	return enabled
}
