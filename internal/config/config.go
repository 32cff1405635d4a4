package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Mail providers
const (
	ProviderIMAP  = "imap"
	ProviderGmail = "gmail"
)

// Store drivers
const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Mailbox   MailboxConfig   `mapstructure:"mailbox"`
	Store     StoreConfig     `mapstructure:"store"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MailboxConfig describes where unread messages are polled from
type MailboxConfig struct {
	Provider     string `mapstructure:"provider"`
	LookbackDays int    `mapstructure:"lookback_days"`
	MarkSeen     bool   `mapstructure:"mark_seen"`

	IMAPHost     string        `mapstructure:"imap_host"`
	IMAPPort     int           `mapstructure:"imap_port"`
	IMAPUser     string        `mapstructure:"imap_user"`
	IMAPPassword string        `mapstructure:"imap_password"`
	IMAPMailbox  string        `mapstructure:"imap_mailbox"`
	IMAPTimeout  time.Duration `mapstructure:"imap_timeout"`

	GmailClientID     string  `mapstructure:"gmail_client_id"`
	GmailClientSecret string  `mapstructure:"gmail_client_secret"`
	GmailRefreshToken string  `mapstructure:"gmail_refresh_token"`
	GmailUserEmail    string  `mapstructure:"gmail_user_email"`
	GmailRateLimit    float64 `mapstructure:"gmail_rate_limit"`
}

// StoreConfig holds job store configuration
type StoreConfig struct {
	Driver      string        `mapstructure:"driver"`
	URL         string        `mapstructure:"url"`
	Key         string        `mapstructure:"key"`
	Table       string        `mapstructure:"table"`
	DSN         string        `mapstructure:"dsn"`
	AutoMigrate bool          `mapstructure:"auto_migrate"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Schedule string        `mapstructure:"schedule"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig loads configuration from .env, an optional config file and the environment
func LoadConfig() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Mailbox.Provider = strings.ToLower(strings.TrimSpace(cfg.Mailbox.Provider))
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Store.URL = strings.TrimRight(cfg.Store.URL, "/")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("mailbox.provider", ProviderIMAP)
	v.SetDefault("mailbox.lookback_days", 7)
	v.SetDefault("mailbox.mark_seen", false)
	v.SetDefault("mailbox.imap_port", 993)
	v.SetDefault("mailbox.imap_mailbox", "INBOX")
	v.SetDefault("mailbox.imap_timeout", "0s")
	v.SetDefault("mailbox.gmail_rate_limit", 10)

	v.SetDefault("store.driver", DriverREST)
	v.SetDefault("store.table", "jobs")
	v.SetDefault("store.auto_migrate", false)
	v.SetDefault("store.timeout", "0s")

	v.SetDefault("scheduler.interval", "60s")
	v.SetDefault("scheduler.schedule", "")

	v.SetDefault("log.level", "info")
}

func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT", "PORT")
	v.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	v.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Mailbox
	v.BindEnv("mailbox.provider", "MAIL_PROVIDER")
	v.BindEnv("mailbox.lookback_days", "LOOKBACK_DAYS")
	v.BindEnv("mailbox.mark_seen", "IMAP_MARK_SEEN")
	v.BindEnv("mailbox.imap_host", "IMAP_SERVER")
	v.BindEnv("mailbox.imap_port", "IMAP_PORT")
	v.BindEnv("mailbox.imap_user", "EMAIL_USER")
	v.BindEnv("mailbox.imap_password", "EMAIL_PASS")
	v.BindEnv("mailbox.imap_mailbox", "IMAP_MAILBOX")
	v.BindEnv("mailbox.imap_timeout", "IMAP_TIMEOUT")
	v.BindEnv("mailbox.gmail_client_id", "GMAIL_CLIENT_ID")
	v.BindEnv("mailbox.gmail_client_secret", "GMAIL_CLIENT_SECRET")
	v.BindEnv("mailbox.gmail_refresh_token", "GMAIL_REFRESH_TOKEN")
	v.BindEnv("mailbox.gmail_user_email", "GMAIL_USER_EMAIL")
	v.BindEnv("mailbox.gmail_rate_limit", "GMAIL_RATE_LIMIT")

	// Store
	v.BindEnv("store.driver", "STORE_DRIVER")
	v.BindEnv("store.url", "SUPABASE_URL")
	v.BindEnv("store.key", "SUPABASE_KEY")
	v.BindEnv("store.table", "STORE_TABLE")
	v.BindEnv("store.dsn", "DATABASE_DSN")
	v.BindEnv("store.auto_migrate", "STORE_AUTO_MIGRATE")
	v.BindEnv("store.timeout", "STORE_TIMEOUT")

	// Scheduler
	v.BindEnv("scheduler.interval", "POLL_INTERVAL")
	v.BindEnv("scheduler.schedule", "POLL_SCHEDULE")

	v.BindEnv("log.level", "LOG_LEVEL")
}

// Address returns host:port of the IMAP server
func (c *MailboxConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.IMAPHost, c.IMAPPort)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Mailbox.Provider {
	case ProviderIMAP:
		if c.Mailbox.IMAPHost == "" {
			return fmt.Errorf("IMAP_SERVER is required")
		}
		if c.Mailbox.IMAPUser == "" || c.Mailbox.IMAPPassword == "" {
			return fmt.Errorf("EMAIL_USER and EMAIL_PASS are required")
		}
		if c.Mailbox.IMAPPort <= 0 {
			return fmt.Errorf("IMAP port must be greater than 0")
		}
	case ProviderGmail:
		if c.Mailbox.GmailClientID == "" || c.Mailbox.GmailClientSecret == "" || c.Mailbox.GmailRefreshToken == "" {
			return fmt.Errorf("Gmail OAuth2 credentials are required when using the gmail provider")
		}
		if c.Mailbox.GmailRateLimit <= 0 {
			return fmt.Errorf("Gmail rate limit must be greater than 0")
		}
	default:
		return fmt.Errorf("unknown mail provider %q", c.Mailbox.Provider)
	}

	if c.Mailbox.LookbackDays <= 0 {
		return fmt.Errorf("lookback days must be greater than 0")
	}

	switch c.Store.Driver {
	case DriverREST:
		if c.Store.URL == "" || c.Store.Key == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required")
		}
	case DriverPostgres, DriverMySQL:
		if c.Store.DSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for the %s driver", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Table == "" {
		return fmt.Errorf("store table is required")
	}

	if c.Scheduler.Schedule == "" && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	return nil
}
