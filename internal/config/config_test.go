package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Mailbox: MailboxConfig{
			Provider:     ProviderIMAP,
			LookbackDays: 7,
			IMAPHost:     "imap.gmail.com",
			IMAPPort:     993,
			IMAPUser:     "desk@example.com",
			IMAPPassword: "secret",
		},
		Store: StoreConfig{
			Driver: DriverREST,
			URL:    "https://project.supabase.co",
			Key:    "service-key",
			Table:  "jobs",
		},
		Scheduler: SchedulerConfig{Interval: time.Minute},
	}
}

func TestConfigValidation(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	invalid := &Config{Server: ServerConfig{Port: ""}}
	assert.Error(t, invalid.Validate())
}

func TestConfigValidationRequiredValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing imap server", func(c *Config) { c.Mailbox.IMAPHost = "" }},
		{"missing imap password", func(c *Config) { c.Mailbox.IMAPPassword = "" }},
		{"unknown provider", func(c *Config) { c.Mailbox.Provider = "pop3" }},
		{"gmail without credentials", func(c *Config) { c.Mailbox.Provider = ProviderGmail }},
		{"zero lookback", func(c *Config) { c.Mailbox.LookbackDays = 0 }},
		{"missing store url", func(c *Config) { c.Store.URL = "" }},
		{"missing store key", func(c *Config) { c.Store.Key = "" }},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }},
		{"zero interval", func(c *Config) { c.Scheduler.Interval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigValidationCronScheduleReplacesInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.Interval = 0
	cfg.Scheduler.Schedule = "*/5 * * * *"
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("IMAP_SERVER", "imap.example.com")
	t.Setenv("EMAIL_USER", "desk@example.com")
	t.Setenv("EMAIL_PASS", "secret")
	t.Setenv("SUPABASE_URL", "https://project.supabase.co/")
	t.Setenv("SUPABASE_KEY", "service-key")
	t.Setenv("POLL_INTERVAL", "45s")
	t.Setenv("IMAP_MARK_SEEN", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "imap.example.com", cfg.Mailbox.IMAPHost)
	assert.Equal(t, "desk@example.com", cfg.Mailbox.IMAPUser)
	assert.Equal(t, "secret", cfg.Mailbox.IMAPPassword)
	assert.Equal(t, "https://project.supabase.co", cfg.Store.URL)
	assert.Equal(t, "service-key", cfg.Store.Key)
	assert.Equal(t, 45*time.Second, cfg.Scheduler.Interval)
	assert.True(t, cfg.Mailbox.MarkSeen)

	// defaults
	assert.Equal(t, ProviderIMAP, cfg.Mailbox.Provider)
	assert.Equal(t, DriverREST, cfg.Store.Driver)
	assert.Equal(t, 993, cfg.Mailbox.IMAPPort)
	assert.Equal(t, 7, cfg.Mailbox.LookbackDays)
	assert.Equal(t, "jobs", cfg.Store.Table)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10.0, cfg.Mailbox.GmailRateLimit)

	assert.NoError(t, cfg.Validate())
}

func TestMailboxHelpers(t *testing.T) {
	m := MailboxConfig{IMAPHost: "imap.gmail.com", IMAPPort: 993, LookbackDays: 7}
	assert.Equal(t, "imap.gmail.com:993", m.Address())
}
