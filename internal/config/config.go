package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/samvad-hq/fatoora-client/pkg/zatca"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	ZatcaEnvironment   string            `mapstructure:"zatca_environment"`
	ZatcaCertificate   string            `mapstructure:"zatca_certificate"`
	ZatcaSecret        string            `mapstructure:"zatca_secret"`
	ZatcaBaseURL       string            `mapstructure:"zatca_base_url"`
	CredentialsFile    string            `mapstructure:"credentials_file"`
	HTTPTimeoutSeconds int64             `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration     `mapstructure:"-"`
	Environment        zatca.Environment `mapstructure:"-"`

	PublishersFile string `mapstructure:"publishers_file"`

	LedgerType            string        `mapstructure:"ledger_type"`
	LedgerPath            string        `mapstructure:"ledger_path"`
	LedgerTTLSeconds      int64         `mapstructure:"ledger_ttl_seconds"`
	LedgerCleanupSeconds  int64         `mapstructure:"ledger_cleanup_interval_seconds"`
	LedgerTTL             time.Duration `mapstructure:"-"`
	LedgerCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "fatoora-client")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("zatca_environment", "sandbox")
	v.SetDefault("zatca_certificate", "")
	v.SetDefault("zatca_secret", "")
	v.SetDefault("zatca_base_url", "")
	v.SetDefault("credentials_file", "./data/credentials.yaml")
	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("publishers_file", "")
	v.SetDefault("ledger_type", "bbolt")
	v.SetDefault("ledger_path", "./data/ledger.db")
	v.SetDefault("ledger_ttl_seconds", int64((90*24*time.Hour)/time.Second))
	v.SetDefault("ledger_cleanup_interval_seconds", int64((24*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finalize validates raw values and derives typed fields.
func (c *Config) finalize() error {
	env, err := zatca.ParseEnvironment(c.ZatcaEnvironment)
	if err != nil {
		return fmt.Errorf("invalid zatca_environment: %w", err)
	}
	c.Environment = env

	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	c.HTTPTimeout = time.Duration(c.HTTPTimeoutSeconds) * time.Second

	if c.LedgerTTLSeconds <= 0 {
		return fmt.Errorf("invalid ledger_ttl_seconds (must be positive seconds)")
	}
	if c.LedgerCleanupSeconds <= 0 {
		return fmt.Errorf("invalid ledger_cleanup_interval_seconds (must be positive seconds)")
	}
	c.LedgerTTL = time.Duration(c.LedgerTTLSeconds) * time.Second
	c.LedgerCleanupInterval = time.Duration(c.LedgerCleanupSeconds) * time.Second

	c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
	c.PublishersFile = strings.TrimSpace(c.PublishersFile)
	return nil
}

// Redacted returns a copy safe for logging.
func (c Config) Redacted() Config {
	if c.ZatcaCertificate != "" {
		c.ZatcaCertificate = "[redacted]"
	}
	if c.ZatcaSecret != "" {
		c.ZatcaSecret = "[redacted]"
	}
	return c
}
