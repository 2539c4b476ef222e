package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	TelegramToken    string        `mapstructure:"telegram_token"`
	BotHandleTimeout time.Duration `mapstructure:"bot_handle_timeout"`

	PrimaryChatID   int64 `mapstructure:"primary_chat_id"`
	SecondaryChatID int64 `mapstructure:"secondary_chat_id"`

	TrialDuration    time.Duration `mapstructure:"trial_duration"`
	TrialMinutes     int           `mapstructure:"trial_minutes"`
	ExpiryWarning    time.Duration `mapstructure:"expiry_warning"`
	CheckInterval    time.Duration `mapstructure:"check_interval"`
	PendingActionTTL time.Duration `mapstructure:"pending_action_ttl"`

	DatabaseDriver string `mapstructure:"database_driver"`
	PostgresDSN    string `mapstructure:"postgres_dsn"`
	SQLitePath     string `mapstructure:"sqlite_path"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	NotifyWebhookURL string `mapstructure:"notify_webhook_url"`

	HTTPAddr string `mapstructure:"http_addr"`
	APIToken string `mapstructure:"api_token"`
}

func New() *Config {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		logrus.Fatalf("unmarshalling config: %v", err)
	}
	// trial_minutes is the older knob, it wins when set.
	if cfg.TrialMinutes > 0 {
		cfg.TrialDuration = time.Duration(cfg.TrialMinutes) * time.Minute
	}
	return cfg
}

// Validate reports settings the bot cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("telegram_token is required"))
	}
	if c.PrimaryChatID == 0 {
		errs = append(errs, errors.New("primary_chat_id is required"))
	}
	if c.SecondaryChatID == 0 {
		errs = append(errs, errors.New("secondary_chat_id is required"))
	}
	if c.PrimaryChatID != 0 && c.PrimaryChatID == c.SecondaryChatID {
		errs = append(errs, errors.New("primary_chat_id and secondary_chat_id must differ"))
	}
	if c.TrialDuration <= 0 {
		errs = append(errs, fmt.Errorf("trial_duration must be positive, got %s", c.TrialDuration))
	}
	if c.ExpiryWarning <= 0 {
		errs = append(errs, fmt.Errorf("expiry_warning must be positive, got %s", c.ExpiryWarning))
	}
	if c.CheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("check_interval must be positive, got %s", c.CheckInterval))
	}
	if err := c.ValidateDatabase(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) ValidateDatabase() error {
	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres_dsn is required for the postgres driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown database_driver %q", c.DatabaseDriver)
	}
	return nil
}

func SetupCommon() {
	viper.SetDefault("trial_duration", "192h")
	viper.SetDefault("trial_minutes", 0)
	viper.SetDefault("expiry_warning", "24h")
	viper.SetDefault("check_interval", "1h")
	viper.SetDefault("database_driver", DriverPostgres)
	viper.SetDefault("sqlite_path", "trialbot.db")
	viper.SetDefault("redis_db", 0)
	viper.SetEnvPrefix("TRIALBOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	viper.MustBindEnv("telegram_token")
	viper.MustBindEnv("primary_chat_id")
	viper.MustBindEnv("secondary_chat_id")
	viper.MustBindEnv("postgres_dsn")
	viper.MustBindEnv("redis_addr")
	viper.MustBindEnv("redis_password")
	viper.MustBindEnv("notify_webhook_url")
	viper.MustBindEnv("api_token")
	viper.AutomaticEnv()
}
