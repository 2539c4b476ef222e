package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, env map[string]string) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	for k, v := range env {
		t.Setenv(k, v)
	}
	SetupCommon()
	return New()
}

func validEnv() map[string]string {
	return map[string]string{
		"TRIALBOT_TELEGRAM_TOKEN":    "token",
		"TRIALBOT_PRIMARY_CHAT_ID":   "-1001",
		"TRIALBOT_SECONDARY_CHAT_ID": "-1002",
		"TRIALBOT_POSTGRES_DSN":      "postgres://localhost/trialbot",
	}
}

func TestNew_Defaults(t *testing.T) {
	cfg := setup(t, validEnv())

	require.NoError(t, cfg.Validate())
	require.Equal(t, "token", cfg.TelegramToken)
	require.Equal(t, int64(-1001), cfg.PrimaryChatID)
	require.Equal(t, int64(-1002), cfg.SecondaryChatID)
	require.Equal(t, 192*time.Hour, cfg.TrialDuration)
	require.Equal(t, 24*time.Hour, cfg.ExpiryWarning)
	require.Equal(t, time.Hour, cfg.CheckInterval)
	require.Equal(t, DriverPostgres, cfg.DatabaseDriver)
}

func TestNew_TrialMinutesOverride(t *testing.T) {
	env := validEnv()
	env["TRIALBOT_TRIAL_DURATION"] = "48h"
	env["TRIALBOT_TRIAL_MINUTES"] = "90"

	cfg := setup(t, env)
	require.Equal(t, 90*time.Minute, cfg.TrialDuration)
}

func TestNew_TrialDuration(t *testing.T) {
	env := validEnv()
	env["TRIALBOT_TRIAL_DURATION"] = "48h"

	cfg := setup(t, env)
	require.Equal(t, 48*time.Hour, cfg.TrialDuration)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{name: "no token", modify: func(c *Config) { c.TelegramToken = "" }, wantErr: "telegram_token"},
		{name: "no primary", modify: func(c *Config) { c.PrimaryChatID = 0 }, wantErr: "primary_chat_id is required"},
		{name: "same chats", modify: func(c *Config) { c.SecondaryChatID = c.PrimaryChatID }, wantErr: "must differ"},
		{name: "zero trial", modify: func(c *Config) { c.TrialDuration = 0 }, wantErr: "trial_duration"},
		{name: "zero warning", modify: func(c *Config) { c.ExpiryWarning = 0 }, wantErr: "expiry_warning"},
		{name: "negative warning", modify: func(c *Config) { c.ExpiryWarning = -time.Hour }, wantErr: "expiry_warning"},
		{name: "zero interval", modify: func(c *Config) { c.CheckInterval = 0 }, wantErr: "check_interval"},
		{name: "no dsn", modify: func(c *Config) { c.PostgresDSN = "" }, wantErr: "postgres_dsn"},
		{name: "bad driver", modify: func(c *Config) { c.DatabaseDriver = "mysql" }, wantErr: "unknown database_driver"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := setup(t, validEnv())
			tc.modify(cfg)
			require.ErrorContains(t, cfg.Validate(), tc.wantErr)
		})
	}
}

func TestValidate_SQLite(t *testing.T) {
	env := validEnv()
	delete(env, "TRIALBOT_POSTGRES_DSN")
	env["TRIALBOT_DATABASE_DRIVER"] = DriverSQLite

	cfg := setup(t, env)
	require.NoError(t, cfg.Validate())
	require.Equal(t, "trialbot.db", cfg.SQLitePath)
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	err := (&Config{DatabaseDriver: DriverSQLite, SQLitePath: "x"}).Validate()
	require.ErrorContains(t, err, "telegram_token")
	require.ErrorContains(t, err, "primary_chat_id")
	require.ErrorContains(t, err, "secondary_chat_id")
	require.ErrorContains(t, err, "trial_duration")
	require.ErrorContains(t, err, "expiry_warning")
}
