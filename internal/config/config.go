package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken    string
	DatabaseURL      string
	RemindInterval   time.Duration
	DailySummaryTime string // "HH:MM", empty disables the digest
}

// Load reads configuration from an optional config.yaml and the
// environment. Environment variables win over the file.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("database_url", "tasktracker.db")
	v.SetDefault("remind_interval_seconds", 60)
	v.SetDefault("daily_summary_time", "")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		TelegramToken:    strings.TrimSpace(v.GetString("telegram_token")),
		DatabaseURL:      strings.TrimSpace(v.GetString("database_url")),
		RemindInterval:   time.Duration(v.GetInt("remind_interval_seconds")) * time.Second,
		DailySummaryTime: strings.TrimSpace(v.GetString("daily_summary_time")),
	}

	if cfg.RemindInterval <= 0 {
		cfg.RemindInterval = time.Minute
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}
