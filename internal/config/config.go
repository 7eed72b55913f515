// Package config provides YAML-based configuration loading for Dealroom.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Dealroom configuration, loaded from dealroom.yaml.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Notify   NotifyConfig   `yaml:"notify"`
	Reminder ReminderConfig `yaml:"reminder"`
}

// DatabaseConfig holds connection settings for the MySQL backing store.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// HTTPConfig holds settings for the JSON API server.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// UploadsConfig holds settings for locally stored image attachments.
type UploadsConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// NotifyConfig selects where completion notes and rating reminders go.
// Any combination may be set; unset channels are skipped.
type NotifyConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
	DiscordWebhook  struct {
		ID    string `yaml:"id"`
		Token string `yaml:"token"`
	} `yaml:"discord_webhook"`
}

// ReminderConfig controls the scheduled rating-reminder sweep.
type ReminderConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Schedule   string `yaml:"schedule"` // 5-field cron expression
	GraceHours int    `yaml:"grace_hours"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "uploads"
	}
	if c.Uploads.MaxBytes == 0 {
		c.Uploads.MaxBytes = 8 << 20
	}
	if c.Reminder.Schedule == "" {
		c.Reminder.Schedule = "0 9 * * *"
	}
	if c.Reminder.GraceHours == 0 {
		c.Reminder.GraceHours = 24
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Database.Name == "" {
		errs = append(errs, "database.name is required")
	}
	if c.Uploads.MaxBytes < 0 {
		errs = append(errs, "uploads.max_bytes must be positive")
	}
	if (c.Notify.DiscordWebhook.ID == "") != (c.Notify.DiscordWebhook.Token == "") {
		errs = append(errs, "notify.discord_webhook needs both id and token")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
