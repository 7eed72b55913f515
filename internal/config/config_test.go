package config

import (
	"strings"
	"testing"
)

func TestParse_Minimal(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  name: dealroom\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Database.Name != "dealroom" {
		t.Errorf("Database.Name = %q, want %q", cfg.Database.Name, "dealroom")
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  name: dealroom\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Database.Host != "127.0.0.1" {
		t.Errorf("Database.Host = %q, want 127.0.0.1", cfg.Database.Host)
	}
	if cfg.Database.Port != 3306 {
		t.Errorf("Database.Port = %d, want 3306", cfg.Database.Port)
	}
	if cfg.Database.User != "root" {
		t.Errorf("Database.User = %q, want root", cfg.Database.User)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("HTTP.Port = %d, want 8080", cfg.HTTP.Port)
	}
	if cfg.Uploads.Dir != "uploads" {
		t.Errorf("Uploads.Dir = %q, want uploads", cfg.Uploads.Dir)
	}
	if cfg.Uploads.MaxBytes != 8<<20 {
		t.Errorf("Uploads.MaxBytes = %d, want %d", cfg.Uploads.MaxBytes, 8<<20)
	}
	if cfg.Reminder.Schedule != "0 9 * * *" {
		t.Errorf("Reminder.Schedule = %q, want default", cfg.Reminder.Schedule)
	}
	if cfg.Reminder.GraceHours != 24 {
		t.Errorf("Reminder.GraceHours = %d, want 24", cfg.Reminder.GraceHours)
	}
}

func TestParse_MissingDatabaseName(t *testing.T) {
	_, err := Parse([]byte("http:\n  port: 9090\n"))
	if err == nil {
		t.Fatal("expected error for missing database.name")
	}
	if !strings.Contains(err.Error(), "database.name is required") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestParse_PartialDiscordWebhook(t *testing.T) {
	yaml := "database:\n  name: dealroom\nnotify:\n  discord_webhook:\n    id: \"123\"\n"
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for discord webhook without token")
	}
	if !strings.Contains(err.Error(), "discord_webhook") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("database: [not a map"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
database:
  host: db.internal
  port: 3307
  name: dealroom
  user: app
  password: secret
http:
  port: 9000
uploads:
  dir: /var/lib/dealroom/uploads
  max_bytes: 1048576
notify:
  slack_webhook_url: https://hooks.slack.com/services/T/B/x
reminder:
  enabled: true
  schedule: "30 8 * * *"
  grace_hours: 48
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 3307 {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.HTTP.Port != 9000 {
		t.Errorf("HTTP.Port = %d, want 9000", cfg.HTTP.Port)
	}
	if !cfg.Reminder.Enabled || cfg.Reminder.GraceHours != 48 {
		t.Errorf("reminder = %+v", cfg.Reminder)
	}
	if cfg.Notify.SlackWebhookURL == "" {
		t.Error("SlackWebhookURL should be set")
	}
}
