package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nishio/dealroom/internal/api"
	"github.com/nishio/dealroom/internal/config"
	"github.com/nishio/dealroom/internal/directory"
	"github.com/nishio/dealroom/internal/notify"
	"github.com/nishio/dealroom/internal/notify/discord"
	"github.com/nishio/dealroom/internal/notify/slack"
	"github.com/nishio/dealroom/internal/reminder"
	"github.com/nishio/dealroom/internal/upload"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dealroom API server",
		Long:  "Serves the JSON API and, when enabled, the scheduled rating-reminder sweep. Stops cleanly on SIGINT/SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dealroom.yaml", "path to config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	uploads, err := upload.NewLocal(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
	if err != nil {
		return err
	}

	sender, err := buildSender(cfg)
	if err != nil {
		return err
	}

	lookup := directory.Static{}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Reminder.Enabled {
		c, err := reminder.Start(gormDB, cfg.Reminder.Schedule, reminder.Opts{
			Grace:     time.Duration(cfg.Reminder.GraceHours) * time.Hour,
			Notifier:  sender,
			Directory: lookup,
		})
		if err != nil {
			return err
		}
		defer c.Stop()
		log.Printf("reminder sweep scheduled: %s", cfg.Reminder.Schedule)
	}

	return api.Start(ctx, api.StartOpts{
		DB:        gormDB,
		Port:      cfg.HTTP.Port,
		Uploads:   uploads,
		Notifier:  sender,
		Directory: lookup,
		Out:       cmd.OutOrStdout(),
	})
}

// buildSender assembles the notification fan-out from config. With no
// channel configured, notes go to the process log.
func buildSender(cfg *config.Config) (notify.Sender, error) {
	var senders notify.Multi
	if cfg.Notify.SlackWebhookURL != "" {
		s, err := slack.New(cfg.Notify.SlackWebhookURL)
		if err != nil {
			return nil, err
		}
		senders = append(senders, s)
	}
	if cfg.Notify.DiscordWebhook.ID != "" {
		d, err := discord.New(cfg.Notify.DiscordWebhook.ID, cfg.Notify.DiscordWebhook.Token)
		if err != nil {
			return nil, err
		}
		senders = append(senders, d)
	}
	if len(senders) == 0 {
		return notify.LogSender{}, nil
	}
	return senders, nil
}
