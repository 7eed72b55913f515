// Package discord posts deal notes through a Discord webhook.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/nishio/dealroom/internal/notify"
)

// executor abstracts the discordgo webhook call, enabling test mocks.
type executor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Sender implements notify.Sender over a Discord webhook.
type Sender struct {
	webhookID string
	token     string
	exec      executor
}

// New creates a Discord Sender for the given webhook id and token.
// Webhook execution needs no bot session, so the session is created
// without authenticating.
func New(webhookID, token string) (*Sender, error) {
	if webhookID == "" || token == "" {
		return nil, fmt.Errorf("discord: webhook id and token are required")
	}
	sess, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return &Sender{webhookID: webhookID, token: token, exec: sess}, nil
}

// Send posts the formatted note as a single webhook message.
func (s *Sender) Send(_ context.Context, note notify.Note) error {
	_, err := s.exec.WebhookExecute(s.webhookID, s.token, false, &discordgo.WebhookParams{
		Content: notify.Format(note),
	})
	if err != nil {
		return fmt.Errorf("discord: execute webhook: %w", err)
	}
	return nil
}
