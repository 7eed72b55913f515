// Package slack posts deal notes to a Slack incoming webhook.
package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/nishio/dealroom/internal/notify"
)

// poster abstracts the webhook call, enabling test mocks.
type poster func(ctx context.Context, url string, msg *slackapi.WebhookMessage) error

// Sender implements notify.Sender over a Slack incoming webhook.
type Sender struct {
	webhookURL string
	post       poster
}

// New creates a Slack Sender for the given incoming-webhook URL.
func New(webhookURL string) (*Sender, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack: webhook URL is required")
	}
	return &Sender{webhookURL: webhookURL, post: slackapi.PostWebhookContext}, nil
}

// Send posts the formatted note as a single webhook message.
func (s *Sender) Send(ctx context.Context, note notify.Note) error {
	msg := &slackapi.WebhookMessage{Text: notify.Format(note)}
	if err := s.post(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	return nil
}
