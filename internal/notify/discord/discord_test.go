package discord

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/nishio/dealroom/internal/notify"
)

type mockExecutor struct {
	webhookID string
	token     string
	params    *discordgo.WebhookParams
	err       error
}

func (m *mockExecutor) WebhookExecute(webhookID, token string, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.webhookID = webhookID
	m.token = token
	m.params = data
	return nil, m.err
}

func TestNew_RequiresIDAndToken(t *testing.T) {
	if _, err := New("", "token"); err == nil {
		t.Error("expected error for empty webhook id")
	}
	if _, err := New("123", ""); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestSend_ExecutesWebhook(t *testing.T) {
	s, err := New("123", "secret")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mock := &mockExecutor{}
	s.exec = mock

	note := notify.Note{
		Kind:      notify.KindRatingReminder,
		ItemName:  "Vintage camera",
		Recipient: "Alice",
	}
	if err := s.Send(context.Background(), note); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if mock.webhookID != "123" || mock.token != "secret" {
		t.Errorf("webhook = %q/%q", mock.webhookID, mock.token)
	}
	if mock.params == nil || mock.params.Content != notify.Format(note) {
		t.Errorf("params = %+v, want formatted note", mock.params)
	}
}

func TestSend_WrapsExecuteError(t *testing.T) {
	s, err := New("123", "secret")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.exec = &mockExecutor{err: errors.New("unknown webhook")}

	err = s.Send(context.Background(), notify.Note{Kind: notify.KindDealCompleted})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "discord:") || !strings.Contains(err.Error(), "unknown webhook") {
		t.Errorf("error = %v", err)
	}
}
