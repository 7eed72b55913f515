// Package notify delivers deal events to external channels. Delivery is
// best-effort: a failed send is logged by the caller and never rolls back
// the state change that produced the note.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Kind identifies the event a Note describes.
type Kind string

const (
	// KindDealCompleted fires once, when the buyer completes a transaction.
	KindDealCompleted Kind = "deal_completed"
	// KindRatingReminder fires from the scheduled sweep for parties that
	// have not rated a completed transaction yet.
	KindRatingReminder Kind = "rating_reminder"
)

// Note is the payload handed to a Sender. Display fields are resolved by
// the caller through the directory collaborator.
type Note struct {
	Kind          Kind
	TransactionID string
	ItemName      string
	BuyerName     string
	SellerName    string
	Recipient     string // display name of the party this note addresses
}

// Sender is the interface notification adapters must satisfy.
type Sender interface {
	Send(ctx context.Context, note Note) error
}

// Format renders a Note as the plain-text line posted to chat channels.
func Format(note Note) string {
	switch note.Kind {
	case KindDealCompleted:
		return fmt.Sprintf("%s: the deal for %q is complete. %s confirmed receipt, time to rate each other!",
			note.Recipient, note.ItemName, note.BuyerName)
	case KindRatingReminder:
		return fmt.Sprintf("%s: you haven't rated your deal for %q yet.",
			note.Recipient, note.ItemName)
	default:
		return fmt.Sprintf("%s: update on your deal for %q", note.Recipient, note.ItemName)
	}
}

// LogSender writes notes to the process log. Default when no chat
// channel is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, note Note) error {
	log.Printf("notify: [%s] %s", note.Kind, Format(note))
	return nil
}

// Multi fans a note out to every sender, collecting failures.
type Multi []Sender

func (m Multi) Send(ctx context.Context, note Note) error {
	var failed []string
	for _, s := range m {
		if err := s.Send(ctx, note); err != nil {
			failed = append(failed, err.Error())
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("notify: %s", strings.Join(failed, "; "))
	}
	return nil
}
