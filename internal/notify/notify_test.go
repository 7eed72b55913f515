package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recordSender struct {
	notes []Note
	err   error
}

func (r *recordSender) Send(_ context.Context, note Note) error {
	r.notes = append(r.notes, note)
	return r.err
}

func TestFormat_DealCompleted(t *testing.T) {
	got := Format(Note{
		Kind:      KindDealCompleted,
		ItemName:  "Vintage camera",
		BuyerName: "Alice",
		Recipient: "Bob",
	})
	if !strings.Contains(got, "Bob") || !strings.Contains(got, "Vintage camera") || !strings.Contains(got, "Alice") {
		t.Errorf("Format = %q, want recipient, item and buyer", got)
	}
}

func TestFormat_RatingReminder(t *testing.T) {
	got := Format(Note{
		Kind:      KindRatingReminder,
		ItemName:  "Vintage camera",
		Recipient: "Alice",
	})
	if !strings.Contains(got, "Alice") || !strings.Contains(got, "haven't rated") {
		t.Errorf("Format = %q", got)
	}
}

func TestMulti_FansOut(t *testing.T) {
	a := &recordSender{}
	b := &recordSender{}
	m := Multi{a, b}

	note := Note{Kind: KindDealCompleted, TransactionID: "tx-1"}
	if err := m.Send(context.Background(), note); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(a.notes) != 1 || len(b.notes) != 1 {
		t.Errorf("deliveries = %d/%d, want 1/1", len(a.notes), len(b.notes))
	}
}

func TestMulti_ContinuesPastFailure(t *testing.T) {
	failing := &recordSender{err: errors.New("webhook down")}
	ok := &recordSender{}
	m := Multi{failing, ok}

	err := m.Send(context.Background(), Note{Kind: KindDealCompleted})
	if err == nil {
		t.Fatal("expected error from failing sender")
	}
	if !strings.Contains(err.Error(), "webhook down") {
		t.Errorf("error = %v", err)
	}
	if len(ok.notes) != 1 {
		t.Errorf("second sender deliveries = %d, want 1 despite first failing", len(ok.notes))
	}
}

func TestMulti_CollectsAllFailures(t *testing.T) {
	m := Multi{
		&recordSender{err: errors.New("first down")},
		&recordSender{err: errors.New("second down")},
	}
	err := m.Send(context.Background(), Note{Kind: KindRatingReminder})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "first down") || !strings.Contains(err.Error(), "second down") {
		t.Errorf("error = %v, want both failures", err)
	}
}

func TestLogSender_NeverFails(t *testing.T) {
	if err := (LogSender{}).Send(context.Background(), Note{Kind: KindDealCompleted}); err != nil {
		t.Errorf("Send: %v", err)
	}
}
