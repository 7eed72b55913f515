package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nishio/dealroom/internal/directory"
	"github.com/nishio/dealroom/internal/models"
	"github.com/nishio/dealroom/internal/notify"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// Each connection to :memory: is its own database; keep one.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Transaction{}, &models.Rating{}, &models.ReminderSent{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

type mockSender struct {
	mu    sync.Mutex
	notes []notify.Note
}

func (m *mockSender) Send(_ context.Context, note notify.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, note)
	return nil
}

func (m *mockSender) sent() []notify.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Note(nil), m.notes...)
}

func seedCompleted(t *testing.T, db *gorm.DB, id string, completedAgo time.Duration) {
	t.Helper()
	completedAt := time.Now().Add(-completedAgo)
	if err := db.Create(&models.Transaction{
		ID:          id,
		ItemID:      "item-" + id,
		BuyerID:     "u-buyer",
		SellerID:    "u-seller",
		Status:      models.StatusCompleted,
		CompletedAt: &completedAt,
	}).Error; err != nil {
		t.Fatalf("seed transaction %s: %v", id, err)
	}
}

func seedRating(t *testing.T, db *gorm.DB, txID, raterID, ratedID string) {
	t.Helper()
	id, err := models.GenerateID("rt")
	if err != nil {
		t.Fatalf("generate id: %v", err)
	}
	if err := db.Create(&models.Rating{
		ID:            id,
		TransactionID: txID,
		RaterID:       raterID,
		RatedID:       ratedID,
		Score:         5,
	}).Error; err != nil {
		t.Fatalf("seed rating: %v", err)
	}
}

func TestSweep_RemindsBothUnratedParties(t *testing.T) {
	db := openTestDB(t)
	seedCompleted(t, db, "tx-1", 48*time.Hour)
	sender := &mockSender{}

	if err := Sweep(db, Opts{Grace: 24 * time.Hour, Notifier: sender}); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	notes := sender.sent()
	if len(notes) != 2 {
		t.Fatalf("sent notes = %d, want 2", len(notes))
	}
	recipients := map[string]bool{}
	for _, note := range notes {
		if note.Kind != notify.KindRatingReminder {
			t.Errorf("Kind = %q, want rating_reminder", note.Kind)
		}
		recipients[note.Recipient] = true
	}
	if !recipients["u-buyer"] || !recipients["u-seller"] {
		t.Errorf("recipients = %v, want both parties", recipients)
	}
}

func TestSweep_SkipsWithinGrace(t *testing.T) {
	db := openTestDB(t)
	seedCompleted(t, db, "tx-fresh", 1*time.Hour)
	sender := &mockSender{}

	if err := Sweep(db, Opts{Grace: 24 * time.Hour, Notifier: sender}); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if got := len(sender.sent()); got != 0 {
		t.Errorf("sent notes = %d, want 0 inside grace period", got)
	}
}

func TestSweep_SkipsActiveTransactions(t *testing.T) {
	db := openTestDB(t)
	if err := db.Create(&models.Transaction{
		ID: "tx-active", ItemID: "item-1",
		BuyerID: "u-buyer", SellerID: "u-seller",
		Status: models.StatusActive,
	}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	sender := &mockSender{}

	if err := Sweep(db, Opts{Grace: 0, Notifier: sender}); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if got := len(sender.sent()); got != 0 {
		t.Errorf("sent notes = %d, want 0 for active transaction", got)
	}
}

func TestSweep_SkipsPartyThatRated(t *testing.T) {
	db := openTestDB(t)
	seedCompleted(t, db, "tx-1", 48*time.Hour)
	seedRating(t, db, "tx-1", "u-buyer", "u-seller")
	sender := &mockSender{}

	if err := Sweep(db, Opts{Grace: 24 * time.Hour, Notifier: sender}); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	notes := sender.sent()
	if len(notes) != 1 {
		t.Fatalf("sent notes = %d, want 1", len(notes))
	}
	if notes[0].Recipient != "u-seller" {
		t.Errorf("recipient = %q, want u-seller", notes[0].Recipient)
	}
}

func TestSweep_RemindsOnce(t *testing.T) {
	db := openTestDB(t)
	seedCompleted(t, db, "tx-1", 48*time.Hour)
	sender := &mockSender{}
	opts := Opts{Grace: 24 * time.Hour, Notifier: sender}

	if err := Sweep(db, opts); err != nil {
		t.Fatalf("first Sweep: %v", err)
	}
	if err := Sweep(db, opts); err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if got := len(sender.sent()); got != 2 {
		t.Errorf("sent notes = %d, want 2 across repeated sweeps", got)
	}
}

func TestSweep_ConcurrentSweepsDedup(t *testing.T) {
	db := openTestDB(t)
	seedCompleted(t, db, "tx-1", 48*time.Hour)
	sender := &mockSender{}
	opts := Opts{Grace: 24 * time.Hour, Notifier: sender}

	var wg sync.WaitGroup
	for n := 0; n < 4; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := Sweep(db, opts); err != nil {
				t.Errorf("Sweep: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(sender.sent()); got != 2 {
		t.Errorf("sent notes = %d, want 2 despite concurrent sweeps", got)
	}
}

func TestSweep_ResolvesDisplayNames(t *testing.T) {
	db := openTestDB(t)
	seedCompleted(t, db, "tx-1", 48*time.Hour)
	seedRating(t, db, "tx-1", "u-seller", "u-buyer")
	sender := &mockSender{}

	dir := directory.Static{
		Items: map[string]string{"item-tx-1": "Vintage camera"},
		Users: map[string]string{"u-buyer": "Alice", "u-seller": "Bob"},
	}
	if err := Sweep(db, Opts{Grace: 24 * time.Hour, Notifier: sender, Directory: dir}); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	notes := sender.sent()
	if len(notes) != 1 {
		t.Fatalf("sent notes = %d, want 1", len(notes))
	}
	if notes[0].ItemName != "Vintage camera" || notes[0].Recipient != "Alice" {
		t.Errorf("note = %+v, want resolved names", notes[0])
	}
}

func TestSweep_NilNotifierStillRecords(t *testing.T) {
	db := openTestDB(t)
	seedCompleted(t, db, "tx-1", 48*time.Hour)

	if err := Sweep(db, Opts{Grace: 24 * time.Hour}); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	var count int64
	if err := db.Model(&models.ReminderSent{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("reminder rows = %d, want 2", count)
	}
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	db := openTestDB(t)
	if _, err := Start(db, "not a schedule", Opts{}); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestStart_ValidSchedule(t *testing.T) {
	db := openTestDB(t)
	c, err := Start(db, "0 9 * * *", Opts{Grace: 24 * time.Hour})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.Stop()
}
