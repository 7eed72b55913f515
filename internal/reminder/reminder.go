// Package reminder nudges parties of completed transactions that have
// not rated each other yet. Runs on a cron schedule; each party is
// reminded at most once per transaction.
package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nishio/dealroom/internal/directory"
	"github.com/nishio/dealroom/internal/models"
	"github.com/nishio/dealroom/internal/notify"
	"github.com/nishio/dealroom/internal/rating"
)

// Opts configures the sweep.
type Opts struct {
	Grace     time.Duration // completion age before a reminder is due
	Notifier  notify.Sender
	Directory directory.Lookup
}

// Start schedules Sweep on a standard 5-field cron expression and
// starts the runner. The caller stops it via the returned cron.Cron.
func Start(db *gorm.DB, schedule string, opts Opts) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := Sweep(db, opts); err != nil {
			log.Printf("reminder: sweep failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("reminder: schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}

// Sweep finds transactions completed before the grace cutoff where one
// or both parties have not rated, and sends each un-rated party one
// reminder. The dedup row is claimed with an insert-if-absent before
// sending, so concurrent sweeps cannot double-remind.
func Sweep(db *gorm.DB, opts Opts) error {
	cutoff := time.Now().Add(-opts.Grace)

	var txs []models.Transaction
	if err := db.Where("status = ? AND completed_at <= ?", models.StatusCompleted, cutoff).
		Find(&txs).Error; err != nil {
		return fmt.Errorf("reminder: load completed transactions: %w", err)
	}

	for _, tx := range txs {
		for _, party := range []string{tx.BuyerID, tx.SellerID} {
			if err := remind(db, tx, party, opts); err != nil {
				log.Printf("reminder: %s/%s: %v", tx.ID, party, err)
			}
		}
	}
	return nil
}

// remind sends one reminder to a party if they have not rated and have
// not been reminded before.
func remind(db *gorm.DB, tx models.Transaction, party string, opts Opts) error {
	rated, err := rating.HasRated(db, tx.ID, party)
	if err != nil {
		return err
	}
	if rated {
		return nil
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.ReminderSent{
		TransactionID: tx.ID,
		UserID:        party,
		SentAt:        time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("record reminder: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil // already reminded
	}

	if opts.Notifier == nil {
		return nil
	}
	note := notify.Note{
		Kind:          notify.KindRatingReminder,
		TransactionID: tx.ID,
		ItemName:      tx.ItemID,
		BuyerName:     tx.BuyerID,
		SellerName:    tx.SellerID,
		Recipient:     party,
	}
	if opts.Directory != nil {
		note.ItemName = opts.Directory.ItemName(tx.ItemID)
		note.BuyerName = opts.Directory.DisplayName(tx.BuyerID)
		note.SellerName = opts.Directory.DisplayName(tx.SellerID)
		note.Recipient = opts.Directory.DisplayName(party)
	}
	if err := opts.Notifier.Send(context.Background(), note); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	return nil
}
