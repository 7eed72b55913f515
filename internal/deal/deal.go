// Package deal owns the transaction lifecycle: party-scoped reads and
// the single transition from active to completed.
package deal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/nishio/dealroom/internal/auth"
	"github.com/nishio/dealroom/internal/directory"
	"github.com/nishio/dealroom/internal/fault"
	"github.com/nishio/dealroom/internal/models"
	"github.com/nishio/dealroom/internal/notify"
)

// Get retrieves a transaction by id for one of its parties.
func Get(db *gorm.DB, id, requesterID string) (*models.Transaction, error) {
	tx, err := find(db, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireParty(tx, requesterID); err != nil {
		return nil, err
	}
	return tx, nil
}

// ListByUser returns every transaction where the user is buyer or
// seller, most recently updated first.
func ListByUser(db *gorm.DB, userID string) ([]models.Transaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("deal: userID is required")
	}
	var txs []models.Transaction
	if err := db.Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("updated_at DESC").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("deal: list for %s: %w", userID, err)
	}
	return txs, nil
}

// HasActiveForItem reports whether an active transaction references the
// item. The catalog uses this to decide whether the item is still
// purchasable.
func HasActiveForItem(db *gorm.DB, itemID string) (bool, error) {
	var count int64
	if err := db.Model(&models.Transaction{}).
		Where("item_id = ? AND status = ?", itemID, models.StatusActive).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("deal: check active for item %s: %w", itemID, err)
	}
	return count > 0, nil
}

// CompleteOpts holds the collaborators Complete notifies through.
type CompleteOpts struct {
	Notifier  notify.Sender
	Directory directory.Lookup
}

// Complete moves a transaction from active to completed. Only the buyer
// may complete, and only once: the transition is a single conditional
// update so concurrent calls race at the storage layer and exactly one
// wins. The seller notification is best-effort and never rolls back the
// committed transition.
func Complete(ctx context.Context, db *gorm.DB, id, requesterID string, opts CompleteOpts) (*models.Transaction, error) {
	tx, err := find(db, id)
	if err != nil {
		return nil, err
	}
	if requesterID != tx.BuyerID {
		return nil, fmt.Errorf("deal: only the buyer may complete transaction %s: %w",
			id, fault.ErrUnauthorized)
	}
	if tx.Status != models.StatusActive {
		return nil, fmt.Errorf("deal: transaction %s is %s: %w", id, tx.Status, fault.ErrInvalidState)
	}

	now := time.Now()
	result := db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.StatusActive).
		Updates(map[string]interface{}{
			"status":       models.StatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("deal: complete %s: %w", id, result.Error)
	}
	// Zero rows means another caller won the transition between our read
	// and the guarded write.
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("deal: transaction %s is already completed: %w", id, fault.ErrInvalidState)
	}

	tx.Status = models.StatusCompleted
	tx.CompletedAt = &now
	tx.UpdatedAt = now

	notifySeller(ctx, tx, opts)
	return tx, nil
}

// notifySeller tells the seller the deal closed. Failures are logged,
// never returned: the transition is already committed.
func notifySeller(ctx context.Context, tx *models.Transaction, opts CompleteOpts) {
	if opts.Notifier == nil {
		return
	}
	note := notify.Note{
		Kind:          notify.KindDealCompleted,
		TransactionID: tx.ID,
		ItemName:      tx.ItemID,
		BuyerName:     tx.BuyerID,
		SellerName:    tx.SellerID,
		Recipient:     tx.SellerID,
	}
	if opts.Directory != nil {
		note.ItemName = opts.Directory.ItemName(tx.ItemID)
		note.BuyerName = opts.Directory.DisplayName(tx.BuyerID)
		note.SellerName = opts.Directory.DisplayName(tx.SellerID)
		note.Recipient = note.SellerName
	}
	if err := opts.Notifier.Send(ctx, note); err != nil {
		log.Printf("deal: completion notification for %s failed: %v", tx.ID, err)
	}
}

// find loads a transaction or reports NotFound.
func find(db *gorm.DB, id string) (*models.Transaction, error) {
	if id == "" {
		return nil, fmt.Errorf("deal: transaction id is required")
	}
	var tx models.Transaction
	if err := db.Where("id = ?", id).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("deal: transaction %s: %w", id, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("deal: get %s: %w", id, err)
	}
	return &tx, nil
}
