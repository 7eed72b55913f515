// Package chat is the append-only message log scoped to a transaction,
// with author-only edits, soft deletes, and idempotent read receipts.
package chat

import (
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nishio/dealroom/internal/auth"
	"github.com/nishio/dealroom/internal/fault"
	"github.com/nishio/dealroom/internal/models"
	"github.com/nishio/dealroom/internal/upload"
)

// MaxContentLen is the message content ceiling in characters.
const MaxContentLen = 400

// SendOpts holds the optional payload of a new message.
type SendOpts struct {
	Content string
	Images  []upload.RawFile
	Store   upload.Store // required when Images is non-empty
}

// Send appends a message to the transaction's thread. Images are
// uploaded first and linked after; an image that fails upload is
// skipped, not fatal. The boundary already rejects empty messages, but
// the check is repeated here because the service is reachable without
// the HTTP layer.
func Send(db *gorm.DB, transactionID, authorID string, opts SendOpts) (*models.Message, error) {
	tx, err := findTransaction(db, transactionID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireParty(tx, authorID); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(opts.Content) > MaxContentLen {
		return nil, fault.Validationf("content exceeds %d characters", MaxContentLen)
	}

	paths := storeImages(opts)
	if opts.Content == "" && len(paths) == 0 {
		return nil, fault.Validationf("a message needs content or at least one image")
	}

	id, err := models.GenerateID("msg")
	if err != nil {
		return nil, err
	}
	msg := models.Message{
		ID:            id,
		TransactionID: transactionID,
		AuthorID:      authorID,
		Content:       opts.Content,
		CreatedAt:     time.Now(),
	}
	if err := db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("chat: send: %w", err)
	}

	for _, path := range paths {
		imgID, err := models.GenerateID("img")
		if err != nil {
			return nil, err
		}
		img := models.MessageImage{
			ID:          imgID,
			MessageID:   msg.ID,
			StoragePath: path,
			CreatedAt:   time.Now(),
		}
		if err := db.Create(&img).Error; err != nil {
			return nil, fmt.Errorf("chat: attach image to %s: %w", msg.ID, err)
		}
		msg.Images = append(msg.Images, img)
	}

	return &msg, nil
}

// storeImages uploads each attachment, skipping failures.
func storeImages(opts SendOpts) []string {
	if len(opts.Images) == 0 {
		return nil
	}
	var paths []string
	for _, f := range opts.Images {
		if opts.Store == nil {
			log.Printf("chat: no upload store configured, skipping image %s", f.Name)
			continue
		}
		path, err := opts.Store.Save(f)
		if err != nil {
			log.Printf("chat: image %s skipped: %v", f.Name, err)
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

// ListByTransaction returns the transaction's live messages in ascending
// chronological order. Soft-deleted rows are excluded from the listing
// but their tombstones remain retrievable by id.
func ListByTransaction(db *gorm.DB, transactionID string) ([]models.Message, error) {
	var msgs []models.Message
	if err := db.Preload("Images").
		Where("transaction_id = ? AND deleted_at IS NULL", transactionID).
		Order("created_at ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("chat: list for %s: %w", transactionID, err)
	}
	return msgs, nil
}

// Get retrieves a single message by id, tombstones included.
func Get(db *gorm.DB, messageID string) (*models.Message, error) {
	var msg models.Message
	if err := db.Preload("Images").Where("id = ?", messageID).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chat: message %s: %w", messageID, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("chat: get %s: %w", messageID, err)
	}
	return &msg, nil
}

// Update replaces a message's content. Author only; a deleted message
// is a tombstone and cannot be edited.
func Update(db *gorm.DB, messageID, requesterID, content string) (*models.Message, error) {
	msg, err := Get(db, messageID)
	if err != nil {
		return nil, err
	}
	if msg.AuthorID != requesterID {
		return nil, fmt.Errorf("chat: user %s is not the author of %s: %w",
			requesterID, messageID, fault.ErrUnauthorized)
	}
	if msg.DeletedAt != nil {
		return nil, fmt.Errorf("chat: message %s is deleted: %w", messageID, fault.ErrInvalidState)
	}
	if content == "" || utf8.RuneCountInString(content) > MaxContentLen {
		return nil, fault.Validationf("content must be 1-%d characters", MaxContentLen)
	}

	now := time.Now()
	if err := db.Model(&models.Message{}).Where("id = ?", messageID).
		Updates(map[string]interface{}{"content": content, "updated_at": now}).Error; err != nil {
		return nil, fmt.Errorf("chat: update %s: %w", messageID, err)
	}
	msg.Content = content
	msg.UpdatedAt = &now
	return msg, nil
}

// Delete soft-deletes a message. Author only. The row and its images
// are retained for history; deleting an already-deleted message is a
// no-op.
func Delete(db *gorm.DB, messageID, requesterID string) error {
	msg, err := Get(db, messageID)
	if err != nil {
		return err
	}
	if msg.AuthorID != requesterID {
		return fmt.Errorf("chat: user %s is not the author of %s: %w",
			requesterID, messageID, fault.ErrUnauthorized)
	}

	if err := db.Model(&models.Message{}).
		Where("id = ? AND deleted_at IS NULL", messageID).
		Update("deleted_at", time.Now()).Error; err != nil {
		return fmt.Errorf("chat: delete %s: %w", messageID, err)
	}
	return nil
}

// MarkRead records a read receipt for every message in the transaction
// not authored by the reader. Idempotent: the composite primary key plus
// an insert-if-absent makes repeat and concurrent calls converge on one
// row per (message, reader) with no error.
func MarkRead(db *gorm.DB, transactionID, readerID string) error {
	tx, err := findTransaction(db, transactionID)
	if err != nil {
		return err
	}
	if err := auth.RequireParty(tx, readerID); err != nil {
		return err
	}

	var msgs []models.Message
	if err := db.Where("transaction_id = ? AND author_id <> ?", transactionID, readerID).
		Find(&msgs).Error; err != nil {
		return fmt.Errorf("chat: load messages for %s: %w", transactionID, err)
	}
	if len(msgs) == 0 {
		return nil
	}

	now := time.Now()
	reads := make([]models.MessageRead, 0, len(msgs))
	for _, m := range msgs {
		reads = append(reads, models.MessageRead{
			MessageID: m.ID,
			UserID:    readerID,
			ReadAt:    now,
		})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&reads).Error; err != nil {
		return fmt.Errorf("chat: mark read for %s: %w", transactionID, err)
	}
	return nil
}

// UnreadCount returns how many live counterpart messages the user has
// not read yet. Polling UIs display this next to each transaction.
func UnreadCount(db *gorm.DB, transactionID, userID string) (int64, error) {
	var count int64
	err := db.Model(&models.Message{}).
		Where("transaction_id = ? AND author_id <> ? AND deleted_at IS NULL", transactionID, userID).
		Where("id NOT IN (?)", db.Model(&models.MessageRead{}).
			Select("message_id").Where("user_id = ?", userID)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("chat: unread count for %s: %w", transactionID, err)
	}
	return count, nil
}

// findTransaction loads the enclosing transaction or reports NotFound.
func findTransaction(db *gorm.DB, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := db.Where("id = ?", id).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chat: transaction %s: %w", id, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("chat: get transaction %s: %w", id, err)
	}
	return &tx, nil
}
