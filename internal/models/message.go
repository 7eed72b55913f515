package models

import "time"

// Message is one entry in a transaction's chat thread. Deletion is a
// soft delete: DeletedAt is set and the row is retained for history.
type Message struct {
	ID            string `gorm:"primaryKey;size:32"`
	TransactionID string `gorm:"size:32;not null;index"`
	AuthorID      string `gorm:"size:64;not null"`
	Content       string `gorm:"size:400"`
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time `gorm:"index"`

	Images []MessageImage `gorm:"foreignKey:MessageID"`
}

// MessageImage is an image attached to a message at send time.
// Immutable after creation; survives the message's soft delete.
type MessageImage struct {
	ID          string `gorm:"primaryKey;size:32"`
	MessageID   string `gorm:"size:32;not null;index"`
	StoragePath string `gorm:"size:256;not null"`
	CreatedAt   time.Time
}

// MessageRead records that a user has seen a message. The composite
// primary key makes read receipts idempotent at the storage layer.
type MessageRead struct {
	MessageID string `gorm:"primaryKey;size:32"`
	UserID    string `gorm:"primaryKey;size:64"`
	ReadAt    time.Time
}
