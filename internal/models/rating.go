package models

import "time"

// Rating is one party's post-completion score of the other. The unique
// index on (transaction_id, rater_id) is the source of truth for the
// one-rating-per-party rule; application pre-checks are advisory.
type Rating struct {
	ID            string `gorm:"primaryKey;size:32"`
	TransactionID string `gorm:"size:32;not null;uniqueIndex:idx_ratings_tx_rater"`
	RaterID       string `gorm:"size:64;not null;uniqueIndex:idx_ratings_tx_rater"`
	RatedID       string `gorm:"size:64;not null;index"`
	Score         int    `gorm:"not null"`
	Comment       string `gorm:"size:500"`
	CreatedAt     time.Time
}

// ReminderSent marks that a rating reminder went out to a party for a
// completed transaction. Composite key keeps the sweep idempotent.
type ReminderSent struct {
	TransactionID string `gorm:"primaryKey;size:32"`
	UserID        string `gorm:"primaryKey;size:64"`
	SentAt        time.Time
}
