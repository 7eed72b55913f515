// Package rating records post-completion bilateral ratings and answers
// the aggregate and gating queries built on them.
package rating

import (
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/nishio/dealroom/internal/auth"
	"github.com/nishio/dealroom/internal/fault"
	"github.com/nishio/dealroom/internal/models"
)

const (
	// MinScore and MaxScore bound the accepted rating scale.
	MinScore = 1
	MaxScore = 5
	// MaxCommentLen is the comment ceiling in characters.
	MaxCommentLen = 500
)

// Create records one party's rating of the other. A party rates at most
// once per transaction: the unique index on (transaction_id, rater_id)
// is the source of truth, and a constraint violation on insert is
// reported as DuplicateRating regardless of interleaving. The HasRated
// pre-check only gives a friendlier fast path.
func Create(db *gorm.DB, transactionID, raterID, ratedID string, score int, comment string) (*models.Rating, error) {
	tx, err := findTransaction(db, transactionID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireParty(tx, raterID); err != nil {
		return nil, err
	}
	if score < MinScore || score > MaxScore {
		return nil, fault.Validationf("score must be between %d and %d", MinScore, MaxScore)
	}
	if raterID == ratedID {
		return nil, fault.Validationf("a party cannot rate themselves")
	}
	if utf8.RuneCountInString(comment) > MaxCommentLen {
		return nil, fault.Validationf("comment exceeds %d characters", MaxCommentLen)
	}

	already, err := HasRated(db, transactionID, raterID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, fmt.Errorf("rating: %s already rated transaction %s: %w",
			raterID, transactionID, fault.ErrDuplicateRating)
	}

	id, err := models.GenerateID("rt")
	if err != nil {
		return nil, err
	}
	r := models.Rating{
		ID:            id,
		TransactionID: transactionID,
		RaterID:       raterID,
		RatedID:       ratedID,
		Score:         score,
		Comment:       comment,
		CreatedAt:     time.Now(),
	}
	if err := db.Create(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("rating: %s already rated transaction %s: %w",
				raterID, transactionID, fault.ErrDuplicateRating)
		}
		return nil, fmt.Errorf("rating: create: %w", err)
	}
	return &r, nil
}

// ListByTransaction returns the ratings recorded for a transaction.
func ListByTransaction(db *gorm.DB, transactionID string) ([]models.Rating, error) {
	var ratings []models.Rating
	if err := db.Where("transaction_id = ?", transactionID).
		Order("created_at ASC").Find(&ratings).Error; err != nil {
		return nil, fmt.Errorf("rating: list for %s: %w", transactionID, err)
	}
	return ratings, nil
}

// HasRated reports whether the user already rated this transaction.
func HasRated(db *gorm.DB, transactionID, userID string) (bool, error) {
	var count int64
	if err := db.Model(&models.Rating{}).
		Where("transaction_id = ? AND rater_id = ?", transactionID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("rating: check %s on %s: %w", userID, transactionID, err)
	}
	return count > 0, nil
}

// IsCompleted reports whether both parties have rated each other for
// this transaction.
func IsCompleted(db *gorm.DB, transactionID, buyerID, sellerID string) (bool, error) {
	buyerDone, err := HasRated(db, transactionID, buyerID)
	if err != nil {
		return false, err
	}
	if !buyerDone {
		return false, nil
	}
	sellerDone, err := HasRated(db, transactionID, sellerID)
	if err != nil {
		return false, err
	}
	return sellerDone, nil
}

// AverageFor returns the user's aggregate score across every
// transaction: the arithmetic mean of all scores received, rounded half
// away from zero to a whole number. Nil when the user has no ratings.
func AverageFor(db *gorm.DB, ratedUserID string) (*int, error) {
	var row struct {
		Avg   float64
		Count int64
	}
	if err := db.Model(&models.Rating{}).
		Select("COALESCE(AVG(score), 0) as avg, COUNT(*) as count").
		Where("rated_id = ?", ratedUserID).
		Scan(&row).Error; err != nil {
		return nil, fmt.Errorf("rating: average for %s: %w", ratedUserID, err)
	}
	if row.Count == 0 {
		return nil, nil
	}
	// Scores are positive, so half away from zero is floor(x + 0.5).
	rounded := int(math.Floor(row.Avg + 0.5))
	return &rounded, nil
}

// findTransaction loads the enclosing transaction or reports NotFound.
func findTransaction(db *gorm.DB, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := db.Where("id = ?", id).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("rating: transaction %s: %w", id, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("rating: get transaction %s: %w", id, err)
	}
	return &tx, nil
}
