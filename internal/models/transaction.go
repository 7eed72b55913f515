package models

import "time"

// Transaction states. The lifecycle is one-way: active to completed,
// no other states and no way back.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Transaction is a deal between a buyer and a seller over one item.
// Created when the purchase is initiated; the buyer alone moves it to
// completed by confirming receipt.
type Transaction struct {
	ID          string `gorm:"primaryKey;size:32"`
	ItemID      string `gorm:"size:64;not null;index"`
	BuyerID     string `gorm:"size:64;not null;index"`
	SellerID    string `gorm:"size:64;not null;index"`
	Status      string `gorm:"size:16;not null;default:active"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}
