package models

import (
	"time"

	"gorm.io/gorm"
)

// WalletTransaction records credits/debits for wallet history (earnings,
// payouts).
type WalletTransaction struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	AmountMinor int64          `gorm:"not null" json:"amount_minor"`       // positive = credit, negative = debit
	Type        string         `gorm:"size:30;not null;index;uniqueIndex:idx_txn_type_ref" json:"type"` // EARNING, PAYOUT
	Reference   string         `gorm:"size:128;uniqueIndex:idx_txn_type_ref" json:"reference"`          // e.g. payment order_ref, payout order_id
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
